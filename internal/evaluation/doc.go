// Package evaluation scores predicted heatmaps against ground-truth targets.
//
// PrecisionMeter is the accumulator: it decodes ground-truth and predicted
// heatmaps with the same Decoder and records the absolute grid-cell error on
// each axis. A meter belongs to one evaluation run; concurrent runs must use
// separate meters, and a single meter is not safe for concurrent Update calls.
//
// Evaluate drives a meter over a whole dataset and returns a Run record,
// which a Store can persist in SQLite and PlotErrors can render as a
// histogram.
//
// # Empty Meters
//
// Precision and LastPrecision return ErrNoSamples when nothing has been
// accumulated. A real precision of 0 means every prediction hit its target
// cell; it is never used to signal missing data.
package evaluation
