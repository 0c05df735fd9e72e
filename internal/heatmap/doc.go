// Package heatmap encodes landmark targets as Gaussian heatmaps and decodes
// predicted heatmaps back into grid coordinates.
//
// A Heatmap is a dense 2-D grid of scores. Rows follow the Y axis and columns
// follow the X axis, with (0,0) at the top-left cell. Target heatmaps are
// produced by Encode; predicted heatmaps come from an estimator. Both are
// decoded the same way, which is what makes ground truth and prediction
// comparable.
//
// # Decoding Strategies
//
// Decoding is polymorphic through the Decoder interface:
//   - Argmax: the cell holding the highest score. Ties resolve to the first
//     cell in row-major order.
//   - Centroid: score-weighted centroid of the cells at or above a fraction of
//     the peak.
//
// Every strategy returns exactly one coordinate and never fails. An empty or
// all-zero map decodes to (0,0): the result is degenerate but defined, since
// Encode legitimately produces all-zero targets for centers far outside the
// grid.
//
// # Interchange
//
// Heatmaps can be written to and read from 16-bit grayscale PNG files so that
// an external model runner can hand predicted maps to this module.
package heatmap
