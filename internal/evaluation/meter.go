package evaluation

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/fovea-tools-mcp/internal/heatmap"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNoSamples is returned when querying an empty meter.
	ErrNoSamples = errors.New("no precision samples")

	// ErrBatchMismatch is returned when ground-truth and prediction batches
	// differ in length.
	ErrBatchMismatch = errors.New("batch size mismatch")
)

// Sample is the absolute decoded error of one image, in grid cells.
type Sample struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// PrecisionMeter accumulates per-image decode errors.
type PrecisionMeter struct {
	dec     heatmap.Decoder
	samples []Sample
}

// NewPrecisionMeter returns an empty meter decoding with dec. A nil decoder
// selects argmax.
func NewPrecisionMeter(dec heatmap.Decoder) *PrecisionMeter {
	if dec == nil {
		dec = heatmap.Argmax{}
	}
	return &PrecisionMeter{dec: dec}
}

// Decoder returns the strategy the meter decodes with.
func (m *PrecisionMeter) Decoder() heatmap.Decoder {
	return m.dec
}

// Update decodes each ground-truth/prediction pair and appends its error.
// Nothing is appended if the batches differ in length or contain nil maps.
func (m *PrecisionMeter) Update(gt, pred []*heatmap.Heatmap) error {
	if len(gt) != len(pred) {
		return fmt.Errorf("%w: %d ground-truth maps, %d predictions", ErrBatchMismatch, len(gt), len(pred))
	}
	for i := range gt {
		if gt[i] == nil || pred[i] == nil {
			return fmt.Errorf("nil heatmap at batch position %d", i)
		}
	}

	for i := range gt {
		g := m.dec.Decode(gt[i])
		p := m.dec.Decode(pred[i])
		m.samples = append(m.samples, Sample{
			DX: math.Abs(float64(g.X - p.X)),
			DY: math.Abs(float64(g.Y - p.Y)),
		})
	}
	return nil
}

// Precision returns the mean absolute error over both axes and all samples.
func (m *PrecisionMeter) Precision() (float64, error) {
	if len(m.samples) == 0 {
		return 0, ErrNoSamples
	}
	flat := make([]float64, 0, 2*len(m.samples))
	for _, s := range m.samples {
		flat = append(flat, s.DX, s.DY)
	}
	return stat.Mean(flat, nil), nil
}

// LastPrecision returns the most recently appended sample.
func (m *PrecisionMeter) LastPrecision() (Sample, error) {
	if len(m.samples) == 0 {
		return Sample{}, ErrNoSamples
	}
	return m.samples[len(m.samples)-1], nil
}

// Len returns the number of accumulated samples.
func (m *PrecisionMeter) Len() int {
	return len(m.samples)
}

// Samples returns a copy of the accumulated samples in append order.
func (m *PrecisionMeter) Samples() []Sample {
	return append([]Sample(nil), m.samples...)
}

// Reset discards all accumulated samples.
func (m *PrecisionMeter) Reset() {
	m.samples = nil
}
