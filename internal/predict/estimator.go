package predict

import (
	"context"
	"fmt"

	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
	"github.com/ironsheep/fovea-tools-mcp/internal/heatmap"
	"github.com/ironsheep/fovea-tools-mcp/internal/imaging"
)

// Estimator maps a model input tensor to a score tensor.
type Estimator interface {
	Estimate(ctx context.Context, input *imaging.Tensor) (*ScoreTensor, error)
}

// EstimatorFunc adapts a plain function to Estimator.
type EstimatorFunc func(ctx context.Context, input *imaging.Tensor) (*ScoreTensor, error)

// Estimate implements Estimator.
func (f EstimatorFunc) Estimate(ctx context.Context, input *imaging.Tensor) (*ScoreTensor, error) {
	return f(ctx, input)
}

// ScoreTensor is an (N, C, H, W) float32 output.
type ScoreTensor struct {
	N, C, H, W int
	Data       []float32
}

// NewScoreTensor wraps a single heatmap as a (1, 1, H, W) tensor.
func NewScoreTensor(h *heatmap.Heatmap) *ScoreTensor {
	size := h.Size()
	d := h.Data()
	st := &ScoreTensor{N: 1, C: 1, H: size.Height, W: size.Width, Data: make([]float32, len(d))}
	for i, v := range d {
		st.Data[i] = float32(v)
	}
	return st
}

// Plane extracts batch entry n, channel c as a heatmap.
func (s *ScoreTensor) Plane(n, c int) (*heatmap.Heatmap, error) {
	if n < 0 || n >= s.N || c < 0 || c >= s.C {
		return nil, fmt.Errorf("plane (%d,%d) outside score tensor of shape (%d,%d,%d,%d)", n, c, s.N, s.C, s.H, s.W)
	}
	plane := s.H * s.W
	if len(s.Data) != s.N*s.C*plane {
		return nil, fmt.Errorf("score tensor data length %d does not match shape (%d,%d,%d,%d)",
			len(s.Data), s.N, s.C, s.H, s.W)
	}
	off := (n*s.C + c) * plane
	data := make([]float64, plane)
	for i := range data {
		data[i] = float64(s.Data[off+i])
	}
	return heatmap.FromData(geometry.Size{Width: s.W, Height: s.H}, data)
}
