package heatmap

import (
	"fmt"

	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Heatmap is a row-major grid of non-negative scores.
//
// The zero-sized heatmap is valid and has no backing matrix.
type Heatmap struct {
	rows, cols int
	m          *mat.Dense
}

// New returns an all-zero heatmap of the given shape.
func New(size geometry.Size) *Heatmap {
	h := &Heatmap{rows: size.Height, cols: size.Width}
	if h.rows > 0 && h.cols > 0 {
		h.m = mat.NewDense(h.rows, h.cols, nil)
	} else {
		h.rows, h.cols = 0, 0
	}
	return h
}

// FromData wraps row-major values. data is used directly, not copied.
func FromData(size geometry.Size, data []float64) (*Heatmap, error) {
	if size.Width < 0 || size.Height < 0 {
		return nil, fmt.Errorf("negative heatmap shape %s", size)
	}
	if len(data) != size.Width*size.Height {
		return nil, fmt.Errorf("heatmap data length %d does not match shape %s", len(data), size)
	}
	if len(data) == 0 {
		return &Heatmap{}, nil
	}
	return &Heatmap{rows: size.Height, cols: size.Width, m: mat.NewDense(size.Height, size.Width, data)}, nil
}

// fromDense adopts a contiguous matrix.
func fromDense(m *mat.Dense) *Heatmap {
	r, c := m.Dims()
	return &Heatmap{rows: r, cols: c, m: m}
}

// Size returns the heatmap shape as width (columns) by height (rows).
func (h *Heatmap) Size() geometry.Size {
	return geometry.Size{Width: h.cols, Height: h.rows}
}

// Empty reports whether the heatmap has no cells.
func (h *Heatmap) Empty() bool {
	return h.m == nil
}

// At returns the score at column x, row y.
func (h *Heatmap) At(x, y int) float64 {
	return h.m.At(y, x)
}

// Set stores a score at column x, row y.
func (h *Heatmap) Set(x, y int, v float64) {
	h.m.Set(y, x, v)
}

// Data returns the row-major backing slice. Callers must not retain it across
// mutations.
func (h *Heatmap) Data() []float64 {
	if h.m == nil {
		return nil
	}
	raw := h.m.RawMatrix()
	if raw.Stride == raw.Cols {
		return raw.Data[:raw.Rows*raw.Cols]
	}
	var c mat.Dense
	c.CloneFrom(h.m)
	return c.RawMatrix().Data
}

// Max returns the highest score, or 0 for an empty heatmap.
func (h *Heatmap) Max() float64 {
	d := h.Data()
	if len(d) == 0 {
		return 0
	}
	return floats.Max(d)
}

// Clone returns a deep copy.
func (h *Heatmap) Clone() *Heatmap {
	if h.m == nil {
		return &Heatmap{}
	}
	var c mat.Dense
	c.CloneFrom(h.m)
	return fromDense(&c)
}
