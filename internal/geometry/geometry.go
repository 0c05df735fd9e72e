package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGeometry is returned by Config.Validate for unusable settings.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Point is a sub-pixel coordinate in original or model space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// GridPoint is a heatmap cell coordinate.
type GridPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is a width/height pair in pixels or cells.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Scale holds the per-axis ratio original/model recorded when an image is
// resized for the model.
type Scale struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Config is the process-wide geometry shared by encoding and decoding.
type Config struct {
	// InputSize is the model input shape (width, height).
	InputSize Size `json:"model_input_shape"`

	// OutputStride is the downsampling factor between model input and heatmap.
	OutputStride int `json:"output_stride"`

	// KernelSize is the side of the Gaussian target kernel. Must be odd.
	KernelSize int `json:"kernel_size"`
}

// Validate checks the invariants every conversion relies on.
func (c Config) Validate() error {
	if c.InputSize.Width <= 0 || c.InputSize.Height <= 0 {
		return fmt.Errorf("%w: model input shape %s must be positive", ErrInvalidGeometry, c.InputSize)
	}
	if c.OutputStride <= 0 {
		return fmt.Errorf("%w: output stride %d must be positive", ErrInvalidGeometry, c.OutputStride)
	}
	if c.KernelSize < 3 || c.KernelSize%2 == 0 {
		return fmt.Errorf("%w: kernel size %d must be odd and >= 3", ErrInvalidGeometry, c.KernelSize)
	}
	if c.InputSize.Width < c.OutputStride || c.InputSize.Height < c.OutputStride {
		return fmt.Errorf("%w: model input shape %s smaller than output stride %d",
			ErrInvalidGeometry, c.InputSize, c.OutputStride)
	}
	return nil
}

// GridSize returns the heatmap shape, floor(InputSize / OutputStride).
func (c Config) GridSize() Size {
	return Size{
		Width:  c.InputSize.Width / c.OutputStride,
		Height: c.InputSize.Height / c.OutputStride,
	}
}

// ResizeScale returns the original/model ratio for each axis.
func ResizeScale(orig, model Size) Scale {
	return Scale{
		X: float64(orig.Width) / float64(model.Width),
		Y: float64(orig.Height) / float64(model.Height),
	}
}

// ToModelSpace scales an original-space point into model space, each axis
// independently.
func ToModelSpace(p Point, orig, model Size) Point {
	return Point{
		X: p.X * float64(model.Width) / float64(orig.Width),
		Y: p.Y * float64(model.Height) / float64(orig.Height),
	}
}

// ToOriginalSpace is the inverse of ToModelSpace.
func ToOriginalSpace(p Point, orig, model Size) Point {
	return Point{
		X: p.X * float64(orig.Width) / float64(model.Width),
		Y: p.Y * float64(orig.Height) / float64(model.Height),
	}
}

// ToGridSpace floors a model-space point onto the heatmap grid.
func ToGridSpace(p Point, stride int) GridPoint {
	s := float64(stride)
	return GridPoint{
		X: int(math.Floor(p.X / s)),
		Y: int(math.Floor(p.Y / s)),
	}
}

// FromGridSpace expands a grid point by the stride and undoes the resize,
// returning an original-space point.
func FromGridSpace(g GridPoint, stride int, scale Scale) Point {
	return Point{
		X: float64(g.X*stride) * scale.X,
		Y: float64(g.Y*stride) * scale.Y,
	}
}

// GridToModel expands a grid point by the stride into model space.
func GridToModel(g GridPoint, stride int) Point {
	return Point{X: float64(g.X * stride), Y: float64(g.Y * stride)}
}
