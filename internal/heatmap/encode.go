package heatmap

import (
	"fmt"
	"math"

	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
	"gonum.org/v1/gonum/mat"
)

// GaussianKernel builds a size×size separable Gaussian with sigma = size,
// scaled so the center value is exactly 1.0.
//
// The 1-D profile is exp(-d²/2σ²) for d measured from the middle tap, so the
// center tap is exp(0) and the outer product peaks at 1·1 without a division
// that could introduce rounding.
func GaussianKernel(size int) *mat.Dense {
	center := float64(size-1) / 2
	sigma := float64(size)
	profile := make([]float64, size)
	for i := range profile {
		d := float64(i) - center
		profile[i] = math.Exp(-d * d / (2 * sigma * sigma))
	}
	v := mat.NewVecDense(size, profile)

	var k mat.Dense
	k.Outer(1, v, v)
	return &k
}

// Encode renders a training target: a Gaussian bump of kernelSize centered
// on the grid cell center, on a zero background of the given grid shape.
//
// The kernel is written into a canvas padded by kernelSize on the bottom and
// right, with its top-left tap at (center.Y, center.X), and the canvas is then
// cropped by (kernelSize-1)/2 from the top and left. Taps that fall outside
// the canvas are dropped, so centers on or beyond the border produce a
// partial bump and centers far outside produce an all-zero map.
func Encode(grid geometry.Size, kernelSize int, center geometry.GridPoint) (*Heatmap, error) {
	if kernelSize < 3 || kernelSize%2 == 0 {
		return nil, fmt.Errorf("kernel size %d must be odd and >= 3", kernelSize)
	}
	if grid.Width <= 0 || grid.Height <= 0 {
		return nil, fmt.Errorf("heatmap shape %s must be positive", grid)
	}

	rows := grid.Height + kernelSize
	cols := grid.Width + kernelSize
	canvas := mat.NewDense(rows, cols, nil)
	kernel := GaussianKernel(kernelSize)

	for i := 0; i < kernelSize; i++ {
		r := center.Y + i
		if r < 0 || r >= rows {
			continue
		}
		for j := 0; j < kernelSize; j++ {
			c := center.X + j
			if c < 0 || c >= cols {
				continue
			}
			canvas.Set(r, c, kernel.At(i, j))
		}
	}

	half := (kernelSize - 1) / 2
	var out mat.Dense
	out.CloneFrom(canvas.Slice(half, half+grid.Height, half, half+grid.Width))
	return fromDense(&out), nil
}
