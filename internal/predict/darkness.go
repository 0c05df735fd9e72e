package predict

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blur"
	"github.com/ironsheep/fovea-tools-mcp/internal/imaging"
)

// DarknessEstimator is a model-free baseline. The fovea is the darkest part
// of the retina inside the field of view, so it scores each pixel by its
// inverted luminance, zeroes the black border outside the field of view,
// smooths the result and average-pools it down by the output stride.
type DarknessEstimator struct {
	OutputStride int
	// BlurRadius is the Gaussian radius in model-input pixels.
	BlurRadius float64
	// FieldThreshold is the luminance in [0,1] below which a pixel is treated
	// as outside the field of view.
	FieldThreshold float64
}

// Estimate implements Estimator.
func (e DarknessEstimator) Estimate(ctx context.Context, input *imaging.Tensor) (*ScoreTensor, error) {
	if e.OutputStride <= 0 {
		return nil, fmt.Errorf("darkness estimator: output stride %d must be positive", e.OutputStride)
	}
	if input.Channels != 3 {
		return nil, fmt.Errorf("darkness estimator: want 3 channels, got %d", input.Channels)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w, h := input.Width, input.Height
	score := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			lum := 0.299*input.At(0, y, x) + 0.587*input.At(1, y, x) + 0.114*input.At(2, y, x)
			if float64(lum) < e.FieldThreshold {
				continue
			}
			score.SetGray(x, y, color.Gray{Y: uint8((1 - lum) * 255)})
		}
	}

	var smooth image.Image = score
	if e.BlurRadius > 0 {
		smooth = blur.Gaussian(score, e.BlurRadius)
	}

	s := e.OutputStride
	gw, gh := w/s, h/s
	out := &ScoreTensor{N: 1, C: 1, H: gh, W: gw, Data: make([]float32, gw*gh)}
	var peak float32
	for gy := 0; gy < gh; gy++ {
		for gx := 0; gx < gw; gx++ {
			var sum uint32
			for y := gy * s; y < (gy+1)*s; y++ {
				for x := gx * s; x < (gx+1)*s; x++ {
					sum += uint32(color.GrayModel.Convert(smooth.At(x, y)).(color.Gray).Y)
				}
			}
			v := float32(sum) / float32(s*s*255)
			out.Data[gy*gw+gx] = v
			peak = max(peak, v)
		}
	}
	if peak > 0 {
		for i := range out.Data {
			out.Data[i] /= peak
		}
	}
	return out, nil
}
