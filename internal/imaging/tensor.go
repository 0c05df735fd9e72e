package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
)

// Tensor is a channel-first float32 image, values in [0, 1].
type Tensor struct {
	Channels int
	Height   int
	Width    int
	Data     []float32
}

// At returns the value of channel c at row y, column x.
func (t *Tensor) At(c, y, x int) float32 {
	return t.Data[(c*t.Height+y)*t.Width+x]
}

// Size returns the tensor's spatial shape.
func (t *Tensor) Size() geometry.Size {
	return geometry.Size{Width: t.Width, Height: t.Height}
}

// Resize scales img to exactly size using bilinear interpolation.
func Resize(img image.Image, size geometry.Size) *image.NRGBA {
	return imaging.Resize(img, size.Width, size.Height, imaging.Linear)
}

// ToTensor converts an image into an RGB channel-first tensor.
func ToTensor(img image.Image) *Tensor {
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	t := &Tensor{Channels: 3, Height: h, Width: w, Data: make([]float32, 3*h*w)}
	plane := h * w
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			px := row[x*4:]
			i := y*w + x
			t.Data[i] = float32(px[0]) / 255
			t.Data[plane+i] = float32(px[1]) / 255
			t.Data[2*plane+i] = float32(px[2]) / 255
		}
	}
	return t
}

// PrepareInput resizes img to the model input shape and converts it to a
// tensor. The returned scale is original/model per axis and undoes the resize.
func PrepareInput(img image.Image, input geometry.Size) (*Tensor, geometry.Scale, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, geometry.Scale{}, fmt.Errorf("empty image")
	}
	orig := geometry.Size{Width: b.Dx(), Height: b.Dy()}
	return ToTensor(Resize(img, input)), geometry.ResizeScale(orig, input), nil
}
