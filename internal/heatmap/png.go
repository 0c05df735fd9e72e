package heatmap

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
)

// ToGray16 quantizes the heatmap into a 16-bit grayscale image. Scores are
// clamped to [0, 1] first, so predicted maps should be normalized by the
// producer if their range differs.
func ToGray16(h *Heatmap) *image.Gray16 {
	size := h.Size()
	img := image.NewGray16(image.Rect(0, 0, size.Width, size.Height))
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			v := math.Max(0, math.Min(1, h.At(x, y)))
			img.SetGray16(x, y, color.Gray16{Y: uint16(math.Round(v * 0xffff))})
		}
	}
	return img
}

// FromImage reads an image's luminance into a heatmap scaled to [0, 1].
func FromImage(img image.Image) *Heatmap {
	b := img.Bounds()
	h := New(geometry.Size{Width: b.Dx(), Height: b.Dy()})
	if h.Empty() {
		return h
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			h.Set(x, y, float64(g.Y)/0xffff)
		}
	}
	return h
}

// WritePNG encodes the heatmap as a 16-bit grayscale PNG.
func WritePNG(w io.Writer, h *Heatmap) error {
	if h.Empty() {
		return fmt.Errorf("cannot encode empty heatmap")
	}
	if err := png.Encode(w, ToGray16(h)); err != nil {
		return fmt.Errorf("failed to encode heatmap: %w", err)
	}
	return nil
}

// LoadPNG reads a heatmap previously written by WritePNG, or any grayscale
// image produced by an external model runner.
func LoadPNG(path string) (*Heatmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open heatmap: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode heatmap %s: %w", path, err)
	}
	return FromImage(img), nil
}
