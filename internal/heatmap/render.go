package heatmap

import (
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// magmaStops approximates the magma colormap, dark to bright.
var magmaStops = []string{"#000004", "#3b0f70", "#8c2981", "#de4968", "#fe9f6d", "#fcfdbf"}

var palette = mustPalette(magmaStops)

func mustPalette(hex []string) []colorful.Color {
	out := make([]colorful.Color, len(hex))
	for i, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			panic(err)
		}
		out[i] = c
	}
	return out
}

// colorAt maps t in [0,1] onto the palette, blending neighbouring stops in
// Lab space so brightness rises evenly.
func colorAt(t float64) colorful.Color {
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(palette)-1)
	i := int(math.Floor(pos))
	if i >= len(palette)-1 {
		return palette[len(palette)-1]
	}
	return palette[i].BlendLab(palette[i+1], pos-float64(i)).Clamped()
}

// Colorize renders the heatmap with a perceptual colormap. Scores are
// normalized by the peak; an all-zero map renders uniformly dark.
func Colorize(h *Heatmap) *image.RGBA {
	size := h.Size()
	img := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	if h.Empty() {
		return img
	}
	peak := h.Max()
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			t := 0.0
			if peak > 0 {
				t = h.At(x, y) / peak
			}
			r, g, b := colorAt(t).RGB255()
			i := img.PixOffset(x, y)
			img.Pix[i+0] = r
			img.Pix[i+1] = g
			img.Pix[i+2] = b
			img.Pix[i+3] = 0xff
		}
	}
	return img
}
