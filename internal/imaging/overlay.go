package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultMarkerColor is used when no marker color is given.
const DefaultMarkerColor = "#00FF66"

// Marker describes a point to draw onto an image.
type Marker struct {
	Point geometry.Point
	// Label is drawn to the lower right of the marker; empty means the
	// rounded coordinates.
	Label string
	// Color is a "#RRGGBB" hex string.
	Color string
}

// DrawMarkers copies img and draws a crosshair plus label for every marker.
// The crosshair arm length scales with the image so it stays visible on
// full-resolution fundus photographs.
func DrawMarkers(img image.Image, markers ...Marker) (*image.RGBA, error) {
	bounds := img.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	arm := max(4, min(bounds.Dx(), bounds.Dy())/60)
	for _, m := range markers {
		hex := m.Color
		if hex == "" {
			hex = DefaultMarkerColor
		}
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("invalid marker color %q: %w", hex, err)
		}
		fg := color.RGBAModel.Convert(c).(color.RGBA)

		x := int(math.Round(m.Point.X)) + bounds.Min.X
		y := int(math.Round(m.Point.Y)) + bounds.Min.Y
		for d := -arm; d <= arm; d++ {
			setClipped(result, x+d, y, fg)
			setClipped(result, x, y+d, fg)
		}

		label := m.Label
		if label == "" {
			label = fmt.Sprintf("%.0f,%.0f", m.Point.X, m.Point.Y)
		}
		drawLabel(result, x+arm+2, y+arm+2, label, fg)
	}
	return result, nil
}

func setClipped(img *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

// drawLabel writes text with its top-left corner at (x, y) on a dark
// backdrop so it reads on both bright discs and dark vessels.
func drawLabel(img *image.RGBA, x, y int, text string, fg color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: img, Src: image.NewUniform(fg), Face: face}
	width := d.MeasureString(text).Ceil()
	height := face.Metrics().Height.Ceil()

	bg := image.NewUniform(color.RGBA{0, 0, 0, 180})
	box := image.Rect(x-1, y-1, x+width+1, y+height+1).Intersect(img.Bounds())
	draw.Draw(img, box, bg, image.Point{}, draw.Over)

	d.Dot = fixed.P(x, y+face.Metrics().Ascent.Ceil())
	d.DrawString(text)
}
