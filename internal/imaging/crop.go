package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
)

// Window is a crop taken around a point, with the crop's top-left corner in
// the source image's coordinates.
type Window struct {
	Image  *image.NRGBA
	Origin image.Point
}

// CropAround extracts the square of side 2*half centered on center. The
// window is clipped to the image, so near the border it is smaller than
// requested and Origin records where it actually starts.
func CropAround(img image.Image, center geometry.Point, half int) (*Window, error) {
	if half <= 0 {
		return nil, fmt.Errorf("crop half size %d must be positive", half)
	}
	b := img.Bounds()
	cx := int(math.Floor(center.X)) + b.Min.X
	cy := int(math.Floor(center.Y)) + b.Min.Y
	rect := image.Rect(cx-half, cy-half, cx+half, cy+half).Intersect(b)
	if rect.Empty() {
		return nil, fmt.Errorf("crop window around (%.1f,%.1f) outside image bounds %v", center.X, center.Y, b)
	}

	return &Window{
		Image:  imaging.Crop(img, rect),
		Origin: rect.Min.Sub(b.Min),
	}, nil
}

// EncodedImage is a PNG image ready for transport.
type EncodedImage struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePNG encodes img as a base64 PNG, optionally rescaled.
func EncodePNG(img image.Image, scale float64) (*EncodedImage, error) {
	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(img.Bounds().Dx()) * scale)
		newHeight := int(float64(img.Bounds().Dy()) * scale)
		// Nearest keeps heatmap cells crisp when upscaling.
		img = imaging.Resize(img, newWidth, newHeight, imaging.NearestNeighbor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &EncodedImage{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
