package imaging

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
)

func TestToTensor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(2, 1, color.RGBA{0, 51, 255, 255})

	tensor := ToTensor(img)
	if tensor.Channels != 3 || tensor.Height != 2 || tensor.Width != 3 {
		t.Fatalf("shape: got %dx%dx%d, want 3x2x3", tensor.Channels, tensor.Height, tensor.Width)
	}
	if len(tensor.Data) != 18 {
		t.Fatalf("data length: got %d, want 18", len(tensor.Data))
	}

	tests := []struct {
		c, y, x int
		want    float32
	}{
		{0, 0, 0, 1},
		{1, 0, 0, 0},
		{2, 0, 0, 0},
		{0, 1, 2, 0},
		{1, 1, 2, 0.2},
		{2, 1, 2, 1},
	}
	for _, tt := range tests {
		got := tensor.At(tt.c, tt.y, tt.x)
		if math.Abs(float64(got-tt.want)) > 1e-6 {
			t.Errorf("At(%d,%d,%d): got %v, want %v", tt.c, tt.y, tt.x, got, tt.want)
		}
	}
}

func TestToTensor_OffsetBounds(t *testing.T) {
	img := newSolidImage(20, 20, color.RGBA{0, 0, 0, 255})
	img.Set(10, 10, color.RGBA{255, 255, 255, 255})
	sub := img.SubImage(image.Rect(10, 10, 15, 15))

	tensor := ToTensor(sub)
	if tensor.Width != 5 || tensor.Height != 5 {
		t.Fatalf("shape: got %dx%d, want 5x5", tensor.Width, tensor.Height)
	}
	if tensor.At(0, 0, 0) != 1 {
		t.Errorf("sub-image origin not mapped to tensor (0,0): %v", tensor.At(0, 0, 0))
	}
}

func TestPrepareInput(t *testing.T) {
	img := newSolidImage(500, 250, color.RGBA{128, 64, 32, 255})
	tensor, scale, err := PrepareInput(img, geometry.Size{Width: 64, Height: 32})
	if err != nil {
		t.Fatalf("PrepareInput failed: %v", err)
	}
	if tensor.Width != 64 || tensor.Height != 32 {
		t.Errorf("shape: got %dx%d, want 64x32", tensor.Width, tensor.Height)
	}
	if math.Abs(scale.X-500.0/64.0) > 1e-12 || math.Abs(scale.Y-250.0/32.0) > 1e-12 {
		t.Errorf("scale: got %+v", scale)
	}
	if got := tensor.At(0, 16, 32); math.Abs(float64(got)-128.0/255.0) > 1.0/255 {
		t.Errorf("red channel after resize: got %v", got)
	}

	if _, _, err := PrepareInput(image.NewRGBA(image.Rect(0, 0, 0, 0)), geometry.Size{Width: 8, Height: 8}); err == nil {
		t.Error("PrepareInput should fail for empty image")
	}
}
