package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", Config{Size{512, 512}, 4, 7}, false},
		{"non-square", Config{Size{640, 480}, 8, 3}, false},
		{"zero width", Config{Size{0, 512}, 4, 7}, true},
		{"negative height", Config{Size{512, -1}, 4, 7}, true},
		{"zero stride", Config{Size{512, 512}, 0, 7}, true},
		{"even kernel", Config{Size{512, 512}, 4, 6}, true},
		{"kernel too small", Config{Size{512, 512}, 4, 1}, true},
		{"input below stride", Config{Size{3, 512}, 4, 7}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidGeometry)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_GridSize(t *testing.T) {
	assert.Equal(t, Size{128, 128}, Config{Size{512, 512}, 4, 7}.GridSize())
	assert.Equal(t, Size{80, 60}, Config{Size{640, 480}, 8, 7}.GridSize())
	// floor on sizes that do not divide evenly
	assert.Equal(t, Size{25, 16}, Config{Size{101, 67}, 4, 7}.GridSize())
}

func TestModelSpaceRoundTrip(t *testing.T) {
	shapes := []Size{{500, 500}, {2124, 2056}, {1634, 1634}, {37, 913}, {1, 1}}
	models := []Size{{512, 512}, {640, 480}, {128, 96}, {3, 7}}
	points := []Point{{0, 0}, {250, 250}, {1062.5, 13.25}, {-4, 9000}, {0.1, 0.7}}

	for _, s := range shapes {
		for _, m := range models {
			for _, p := range points {
				back := ToOriginalSpace(ToModelSpace(p, s, m), s, m)
				assert.InDelta(t, p.X, back.X, 1e-6, "x for %v %v %v", p, s, m)
				assert.InDelta(t, p.Y, back.Y, 1e-6, "y for %v %v %v", p, s, m)
			}
		}
	}
}

func TestToModelSpace_PerAxis(t *testing.T) {
	p := ToModelSpace(Point{100, 100}, Size{200, 400}, Size{512, 512})
	assert.InDelta(t, 256.0, p.X, 1e-9)
	assert.InDelta(t, 128.0, p.Y, 1e-9)
}

func TestToGridSpace(t *testing.T) {
	tests := []struct {
		p      Point
		stride int
		want   GridPoint
	}{
		{Point{256, 256}, 4, GridPoint{64, 64}},
		{Point{259.99, 3.2}, 4, GridPoint{64, 0}},
		{Point{7, 8}, 8, GridPoint{0, 1}},
		{Point{-0.5, -4}, 4, GridPoint{-1, -1}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ToGridSpace(tt.p, tt.stride), "point %v stride %d", tt.p, tt.stride)
	}
}

func TestQuantizationBound(t *testing.T) {
	for _, stride := range []int{1, 2, 4, 8, 16} {
		for x := 0.0; x < 64; x += 0.37 {
			p := Point{X: x, Y: 63.9 - x}
			back := GridToModel(ToGridSpace(p, stride), stride)
			dx := math.Abs(p.X - back.X)
			dy := math.Abs(p.Y - back.Y)
			require.LessOrEqual(t, dx, float64(stride), "stride %d x %v", stride, p)
			require.LessOrEqual(t, dy, float64(stride), "stride %d y %v", stride, p)
		}
	}
}

func TestFromGridSpace(t *testing.T) {
	scale := ResizeScale(Size{500, 1000}, Size{512, 512})
	p := FromGridSpace(GridPoint{64, 32}, 4, scale)
	assert.InDelta(t, 250.0, p.X, 1e-9)
	assert.InDelta(t, 250.0, p.Y, 1e-9)
}

func TestEndToEndMapping(t *testing.T) {
	orig := Size{500, 500}
	model := Size{512, 512}

	mp := ToModelSpace(Point{250, 250}, orig, model)
	assert.InDelta(t, 256.0, mp.X, 1e-9)
	assert.InDelta(t, 256.0, mp.Y, 1e-9)

	g := ToGridSpace(mp, 4)
	assert.Equal(t, GridPoint{64, 64}, g)

	back := FromGridSpace(g, 4, ResizeScale(orig, model))
	tol := 4 * 500.0 / 512.0
	assert.InDelta(t, 250.0, back.X, tol)
	assert.InDelta(t, 250.0, back.Y, tol)
}
