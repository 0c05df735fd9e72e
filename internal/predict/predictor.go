package predict

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
	"github.com/ironsheep/fovea-tools-mcp/internal/heatmap"
	"github.com/ironsheep/fovea-tools-mcp/internal/imaging"
)

// Prediction is the located fovea for one image.
type Prediction struct {
	// Heatmap is the raw estimator output, kept for diagnostics.
	Heatmap *heatmap.Heatmap `json:"-"`
	// Grid is the decoded heatmap cell.
	Grid geometry.GridPoint `json:"grid"`
	// Point is the fovea in original image pixels.
	Point geometry.Point `json:"point"`
	// Score is the heatmap value at Grid.
	Score float64 `json:"score"`
	// Scale is the original/model ratio used to map Grid back.
	Scale geometry.Scale `json:"scale"`
}

// Predictor locates the fovea with a single estimator pass.
type Predictor struct {
	geom geometry.Config
	est  Estimator
	dec  heatmap.Decoder
}

// New returns a Predictor. A nil decoder selects argmax.
func New(geom geometry.Config, est Estimator, dec heatmap.Decoder) (*Predictor, error) {
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	if est == nil {
		return nil, fmt.Errorf("predictor requires an estimator")
	}
	if dec == nil {
		dec = heatmap.Argmax{}
	}
	return &Predictor{geom: geom, est: est, dec: dec}, nil
}

// Geometry returns the predictor's geometry.
func (p *Predictor) Geometry() geometry.Config {
	return p.geom
}

// Predict runs the estimator on img and maps the decoded cell back to
// original image pixels.
func (p *Predictor) Predict(ctx context.Context, img image.Image) (*Prediction, error) {
	input, scale, err := imaging.PrepareInput(img, p.geom.InputSize)
	if err != nil {
		return nil, err
	}

	out, err := p.est.Estimate(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("estimator failed: %w", err)
	}
	hm, err := out.Plane(0, 0)
	if err != nil {
		return nil, err
	}
	if got, want := hm.Size(), p.geom.GridSize(); got != want {
		return nil, fmt.Errorf("estimator heatmap is %s, want %s", got, want)
	}

	g := p.dec.Decode(hm)
	if g.X < 0 || g.Y < 0 || g.X >= hm.Size().Width || g.Y >= hm.Size().Height {
		return nil, fmt.Errorf("%s decoder returned cell (%d,%d) outside %s heatmap", p.dec.Name(), g.X, g.Y, hm.Size())
	}
	pred := &Prediction{
		Heatmap: hm,
		Grid:    g,
		Point:   geometry.FromGridSpace(g, p.geom.OutputStride, scale),
		Scale:   scale,
	}
	// NaN and Inf scores cannot be marshalled to JSON.
	if v := hm.At(g.X, g.Y); !math.IsNaN(v) && !math.IsInf(v, 0) {
		pred.Score = v
	}
	return pred, nil
}

// CascadePrediction holds both passes of a cascade and the combined point.
type CascadePrediction struct {
	Coarse *Prediction `json:"coarse"`
	Fine   *Prediction `json:"fine"`
	// Origin is the top-left corner of the refinement window.
	Origin image.Point `json:"origin"`
	// Point is the refined fovea in original image pixels.
	Point geometry.Point `json:"point"`
}

// Cascade refines a coarse prediction by predicting again on a window of
// side 2*HalfSize cropped around it.
type Cascade struct {
	Coarse   *Predictor
	Fine     *Predictor
	HalfSize int
}

// Predict runs both passes.
func (c *Cascade) Predict(ctx context.Context, img image.Image) (*CascadePrediction, error) {
	coarse, err := c.Coarse.Predict(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("coarse pass: %w", err)
	}
	w, err := imaging.CropAround(img, coarse.Point, c.HalfSize)
	if err != nil {
		return nil, fmt.Errorf("refinement window: %w", err)
	}
	fine, err := c.Fine.Predict(ctx, w.Image)
	if err != nil {
		return nil, fmt.Errorf("fine pass: %w", err)
	}
	return &CascadePrediction{
		Coarse: coarse,
		Fine:   fine,
		Origin: w.Origin,
		Point: geometry.Point{
			X: float64(w.Origin.X) + fine.Point.X,
			Y: float64(w.Origin.Y) + fine.Point.Y,
		},
	}, nil
}
