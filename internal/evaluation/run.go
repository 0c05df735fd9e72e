package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ironsheep/fovea-tools-mcp/internal/dataset"
	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
	"github.com/ironsheep/fovea-tools-mcp/internal/heatmap"
	"github.com/ironsheep/fovea-tools-mcp/internal/predict"
	"gonum.org/v1/gonum/stat"
)

// Scorer produces the predicted heatmap for a dataset sample.
type Scorer interface {
	Score(ctx context.Context, s *dataset.Sample) (*heatmap.Heatmap, error)
}

// EstimatorScorer scores samples by running an estimator on their input
// tensor and taking the first plane of its output.
type EstimatorScorer struct {
	Estimator predict.Estimator
}

// Score implements Scorer.
func (e EstimatorScorer) Score(ctx context.Context, s *dataset.Sample) (*heatmap.Heatmap, error) {
	out, err := e.Estimator.Estimate(ctx, s.Input)
	if err != nil {
		return nil, err
	}
	return out.Plane(0, 0)
}

// DirScorer reads precomputed heatmaps from Dir. The heatmap for image
// "T0001.jpg" is expected at "<Dir>/T0001.png".
type DirScorer struct {
	Dir string
}

// Score implements Scorer.
func (d DirScorer) Score(_ context.Context, s *dataset.Sample) (*heatmap.Heatmap, error) {
	stem := strings.TrimSuffix(s.ImageName, filepath.Ext(s.ImageName))
	return heatmap.LoadPNG(filepath.Join(d.Dir, stem+".png"))
}

// Options controls an evaluation run.
type Options struct {
	// BatchSize is the number of items fetched and scored together.
	BatchSize int
	// Workers bounds concurrent item construction.
	Workers int
	// Notes is free text stored with the run.
	Notes string
}

// RunSample is the outcome for one evaluated image.
type RunSample struct {
	ImageName string             `json:"image_name"`
	Truth     geometry.GridPoint `json:"truth"`
	Predicted geometry.GridPoint `json:"predicted"`
	DX        float64            `json:"dx"`
	DY        float64            `json:"dy"`
	// PixelError is the Euclidean distance between the decoded points mapped
	// back to original image pixels.
	PixelError float64 `json:"pixel_error"`
}

// Skipped is an item that could not be evaluated.
type Skipped struct {
	ImageName string `json:"image_name"`
	Reason    string `json:"reason"`
}

// Run is the record of one evaluation pass over a dataset.
type Run struct {
	ID             string          `json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	Decoder        string          `json:"decoder"`
	Geometry       geometry.Config `json:"geometry"`
	Notes          string          `json:"notes,omitempty"`
	Precision      float64         `json:"precision"`
	MeanPixelError float64         `json:"mean_pixel_error"`
	Samples        []RunSample     `json:"samples"`
	Skipped        []Skipped       `json:"skipped,omitempty"`
}

// Evaluate scores every item of ds, decoding targets and predictions with
// dec. Items that fail to load or score are recorded in Run.Skipped. If no
// item could be evaluated the error wraps ErrNoSamples.
func Evaluate(ctx context.Context, ds *dataset.Dataset, scorer Scorer, dec heatmap.Decoder, opts Options) (*Run, error) {
	if scorer == nil {
		return nil, fmt.Errorf("evaluation requires a scorer")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 16
	}

	geom := ds.Geometry()
	meter := NewPrecisionMeter(dec)
	run := &Run{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Decoder:   meter.Decoder().Name(),
		Geometry:  geom,
		Notes:     opts.Notes,
	}

	for _, indices := range dataset.Plan(ds.Len(), opts.BatchSize, false, 0, false) {
		batch, err := dataset.Fetch(ctx, ds, indices, opts.Workers)
		if err != nil {
			return nil, err
		}
		for _, f := range batch.Failed {
			log.Printf("Skipping %s: %v", f.ImageName, f.Err)
			run.Skipped = append(run.Skipped, Skipped{ImageName: f.ImageName, Reason: f.Err.Error()})
		}

		var gts, preds []*heatmap.Heatmap
		var kept []*dataset.Sample
		for _, s := range batch.Samples {
			pred, err := scoreSample(ctx, scorer, s)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				log.Printf("Skipping %s: %v", s.ImageName, err)
				run.Skipped = append(run.Skipped, Skipped{ImageName: s.ImageName, Reason: err.Error()})
				continue
			}
			gts = append(gts, s.Target)
			preds = append(preds, pred)
			kept = append(kept, s)
		}

		if err := meter.Update(gts, preds); err != nil {
			return nil, err
		}
		for i, s := range kept {
			run.Samples = append(run.Samples, newRunSample(s, meter.dec.Decode(gts[i]), meter.dec.Decode(preds[i]), geom))
		}
	}

	precision, err := meter.Precision()
	if err != nil {
		return nil, fmt.Errorf("%w: %d of %d items skipped", err, len(run.Skipped), ds.Len())
	}
	run.Precision = precision

	pixel := make([]float64, len(run.Samples))
	for i, s := range run.Samples {
		pixel[i] = s.PixelError
	}
	run.MeanPixelError = stat.Mean(pixel, nil)
	return run, nil
}

func scoreSample(ctx context.Context, scorer Scorer, s *dataset.Sample) (*heatmap.Heatmap, error) {
	pred, err := scorer.Score(ctx, s)
	if err != nil {
		return nil, err
	}
	if pred == nil {
		return nil, errors.New("scorer returned no heatmap")
	}
	if got, want := pred.Size(), s.Target.Size(); got != want {
		return nil, fmt.Errorf("predicted heatmap is %s, target is %s", got, want)
	}
	return pred, nil
}

func newRunSample(s *dataset.Sample, truth, pred geometry.GridPoint, geom geometry.Config) RunSample {
	scale := geometry.ResizeScale(s.OriginalSize, geom.InputSize)
	tp := geometry.FromGridSpace(truth, geom.OutputStride, scale)
	pp := geometry.FromGridSpace(pred, geom.OutputStride, scale)
	return RunSample{
		ImageName:  s.ImageName,
		Truth:      truth,
		Predicted:  pred,
		DX:         math.Abs(float64(truth.X - pred.X)),
		DY:         math.Abs(float64(truth.Y - pred.Y)),
		PixelError: math.Hypot(tp.X-pp.X, tp.Y-pp.Y),
	}
}
