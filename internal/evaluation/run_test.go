package evaluation

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ironsheep/fovea-tools-mcp/internal/dataset"
	"github.com/ironsheep/fovea-tools-mcp/internal/geometry"
	"github.com/ironsheep/fovea-tools-mcp/internal/heatmap"
	"github.com/ironsheep/fovea-tools-mcp/internal/imaging"
	"github.com/ironsheep/fovea-tools-mcp/internal/predict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var smallGeometry = geometry.Config{
	InputSize:    geometry.Size{Width: 64, Height: 64},
	OutputStride: 4,
	KernelSize:   3,
}

func writePNG(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{200, 100, 50, 255})
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

// newTestDataset builds two 100x80 images annotated at (50,40), which lands
// on grid cell (8,8), plus one unreadable file.
func newTestDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, dir, "a.png", 100, 80)
	writePNG(t, dir, "b.png", 100, 80)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0o644))

	anns := []dataset.Annotation{
		{ImageName: "a.png", X: 50, Y: 40},
		{ImageName: "broken.png", X: 10, Y: 10},
		{ImageName: "b.png", X: 50, Y: 40},
	}
	idx, err := dataset.BuildIndex(dir, dataset.Names(anns))
	require.NoError(t, err)
	ds, err := dataset.New(smallGeometry, anns, idx)
	require.NoError(t, err)
	return ds
}

type scorerFunc func(ctx context.Context, s *dataset.Sample) (*heatmap.Heatmap, error)

func (f scorerFunc) Score(ctx context.Context, s *dataset.Sample) (*heatmap.Heatmap, error) {
	return f(ctx, s)
}

func shiftedScorer(dx, dy int) Scorer {
	return scorerFunc(func(_ context.Context, s *dataset.Sample) (*heatmap.Heatmap, error) {
		g := geometry.GridPoint{X: s.GridPoint.X + dx, Y: s.GridPoint.Y + dy}
		return heatmap.Encode(smallGeometry.GridSize(), smallGeometry.KernelSize, g)
	})
}

func TestEvaluate_Perfect(t *testing.T) {
	ds := newTestDataset(t)
	run, err := Evaluate(context.Background(), ds, shiftedScorer(0, 0), nil, Options{BatchSize: 2, Workers: 2})
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, heatmap.ArgmaxName, run.Decoder)
	assert.Equal(t, 0.0, run.Precision)
	assert.Equal(t, 0.0, run.MeanPixelError)
	require.Len(t, run.Samples, 2)
	assert.Equal(t, "a.png", run.Samples[0].ImageName)
	assert.Equal(t, geometry.GridPoint{X: 8, Y: 8}, run.Samples[0].Truth)
	assert.Equal(t, "b.png", run.Samples[1].ImageName)

	require.Len(t, run.Skipped, 1)
	assert.Equal(t, "broken.png", run.Skipped[0].ImageName)
}

func TestEvaluate_Shifted(t *testing.T) {
	ds := newTestDataset(t)
	run, err := Evaluate(context.Background(), ds, shiftedScorer(1, 0), heatmap.Argmax{}, Options{})
	require.NoError(t, err)

	assert.InDelta(t, 0.5, run.Precision, 1e-12)
	for _, s := range run.Samples {
		assert.Equal(t, 1.0, s.DX)
		assert.Equal(t, 0.0, s.DY)
		// one cell is stride * original/model pixels
		assert.InDelta(t, 4*100.0/64.0, s.PixelError, 1e-9)
	}
	assert.InDelta(t, 4*100.0/64.0, run.MeanPixelError, 1e-9)
}

func TestEvaluate_ScorerFailures(t *testing.T) {
	ds := newTestDataset(t)

	failB := scorerFunc(func(ctx context.Context, s *dataset.Sample) (*heatmap.Heatmap, error) {
		if s.ImageName == "b.png" {
			return nil, errors.New("no output")
		}
		return s.Target.Clone(), nil
	})
	run, err := Evaluate(context.Background(), ds, failB, nil, Options{BatchSize: 8})
	require.NoError(t, err)
	assert.Len(t, run.Samples, 1)
	assert.Len(t, run.Skipped, 2)

	wrongShape := scorerFunc(func(context.Context, *dataset.Sample) (*heatmap.Heatmap, error) {
		return heatmap.New(geometry.Size{Width: 3, Height: 3}), nil
	})
	_, err = Evaluate(context.Background(), ds, wrongShape, nil, Options{})
	assert.ErrorIs(t, err, ErrNoSamples)

	_, err = Evaluate(context.Background(), ds, nil, nil, Options{})
	assert.Error(t, err)
}

func TestEvaluate_Cancelled(t *testing.T) {
	ds := newTestDataset(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Evaluate(ctx, ds, shiftedScorer(0, 0), nil, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEstimatorScorer(t *testing.T) {
	ds := newTestDataset(t)
	est := predict.EstimatorFunc(func(_ context.Context, in *imaging.Tensor) (*predict.ScoreTensor, error) {
		h, err := heatmap.Encode(smallGeometry.GridSize(), 3, geometry.GridPoint{X: 8, Y: 9})
		if err != nil {
			return nil, err
		}
		return predict.NewScoreTensor(h), nil
	})
	run, err := Evaluate(context.Background(), ds, EstimatorScorer{Estimator: est}, nil, Options{})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, run.Precision, 1e-12)
}

func TestDirScorer(t *testing.T) {
	ds := newTestDataset(t)
	dir := t.TempDir()
	for _, name := range []string{"a", "b"} {
		h, err := heatmap.Encode(smallGeometry.GridSize(), 3, geometry.GridPoint{X: 10, Y: 8})
		require.NoError(t, err)
		f, err := os.Create(filepath.Join(dir, name+".png"))
		require.NoError(t, err)
		require.NoError(t, heatmap.WritePNG(f, h))
		require.NoError(t, f.Close())
	}

	run, err := Evaluate(context.Background(), ds, DirScorer{Dir: dir}, nil, Options{})
	require.NoError(t, err)
	require.Len(t, run.Samples, 2)
	assert.Equal(t, geometry.GridPoint{X: 10, Y: 8}, run.Samples[0].Predicted)
	assert.InDelta(t, 1.0, run.Precision, 1e-12)
}

func TestPlotErrors(t *testing.T) {
	run := &Run{
		ID:             "plot-run",
		Decoder:        heatmap.ArgmaxName,
		CreatedAt:      time.Unix(1700000000, 0).UTC(),
		MeanPixelError: 3.5,
		Samples: []RunSample{
			{ImageName: "a.png", PixelError: 1},
			{ImageName: "b.png", PixelError: 4},
			{ImageName: "c.png", PixelError: 5.5},
		},
	}
	path := filepath.Join(t.TempDir(), "errors.png")
	require.NoError(t, PlotErrors(run, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	err = PlotErrors(&Run{ID: "empty"}, path)
	assert.ErrorIs(t, err, ErrNoSamples)
}
