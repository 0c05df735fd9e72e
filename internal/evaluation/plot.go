package evaluation

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotErrors renders a histogram of per-image pixel errors for run to path.
// The image format follows the path extension (png, svg, pdf).
func PlotErrors(run *Run, path string) error {
	if len(run.Samples) == 0 {
		return fmt.Errorf("plot run %s: %w", run.ID, ErrNoSamples)
	}

	values := make(plotter.Values, len(run.Samples))
	for i, s := range run.Samples {
		values[i] = s.PixelError
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Fovea error, %s decoder (n=%d)", run.Decoder, len(values))
	p.X.Label.Text = "Error (pixels)"
	p.Y.Label.Text = "Images"

	bins := int(math.Ceil(math.Sqrt(float64(len(values)))))
	hist, err := plotter.NewHist(values, max(bins, 1))
	if err != nil {
		return fmt.Errorf("failed to build histogram: %w", err)
	}
	hist.FillColor = color.RGBA{R: 59, G: 15, B: 112, A: 255}
	hist.LineStyle.Width = vg.Points(0.5)
	p.Add(hist)

	mean, err := plotter.NewLine(plotter.XYs{
		{X: run.MeanPixelError, Y: 0},
		{X: run.MeanPixelError, Y: float64(len(values))},
	})
	if err != nil {
		return fmt.Errorf("failed to build mean line: %w", err)
	}
	mean.Color = color.RGBA{R: 252, G: 137, B: 97, A: 255}
	mean.Width = vg.Points(1.5)
	mean.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(mean)
	p.Legend.Add("mean", mean)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
