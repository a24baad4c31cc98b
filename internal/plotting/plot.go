// Package plotting renders datasets, fitted lines and cost curves to image
// files with gonum/plot. The image format follows the file extension.
package plotting

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/copyleftdev/gradfit/internal/optimization"
)

// Chart dimensions.
const (
	Width  = 16 * vg.Centimeter
	Height = 10 * vg.Centimeter
)

var (
	dataColor = color.RGBA{R: 255, A: 255}
	fitColor  = color.RGBA{B: 255, A: 255}
)

// Data renders the raw training examples as red crosses.
func Data(ds optimization.Dataset, path string) error {
	p := newPlot("Training data", "x", "y")
	if err := addData(p, ds); err != nil {
		return optimization.WrapError(err, "failed to plot data").WithOperation("Data")
	}
	return save(p, path, "Data")
}

// Fit renders the training examples together with the line w*x + b.
func Fit(ds optimization.Dataset, params optimization.Params, path string) error {
	const op = "Fit"

	p := newPlot("Fitted model", "x", "y")
	if err := addData(p, ds); err != nil {
		return optimization.WrapError(err, "failed to plot data").WithOperation(op)
	}

	xs := ds.Xs()
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = min(lo, x)
		hi = max(hi, x)
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}

	pts := plotter.XYs{
		{X: lo, Y: params.Predict(lo)},
		{X: hi, Y: params.Predict(hi)},
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return optimization.WrapError(err, "failed to plot fitted line").WithOperation(op)
	}
	line.Color = fitColor
	line.Width = vg.Points(1.5)

	p.Add(line)
	p.Legend.Add("prediction", line)
	return save(p, path, op)
}

// Cost renders a cost history against its iteration index.
func Cost(history []float64, path string) error {
	const op = "Cost"

	if len(history) == 0 {
		return optimization.InvalidInputf("cost history is empty").WithOperation(op)
	}

	pts := make(plotter.XYs, len(history))
	for i, c := range history {
		pts[i].X = float64(i)
		pts[i].Y = c
	}

	p := newPlot("Cost", "iteration", "cost")
	line, err := plotter.NewLine(pts)
	if err != nil {
		return optimization.WrapError(err, "failed to plot cost history").WithOperation(op)
	}
	line.Color = fitColor

	p.Add(line)
	return save(p, path, op)
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

func addData(p *plot.Plot, ds optimization.Dataset) error {
	if ds.Len() == 0 {
		return optimization.InvalidInputf("dataset is empty")
	}

	pts := make(plotter.XYs, ds.Len())
	for i := range pts {
		pts[i].X, pts[i].Y = ds.At(i)
	}

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Shape = draw.CrossGlyph{}
	scatter.GlyphStyle.Color = dataColor
	scatter.GlyphStyle.Radius = vg.Points(4)

	p.Add(scatter)
	p.Legend.Add("actual", scatter)
	return nil
}

func save(p *plot.Plot, path, op string) error {
	if err := p.Save(Width, Height, path); err != nil {
		return optimization.WrapErrorf(err, "failed to save %s", path).WithOperation(op)
	}
	return nil
}
