package report

import (
	"io"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/tumoreval/evaluation"
	"github.com/YuminosukeSato/tumoreval/pkg/errors"
)

const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 5 * vg.Inch
)

// MetricsChart draws grouped bars of accuracy, precision, recall and F1,
// one group per metric and one bar per variant.
func MetricsChart(rep *evaluation.Report) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Hold-out metrics by variant"
	p.Y.Label.Text = "Score"
	p.Y.Min, p.Y.Max = 0, 1.05

	n := len(rep.Results)
	barWidth := vg.Points(60 / float64(max(n, 1)))
	for i, res := range rep.Results {
		values := plotter.Values{res.Accuracy, res.Precision, res.Recall, res.F1}
		bars, err := plotter.NewBarChart(values, barWidth)
		if err != nil {
			return nil, errors.Wrapf(err, "bars for %s", res.Variant)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = barWidth * vg.Length(float64(i)-float64(n-1)/2)
		p.Add(bars)
		p.Legend.Add(res.Variant, bars)
	}
	p.Legend.Top = true
	p.NominalX("Accuracy", "Precision", "Recall", "F1")
	return p, nil
}

// CVChart draws one box per variant over its fold accuracies.
func CVChart(rep *evaluation.Report) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Cross-validation accuracy on the balanced training set"
	p.Y.Label.Text = "Fold accuracy"

	names := make([]string, len(rep.Results))
	for i, res := range rep.Results {
		names[i] = res.Variant
		box, err := plotter.NewBoxPlot(vg.Points(30), float64(i), plotter.Values(res.FoldAccuracy))
		if err != nil {
			return nil, errors.Wrapf(err, "box for %s", res.Variant)
		}
		box.FillColor = plotutil.Color(i)
		p.Add(box)
	}
	p.NominalX(names...)
	return p, nil
}

// confusionGrid adapts a 2x2 confusion matrix to plotter.GridXYZ, with the
// predicted label on X and the true label on Y.
type confusionGrid struct {
	counts [2][2]float64
}

func (g confusionGrid) Dims() (c, r int)   { return 2, 2 }
func (g confusionGrid) Z(c, r int) float64 { return g.counts[r][c] }
func (g confusionGrid) X(c int) float64    { return float64(c) }
func (g confusionGrid) Y(r int) float64    { return float64(r) }

// ConfusionChart draws the confusion matrix of res as an annotated heat map.
func ConfusionChart(rep *evaluation.Report, res evaluation.Result) (*plot.Plot, error) {
	cm := ConfusionMatrix(res)
	var grid confusionGrid
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			grid.counts[i][j] = cm.At(i, j)
		}
	}

	p := plot.New()
	p.Title.Text = res.Variant + " confusion matrix"
	p.X.Label.Text = "Predicted"
	p.Y.Label.Text = "True"

	p.Add(plotter.NewHeatMap(grid, palette.Heat(12, 1)))

	var (
		xys    plotter.XYs
		labels []string
	)
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			xys = append(xys, plotter.XY{X: float64(c), Y: float64(r)})
			labels = append(labels, strconv.Itoa(int(grid.counts[r][c])))
		}
	}
	annotations, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return nil, errors.Wrap(err, "confusion labels")
	}
	p.Add(annotations)

	names := classLabels(rep)
	ticks := plot.ConstantTicks{{Value: 0, Label: names[0]}, {Value: 1, Label: names[1]}}
	p.X.Tick.Marker = ticks
	p.Y.Tick.Marker = ticks
	return p, nil
}

// WritePNG encodes p as a PNG image.
func WritePNG(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveCharts writes metrics.png, cv_accuracy.png and one
// confusion_<variant>.png per variant into dir.
func SaveCharts(dir string, rep *evaluation.Report) ([]string, error) {
	type chart struct {
		name string
		plot func() (*plot.Plot, error)
	}
	charts := []chart{
		{"metrics.png", func() (*plot.Plot, error) { return MetricsChart(rep) }},
		{"cv_accuracy.png", func() (*plot.Plot, error) { return CVChart(rep) }},
	}
	for _, res := range rep.Results {
		res := res
		charts = append(charts, chart{
			name: "confusion_" + res.Variant + ".png",
			plot: func() (*plot.Plot, error) { return ConfusionChart(rep, res) },
		})
	}

	var written []string
	for _, c := range charts {
		p, err := c.plot()
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, c.name)
		if err := p.Save(chartWidth, chartHeight, path); err != nil {
			return written, errors.Wrapf(err, "save %s", path)
		}
		written = append(written, path)
	}
	return written, nil
}
