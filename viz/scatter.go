package viz

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ezoic/predsql/pkg/errors"
)

// PredictionScatter saves a predicted-vs-actual scatter with the identity
// line as a PNG at path. Pairs with a non-finite member are skipped; a
// length mismatch is a DimensionError.
func PredictionScatter(path, title string, actual, predicted []float64) error {
	const op = "viz.PredictionScatter"
	if len(actual) != len(predicted) {
		return errors.NewDimensionError(op, len(actual), len(predicted), 0)
	}

	pts := make(plotter.XYs, 0, len(actual))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range actual {
		a, p := actual[i], predicted[i]
		if math.IsNaN(a) || math.IsInf(a, 0) || math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: a, Y: p})
		lo = math.Min(lo, math.Min(a, p))
		hi = math.Max(hi, math.Max(a, p))
	}
	if len(pts) == 0 {
		return errors.NewModelError(op, "no finite prediction pairs", errors.ErrEmptyData)
	}

	pl := plot.New()
	pl.Title.Text = title
	pl.X.Label.Text = "Actual"
	pl.Y.Label.Text = "Predicted"

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrapf(err, "%s: failed to build scatter", op)
	}
	scatter.Color = plotter.DefaultLineStyle.Color
	scatter.Radius = vg.Points(2)
	pl.Add(scatter)
	pl.Legend.Add("Predictions", scatter)

	identity := plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}}
	line, err := plotter.NewLine(identity)
	if err != nil {
		return errors.Wrapf(err, "%s: failed to build identity line", op)
	}
	line.Width = vg.Points(1)
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	pl.Add(line)
	pl.Legend.Add("y = x", line)

	if err := pl.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "%s: failed to save plot", op)
	}
	return nil
}
