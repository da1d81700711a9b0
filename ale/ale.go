// Package ale estimates accumulated local effects: the marginal effect
// of one predictor on a fitted model's output, built from prediction
// differences within narrow intervals of the predictor so that the
// estimate stays honest when predictors are correlated.
package ale

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	modeling "github.com/ifeomaozo/predictive-modeling"
)

// ErrInvalidArgument is returned for an out-of-range feature or bin
// count, or a feature with too few distinct values to form an interval.
var ErrInvalidArgument = errors.New("ale: invalid argument")

// Curve is a centered accumulated-local-effect estimate for one
// predictor. Effect[i] is the accumulated effect at Edges[i]; the curve
// is centered so its data-weighted mean is zero.
type Curve struct {
	Edges  []float64
	Effect []float64
	// Counts holds the number of data rows that fell in each interval
	// (one fewer than Edges).
	Counts []int
}

// Compute estimates the first-order ALE of the given feature column
// over the rows of x. The feature's range is cut at empirical quantiles
// into at most bins intervals; within each interval, every row is
// predicted at the interval's two edges with all other columns held at
// the row's own values, and the mean difference is accumulated across
// intervals.
func Compute(m modeling.Model, x mat.Matrix, feature, bins int) (*Curve, error) {
	n, dim := x.Dims()
	if feature < 0 || feature >= dim {
		return nil, fmt.Errorf("%w: feature %d of %d", ErrInvalidArgument, feature, dim)
	}
	if bins < 1 {
		return nil, fmt.Errorf("%w: %d bins", ErrInvalidArgument, bins)
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: %d rows", ErrInvalidArgument, n)
	}

	values := make([]float64, n)
	mat.Col(values, feature, x)
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	edges := quantileEdges(sorted, bins)
	if len(edges) < 2 {
		return nil, fmt.Errorf("%w: feature %d is constant", ErrInvalidArgument, feature)
	}
	nb := len(edges) - 1

	sums := make([]float64, nb)
	counts := make([]int, nb)
	row := make([]float64, dim)
	for i := 0; i < n; i++ {
		k := binFor(edges, values[i])
		mat.Row(row, i, x)

		row[feature] = edges[k+1]
		hi := m.Predict(row)
		row[feature] = edges[k]
		lo := m.Predict(row)

		sums[k] += hi - lo
		counts[k]++
	}

	effect := make([]float64, nb+1)
	for k := 0; k < nb; k++ {
		inc := 0.0
		if counts[k] > 0 {
			inc = sums[k] / float64(counts[k])
		}
		effect[k+1] = effect[k] + inc
	}

	// Center on the data: subtract the count-weighted mean of the
	// per-interval midpoint effects.
	var center float64
	for k := 0; k < nb; k++ {
		center += float64(counts[k]) * (effect[k] + effect[k+1]) / 2
	}
	center /= float64(n)
	for i := range effect {
		effect[i] -= center
	}

	return &Curve{Edges: edges, Effect: effect, Counts: counts}, nil
}

// quantileEdges cuts the sorted values at empirical quantiles into at
// most bins intervals, dropping duplicate cut points so every interval
// has positive width.
func quantileEdges(sorted []float64, bins int) []float64 {
	edges := make([]float64, 0, bins+1)
	for i := 0; i <= bins; i++ {
		q := stat.Quantile(float64(i)/float64(bins), stat.Empirical, sorted, nil)
		if len(edges) == 0 || q > edges[len(edges)-1] {
			edges = append(edges, q)
		}
	}
	return edges
}

// binFor returns the interval index holding v: intervals are closed on
// the right, with the first interval also closed on the left.
func binFor(edges []float64, v float64) int {
	k := sort.SearchFloat64s(edges, v)
	if k > 0 {
		k--
	}
	if k > len(edges)-2 {
		k = len(edges) - 2
	}
	return k
}

// Plot renders the curve as a line plot and writes it to path, with the
// image format chosen by the file extension.
func (c *Curve) Plot(title, xlabel, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "accumulated local effect"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(c.Edges))
	for i := range pts {
		pts[i].X = c.Edges[i]
		pts[i].Y = c.Effect[i]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("ale: %w", err)
	}
	p.Add(line)

	if err := p.Save(5*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("ale: %w", err)
	}
	return nil
}
