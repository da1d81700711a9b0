// Package polyfit implements a least-squares polynomial regressor used
// as a baseline candidate against the neural networks. The fit has no
// cross terms:
//
//	f(x) = β_0 + Σ_p Σ_j β_{p,j} x_j^p
//
// for powers p up to Order, with the β chosen by least squares over the
// training rows.
package polyfit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	modeling "github.com/ifeomaozo/predictive-modeling"
)

// ErrInvalidConfig is returned by Train for an unusable configuration.
var ErrInvalidConfig = errors.New("polyfit: invalid config")

// Config identifies one polynomial candidate and satisfies
// modeling.Trainer.
type Config struct {
	// Order is the highest power of each predictor. Must be at least 1.
	Order int
}

// Model is a fitted polynomial.
type Model struct {
	beta  []float64
	order int
}

// Train fits the polynomial to the rows of x selected by inds. The fit
// is deterministic; the seed is ignored. An underdetermined or singular
// design matrix is a training failure.
func (c Config) Train(x mat.Matrix, y []float64, inds []int, seed int64) (modeling.Model, error) {
	if c.Order < 1 {
		return nil, fmt.Errorf("%w: order %d", ErrInvalidConfig, c.Order)
	}
	if len(inds) == 0 {
		return nil, fmt.Errorf("%w: no training rows", ErrInvalidConfig)
	}
	n, dim := x.Dims()
	if len(y) != n {
		return nil, fmt.Errorf("%w: %d responses for %d rows", ErrInvalidConfig, len(y), n)
	}

	nTerms := 1 + c.Order*dim
	A := mat.NewDense(len(inds), nTerms, nil)
	terms := make([]float64, nTerms)
	row := make([]float64, dim)
	for i, idx := range inds {
		mat.Row(row, idx, x)
		expand(terms, row, c.Order)
		A.SetRow(i, terms)
	}
	b := mat.NewVecDense(len(inds), nil)
	for i, idx := range inds {
		b.SetVec(i, y[idx])
	}

	beta := mat.NewVecDense(nTerms, nil)
	if err := beta.SolveVec(A, b); err != nil {
		return nil, fmt.Errorf("polyfit: solving for coefficients: %w", err)
	}
	return &Model{beta: beta.RawVector().Data, order: c.Order}, nil
}

// Predict evaluates the polynomial at a single predictor row.
func (m *Model) Predict(x []float64) float64 {
	terms := make([]float64, len(m.beta))
	expand(terms, x, m.order)
	return floats.Dot(terms, m.beta)
}

// expand fills terms with 1, x_1..x_d, x_1^2..x_d^2, up to the given
// order.
func expand(terms, x []float64, order int) {
	dim := len(x)
	terms[0] = 1
	for p := 0; p < order; p++ {
		for j, v := range x {
			terms[1+p*dim+j] = math.Pow(v, float64(p)+1)
		}
	}
}
