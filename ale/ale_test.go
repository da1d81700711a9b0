package ale

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// linearModel predicts a fixed linear combination of the row.
type linearModel []float64

func (m linearModel) Predict(x []float64) float64 {
	var out float64
	for i, w := range m {
		out += w * x[i]
	}
	return out
}

func randomData(n, dim int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	x := mat.NewDense(n, dim, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < dim; j++ {
			x.Set(i, j, rng.NormFloat64())
		}
	}
	return x
}

func TestComputeLinearModel(t *testing.T) {
	// For f(x) = 2*x0 - x1 the effect of feature 0 accumulates exactly
	// 2 per unit, whatever the other columns hold.
	x := randomData(200, 3, 1)
	m := linearModel{2, -1, 0}

	curve, err := Compute(m, x, 0, 8)
	require.NoError(t, err)
	require.Len(t, curve.Effect, len(curve.Edges))
	require.Len(t, curve.Counts, len(curve.Edges)-1)

	for k := 0; k < len(curve.Counts); k++ {
		wantInc := 2 * (curve.Edges[k+1] - curve.Edges[k])
		assert.InDelta(t, wantInc, curve.Effect[k+1]-curve.Effect[k], 1e-9, "interval %d", k)
	}

	// Every row lands in some interval.
	total := 0
	for _, c := range curve.Counts {
		total += c
	}
	assert.Equal(t, 200, total)

	// The curve is centered on the data.
	var center float64
	for k, c := range curve.Counts {
		center += float64(c) * (curve.Effect[k] + curve.Effect[k+1]) / 2
	}
	assert.InDelta(t, 0, center/200, 1e-9)
}

func TestComputeIgnoredFeatureIsFlat(t *testing.T) {
	x := randomData(150, 2, 2)
	m := linearModel{3, 0}

	curve, err := Compute(m, x, 1, 5)
	require.NoError(t, err)
	for i, v := range curve.Effect {
		assert.InDelta(t, 0, v, 1e-9, "edge %d", i)
	}
}

func TestComputeDuplicateQuantiles(t *testing.T) {
	// A heavily tied feature collapses duplicate cut points instead of
	// producing zero-width intervals.
	x := mat.NewDense(12, 1, []float64{0, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 4})
	curve, err := Compute(linearModel{1}, x, 0, 6)
	require.NoError(t, err)
	for k := 0; k < len(curve.Edges)-1; k++ {
		assert.Greater(t, curve.Edges[k+1], curve.Edges[k])
	}
}

func TestComputeInvalidArguments(t *testing.T) {
	x := randomData(50, 2, 3)
	m := linearModel{1, 1}

	for _, test := range []struct {
		name    string
		x       *mat.Dense
		feature int
		bins    int
	}{
		{"NegativeFeature", x, -1, 4},
		{"FeatureOutOfRange", x, 2, 4},
		{"ZeroBins", x, 0, 0},
		{"ConstantFeature", mat.NewDense(4, 1, []float64{7, 7, 7, 7}), 0, 2},
		{"OneRow", mat.NewDense(1, 2, []float64{1, 2}), 0, 2},
	} {
		_, err := Compute(m, test.x, test.feature, test.bins)
		assert.ErrorIs(t, err, ErrInvalidArgument, "case %s", test.name)
	}
}

func TestPlotWritesFile(t *testing.T) {
	x := randomData(80, 2, 4)
	curve, err := Compute(linearModel{1, 2}, x, 0, 5)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "effect.png")
	require.NoError(t, curve.Plot("x0 effect", "x0", path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
