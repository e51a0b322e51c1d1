package spline

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitCoefficients_RoundTrip(t *testing.T) {
	g, err := NewUniform(-1, 1, 6, 3)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	coef := make([]float64, g.NumBasis())
	for i := range coef {
		coef[i] = rng.NormFloat64()
	}

	xs := make([]float64, 300)
	for i := range xs {
		xs[i] = rng.Float64()*2 - 1
	}
	ys := g.EvaluateSpline(xs, coef)

	res, err := FitCoefficients(g, xs, ys)
	require.NoError(t, err)
	assert.False(t, res.IllConditioned())
	assert.InDelta(t, 1.0, res.R2, 1e-10)
	for i := range coef {
		assert.InDelta(t, coef[i], res.Coef[i], 1e-8, "coefficient %d", i)
	}
}

func TestFitCoefficients_RefitAcrossGrids(t *testing.T) {
	// A function fit on one grid keeps its shape when refit on a finer grid.
	coarse, err := NewUniform(-1, 1, 5, 3)
	require.NoError(t, err)
	fine, err := coarse.Refine(2)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(9))
	coef := make([]float64, coarse.NumBasis())
	for i := range coef {
		coef[i] = rng.NormFloat64()
	}

	xs := make([]float64, 400)
	for i := range xs {
		xs[i] = -1 + 2*float64(i)/399
	}
	ys := coarse.EvaluateSpline(xs, coef)

	res, err := FitCoefficients(fine, xs, ys)
	require.NoError(t, err)

	got := fine.EvaluateSpline(xs, res.Coef)
	for i := range xs {
		assert.InDelta(t, ys[i], got[i], 1e-8)
	}
}

func TestFitCoefficients_IllConditionedWarnsNotFails(t *testing.T) {
	g, err := NewUniform(-1, 1, 8, 3)
	require.NoError(t, err)

	// All samples crowd one knot span; most basis columns are identically
	// zero, so the system is rank deficient.
	xs := make([]float64, 50)
	ys := make([]float64, 50)
	for i := range xs {
		xs[i] = 0.01 * float64(i) / 50
		ys[i] = math.Sin(xs[i])
	}

	res, err := FitCoefficients(g, xs, ys)
	require.NoError(t, err, "ill-conditioning must degrade, not fail")
	assert.True(t, res.IllConditioned())
	for _, c := range res.Coef {
		assert.False(t, math.IsNaN(c))
	}
}

func TestFitCoefficients_Errors(t *testing.T) {
	g, err := NewUniform(-1, 1, 5, 3)
	require.NoError(t, err)

	_, err = FitCoefficients(g, []float64{1, 2}, []float64{1})
	assert.Error(t, err)

	_, err = FitCoefficients(g, []float64{1, 2}, []float64{1, 2})
	assert.Error(t, err, "fewer samples than coefficients")
}

func TestRSquared(t *testing.T) {
	assert.InDelta(t, 1.0, RSquared([]float64{1, 2, 3}, []float64{1, 2, 3}), 1e-15)
	assert.Less(t, RSquared([]float64{1, 2, 3}, []float64{3, 2, 1}), 0.0)
	assert.Equal(t, 1.0, RSquared([]float64{2, 2}, []float64{2, 2}))
	assert.Equal(t, 0.0, RSquared([]float64{2, 2}, []float64{2, 3}))
}
