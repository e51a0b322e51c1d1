package symbolic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samples(f func(float64) float64, lo, hi float64, n int) (xs, ys []float64) {
	xs = make([]float64, n)
	ys = make([]float64, n)
	for i := range xs {
		xs[i] = lo + (hi-lo)*float64(i)/float64(n-1)
		ys[i] = f(xs[i])
	}
	return xs, ys
}

func TestLookup(t *testing.T) {
	k, err := Lookup("sin")
	require.NoError(t, err)
	assert.Equal(t, "sin", k.Name)

	_, err = Lookup("besselj0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "besselj0", "error must name the unknown kind")
}

func TestFitAffine_IdentityPinsPreAffine(t *testing.T) {
	kind, err := Lookup("identity")
	require.NoError(t, err)

	xs, ys := samples(func(x float64) float64 { return 2*x + 3 }, -1, 1, 101)
	desc, err := FitAffine(kind, xs, ys)
	require.NoError(t, err)

	assert.Equal(t, 1.0, desc.A)
	assert.Equal(t, 0.0, desc.B)
	assert.InDelta(t, 2.0, desc.C, 1e-10)
	assert.InDelta(t, 3.0, desc.D, 1e-10)
	assert.InDelta(t, 1.0, desc.R2, 1e-12)
}

func TestFitAffine_RecoverScaledSin(t *testing.T) {
	kind, err := Lookup("sin")
	require.NoError(t, err)

	xs, ys := samples(func(x float64) float64 { return 1.5*math.Sin(3*x+0.5) - 0.25 }, -1, 1, 201)
	desc, err := FitAffine(kind, xs, ys)
	require.NoError(t, err)

	assert.Greater(t, desc.R2, 0.9999)
	for i, x := range xs {
		assert.InDelta(t, ys[i], desc.Evaluate(x), 1e-2)
	}
}

func TestFitAffine_Square(t *testing.T) {
	kind, err := Lookup("square")
	require.NoError(t, err)

	xs, ys := samples(func(x float64) float64 { return x * x }, -1, 1, 101)
	desc, err := FitAffine(kind, xs, ys)
	require.NoError(t, err)
	assert.Greater(t, desc.R2, 0.99999)
}

func TestFitAffine_PoorFitReportedNotRejected(t *testing.T) {
	kind, err := Lookup("exp")
	require.NoError(t, err)

	// A step function no affine-wrapped exp can match.
	xs, ys := samples(func(x float64) float64 {
		if x < 0 {
			return -1
		}
		return 1
	}, -1, 1, 101)
	desc, err := FitAffine(kind, xs, ys)
	require.NoError(t, err, "a poor fit is reported through R2, never an error")
	assert.Less(t, desc.R2, 0.99)
}

func TestFitAffine_TooFewSamples(t *testing.T) {
	kind, err := Lookup("sin")
	require.NoError(t, err)
	_, err = FitAffine(kind, []float64{1, 2}, []float64{1, 2})
	assert.Error(t, err)
}

func TestKindGuards_Total(t *testing.T) {
	for _, k := range Kinds() {
		for _, x := range []float64{-10, -1, 0, 1e-300, 1, 10} {
			assert.False(t, math.IsNaN(k.Eval(x)), "%s(%g)", k.Name, x)
			assert.False(t, math.IsNaN(k.Deriv(x)), "%s'(%g)", k.Name, x)
		}
	}
}

func TestDescriptorRender(t *testing.T) {
	kind, err := Lookup("sin")
	require.NoError(t, err)

	d := Descriptor{Kind: kind, A: 2, B: 0.5, C: 3, D: -1}
	assert.Equal(t, "3*sin(2*x + 0.5) + -1", d.String())

	plain := Descriptor{Kind: kind, A: 1, B: 0, C: 1, D: 0}
	assert.Equal(t, "sin(x)", plain.String())
}
