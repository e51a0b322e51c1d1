package spline

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasisMatrix_PartitionOfUnity(t *testing.T) {
	for _, degree := range []int{1, 2, 3} {
		g, err := NewUniform(-1, 1, 5, degree)
		require.NoError(t, err)

		rng := rand.New(rand.NewSource(42))
		xs := make([]float64, 200)
		for i := range xs {
			xs[i] = rng.Float64()*2 - 1
		}
		xs[0], xs[1] = -1, 1 // include both boundaries

		basis := g.BasisMatrix(xs)
		for n := range xs {
			var sum float64
			for k := 0; k < g.NumBasis(); k++ {
				v := basis.At(n, k)
				assert.GreaterOrEqual(t, v, 0.0)
				sum += v
			}
			assert.InDelta(t, 1.0, sum, 1e-12, "degree %d at x=%g", degree, xs[n])
		}
	}
}

func TestBasisMatrix_ExtrapolationNeverFails(t *testing.T) {
	g, err := NewUniform(-1, 1, 5, 3)
	require.NoError(t, err)

	xs := []float64{-10, -1.5, 1.5, 10}
	basis := g.BasisMatrix(xs)
	for n := range xs {
		for k := 0; k < g.NumBasis(); k++ {
			assert.False(t, basis.At(n, k) != basis.At(n, k), "basis must not be NaN outside the range")
		}
	}
}

func TestBasisDerivMatrix_MatchesFiniteDifference(t *testing.T) {
	g, err := NewUniform(-1, 1, 5, 3)
	require.NoError(t, err)

	xs := []float64{-0.73, -0.2, 0.11, 0.64}
	const h = 1e-6
	deriv := g.BasisDerivMatrix(xs)
	for n, x := range xs {
		plus := g.BasisMatrix([]float64{x + h})
		minus := g.BasisMatrix([]float64{x - h})
		for k := 0; k < g.NumBasis(); k++ {
			fd := (plus.At(0, k) - minus.At(0, k)) / (2 * h)
			assert.InDelta(t, fd, deriv.At(n, k), 1e-6)
		}
	}
}

func TestEvaluateSpline_ReproducesLinear(t *testing.T) {
	// A degree-1 spline with coefficients at the Greville points reproduces
	// the identity function on the covered range.
	g, err := NewUniform(0, 1, 4, 1)
	require.NoError(t, err)
	ext := g.Extended()

	coef := make([]float64, g.NumBasis())
	for i := range coef {
		coef[i] = ext[i+1] // Greville abscissa for degree 1
	}
	xs := []float64{0, 0.13, 0.5, 0.77, 1}
	ys := g.EvaluateSpline(xs, coef)
	for i, x := range xs {
		assert.InDelta(t, x, ys[i], 1e-12)
	}
}
