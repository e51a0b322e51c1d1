package spline

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// CondWarnThreshold is the condition number above which a least-squares refit
// is reported as ill-conditioned. Ill-conditioning is a fit-quality warning,
// never a failure: degraded accuracy is tolerated.
const CondWarnThreshold = 1e8

// FitResult reports a least-squares coefficient fit.
type FitResult struct {
	Coef []float64 // fitted spline coefficients, len = grid.NumBasis()
	R2   float64   // coefficient of determination against the targets
	Cond float64   // condition number of the basis matrix
}

// IllConditioned reports whether the fit should be treated as degraded.
func (r FitResult) IllConditioned() bool {
	return r.Cond > CondWarnThreshold || math.IsInf(r.Cond, 1)
}

// FitCoefficients solves min_c ||B(xs) c - ys||² for the grid's basis matrix.
//
// The solve goes through a truncated SVD pseudo-inverse, so a near-singular
// basis (clustered samples, empty knot spans) still yields the best available
// coefficients instead of an error. Callers inspect FitResult.IllConditioned
// to decide whether to warn.
func FitCoefficients(g *Grid, xs, ys []float64) (FitResult, error) {
	if len(xs) != len(ys) {
		return FitResult{}, errors.Errorf("spline: got %d inputs but %d targets", len(xs), len(ys))
	}
	k := g.NumBasis()
	if len(xs) < k {
		return FitResult{}, errors.Errorf("spline: need at least %d samples to fit %d coefficients, got %d", k, k, len(xs))
	}

	basis := g.BasisMatrix(xs)
	y := mat.NewVecDense(len(ys), append([]float64(nil), ys...))

	var svd mat.SVD
	if !svd.Factorize(basis, mat.SVDThin) {
		return FitResult{}, errors.New("spline: SVD factorization of basis matrix failed")
	}
	values := svd.Values(nil)
	cond := math.Inf(1)
	if last := values[len(values)-1]; last > 0 {
		cond = values[0] / last
	}

	coef := solveSVD(&svd, values, y, k)
	res := FitResult{Coef: coef, Cond: cond}
	res.R2 = RSquared(ys, g.EvaluateSpline(xs, coef))
	return res, nil
}

// solveSVD computes the minimum-norm least-squares solution V Σ⁺ Uᵀ y,
// truncating singular values below a relative tolerance.
func solveSVD(svd *mat.SVD, values []float64, y *mat.VecDense, k int) []float64 {
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	tol := values[0] * 1e-14 * float64(len(values))
	uty := make([]float64, len(values))
	for i, s := range values {
		if s <= tol {
			continue
		}
		var dot float64
		for n := 0; n < y.Len(); n++ {
			dot += u.At(n, i) * y.AtVec(n)
		}
		uty[i] = dot / s
	}
	coef := make([]float64, k)
	for i := 0; i < k; i++ {
		var s float64
		for j := range values {
			s += v.At(i, j) * uty[j]
		}
		coef[i] = s
	}
	return coef
}

// RSquared is the coefficient of determination of predictions against targets.
// A constant target vector gives 1 on exact match and 0 otherwise.
func RSquared(targets, preds []float64) float64 {
	meanT := stat.Mean(targets, nil)
	var ssRes, ssTot float64
	for i := range targets {
		d := targets[i] - preds[i]
		ssRes += d * d
		t := targets[i] - meanT
		ssTot += t * t
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}
