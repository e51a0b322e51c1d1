package spline

import "gonum.org/v1/gonum/mat"

// BasisMatrix evaluates all NumBasis B-spline basis functions at each input,
// returning an N×NumBasis matrix (row n holds the basis vector at xs[n]).
//
// Inside the covered range the rows satisfy partition of unity. Outside it the
// boundary-extended knots keep evaluation well defined but the row sum decays
// toward zero; extrapolation error is unbounded by design.
//
// Basis values are constants with respect to training: gradients flow through
// the coefficient contraction (and through the input via BasisDerivMatrix),
// not through the matrix entries themselves.
func (g *Grid) BasisMatrix(xs []float64) *mat.Dense {
	k := g.NumBasis()
	ext := g.Extended()
	out := mat.NewDense(len(xs), k, nil)
	scratch := newBasisScratch(len(ext))
	for n, x := range xs {
		row := out.RawRowView(n)
		scratch.evalAll(ext, g.degree, x, row)
	}
	return out
}

// BasisDerivMatrix evaluates the first derivative of every basis function at
// each input, with the same layout as BasisMatrix. Used by the autodiff
// backward pass to route gradients into the spline's input.
func (g *Grid) BasisDerivMatrix(xs []float64) *mat.Dense {
	k := g.NumBasis()
	p := g.degree
	ext := g.Extended()
	out := mat.NewDense(len(xs), k, nil)
	scratch := newBasisScratch(len(ext))
	lower := make([]float64, k+1) // degree p-1 bases
	for n, x := range xs {
		scratch.evalAll(ext, p-1, x, lower)
		row := out.RawRowView(n)
		for i := 0; i < k; i++ {
			var left, right float64
			if d := ext[i+p] - ext[i]; d != 0 {
				left = lower[i] / d
			}
			if d := ext[i+p+1] - ext[i+1]; d != 0 {
				right = lower[i+1] / d
			}
			row[i] = float64(p) * (left - right)
		}
	}
	return out
}

// basisScratch holds the Cox-de Boor work buffer, reused across samples.
type basisScratch struct {
	buf []float64
}

func newBasisScratch(numKnots int) *basisScratch {
	return &basisScratch{buf: make([]float64, numKnots-1)}
}

// evalAll computes the first len(dst) degree-d basis values at x over the
// extended knot vector, via the Cox-de Boor recursion in place.
func (s *basisScratch) evalAll(ext []float64, degree int, x float64, dst []float64) {
	b := s.buf[:len(ext)-1]

	// Degree 0: indicator of the half-open knot span, closed on the right at
	// the final knot so the upper boundary evaluates to 1 instead of 0.
	last := len(ext) - 1
	for i := range b {
		if ext[i] <= x && (x < ext[i+1] || (i+1 == last && x == ext[last])) {
			b[i] = 1
		} else {
			b[i] = 0
		}
	}

	// Elevate degree; spans with coincident knots contribute zero.
	for d := 1; d <= degree; d++ {
		for i := 0; i+d+1 < len(ext); i++ {
			var left, right float64
			if den := ext[i+d] - ext[i]; den != 0 {
				left = (x - ext[i]) / den * b[i]
			}
			if den := ext[i+d+1] - ext[i+1]; den != 0 {
				right = (ext[i+d+1] - x) / den * b[i+1]
			}
			b[i] = left + right
		}
	}
	copy(dst, b[:len(dst)])
}

// EvaluateSpline contracts the basis matrix with a coefficient vector:
// y[n] = Σ_i basis[n,i] * coef[i]. Plain numeric path used by refits,
// symbolic fitting and plotting; the differentiable path lives in autodiff.
func (g *Grid) EvaluateSpline(xs, coef []float64) []float64 {
	basis := g.BasisMatrix(xs)
	out := make([]float64, len(xs))
	for n := range xs {
		row := basis.RawRowView(n)
		var s float64
		for i, c := range coef {
			s += row[i] * c
		}
		out[n] = s
	}
	return out
}
