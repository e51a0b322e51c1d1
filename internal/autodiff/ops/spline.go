package ops

import (
	"gonum.org/v1/gonum/mat"

	"github.com/kan-ml/kan/internal/spline"
	"github.com/kan-ml/kan/internal/tensor"
)

// BSplineOp evaluates one edge's spline: y[n] = Σ_k B[n,k]·coef[k], where B is
// the basis matrix of the edge's grid at the batch inputs.
//
// The basis matrix is computed once in the forward pass and kept for the
// backward pass; the derivative matrix B′ is only computed if a gradient
// actually flows (it is needed solely to route gradients into the input, for
// layers below this one).
//
// Backward:
//
//	grad_coef[k] = Σ_n g[n]·B[n,k]        (Bᵀ g)
//	grad_x[n]    = g[n]·Σ_k coef[k]·B′[n,k]
type BSplineOp struct {
	x      *tensor.RawTensor // (N,) float64
	coef   *tensor.RawTensor // (K,) float64
	output *tensor.RawTensor // (N,) float64
	grid   *spline.Grid
	basis  *mat.Dense // N×K, cached from forward
	xs     []float64  // forward inputs, for the derivative matrix
}

// NewBSplineOp records a spline evaluation with its cached basis matrix.
func NewBSplineOp(x, coef, output *tensor.RawTensor, grid *spline.Grid, basis *mat.Dense, xs []float64) *BSplineOp {
	return &BSplineOp{x: x, coef: coef, output: output, grid: grid, basis: basis, xs: xs}
}

// Backward computes gradients for the input and the coefficients.
func (op *BSplineOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	g := outputGrad.AsFloat64()
	n := len(op.xs)
	k := op.grid.NumBasis()

	gradCoef := tensor.MustNewRaw(op.coef.Shape(), tensor.Float64, backend.Device())
	cd := gradCoef.AsFloat64()
	for i := 0; i < n; i++ {
		row := op.basis.RawRowView(i)
		gi := g[i]
		if gi == 0 {
			continue
		}
		for j := 0; j < k; j++ {
			cd[j] += gi * row[j]
		}
	}

	gradX := tensor.MustNewRaw(op.x.Shape(), tensor.Float64, backend.Device())
	xd := gradX.AsFloat64()
	deriv := op.grid.BasisDerivMatrix(op.xs)
	coef := op.coef.AsFloat64()
	for i := 0; i < n; i++ {
		row := deriv.RawRowView(i)
		var s float64
		for j := 0; j < k; j++ {
			s += coef[j] * row[j]
		}
		xd[i] = g[i] * s
	}

	return []*tensor.RawTensor{gradX, gradCoef}
}

// Inputs returns [x, coef].
func (op *BSplineOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.x, op.coef}
}

// Output returns the spline values.
func (op *BSplineOp) Output() *tensor.RawTensor { return op.output }
