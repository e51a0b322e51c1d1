package ops

import (
	"github.com/kan-ml/kan/internal/symbolic"
	"github.com/kan-ml/kan/internal/tensor"
)

// SymbolicOp evaluates a symbolically fixed edge: y[n] = c·f(a·x[n]+b)+d.
//
// The affine tensor [a, b, c, d] stays trainable after fixing; the spline
// coefficients of the edge no longer appear in the graph at all.
//
// Backward (u = a·x+b):
//
//	grad_x[n] = g[n]·c·a·f′(u)
//	grad_a    = Σ_n g[n]·c·f′(u)·x[n]
//	grad_b    = Σ_n g[n]·c·f′(u)
//	grad_c    = Σ_n g[n]·f(u)
//	grad_d    = Σ_n g[n]
type SymbolicOp struct {
	x      *tensor.RawTensor // (N,) float64
	affine *tensor.RawTensor // (4,) float64: a, b, c, d
	output *tensor.RawTensor // (N,) float64
	kind   *symbolic.Kind
}

// NewSymbolicOp records a fixed-edge evaluation.
func NewSymbolicOp(x, affine, output *tensor.RawTensor, kind *symbolic.Kind) *SymbolicOp {
	return &SymbolicOp{x: x, affine: affine, output: output, kind: kind}
}

// Backward computes gradients for the input and the four affine parameters.
func (op *SymbolicOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	g := outputGrad.AsFloat64()
	xd := op.x.AsFloat64()
	p := op.affine.AsFloat64()
	a, b, c := p[0], p[1], p[2]

	gradX := tensor.MustNewRaw(op.x.Shape(), tensor.Float64, backend.Device())
	gradAffine := tensor.MustNewRaw(op.affine.Shape(), tensor.Float64, backend.Device())
	gx := gradX.AsFloat64()
	ga := gradAffine.AsFloat64()

	for n, x := range xd {
		u := a*x + b
		f := op.kind.Eval(u)
		df := op.kind.Deriv(u)
		gn := g[n]
		gx[n] = gn * c * a * df
		ga[0] += gn * c * df * x
		ga[1] += gn * c * df
		ga[2] += gn * f
		ga[3] += gn
	}
	return []*tensor.RawTensor{gradX, gradAffine}
}

// Inputs returns [x, affine].
func (op *SymbolicOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.x, op.affine}
}

// Output returns the fixed-edge values.
func (op *SymbolicOp) Output() *tensor.RawTensor { return op.output }
