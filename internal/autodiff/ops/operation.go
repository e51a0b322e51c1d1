// Package ops defines the differentiable operations recorded on the gradient
// tape. Each operation keeps its forward inputs/output and computes input
// gradients analytically during the backward pass.
//
// Beyond the generic arithmetic set, two domain operations exist:
//   - BSplineOp: spline evaluation y = B(x)·c with gradients to both the
//     coefficients (Bᵀg) and the input ((B′c)⊙g)
//   - SymbolicOp: a fixed edge y = c·f(a·x+b)+d with gradients to the input
//     and to the four affine parameters
package ops

import "github.com/kan-ml/kan/internal/tensor"

// Operation is one differentiable step in the recorded computation.
type Operation interface {
	// Backward computes gradients for the inputs given the output gradient.
	// The returned slice parallels Inputs().
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors of this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the tensor produced by this operation.
	Output() *tensor.RawTensor
}

// reduceBroadcast reduces a gradient to the shape of a forward-pass operand
// that was broadcast. Summing over broadcast dimensions is the adjoint of
// replication.
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()
	if gradShape.Equal(targetShape) {
		// Clone so gradient accumulation cannot alias tensors the tape still holds.
		return grad.Clone()
	}
	if len(targetShape) == 0 {
		return backend.Sum(grad)
	}

	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = backend.SumDim(result, 0, false)
	}
	for d := 0; d < len(targetShape); d++ {
		if targetShape[d] == 1 && result.Shape()[d] > 1 {
			result = backend.SumDim(result, d, true)
		}
	}
	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}
	return result
}
