// Package autodiff implements reverse-mode automatic differentiation as a
// decorator over any tensor backend.
//
// Backend[B] wraps an inner backend (normally cpu) and records every
// operation onto a GradientTape; walking the tape in reverse yields gradients
// for all tensors in the graph, including spline coefficients, magnitude
// weights and symbolic affine parameters.
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	loss := ... // tensor ops through `backend`
//	grads := autodiff.Backward(loss, backend)
package autodiff

import (
	"github.com/kan-ml/kan/internal/autodiff/ops"
	"github.com/kan-ml/kan/internal/tensor"
)

// Backend wraps an inner backend and adds gradient tracking.
// It implements tensor.Backend; every operation is forwarded to the inner
// backend and, while the tape is recording, recorded for the backward pass.
type Backend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates an autodiff backend wrapping the given inner backend.
func New[B tensor.Backend](inner B) *Backend[B] {
	return &Backend[B]{inner: inner, tape: NewGradientTape()}
}

// Tape returns the gradient tape.
func (b *Backend[B]) Tape() *GradientTape { return b.tape }

// GetTape implements TapeBackend.
func (b *Backend[B]) GetTape() *GradientTape { return b.tape }

// Inner returns the wrapped backend.
func (b *Backend[B]) Inner() B { return b.inner }

// Name returns the decorated backend name.
func (b *Backend[B]) Name() string { return "Autodiff(" + b.inner.Name() + ")" }

// Device returns the inner backend's device.
func (b *Backend[B]) Device() tensor.Device { return b.inner.Device() }

// guard prevents the inner backend from in-place modifying tensors that the
// tape may still reference. Undone after the inner call.
func guard(ts ...*tensor.RawTensor) func() {
	undos := make([]func(), len(ts))
	for i, t := range ts {
		undos[i] = t.ForceNonUnique()
	}
	return func() {
		for _, u := range undos {
			u()
		}
	}
}

// Add performs element-wise addition and records the operation.
func (b *Backend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer guard(x, y)()
	out := b.inner.Add(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAddOp(x, y, out))
	}
	return out
}

// Sub performs element-wise subtraction and records the operation.
func (b *Backend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer guard(x, y)()
	out := b.inner.Sub(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSubOp(x, y, out))
	}
	return out
}

// Mul performs element-wise multiplication and records the operation.
func (b *Backend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer guard(x, y)()
	out := b.inner.Mul(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulOp(x, y, out))
	}
	return out
}

// Div performs element-wise division and records the operation.
func (b *Backend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer guard(x, y)()
	out := b.inner.Div(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewDivOp(x, y, out))
	}
	return out
}

// MatMul performs matrix multiplication and records the operation.
func (b *Backend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	defer guard(x, y)()
	out := b.inner.MatMul(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMatMulOp(x, y, out))
	}
	return out
}

// AddScalar adds a scalar and records the operation.
func (b *Backend[B]) AddScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	defer guard(x)()
	out := b.inner.AddScalar(x, s)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAddScalarOp(x, out))
	}
	return out
}

// MulScalar multiplies by a scalar and records the operation.
func (b *Backend[B]) MulScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	defer guard(x)()
	out := b.inner.MulScalar(x, s)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulScalarOp(x, out, s))
	}
	return out
}

// Exp applies e^x and records the operation.
func (b *Backend[B]) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	defer guard(x)()
	out := b.inner.Exp(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewExpOp(x, out))
	}
	return out
}

// Sin applies sin(x) and records the operation.
func (b *Backend[B]) Sin(x *tensor.RawTensor) *tensor.RawTensor {
	defer guard(x)()
	out := b.inner.Sin(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSinOp(x, out))
	}
	return out
}

// Cos applies cos(x) and records the operation.
func (b *Backend[B]) Cos(x *tensor.RawTensor) *tensor.RawTensor {
	defer guard(x)()
	out := b.inner.Cos(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewCosOp(x, out))
	}
	return out
}

// Sqrt applies sqrt(x) and records the operation.
func (b *Backend[B]) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	defer guard(x)()
	out := b.inner.Sqrt(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSqrtOp(x, out))
	}
	return out
}

// SiLU applies x*sigmoid(x) and records the operation.
func (b *Backend[B]) SiLU(x *tensor.RawTensor) *tensor.RawTensor {
	defer guard(x)()
	out := b.inner.SiLU(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSiLUOp(x, out))
	}
	return out
}

// Reshape records the view change.
func (b *Backend[B]) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	out := b.inner.Reshape(x, newShape)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewReshapeOp(x, out))
	}
	return out
}

// Transpose records the 2-D transpose.
func (b *Backend[B]) Transpose(x *tensor.RawTensor) *tensor.RawTensor {
	defer guard(x)()
	out := b.inner.Transpose(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewTransposeOp(x, out))
	}
	return out
}

// Sum reduces to a scalar and records the operation.
func (b *Backend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	defer guard(x)()
	out := b.inner.Sum(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSumOp(x, out))
	}
	return out
}

// SumDim sums along a dimension and records the operation.
func (b *Backend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	defer guard(x)()
	out := b.inner.SumDim(x, dim, keepDim)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSumDimOp(x, out, dim, keepDim))
	}
	return out
}

// MeanDim averages along a dimension and records the operation.
func (b *Backend[B]) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	defer guard(x)()
	out := b.inner.MeanDim(x, dim, keepDim)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMeanDimOp(x, out, dim, keepDim))
	}
	return out
}

// Cast converts dtypes. Casts are not differentiated: they only occur on the
// checkpoint path, outside training graphs.
func (b *Backend[B]) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	return b.inner.Cast(x, dtype)
}
