package ops

import (
	"fmt"
	"math"

	"github.com/kan-ml/kan/internal/tensor"
)

// UnaryOp covers element-wise y = f(x) operations whose derivative can be
// written as a scalar function of the input. One generic op replaces the
// per-function boilerplate: the derivative closure is fixed at record time.
type UnaryOp struct {
	name   string
	input  *tensor.RawTensor
	output *tensor.RawTensor
	deriv  func(x float64) float64
}

// NewExpOp records y = e^x.
func NewExpOp(input, output *tensor.RawTensor) *UnaryOp {
	return &UnaryOp{name: "exp", input: input, output: output, deriv: math.Exp}
}

// NewSinOp records y = sin(x).
func NewSinOp(input, output *tensor.RawTensor) *UnaryOp {
	return &UnaryOp{name: "sin", input: input, output: output, deriv: math.Cos}
}

// NewCosOp records y = cos(x).
func NewCosOp(input, output *tensor.RawTensor) *UnaryOp {
	return &UnaryOp{name: "cos", input: input, output: output,
		deriv: func(x float64) float64 { return -math.Sin(x) }}
}

// NewSqrtOp records y = sqrt(x).
func NewSqrtOp(input, output *tensor.RawTensor) *UnaryOp {
	return &UnaryOp{name: "sqrt", input: input, output: output,
		deriv: func(x float64) float64 { return 0.5 / math.Sqrt(x) }}
}

// NewSiLUOp records y = x*sigmoid(x).
func NewSiLUOp(input, output *tensor.RawTensor) *UnaryOp {
	return &UnaryOp{name: "silu", input: input, output: output,
		deriv: func(x float64) float64 {
			sig := 1.0 / (1.0 + math.Exp(-x))
			return sig * (1.0 + x*(1.0-sig))
		}}
}

// Backward computes grad_input[i] = grad_output[i] * f'(input[i]).
func (op *UnaryOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.input
	inputGrad := tensor.MustNewRaw(x.Shape(), x.DType(), backend.Device())
	switch x.DType() {
	case tensor.Float64:
		xd, gd, od := x.AsFloat64(), inputGrad.AsFloat64(), outputGrad.AsFloat64()
		for i := range xd {
			gd[i] = od[i] * op.deriv(xd[i])
		}
	case tensor.Float32:
		xd, gd, od := x.AsFloat32(), inputGrad.AsFloat32(), outputGrad.AsFloat32()
		for i := range xd {
			gd[i] = od[i] * float32(op.deriv(float64(xd[i])))
		}
	default:
		panic(fmt.Sprintf("%s backward: unsupported dtype %s", op.name, x.DType()))
	}
	return []*tensor.RawTensor{inputGrad}
}

// Inputs returns [x].
func (op *UnaryOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns f(x).
func (op *UnaryOp) Output() *tensor.RawTensor { return op.output }

// ScalarOp covers y = x*s and y = x+s; the scalar is not a tensor input.
type ScalarOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	factor float64 // gradient multiplier: s for MulScalar, 1 for AddScalar
}

// NewMulScalarOp records y = x * s.
func NewMulScalarOp(input, output *tensor.RawTensor, s float64) *ScalarOp {
	return &ScalarOp{input: input, output: output, factor: s}
}

// NewAddScalarOp records y = x + s.
func NewAddScalarOp(input, output *tensor.RawTensor) *ScalarOp {
	return &ScalarOp{input: input, output: output, factor: 1}
}

// Backward scales the output gradient by the recorded factor.
func (op *ScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	if op.factor == 1 {
		return []*tensor.RawTensor{outputGrad.Clone()}
	}
	return []*tensor.RawTensor{backend.MulScalar(outputGrad, op.factor)}
}

// Inputs returns [x].
func (op *ScalarOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the scaled/shifted tensor.
func (op *ScalarOp) Output() *tensor.RawTensor { return op.output }
