package ops

import (
	"fmt"

	"github.com/kan-ml/kan/internal/tensor"
)

// SumOp: y = Σ x (all elements, scalar output).
type SumOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSumOp records sum(x) = output.
func NewSumOp(input, output *tensor.RawTensor) *SumOp {
	return &SumOp{input: input, output: output}
}

// Backward broadcasts the scalar gradient to the input shape.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.input
	grad := tensor.MustNewRaw(x.Shape(), x.DType(), backend.Device())
	switch x.DType() {
	case tensor.Float64:
		g := outputGrad.AsFloat64()[0]
		gd := grad.AsFloat64()
		for i := range gd {
			gd[i] = g
		}
	case tensor.Float32:
		g := outputGrad.AsFloat32()[0]
		gd := grad.AsFloat32()
		for i := range gd {
			gd[i] = g
		}
	default:
		panic(fmt.Sprintf("sum backward: unsupported dtype %s", x.DType()))
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns [x].
func (op *SumOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the scalar sum.
func (op *SumOp) Output() *tensor.RawTensor { return op.output }

// ReduceDimOp covers SumDim and MeanDim along one dimension.
//
// Backward replicates the gradient across the reduced dimension; the mean
// variant additionally divides by the reduced size.
type ReduceDimOp struct {
	input   *tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
	mean    bool
}

// NewSumDimOp records sum(x, dim) = output.
func NewSumDimOp(input, output *tensor.RawTensor, dim int, keepDim bool) *ReduceDimOp {
	return &ReduceDimOp{input: input, output: output, dim: dim, keepDim: keepDim}
}

// NewMeanDimOp records mean(x, dim) = output.
func NewMeanDimOp(input, output *tensor.RawTensor, dim int, keepDim bool) *ReduceDimOp {
	return &ReduceDimOp{input: input, output: output, dim: dim, keepDim: keepDim, mean: true}
}

// Backward replicates the output gradient across the reduced dimension.
func (op *ReduceDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.input
	shape := x.Shape()
	dim := op.dim
	if dim < 0 {
		dim += len(shape)
	}

	outer, inner := 1, 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	reduced := shape[dim]
	scale := 1.0
	if op.mean {
		scale = 1.0 / float64(reduced)
	}

	grad := tensor.MustNewRaw(shape, x.DType(), backend.Device())
	switch x.DType() {
	case tensor.Float64:
		od, gd := outputGrad.AsFloat64(), grad.AsFloat64()
		for o := 0; o < outer; o++ {
			for r := 0; r < reduced; r++ {
				for in := 0; in < inner; in++ {
					gd[(o*reduced+r)*inner+in] = od[o*inner+in] * scale
				}
			}
		}
	case tensor.Float32:
		od, gd := outputGrad.AsFloat32(), grad.AsFloat32()
		s := float32(scale)
		for o := 0; o < outer; o++ {
			for r := 0; r < reduced; r++ {
				for in := 0; in < inner; in++ {
					gd[(o*reduced+r)*inner+in] = od[o*inner+in] * s
				}
			}
		}
	default:
		panic(fmt.Sprintf("reduce backward: unsupported dtype %s", x.DType()))
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns [x].
func (op *ReduceDimOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the reduced tensor.
func (op *ReduceDimOp) Output() *tensor.RawTensor { return op.output }
