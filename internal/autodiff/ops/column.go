package ops

import (
	"fmt"

	"github.com/kan-ml/kan/internal/tensor"
)

// ColumnOp selects one column of a 2-D batch: y[n] = x[n, col].
// This is how each edge activation receives its input dimension.
//
// Backward scatters the column gradient into a zero tensor of the input's
// shape (the adjoint of selection).
type ColumnOp struct {
	input  *tensor.RawTensor // (N, in)
	output *tensor.RawTensor // (N,)
	col    int
}

// NewColumnOp records x[:, col] = output.
func NewColumnOp(input, output *tensor.RawTensor, col int) *ColumnOp {
	return &ColumnOp{input: input, output: output, col: col}
}

// Backward scatters the gradient back into the selected column.
func (op *ColumnOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	shape := op.input.Shape()
	grad := tensor.MustNewRaw(shape, op.input.DType(), backend.Device())
	cols := shape[1]
	switch op.input.DType() {
	case tensor.Float64:
		od, gd := outputGrad.AsFloat64(), grad.AsFloat64()
		for n, g := range od {
			gd[n*cols+op.col] = g
		}
	case tensor.Float32:
		od, gd := outputGrad.AsFloat32(), grad.AsFloat32()
		for n, g := range od {
			gd[n*cols+op.col] = g
		}
	default:
		panic(fmt.Sprintf("column backward: unsupported dtype %s", op.input.DType()))
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns [x].
func (op *ColumnOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the selected column.
func (op *ColumnOp) Output() *tensor.RawTensor { return op.output }

// StackOp assembles column vectors into a 2-D batch: y[n, j] = cols[j][n].
// The layer output is stacked from its per-node sums this way.
type StackOp struct {
	inputs []*tensor.RawTensor // each (N,)
	output *tensor.RawTensor   // (N, len(inputs))
}

// NewStackOp records stack(cols) = output.
func NewStackOp(inputs []*tensor.RawTensor, output *tensor.RawTensor) *StackOp {
	return &StackOp{inputs: inputs, output: output}
}

// Backward splits the gradient back into per-column vectors.
func (op *StackOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	cols := len(op.inputs)
	n := op.inputs[0].Shape()[0]
	grads := make([]*tensor.RawTensor, cols)
	for j := range grads {
		grads[j] = tensor.MustNewRaw(tensor.Shape{n}, op.inputs[j].DType(), backend.Device())
	}
	switch op.output.DType() {
	case tensor.Float64:
		od := outputGrad.AsFloat64()
		for j := range grads {
			gd := grads[j].AsFloat64()
			for i := 0; i < n; i++ {
				gd[i] = od[i*cols+j]
			}
		}
	case tensor.Float32:
		od := outputGrad.AsFloat32()
		for j := range grads {
			gd := grads[j].AsFloat32()
			for i := 0; i < n; i++ {
				gd[i] = od[i*cols+j]
			}
		}
	default:
		panic(fmt.Sprintf("stack backward: unsupported dtype %s", op.output.DType()))
	}
	return grads
}

// Inputs returns the stacked columns.
func (op *StackOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns the assembled batch.
func (op *StackOp) Output() *tensor.RawTensor { return op.output }
