package autodiff

import (
	"fmt"

	"github.com/kan-ml/kan/internal/autodiff/ops"
	"github.com/kan-ml/kan/internal/spline"
	"github.com/kan-ml/kan/internal/symbolic"
	"github.com/kan-ml/kan/internal/tensor"
)

// This file holds the differentiable entry points that have no counterpart in
// the element-wise backend interface: spline contraction, fixed symbolic
// evaluation, and column select/stack. Forward values are computed directly in
// float64 and the matching operation is recorded on the backend's tape.

// BSpline evaluates y[n] = Σ_k B[n,k]·coef[k] over the grid's basis at the
// batch inputs x (shape (N,), float64). The basis matrix computed here is
// cached on the recorded op for the backward pass.
func BSpline(x, coef *tensor.RawTensor, grid *spline.Grid, backend TapeBackend) *tensor.RawTensor {
	if got := coef.NumElements(); got != grid.NumBasis() {
		panic(fmt.Sprintf("bspline: got %d coefficients for %d basis functions", got, grid.NumBasis()))
	}
	defer undoAll(x.ForceNonUnique(), coef.ForceNonUnique())

	xs := x.AsFloat64()
	cd := coef.AsFloat64()
	basis := grid.BasisMatrix(xs)

	out := tensor.MustNewRaw(x.Shape(), tensor.Float64, backend.Device())
	od := out.AsFloat64()
	k := grid.NumBasis()
	for n := range xs {
		row := basis.RawRowView(n)
		var s float64
		for j := 0; j < k; j++ {
			s += row[j] * cd[j]
		}
		od[n] = s
	}

	if tape := backend.GetTape(); tape.IsRecording() {
		tape.Record(ops.NewBSplineOp(x, coef, out, grid, basis, xs))
	}
	return out
}

// SymbolicEdge evaluates y[n] = c·f(a·x[n]+b)+d for a fixed edge, with the
// affine tensor holding [a, b, c, d].
func SymbolicEdge(x, affine *tensor.RawTensor, kind *symbolic.Kind, backend TapeBackend) *tensor.RawTensor {
	if affine.NumElements() != 4 {
		panic(fmt.Sprintf("symbolic edge: affine tensor must hold 4 values, got %d", affine.NumElements()))
	}
	defer undoAll(x.ForceNonUnique(), affine.ForceNonUnique())

	xs := x.AsFloat64()
	p := affine.AsFloat64()
	a, bb, c, d := p[0], p[1], p[2], p[3]

	out := tensor.MustNewRaw(x.Shape(), tensor.Float64, backend.Device())
	od := out.AsFloat64()
	for n, v := range xs {
		od[n] = c*kind.Eval(a*v+bb) + d
	}

	if tape := backend.GetTape(); tape.IsRecording() {
		tape.Record(ops.NewSymbolicOp(x, affine, out, kind))
	}
	return out
}

// Column selects column col of a 2-D batch, producing a (N,) tensor.
func Column(x *tensor.RawTensor, col int, backend TapeBackend) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("column: expected 2-D input, got shape %v", shape))
	}
	if col < 0 || col >= shape[1] {
		panic(fmt.Sprintf("column: index %d out of range for %d columns", col, shape[1]))
	}
	defer x.ForceNonUnique()()

	n, cols := shape[0], shape[1]
	out := tensor.MustNewRaw(tensor.Shape{n}, x.DType(), backend.Device())
	switch x.DType() {
	case tensor.Float64:
		xd, od := x.AsFloat64(), out.AsFloat64()
		for i := 0; i < n; i++ {
			od[i] = xd[i*cols+col]
		}
	case tensor.Float32:
		xd, od := x.AsFloat32(), out.AsFloat32()
		for i := 0; i < n; i++ {
			od[i] = xd[i*cols+col]
		}
	default:
		panic(fmt.Sprintf("column: unsupported dtype %s", x.DType()))
	}

	if tape := backend.GetTape(); tape.IsRecording() {
		tape.Record(ops.NewColumnOp(x, out, col))
	}
	return out
}

// Stack assembles (N,) column vectors into a (N, len(cols)) batch.
func Stack(cols []*tensor.RawTensor, backend TapeBackend) *tensor.RawTensor {
	if len(cols) == 0 {
		panic("stack: no columns")
	}
	n := cols[0].Shape()[0]
	undos := make([]func(), len(cols))
	for j, c := range cols {
		if len(c.Shape()) != 1 || c.Shape()[0] != n {
			panic(fmt.Sprintf("stack: column %d has shape %v, want (%d)", j, c.Shape(), n))
		}
		undos[j] = c.ForceNonUnique()
	}
	defer undoAll(undos...)

	out := tensor.MustNewRaw(tensor.Shape{n, len(cols)}, cols[0].DType(), backend.Device())
	switch out.DType() {
	case tensor.Float64:
		od := out.AsFloat64()
		for j, c := range cols {
			cd := c.AsFloat64()
			for i := 0; i < n; i++ {
				od[i*len(cols)+j] = cd[i]
			}
		}
	case tensor.Float32:
		od := out.AsFloat32()
		for j, c := range cols {
			cd := c.AsFloat32()
			for i := 0; i < n; i++ {
				od[i*len(cols)+j] = cd[i]
			}
		}
	default:
		panic(fmt.Sprintf("stack: unsupported dtype %s", out.DType()))
	}

	if tape := backend.GetTape(); tape.IsRecording() {
		tape.Record(ops.NewStackOp(cols, out))
	}
	return out
}

func undoAll(undos ...func()) {
	for _, u := range undos {
		u()
	}
}
