package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kan-ml/kan/internal/tensor"
)

func raw(t *testing.T, data []float64, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	r := tensor.MustNewRaw(shape, tensor.Float64, tensor.CPU)
	copy(r.AsFloat64(), data)
	return r
}

func TestAddSameShape(t *testing.T) {
	b := New()
	x := raw(t, []float64{1, 2, 3, 4}, tensor.Shape{2, 2})
	y := raw(t, []float64{10, 20, 30, 40}, tensor.Shape{2, 2})
	// x is unique, so the kernel may reuse its buffer.
	out := b.Add(x, y)
	assert.Equal(t, []float64{11, 22, 33, 44}, out.AsFloat64())
}

func TestAddInplaceRespectsForceNonUnique(t *testing.T) {
	b := New()
	x := raw(t, []float64{1, 2}, tensor.Shape{2})
	y := raw(t, []float64{3, 4}, tensor.Shape{2})

	undo := x.ForceNonUnique()
	out := b.Add(x, y)
	undo()

	assert.Equal(t, []float64{1, 2}, x.AsFloat64(), "guarded operand must not be overwritten")
	assert.Equal(t, []float64{4, 6}, out.AsFloat64())
}

func TestAddBroadcast(t *testing.T) {
	b := New()
	x := raw(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	y := raw(t, []float64{10, 20, 30}, tensor.Shape{3})
	out := b.Add(x, y)
	assert.Equal(t, []float64{11, 22, 33, 14, 25, 36}, out.AsFloat64())

	col := raw(t, []float64{100, 200}, tensor.Shape{2, 1})
	out = b.Add(x, col)
	assert.Equal(t, []float64{101, 102, 103, 204, 205, 206}, out.AsFloat64())
}

func TestMulScalarBroadcast(t *testing.T) {
	b := New()
	x := raw(t, []float64{1, 2, 3}, tensor.Shape{3})
	s := raw(t, []float64{2}, tensor.Shape{1})
	out := b.Mul(x, s)
	assert.Equal(t, []float64{2, 4, 6}, out.AsFloat64())
}

func TestMatMul(t *testing.T) {
	b := New()
	x := raw(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	y := raw(t, []float64{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2})
	out := b.MatMul(x, y)
	require.True(t, out.Shape().Equal(tensor.Shape{2, 2}))
	assert.Equal(t, []float64{58, 64, 139, 154}, out.AsFloat64())
}

func TestMatMulSequentialMatchesParallel(t *testing.T) {
	par := New()
	seq := NewSequential()
	x := tensor.MustNewRaw(tensor.Shape{17, 9}, tensor.Float64, tensor.CPU)
	y := tensor.MustNewRaw(tensor.Shape{9, 13}, tensor.Float64, tensor.CPU)
	for i := range x.AsFloat64() {
		x.AsFloat64()[i] = float64(i%7) - 3
	}
	for i := range y.AsFloat64() {
		y.AsFloat64()[i] = float64(i%5) - 2
	}
	assert.Equal(t, seq.MatMul(x, y).AsFloat64(), par.MatMul(x, y).AsFloat64())
}

func TestUnaryOps(t *testing.T) {
	b := New()
	x := raw(t, []float64{0, 1, -1}, tensor.Shape{3})

	assert.InDeltaSlice(t, []float64{1, math.E, 1 / math.E}, b.Exp(x).AsFloat64(), 1e-15)
	assert.InDeltaSlice(t, []float64{0, math.Sin(1), -math.Sin(1)}, b.Sin(x).AsFloat64(), 1e-15)

	silu := b.SiLU(x).AsFloat64()
	assert.InDelta(t, 0, silu[0], 1e-15)
	assert.InDelta(t, 1/(1+math.Exp(-1)), silu[1], 1e-15)

	assert.Equal(t, []float64{5, 6, 4}, b.AddScalar(x, 5).AsFloat64())
	assert.Equal(t, []float64{0, 2, -2}, b.MulScalar(x, 2).AsFloat64())
}

func TestSiluDeriv(t *testing.T) {
	const h = 1e-6
	for _, x := range []float64{-2, -0.5, 0, 0.5, 2} {
		fd := (Silu(x+h) - Silu(x-h)) / (2 * h)
		assert.InDelta(t, fd, SiluDeriv(x), 1e-8)
	}
}

func TestSumAndReduceDims(t *testing.T) {
	b := New()
	x := raw(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	total := b.Sum(x)
	assert.True(t, total.Shape().Equal(tensor.Shape{}))
	assert.Equal(t, 21.0, total.AsFloat64()[0])

	rows := b.SumDim(x, 1, false)
	assert.True(t, rows.Shape().Equal(tensor.Shape{2}))
	assert.Equal(t, []float64{6, 15}, rows.AsFloat64())

	cols := b.SumDim(x, 0, true)
	assert.True(t, cols.Shape().Equal(tensor.Shape{1, 3}))
	assert.Equal(t, []float64{5, 7, 9}, cols.AsFloat64())

	mean := b.MeanDim(x, 1, false)
	assert.Equal(t, []float64{2, 5}, mean.AsFloat64())
}

func TestReshapeTranspose(t *testing.T) {
	b := New()
	x := raw(t, []float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	r := b.Reshape(x, tensor.Shape{3, 2})
	assert.True(t, r.Shape().Equal(tensor.Shape{3, 2}))
	assert.Equal(t, x.AsFloat64(), r.AsFloat64(), "reshape is a view")

	tr := b.Transpose(x)
	assert.True(t, tr.Shape().Equal(tensor.Shape{3, 2}))
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, tr.AsFloat64())
}

func TestCast(t *testing.T) {
	b := New()
	x := raw(t, []float64{1.5, -2.25}, tensor.Shape{2})

	f32 := b.Cast(x, tensor.Float32)
	assert.Equal(t, []float32{1.5, -2.25}, f32.AsFloat32())

	f16 := b.Cast(x, tensor.Float16)
	back := b.Cast(f16, tensor.Float64)
	assert.Equal(t, []float64{1.5, -2.25}, back.AsFloat64(), "exact halves survive the float16 round trip")
}
