package autodiff_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kan-ml/kan/internal/autodiff"
	"github.com/kan-ml/kan/internal/backend/cpu"
	"github.com/kan-ml/kan/internal/spline"
	"github.com/kan-ml/kan/internal/symbolic"
	"github.com/kan-ml/kan/internal/tensor"
)

type testBackend = *autodiff.Backend[*cpu.Backend]

func newBackend() testBackend {
	return autodiff.New(cpu.New())
}

func raw(data []float64, shape tensor.Shape) *tensor.RawTensor {
	r := tensor.MustNewRaw(shape, tensor.Float64, tensor.CPU)
	copy(r.AsFloat64(), data)
	return r
}

// numGrad estimates d loss / d param by central differences. The loss closure
// must re-run the forward pass at the params' current values.
func numGrad(loss func() float64, param *tensor.RawTensor) []float64 {
	const h = 1e-6
	data := param.AsFloat64()
	out := make([]float64, len(data))
	for i := range data {
		orig := data[i]
		data[i] = orig + h
		plus := loss()
		data[i] = orig - h
		minus := loss()
		data[i] = orig
		out[i] = (plus - minus) / (2 * h)
	}
	return out
}

// gradCheck runs forward once with recording on, backs propagates, and
// compares every requested gradient against finite differences.
func gradCheck(t *testing.T, backend testBackend, forward func() *tensor.RawTensor, params ...*tensor.RawTensor) {
	t.Helper()
	tape := backend.Tape()

	evalLoss := func() float64 {
		tape.Clear()
		return forward().AsFloat64()[0]
	}

	tape.StartRecording()
	tape.Clear()
	lossRaw := forward()
	require.True(t, lossRaw.Shape().Equal(tensor.Shape{}), "loss must be scalar")

	loss := tensor.New[float64](lossRaw, backend)
	grads := autodiff.Backward(loss, backend)
	tape.StopRecording()

	for pi, p := range params {
		g, ok := grads[p]
		require.True(t, ok, "no gradient for param %d", pi)
		want := numGrad(evalLoss, p)
		got := g.AsFloat64()
		for i := range want {
			assert.InDelta(t, want[i], got[i], 1e-4*(1+math.Abs(want[i])), "param %d element %d", pi, i)
		}
	}
}

func TestBackwardElementwiseChain(t *testing.T) {
	backend := newBackend()
	x := raw([]float64{0.3, -0.7, 1.2}, tensor.Shape{3})
	y := raw([]float64{1.1, 0.4, -0.6}, tensor.Shape{3})

	// loss = Σ (x·y + sin(x))²
	forward := func() *tensor.RawTensor {
		a := backend.Add(backend.Mul(x, y), backend.Sin(x))
		return backend.Sum(backend.Mul(a, a))
	}
	gradCheck(t, backend, forward, x, y)
}

func TestBackwardBroadcast(t *testing.T) {
	backend := newBackend()
	x := raw([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	bias := raw([]float64{0.5, -0.25, 0.75}, tensor.Shape{3})

	forward := func() *tensor.RawTensor {
		s := backend.Add(x, bias)
		return backend.Sum(backend.Mul(s, s))
	}
	gradCheck(t, backend, forward, x, bias)
}

func TestBackwardMatMul(t *testing.T) {
	backend := newBackend()
	a := raw([]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}, tensor.Shape{2, 3})
	b := raw([]float64{-0.3, 0.7, 0.2, 0.5, -0.1, 0.4}, tensor.Shape{3, 2})

	forward := func() *tensor.RawTensor {
		p := backend.MatMul(a, b)
		return backend.Sum(backend.Mul(p, p))
	}
	gradCheck(t, backend, forward, a, b)
}

func TestBackwardUnaryAndScalarOps(t *testing.T) {
	backend := newBackend()
	x := raw([]float64{0.2, -0.9, 1.4}, tensor.Shape{3})

	forward := func() *tensor.RawTensor {
		e := backend.Exp(backend.MulScalar(x, 0.5))
		s := backend.SiLU(backend.AddScalar(x, 1))
		return backend.Sum(backend.Add(e, s))
	}
	gradCheck(t, backend, forward, x)
}

func TestBackwardReduceDims(t *testing.T) {
	backend := newBackend()
	x := raw([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	forward := func() *tensor.RawTensor {
		m := backend.MeanDim(x, 1, false)
		return backend.Sum(backend.Mul(m, m))
	}
	gradCheck(t, backend, forward, x)
}

func TestBackwardBSpline(t *testing.T) {
	backend := newBackend()
	grid, err := spline.NewUniform(-1, 1, 5, 3)
	require.NoError(t, err)

	x := raw([]float64{-0.8, -0.2, 0.3, 0.9}, tensor.Shape{4})
	coef := raw(make([]float64, grid.NumBasis()), tensor.Shape{grid.NumBasis()})
	for i := range coef.AsFloat64() {
		coef.AsFloat64()[i] = math.Sin(float64(i))
	}

	forward := func() *tensor.RawTensor {
		s := autodiff.BSpline(x, coef, grid, backend)
		return backend.Sum(backend.Mul(s, s))
	}
	gradCheck(t, backend, forward, x, coef)
}

func TestBackwardSymbolicEdge(t *testing.T) {
	backend := newBackend()
	kind, err := symbolic.Lookup("sin")
	require.NoError(t, err)

	x := raw([]float64{-0.5, 0.1, 0.8}, tensor.Shape{3})
	affine := raw([]float64{1.3, 0.2, 0.9, -0.4}, tensor.Shape{4})

	forward := func() *tensor.RawTensor {
		s := autodiff.SymbolicEdge(x, affine, kind, backend)
		return backend.Sum(backend.Mul(s, s))
	}
	gradCheck(t, backend, forward, x, affine)
}

func TestBackwardColumnStack(t *testing.T) {
	backend := newBackend()
	x := raw([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2})

	forward := func() *tensor.RawTensor {
		c0 := autodiff.Column(x, 0, backend)
		c1 := autodiff.Column(x, 1, backend)
		stacked := autodiff.Stack([]*tensor.RawTensor{backend.MulScalar(c0, 2), backend.Sin(c1)}, backend)
		return backend.Sum(backend.Mul(stacked, stacked))
	}
	gradCheck(t, backend, forward, x)
}

func TestGradientAccumulatesAcrossUses(t *testing.T) {
	backend := newBackend()
	x := raw([]float64{3}, tensor.Shape{1})

	// loss = x·x + x: dx = 2x + 1 = 7
	tape := backend.Tape()
	tape.StartRecording()
	lossRaw := backend.Sum(backend.Add(backend.Mul(x, x), x))
	loss := tensor.New[float64](lossRaw, backend)
	grads := autodiff.Backward(loss, backend)

	require.Contains(t, grads, x)
	assert.InDelta(t, 7.0, grads[x].AsFloat64()[0], 1e-12)
}

func TestTapeRecordingControl(t *testing.T) {
	backend := newBackend()
	tape := backend.Tape()
	x := raw([]float64{1, 2}, tensor.Shape{2})

	backend.Add(x, x)
	assert.Equal(t, 0, tape.NumOps(), "nothing recorded before StartRecording")

	tape.StartRecording()
	backend.Add(x, x)
	assert.Equal(t, 1, tape.NumOps())

	tape.Clear()
	assert.Equal(t, 0, tape.NumOps())
	assert.True(t, tape.IsRecording(), "Clear preserves recording state")

	tape.StopRecording()
	backend.Add(x, x)
	assert.Equal(t, 0, tape.NumOps())
}

func TestBackwardRequiresScalar(t *testing.T) {
	backend := newBackend()
	backend.Tape().StartRecording()
	x := raw([]float64{1, 2}, tensor.Shape{2})
	y := tensor.New[float64](backend.Add(x, x), backend)
	assert.Panics(t, func() { autodiff.Backward(y, backend) })
}
