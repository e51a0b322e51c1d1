package optim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kan-ml/kan/internal/autodiff"
	"github.com/kan-ml/kan/internal/backend/cpu"
	"github.com/kan-ml/kan/internal/kan"
	"github.com/kan-ml/kan/internal/tensor"
)

func param(name string, vals ...float64) *kan.Parameter {
	raw := tensor.MustNewRaw(tensor.Shape{len(vals)}, tensor.Float64, tensor.CPU)
	copy(raw.AsFloat64(), vals)
	return kan.NewParameter(name, raw)
}

func gradsFor(pairs map[*kan.Parameter][]float64) map[*tensor.RawTensor]*tensor.RawTensor {
	out := make(map[*tensor.RawTensor]*tensor.RawTensor, len(pairs))
	for p, g := range pairs {
		raw := tensor.MustNewRaw(tensor.Shape{len(g)}, tensor.Float64, tensor.CPU)
		copy(raw.AsFloat64(), g)
		out[p.Raw()] = raw
	}
	return out
}

func TestSGDStep(t *testing.T) {
	p := param("w", 1, 2)
	opt := NewSGD([]*kan.Parameter{p}, SGDConfig{LR: 0.1})

	opt.Step(gradsFor(map[*kan.Parameter][]float64{p: {0.5, -1}}))
	assert.InDeltaSlice(t, []float64{0.95, 2.1}, p.Data(), 1e-15)
}

func TestSGDMomentum(t *testing.T) {
	p := param("w", 1)
	opt := NewSGD([]*kan.Parameter{p}, SGDConfig{LR: 0.1, Momentum: 0.9})
	g := gradsFor(map[*kan.Parameter][]float64{p: {1}})

	opt.Step(g)
	assert.InDelta(t, 0.9, p.Data()[0], 1e-15)
	opt.Step(g) // velocity = 0.9·1 + 1 = 1.9
	assert.InDelta(t, 0.71, p.Data()[0], 1e-15)

	opt.ResetHistory()
	opt.Step(g) // velocity starts over
	assert.InDelta(t, 0.61, p.Data()[0], 1e-15)
}

func TestSGDSkipsParamsWithoutGradient(t *testing.T) {
	p := param("w", 3)
	q := param("u", 5)
	opt := NewSGD([]*kan.Parameter{p, q}, SGDConfig{LR: 0.1})

	opt.Step(gradsFor(map[*kan.Parameter][]float64{p: {1}}))
	assert.InDelta(t, 2.9, p.Data()[0], 1e-15)
	assert.Equal(t, 5.0, q.Data()[0], "no gradient, no update")
}

func TestAdamFirstStepIsSignedLR(t *testing.T) {
	p := param("w", 1, -1)
	opt := NewAdam([]*kan.Parameter{p}, AdamConfig{})

	// After bias correction the first update is lr·g/(|g|+eps) ≈ lr·sign(g).
	opt.Step(gradsFor(map[*kan.Parameter][]float64{p: {0.5, -2}}))
	assert.InDelta(t, 1-0.001, p.Data()[0], 1e-6)
	assert.InDelta(t, -1+0.001, p.Data()[1], 1e-6)
}

func TestAdamResetHistoryRestartsBiasCorrection(t *testing.T) {
	p := param("w", 1)
	opt := NewAdam([]*kan.Parameter{p}, AdamConfig{})
	g := gradsFor(map[*kan.Parameter][]float64{p: {0.3}})

	for i := 0; i < 3; i++ {
		opt.Step(g)
	}
	opt.ResetHistory()

	// A reset optimizer takes a first step again: lr·sign(g) regardless of the
	// gradient magnitude.
	before := p.Data()[0]
	opt.Step(g)
	assert.InDelta(t, -0.001, p.Data()[0]-before, 1e-6)
}

// quadraticClosure builds an objective f = Σ a_i·(p_i - t_i)² with analytic
// gradients, keyed the way a backward pass would key them.
func quadraticClosure(p *kan.Parameter, scale, target []float64) Closure {
	return func() (float64, map[*tensor.RawTensor]*tensor.RawTensor) {
		data := p.Data()
		graw := tensor.MustNewRaw(tensor.Shape{len(data)}, tensor.Float64, tensor.CPU)
		g := graw.AsFloat64()
		var loss float64
		for i := range data {
			d := data[i] - target[i]
			loss += scale[i] * d * d
			g[i] = 2 * scale[i] * d
		}
		return loss, map[*tensor.RawTensor]*tensor.RawTensor{p.Raw(): graw}
	}
}

func TestLBFGSConvergesToMachinePrecision(t *testing.T) {
	p := param("w", 4, -3, 2, 0.5, -1)
	scale := []float64{1, 10, 0.1, 5, 2}
	target := []float64{0.7, -0.2, 1.3, 0.01, -2.5}
	opt := NewLBFGS([]*kan.Parameter{p}, LBFGSConfig{})
	closure := quadraticClosure(p, scale, target)

	prev := math.Inf(1)
	var loss float64
	for i := 0; i < 60; i++ {
		loss = opt.Step(closure)
		assert.LessOrEqual(t, loss, prev+1e-15, "line search never accepts an increase")
		prev = loss
	}

	assert.Less(t, loss, 1e-12)
	for i, want := range target {
		assert.InDelta(t, want, p.Data()[i], 1e-6, "coordinate %d", i)
	}
}

func TestLBFGSZeroGradientIsANoOp(t *testing.T) {
	p := param("w", 0.7)
	opt := NewLBFGS([]*kan.Parameter{p}, LBFGSConfig{})
	closure := quadraticClosure(p, []float64{1}, []float64{0.7})

	loss := opt.Step(closure)
	assert.Equal(t, 0.0, loss)
	assert.Equal(t, 0.7, p.Data()[0])
}

func TestLBFGSResetsWhenParameterSpaceChanges(t *testing.T) {
	backend := autodiff.New(cpu.New())
	net, err := kan.NewNetwork(kan.Config{Widths: []int{1, 1}}, backend)
	require.NoError(t, err)
	params := net.Parameters()
	opt := NewLBFGS(params, LBFGSConfig{})

	// Pull every parameter toward zero; gradients are analytic.
	closure := func() (float64, map[*tensor.RawTensor]*tensor.RawTensor) {
		grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
		var loss float64
		for _, p := range params {
			graw := tensor.MustNewRaw(tensor.Shape{p.NumElements()}, tensor.Float64, tensor.CPU)
			g := graw.AsFloat64()
			for i, v := range p.Data() {
				loss += v * v
				g[i] = 2 * v
			}
			grads[p.Raw()] = graw
		}
		return loss, grads
	}

	for i := 0; i < 3; i++ {
		opt.Step(closure)
	}
	// Refinement grows the coefficient tensors; the optimizer must notice the
	// flattened length changed and drop its stale history.
	batch := tensor.MustNewRaw(tensor.Shape{8, 1}, tensor.Float64, tensor.CPU)
	for i := range batch.AsFloat64() {
		batch.AsFloat64()[i] = float64(i)/4 - 1
	}
	require.NoError(t, net.RefineGrids(batch, 2))
	loss := opt.Step(closure)
	assert.False(t, math.IsNaN(loss))
	assert.False(t, math.IsInf(loss, 0))
}
