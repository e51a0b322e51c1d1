package kan

import (
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kan-ml/kan/internal/symbolic"
	"github.com/kan-ml/kan/internal/tensor"
)

func testNetwork(t *testing.T, widths ...int) *Network {
	t.Helper()
	n, err := NewNetwork(Config{Widths: widths}, testBackend())
	require.NoError(t, err)
	return n
}

func batch(t *testing.T, data []float64, rows, cols int) *tensor.RawTensor {
	t.Helper()
	require.Len(t, data, rows*cols)
	r := tensor.MustNewRaw(tensor.Shape{rows, cols}, tensor.Float64, tensor.CPU)
	copy(r.AsFloat64(), data)
	return r
}

func randomBatch(rng *rand.Rand, rows, cols int) *tensor.RawTensor {
	r := tensor.MustNewRaw(tensor.Shape{rows, cols}, tensor.Float64, tensor.CPU)
	d := r.AsFloat64()
	for i := range d {
		d[i] = rng.Float64()*2 - 1
	}
	return r
}

func TestNewNetworkValidation(t *testing.T) {
	backend := testBackend()

	_, err := NewNetwork(Config{Widths: []int{3}}, backend)
	assert.Error(t, err)
	_, err = NewNetwork(Config{Widths: []int{2, 0, 1}}, backend)
	assert.Error(t, err)

	n, err := NewNetwork(Config{Widths: []int{2, 1}}, backend)
	require.NoError(t, err)
	cfg := n.Config()
	assert.Equal(t, 3, cfg.Degree)
	assert.Equal(t, 5, cfg.GridIntervals)
	assert.Equal(t, [2]float64{-1, 1}, cfg.GridRange)
}

func TestNetworkDeterministicBySeed(t *testing.T) {
	a := testNetwork(t, 2, 3, 1)
	b := testNetwork(t, 2, 3, 1)
	x := batch(t, []float64{0.2, -0.5, 0.9, 0.1}, 2, 2)

	assert.Equal(t, a.Predict(x).AsFloat64(), b.Predict(x).AsFloat64())
}

func TestForwardSumsIncomingEdges(t *testing.T) {
	n := testNetwork(t, 2, 1)
	xs := []float64{0.3, -0.7}
	x := batch(t, xs, 1, 2)

	out := n.Predict(x)
	require.True(t, out.Shape().Equal(tensor.Shape{1, 1}))

	e0, err := n.Edge(0, 0, 0)
	require.NoError(t, err)
	e1, err := n.Edge(0, 1, 0)
	require.NoError(t, err)
	want := e0.EvaluateAt(xs[:1])[0] + e1.EvaluateAt(xs[1:])[0]
	assert.InDelta(t, want, out.AsFloat64()[0], 1e-12)
}

func TestPredictDoesNotRecord(t *testing.T) {
	n := testNetwork(t, 2, 2, 1)
	tape := n.Backend().GetTape()
	tape.StartRecording()

	n.Predict(randomBatch(rand.New(rand.NewSource(1)), 4, 2))
	assert.Equal(t, 0, tape.NumOps())
	assert.True(t, tape.IsRecording(), "recording state is restored")
}

func TestUpdateGridFromSamplesPreservesOutputs(t *testing.T) {
	n := testNetwork(t, 2, 3, 1)
	rng := rand.New(rand.NewSource(42))
	x := randomBatch(rng, 256, 2)

	before := append([]float64(nil), n.Predict(x).AsFloat64()...)
	require.NoError(t, n.UpdateGridFromSamples(x))
	after := n.Predict(x).AsFloat64()

	for i := range before {
		assert.InDelta(t, before[i], after[i], 0.05, "sample %d", i)
	}

	// Grids moved off the construction-time uniform range.
	e, err := n.Edge(0, 0, 0)
	require.NoError(t, err)
	lo, hi := e.Grid().Span()
	assert.NotEqual(t, [2]float64{-1, 1}, [2]float64{lo, hi})
	assert.Equal(t, n.Config().GridIntervals, e.Grid().Intervals(), "interval count survives adaptation")
}

func TestRefineGridsPreservesOutputs(t *testing.T) {
	n := testNetwork(t, 2, 2, 1)
	x := randomBatch(rand.New(rand.NewSource(8)), 64, 2)

	// Layer 1 outputs routinely land outside layer 2's initial grid span, so
	// the refit must hold at the observed activations, not just inside it.
	before := append([]float64(nil), n.Predict(x).AsFloat64()...)
	require.NoError(t, n.RefineGrids(x, 2))
	after := n.Predict(x).AsFloat64()

	assert.InDeltaSlice(t, before, after, 1e-5)

	e, err := n.Edge(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, e.Grid().Intervals())
}

func TestEdgeAddressingErrors(t *testing.T) {
	n := testNetwork(t, 2, 1)

	_, err := n.Edge(1, 0, 0)
	assert.ErrorContains(t, err, "layer 1")
	_, err = n.Edge(0, 2, 0)
	assert.Error(t, err)
	_, err = n.Edge(0, 0, 1)
	assert.Error(t, err)
	_, err = n.FixSymbolic(3, 0, 0, "sin")
	assert.Error(t, err)
	assert.Error(t, n.UnfixSymbolic(0, 5, 0))
}

func TestFixSymbolicUnknownKindNamesIt(t *testing.T) {
	n := testNetwork(t, 1, 1)
	_, err := n.FixSymbolic(0, 0, 0, "sinc")
	assert.ErrorContains(t, err, "sinc")
}

func TestSuggestSymbolicOrderedByR2(t *testing.T) {
	n := testNetwork(t, 1, 1)
	e, err := n.Edge(0, 0, 0)
	require.NoError(t, err)
	fitEdgeTo(t, e, func(x float64) float64 { return 0.8 * math.Tanh(3*x) })

	sugg, err := n.SuggestSymbolic(0, 0, 0)
	require.NoError(t, err)
	require.Len(t, sugg, len(symbolic.Kinds()))

	for i := 1; i < len(sugg); i++ {
		assert.GreaterOrEqual(t, sugg[i-1].Desc.R2, sugg[i].Desc.R2)
	}
	assert.Greater(t, sugg[0].Desc.R2, 0.999)

	var tanhR2 float64
	for _, s := range sugg {
		if s.Name == "tanh" {
			tanhR2 = s.Desc.R2
		}
	}
	assert.Greater(t, tanhR2, 0.999, "the generating kind must rank as a near-perfect fit")
}

func TestSymbolicFormulaMatchesForward(t *testing.T) {
	n := testNetwork(t, 2, 1, 1)
	kinds := map[[3]int]string{
		{0, 0, 0}: "sin",
		{0, 1, 0}: "square",
		{1, 0, 0}: "exp",
	}
	for addr, kind := range kinds {
		_, err := n.FixSymbolic(addr[0], addr[1], addr[2], kind)
		require.NoError(t, err)
	}

	exprs, err := n.SymbolicFormula()
	require.NoError(t, err)
	require.Len(t, exprs, 1)

	rng := rand.New(rand.NewSource(13))
	for trial := 0; trial < 20; trial++ {
		x1 := rng.Float64()*2 - 1
		x2 := rng.Float64()*2 - 1
		want := n.Predict(batch(t, []float64{x1, x2}, 1, 2)).AsFloat64()[0]
		got := exprs[0].Eval(map[string]float64{"x_1": x1, "x_2": x2})
		assert.InDelta(t, want, got, 1e-10*(1+math.Abs(want)))
	}
}

func TestSymbolicFormulaNamesUnfixedEdge(t *testing.T) {
	n := testNetwork(t, 2, 1)
	_, err := n.FixSymbolic(0, 0, 0, "sin")
	require.NoError(t, err)

	_, err = n.SymbolicFormula()
	assert.ErrorContains(t, err, "edge (1,0) of layer 0")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	n := testNetwork(t, 2, 2, 1)
	rng := rand.New(rand.NewSource(21))
	require.NoError(t, n.UpdateGridFromSamples(randomBatch(rng, 200, 2)))
	_, err := n.FixSymbolic(0, 1, 1, "tanh")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.kan")
	require.NoError(t, n.Save(path))

	loaded, err := Load(path, testBackend())
	require.NoError(t, err)

	x := randomBatch(rng, 16, 2)
	assert.Equal(t, n.Predict(x).AsFloat64(), loaded.Predict(x).AsFloat64(), "restored network is bit-identical")

	e, err := loaded.Edge(0, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, ModeSymbolic, e.Mode())
	assert.Equal(t, "tanh", e.Kind().Name)
	orig, err := n.Edge(0, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, orig.FitR2(), e.FitR2())

	// The retained spline state round-trips too: unfix on both and compare.
	require.NoError(t, n.UnfixSymbolic(0, 1, 1))
	require.NoError(t, loaded.UnfixSymbolic(0, 1, 1))
	assert.Equal(t, n.Predict(x).AsFloat64(), loaded.Predict(x).AsFloat64())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.kan"), testBackend())
	assert.Error(t, err)
}

func TestMSELoss(t *testing.T) {
	backend := testBackend()
	pred := batch(t, []float64{1, 2, 3, 4}, 2, 2)
	target := batch(t, []float64{1, 0, 3, 2}, 2, 2)

	loss := MSELoss(pred, target, backend)
	require.True(t, loss.Shape().Equal(tensor.Shape{}))
	assert.InDelta(t, 2.0, loss.AsFloat64()[0], 1e-12)
}

func TestParametersCoverAllEdges(t *testing.T) {
	n := testNetwork(t, 2, 3, 1)
	// 2*3 + 3*1 edges, three parameters each while numeric.
	assert.Len(t, n.Parameters(), 9*3)

	_, err := n.FixSymbolic(1, 0, 0, "sin")
	require.NoError(t, err)
	assert.Len(t, n.Parameters(), 8*3+1)
}
