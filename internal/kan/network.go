package kan

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/kan-ml/kan/internal/autodiff"
	"github.com/kan-ml/kan/internal/spline"
	"github.com/kan-ml/kan/internal/symbolic"
	"github.com/kan-ml/kan/internal/tensor"
)

// Config describes a network's architecture and initialization.
type Config struct {
	// Widths lists the node count per layer, inputs first, e.g. [2, 5, 1].
	Widths []int
	// Degree is the B-spline degree of every edge. Defaults to 3.
	Degree int
	// GridIntervals is the initial knot interval count per edge. Defaults to 5.
	GridIntervals int
	// GridRange is the initial covered range of every grid. Defaults to [-1, 1];
	// UpdateGridFromSamples adapts it to the data seen.
	GridRange [2]float64
	// Seed initializes the weight RNG. Zero means a fixed default seed, so
	// construction is deterministic unless a seed is chosen.
	Seed int64
}

func (c *Config) applyDefaults() {
	if c.Degree == 0 {
		c.Degree = 3
	}
	if c.GridIntervals == 0 {
		c.GridIntervals = 5
	}
	if c.GridRange == [2]float64{} {
		c.GridRange = [2]float64{-1, 1}
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
}

// Network is a stack of KAN layers sharing one backend.
type Network struct {
	cfg    Config
	layers []*Layer

	backend autodiff.TapeBackend
}

// NewNetwork builds a network per the config. Every edge starts in spline
// mode over a uniform grid covering cfg.GridRange.
func NewNetwork(cfg Config, backend autodiff.TapeBackend) (*Network, error) {
	cfg.applyDefaults()
	if len(cfg.Widths) < 2 {
		return nil, errors.Errorf("kan: need at least input and output widths, got %v", cfg.Widths)
	}
	for _, w := range cfg.Widths {
		if w < 1 {
			return nil, errors.Errorf("kan: widths must be positive, got %v", cfg.Widths)
		}
	}
	proto, err := spline.NewUniform(cfg.GridRange[0], cfg.GridRange[1], cfg.GridIntervals, cfg.Degree)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	layers := make([]*Layer, len(cfg.Widths)-1)
	for l := range layers {
		layers[l] = NewLayer(l, cfg.Widths[l], cfg.Widths[l+1], proto, rng)
		klog.V(2).Infof("kan: layer %d: %dx%d edges, %d coefficients each",
			l, cfg.Widths[l], cfg.Widths[l+1], proto.NumBasis())
	}
	return &Network{cfg: cfg, layers: layers, backend: backend}, nil
}

// Config returns the construction config (defaults applied).
func (n *Network) Config() Config { return n.cfg }

// Backend returns the network's compute backend.
func (n *Network) Backend() autodiff.TapeBackend { return n.backend }

// Layers returns the network's layers.
func (n *Network) Layers() []*Layer { return n.layers }

// Widths returns the node count per layer.
func (n *Network) Widths() []int { return n.cfg.Widths }

// Forward evaluates the network on a (N, inputs) batch.
// Recording happens iff the backend's tape is recording.
func (n *Network) Forward(x *tensor.RawTensor) *tensor.RawTensor {
	a := x
	for _, l := range n.layers {
		a = l.Forward(a, n.backend)
	}
	return a
}

// Predict evaluates the network without recording onto the tape.
func (n *Network) Predict(x *tensor.RawTensor) *tensor.RawTensor {
	var out *tensor.RawTensor
	n.withTapePaused(func() { out = n.Forward(x) })
	return out
}

func (n *Network) withTapePaused(f func()) {
	tape := n.backend.GetTape()
	was := tape.IsRecording()
	tape.StopRecording()
	defer func() {
		if was {
			tape.StartRecording()
		}
	}()
	f()
}

// Parameters returns every trainable parameter of every layer.
func (n *Network) Parameters() []*Parameter {
	var params []*Parameter
	for _, l := range n.layers {
		params = append(params, l.Parameters()...)
	}
	return params
}

// UpdateGridFromSamples adapts every layer's grids to the activation
// distribution the batch induces: layer 0 sees the inputs, each deeper layer
// sees the previous layers' outputs. Grids move to sample quantiles and
// coefficients are refit shape-preservingly, so the loss is (approximately)
// unchanged; interval counts are preserved, so optimizer history stays valid.
func (n *Network) UpdateGridFromSamples(x *tensor.RawTensor) error {
	var err error
	n.withTapePaused(func() {
		a := x
		for li, l := range n.layers {
			if err = l.UpdateGridFromSamples(a); err != nil {
				err = errors.Wrapf(err, "layer %d", li)
				return
			}
			a = l.Forward(a, n.backend)
		}
	})
	return err
}

// RefineGrids multiplies every grid's interval count by factor, preserving
// each activation's shape at the activations the batch induces: layer 0 is
// refit against the inputs, each deeper layer against the previous layers'
// outputs, so the network's outputs on the batch survive refinement. This
// changes the coefficient counts: callers must reset history-based optimizer
// state afterwards.
func (n *Network) RefineGrids(x *tensor.RawTensor, factor int) error {
	var err error
	n.withTapePaused(func() {
		a := x
		for li, l := range n.layers {
			if err = l.RefineGrids(a, factor); err != nil {
				err = errors.Wrapf(err, "layer %d", li)
				return
			}
			a = l.Forward(a, n.backend)
		}
	})
	return err
}

func (n *Network) edge(l, i, o int) (*EdgeActivation, error) {
	if l < 0 || l >= len(n.layers) {
		return nil, errors.Errorf("kan: layer %d out of range [0, %d)", l, len(n.layers))
	}
	layer := n.layers[l]
	if i < 0 || i >= layer.in || o < 0 || o >= layer.out {
		return nil, errors.Errorf("kan: edge (%d,%d) out of range for %dx%d layer %d", i, o, layer.in, layer.out, l)
	}
	return layer.Edge(i, o), nil
}

// Edge returns the activation connecting input i to output o of layer l.
func (n *Network) Edge(l, i, o int) (*EdgeActivation, error) {
	return n.edge(l, i, o)
}

// FixSymbolic fixes edge (i,o) of layer l to the named closed form and
// returns the fitted descriptor. The fit's R² reports quality; a poor fit is
// the caller's call to keep or revert. Unknown kind names are an error.
//
// Fixing swaps the edge's parameter set (spline coefficients out, affine
// quadruple in): rebuild optimizers over Parameters() afterwards.
func (n *Network) FixSymbolic(l, i, o int, kind string) (symbolic.Descriptor, error) {
	e, err := n.edge(l, i, o)
	if err != nil {
		return symbolic.Descriptor{}, err
	}
	return e.FixSymbolic(kind)
}

// UnfixSymbolic reverts edge (i,o) of layer l to its retained spline form.
func (n *Network) UnfixSymbolic(l, i, o int) error {
	e, err := n.edge(l, i, o)
	if err != nil {
		return err
	}
	return e.UnfixSymbolic()
}

// Suggestion is one candidate closed form for an edge, with its fit.
type Suggestion struct {
	Name string
	Desc symbolic.Descriptor
}

// SuggestSymbolic fits every registered kind against edge (i,o) of layer l
// and returns the candidates ordered by descending R². The caller picks; the
// network never auto-fixes.
func (n *Network) SuggestSymbolic(l, i, o int) ([]Suggestion, error) {
	e, err := n.edge(l, i, o)
	if err != nil {
		return nil, err
	}
	lo, hi := e.Grid().Span()
	xs := tensor.LinspaceSlice(lo, hi, fixSamples)
	ys := e.EvaluateAt(xs)

	var out []Suggestion
	for _, kind := range symbolic.Kinds() {
		desc, err := symbolic.FitAffine(kind, xs, ys)
		if err != nil {
			return nil, err
		}
		out = append(out, Suggestion{Name: kind.Name, Desc: desc})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Desc.R2 > out[b].Desc.R2 })
	return out, nil
}

// SymbolicFormula composes the closed forms of a fully fixed network into one
// expression per output, over input variables x_1..x_n. Any edge still in
// spline mode is an error naming the edge.
//
// The expressions use the live affine values, so a formula evaluated at a
// point agrees with Forward on that point up to float64 roundoff.
func (n *Network) SymbolicFormula() ([]symbolic.Expr, error) {
	exprs := make([]symbolic.Expr, n.cfg.Widths[0])
	for i := range exprs {
		exprs[i] = symbolic.Var(fmt.Sprintf("x_%d", i+1))
	}
	for li, l := range n.layers {
		next := make([]symbolic.Expr, l.out)
		for o := 0; o < l.out; o++ {
			terms := make(symbolic.Sum, l.in)
			for i := 0; i < l.in; i++ {
				e := l.Edge(i, o)
				desc, err := e.Descriptor()
				if err != nil {
					return nil, errors.Errorf("kan: edge (%d,%d) of layer %d is not symbolically fixed", i, o, li)
				}
				terms[i] = &symbolic.Apply{Desc: desc, Inner: exprs[i]}
			}
			if len(terms) == 1 {
				next[o] = terms[0]
			} else {
				next[o] = terms
			}
		}
		exprs = next
	}
	return exprs, nil
}

// MSELoss computes mean squared error between (N, d) predictions and targets
// as a scalar tensor on the backend, so it is differentiable when recording.
func MSELoss(pred, target *tensor.RawTensor, backend autodiff.TapeBackend) *tensor.RawTensor {
	diff := backend.Sub(pred, target)
	sq := backend.Mul(diff, diff)
	total := backend.Sum(sq)
	return backend.MulScalar(total, 1/float64(pred.NumElements()))
}
