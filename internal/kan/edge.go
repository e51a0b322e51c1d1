package kan

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/kan-ml/kan/internal/autodiff"
	"github.com/kan-ml/kan/internal/spline"
	"github.com/kan-ml/kan/internal/symbolic"
	"github.com/kan-ml/kan/internal/tensor"
)

// Mode says how an edge activation is represented.
type Mode int

const (
	// ModeSpline is the trainable numeric form:
	// φ(x) = w_s·spline(x) + w_r·silu(x).
	ModeSpline Mode = iota
	// ModeSymbolic is a fixed closed form: φ(x) = c·f(a·x+b)+d with the
	// affine parameters (a, b, c, d) still trainable.
	ModeSymbolic
)

func (m Mode) String() string {
	switch m {
	case ModeSpline:
		return "spline"
	case ModeSymbolic:
		return "symbolic"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Initialization and sampling constants. Spline coefficients start as small
// noise so edges break symmetry while the residual term carries the signal
// early in training.
const (
	coefInitStddev = 0.1
	fixSamples     = 201
	refitPerBasis  = 16
	minRefitSample = 64
)

// EdgeActivation is one edge's univariate activation function.
//
// In spline mode it evaluates w_s·spline(x) + w_r·silu(x), where the spline is
// a B-spline over the edge's own grid and silu is the smooth residual that
// keeps gradients alive outside the region the spline has learned. In symbolic
// mode the numeric form is replaced by a fitted closed form; the spline state
// is retained untouched so unfixing restores it exactly.
type EdgeActivation struct {
	name string
	grid *spline.Grid
	mode Mode

	coef      *Parameter // (K,) spline coefficients
	wSpline   *Parameter // (1,) spline magnitude
	wResidual *Parameter // (1,) residual magnitude

	kind   *symbolic.Kind
	affine *Parameter // (4,): a, b, c, d; nil unless symbolic
	fitR2  float64    // R² recorded when the edge was fixed
}

// NewEdge creates a spline-mode edge over the given grid.
// The grid is owned by the edge; callers must not share it.
func NewEdge(grid *spline.Grid, name string, rng *rand.Rand) *EdgeActivation {
	k := grid.NumBasis()
	coef := tensor.MustNewRaw(tensor.Shape{k}, tensor.Float64, tensor.CPU)
	cd := coef.AsFloat64()
	norm := rand.NormFloat64
	if rng != nil {
		norm = rng.NormFloat64
	}
	for i := range cd {
		cd[i] = norm() * coefInitStddev
	}
	ws := tensor.MustNewRaw(tensor.Shape{1}, tensor.Float64, tensor.CPU)
	ws.AsFloat64()[0] = 1
	wr := tensor.MustNewRaw(tensor.Shape{1}, tensor.Float64, tensor.CPU)
	wr.AsFloat64()[0] = 1

	return &EdgeActivation{
		name:      name,
		grid:      grid,
		mode:      ModeSpline,
		coef:      NewParameter(name+".coef", coef),
		wSpline:   NewParameter(name+".w_spline", ws),
		wResidual: NewParameter(name+".w_residual", wr),
	}
}

// Grid returns the edge's knot grid.
func (e *EdgeActivation) Grid() *spline.Grid { return e.grid }

// Mode returns the edge's current representation.
func (e *EdgeActivation) Mode() Mode { return e.mode }

// Kind returns the symbolic kind, or nil in spline mode.
func (e *EdgeActivation) Kind() *symbolic.Kind { return e.kind }

// FitR2 returns the R² recorded when the edge was last fixed.
func (e *EdgeActivation) FitR2() float64 { return e.fitR2 }

// Parameters returns the edge's trainable parameters for its current mode:
// spline coefficients and magnitudes, or the symbolic affine quadruple.
func (e *EdgeActivation) Parameters() []*Parameter {
	if e.mode == ModeSymbolic {
		return []*Parameter{e.affine}
	}
	return []*Parameter{e.coef, e.wSpline, e.wResidual}
}

// Evaluate computes φ(x) for a batch (N,) on the tape, so gradients flow to
// the edge's parameters and through to the input.
func (e *EdgeActivation) Evaluate(x *tensor.RawTensor, backend autodiff.TapeBackend) *tensor.RawTensor {
	if e.mode == ModeSymbolic {
		return autodiff.SymbolicEdge(x, e.affine.Raw(), e.kind, backend)
	}
	s := autodiff.BSpline(x, e.coef.Raw(), e.grid, backend)
	r := backend.SiLU(x)
	return backend.Add(
		backend.Mul(s, e.wSpline.Raw()),
		backend.Mul(r, e.wResidual.Raw()),
	)
}

// EvaluateAt computes φ at plain float64 points, outside any tape.
// Used by refits, symbolic fitting, plotting and formula checks.
func (e *EdgeActivation) EvaluateAt(xs []float64) []float64 {
	if e.mode == ModeSymbolic {
		p := e.affine.Data()
		out := make([]float64, len(xs))
		for i, x := range xs {
			out[i] = p[2]*e.kind.Eval(p[0]*x+p[1]) + p[3]
		}
		return out
	}
	ws := e.wSpline.Data()[0]
	wr := e.wResidual.Data()[0]
	out := e.grid.EvaluateSpline(xs, e.coef.Data())
	for i, x := range xs {
		out[i] = ws*out[i] + wr*silu(x)
	}
	return out
}

func silu(x float64) float64 { return x / (1 + math.Exp(-x)) }

// RefitToGrid replaces the edge's grid, refitting the spline coefficients so
// the spline component keeps its shape on the new grid and at the observed
// sample inputs. The residual term does not depend on the grid and is
// untouched.
//
// Samples outside the new grid's covered range extend the grid to cover them
// (continuing the boundary knot spacing), so activations that deeper layers
// feed out of range are preserved instead of drifting in the extrapolation
// region. sampleXs may be nil; the fit then covers the union of the old and
// new spans only.
//
// An ill-conditioned refit degrades accuracy but never fails; it is logged as
// a warning and reported in the returned FitResult. If the resulting grid has
// the same coefficient count the fit is written into the existing parameter
// tensor, preserving optimizer history; otherwise the parameter is swapped
// and the caller must reset history-based optimizer state.
func (e *EdgeActivation) RefitToGrid(newGrid *spline.Grid, sampleXs []float64) (spline.FitResult, error) {
	if e.mode == ModeSymbolic {
		return spline.FitResult{}, errors.New("kan: cannot refit a symbolically fixed edge")
	}
	if newGrid.Degree() != e.grid.Degree() {
		return spline.FitResult{}, errors.Errorf("kan: refit degree mismatch: %d vs %d", newGrid.Degree(), e.grid.Degree())
	}

	grid := newGrid
	if slo, shi, ok := finiteBounds(sampleXs); ok {
		grid = grid.ExtendTo(slo, shi)
	}

	n := refitPerBasis * grid.NumBasis()
	if n < minRefitSample {
		n = minRefitSample
	}
	lo, hi := unionSpan(e.grid, grid)
	xs := tensor.LinspaceSlice(lo, hi, n)
	for _, x := range sampleXs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			xs = append(xs, x)
		}
	}
	ys := e.grid.EvaluateSpline(xs, e.coef.Data())

	res, err := spline.FitCoefficients(grid, xs, ys)
	if err != nil {
		return spline.FitResult{}, err
	}
	if res.IllConditioned() {
		klog.Warningf("kan: ill-conditioned grid refit for %s (cond %.3g), accuracy degraded", e.coef.Name(), res.Cond)
	}

	if grid.NumBasis() == e.grid.NumBasis() {
		copy(e.coef.Data(), res.Coef)
	} else {
		raw := tensor.MustNewRaw(tensor.Shape{grid.NumBasis()}, tensor.Float64, tensor.CPU)
		copy(raw.AsFloat64(), res.Coef)
		e.coef.setRaw(raw)
	}
	e.grid = grid
	return res, nil
}

// finiteBounds returns the min and max of the finite values in xs.
func finiteBounds(xs []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
		ok = true
	}
	return lo, hi, ok
}

func unionSpan(a, b *spline.Grid) (lo, hi float64) {
	alo, ahi := a.Span()
	blo, bhi := b.Span()
	return math.Min(alo, blo), math.Max(ahi, bhi)
}

// FixSymbolic replaces the edge's numeric activation with the named closed
// form, affine-fitted against the full activation (spline and residual terms)
// sampled over the grid's covered range.
//
// The fit quality is returned in the descriptor's R²; a poor fit is reported,
// not rejected. The spline state is kept so UnfixSymbolic restores the edge
// exactly.
func (e *EdgeActivation) FixSymbolic(kindName string) (symbolic.Descriptor, error) {
	kind, err := symbolic.Lookup(kindName)
	if err != nil {
		return symbolic.Descriptor{}, err
	}
	if e.mode == ModeSymbolic {
		return symbolic.Descriptor{}, errors.Errorf("kan: edge already fixed to %q", e.kind.Name)
	}

	lo, hi := e.grid.Span()
	xs := tensor.LinspaceSlice(lo, hi, fixSamples)
	desc, err := symbolic.FitAffine(kind, xs, e.EvaluateAt(xs))
	if err != nil {
		return symbolic.Descriptor{}, err
	}
	if desc.AtBoundary {
		klog.Warningf("kan: symbolic fit of %q pinned at the affine search boundary, fit may be degraded", kindName)
	}

	affine := tensor.MustNewRaw(tensor.Shape{4}, tensor.Float64, tensor.CPU)
	p := affine.AsFloat64()
	p[0], p[1], p[2], p[3] = desc.A, desc.B, desc.C, desc.D

	e.mode = ModeSymbolic
	e.kind = kind
	e.affine = NewParameter(e.name+".affine", affine)
	e.fitR2 = desc.R2
	return desc, nil
}

// UnfixSymbolic reverts a fixed edge to its retained spline form. The spline
// parameters were never modified while fixed, so the restoration is exact.
func (e *EdgeActivation) UnfixSymbolic() error {
	if e.mode != ModeSymbolic {
		return errors.New("kan: edge is not symbolically fixed")
	}
	e.mode = ModeSpline
	e.kind = nil
	e.affine = nil
	e.fitR2 = 0
	return nil
}

// Descriptor returns the edge's closed form with the live (possibly trained)
// affine values. Valid only in symbolic mode.
func (e *EdgeActivation) Descriptor() (symbolic.Descriptor, error) {
	if e.mode != ModeSymbolic {
		return symbolic.Descriptor{}, errors.New("kan: edge is not symbolically fixed")
	}
	p := e.affine.Data()
	return symbolic.Descriptor{
		Kind: e.kind,
		A:    p[0], B: p[1], C: p[2], D: p[3],
		R2: e.fitR2,
	}, nil
}
