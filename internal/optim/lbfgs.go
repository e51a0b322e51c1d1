package optim

import (
	"github.com/kan-ml/kan/internal/kan"
	"github.com/kan-ml/kan/internal/tensor"
)

// LBFGS implements limited-memory BFGS with Armijo backtracking line search.
//
// Stochastic optimizers stall around 1e-6 loss; the quasi-Newton polish is
// what pushes a representable target down to the 1e-12..1e-16 losses that make
// symbolic identification unambiguous. Because the line search re-evaluates
// the objective, Step takes a closure instead of a gradient map: the closure
// must run the forward/backward pass at the parameters' current values and
// return the loss and gradients.
type LBFGS struct {
	params        []*kan.Parameter
	historySize   int
	maxLineSearch int
	c1            float64
	backtrack     float64

	sHist [][]float64
	yHist [][]float64
	rho   []float64
	first bool
}

// Closure evaluates the objective at the parameters' current values and
// returns the loss with its gradients.
type Closure func() (float64, map[*tensor.RawTensor]*tensor.RawTensor)

// LBFGSConfig holds LBFGS hyperparameters.
type LBFGSConfig struct {
	HistorySize   int     // curvature pairs kept (default 10)
	MaxLineSearch int     // backtracking evaluations per step (default 20)
	C1            float64 // Armijo sufficient-decrease constant (default 1e-4)
	Backtrack     float64 // step shrink factor per rejection (default 0.5)
}

// NewLBFGS creates an LBFGS optimizer over the given parameters.
func NewLBFGS(params []*kan.Parameter, config LBFGSConfig) *LBFGS {
	if config.HistorySize == 0 {
		config.HistorySize = 10
	}
	if config.MaxLineSearch == 0 {
		config.MaxLineSearch = 20
	}
	if config.C1 == 0 {
		config.C1 = 1e-4
	}
	if config.Backtrack == 0 {
		config.Backtrack = 0.5
	}
	return &LBFGS{
		params:        params,
		historySize:   config.HistorySize,
		maxLineSearch: config.MaxLineSearch,
		c1:            config.C1,
		backtrack:     config.Backtrack,
		first:         true,
	}
}

// ResetHistory discards the curvature history. Required after grid refinement
// or fixing/unfixing edges: the stored pairs live in the old parameter space.
func (o *LBFGS) ResetHistory() {
	o.sHist = nil
	o.yHist = nil
	o.rho = nil
	o.first = true
}

// Step performs one LBFGS iteration and returns the loss after the update.
func (o *LBFGS) Step(closure Closure) float64 {
	total := o.totalLen()
	if len(o.sHist) > 0 && len(o.sHist[0]) != total {
		o.ResetHistory() // parameter space changed underneath us
	}

	loss0, grads := closure()
	g0 := o.flattenGrads(grads, total)
	x0 := o.flattenParams(total)

	d := o.direction(g0)
	gd := dot(g0, d)
	if gd >= 0 {
		// Not a descent direction; fall back to steepest descent.
		o.ResetHistory()
		for i := range d {
			d[i] = -g0[i]
		}
		gd = dot(g0, d)
		if gd == 0 {
			return loss0 // zero gradient, nothing to do
		}
	}

	step := 1.0
	if o.first {
		// Conservative first step, as the Hessian scale is still unknown.
		if n1 := norm1(g0); n1 > 1 {
			step = 1 / n1
		}
		o.first = false
	}

	loss := loss0
	accepted := false
	for try := 0; try < o.maxLineSearch; try++ {
		o.setParams(x0, d, step)
		var newGrads map[*tensor.RawTensor]*tensor.RawTensor
		loss, newGrads = closure()
		if loss <= loss0+o.c1*step*gd {
			grads = newGrads
			accepted = true
			break
		}
		step *= o.backtrack
	}
	if !accepted {
		o.setParams(x0, d, 0)
		return loss0
	}

	g1 := o.flattenGrads(grads, total)
	s := make([]float64, total)
	y := make([]float64, total)
	var sy float64
	for i := range s {
		s[i] = step * d[i]
		y[i] = g1[i] - g0[i]
		sy += s[i] * y[i]
	}
	if sy > 1e-12 {
		o.sHist = append(o.sHist, s)
		o.yHist = append(o.yHist, y)
		o.rho = append(o.rho, 1/sy)
		if len(o.sHist) > o.historySize {
			o.sHist = o.sHist[1:]
			o.yHist = o.yHist[1:]
			o.rho = o.rho[1:]
		}
	}
	return loss
}

// direction computes -H·g with the standard two-loop recursion over the
// stored curvature pairs.
func (o *LBFGS) direction(g []float64) []float64 {
	q := append([]float64(nil), g...)
	k := len(o.sHist)
	alpha := make([]float64, k)
	for i := k - 1; i >= 0; i-- {
		alpha[i] = o.rho[i] * dot(o.sHist[i], q)
		axpy(q, o.yHist[i], -alpha[i])
	}
	if k > 0 {
		// Scale by the most recent curvature estimate.
		sy := dot(o.sHist[k-1], o.yHist[k-1])
		yy := dot(o.yHist[k-1], o.yHist[k-1])
		if yy > 0 {
			scale := sy / yy
			for i := range q {
				q[i] *= scale
			}
		}
	}
	for i := 0; i < k; i++ {
		beta := o.rho[i] * dot(o.yHist[i], q)
		axpy(q, o.sHist[i], alpha[i]-beta)
	}
	for i := range q {
		q[i] = -q[i]
	}
	return q
}

func (o *LBFGS) totalLen() int {
	var n int
	for _, p := range o.params {
		n += p.NumElements()
	}
	return n
}

func (o *LBFGS) flattenParams(total int) []float64 {
	out := make([]float64, 0, total)
	for _, p := range o.params {
		out = append(out, p.Data()...)
	}
	return out
}

func (o *LBFGS) flattenGrads(grads map[*tensor.RawTensor]*tensor.RawTensor, total int) []float64 {
	out := make([]float64, 0, total)
	for _, p := range o.params {
		g := grad(grads, p)
		if g == nil {
			out = append(out, make([]float64, p.NumElements())...)
			continue
		}
		out = append(out, g...)
	}
	return out
}

// setParams writes x0 + step·d back into the parameter tensors.
func (o *LBFGS) setParams(x0, d []float64, step float64) {
	off := 0
	for _, p := range o.params {
		data := p.Data()
		for i := range data {
			data[i] = x0[off] + step*d[off]
			off++
		}
	}
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm1(a []float64) float64 {
	var s float64
	for _, v := range a {
		if v < 0 {
			s -= v
		} else {
			s += v
		}
	}
	return s
}

// axpy computes dst += scale·v in place.
func axpy(dst, v []float64, scale float64) {
	for i := range dst {
		dst[i] += scale * v[i]
	}
}
