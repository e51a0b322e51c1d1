// Package spline implements B-spline knot grids, basis evaluation and
// least-squares coefficient fitting for KAN edge activations.
package spline

import (
	"sort"

	"github.com/pkg/errors"
)

// Grid defines the knot sequence of one edge's univariate spline.
//
// The interior knots are strictly increasing and cover the range the spline
// was fit on. For evaluation the grid is extended by `degree` knots at each
// boundary (uniform continuation of the boundary spacing), so inputs outside
// the covered range never fail: they evaluate against the extended bases with
// degraded, unbounded-error extrapolation. A Grid is exclusively owned by one
// edge activation and is never shared across layers.
type Grid struct {
	knots  []float64 // interior knots, strictly increasing, len = intervals+1
	degree int
}

// Blend factors for sample-derived grids: a small uniform component keeps
// quantile knots from collapsing on clustered data, and the margin widens the
// covered range slightly beyond the observed samples.
const (
	gridBlendEps = 0.02
	gridMargin   = 0.01
)

// NewUniform creates a grid with uniformly spaced knots over [lo, hi].
// Requires lo < hi, intervals >= 1 and degree >= 1.
func NewUniform(lo, hi float64, intervals, degree int) (*Grid, error) {
	if err := validateArgs(intervals, degree); err != nil {
		return nil, err
	}
	if lo >= hi {
		return nil, errors.Errorf("spline: invalid grid range [%g, %g]", lo, hi)
	}
	knots := make([]float64, intervals+1)
	step := (hi - lo) / float64(intervals)
	for i := range knots {
		knots[i] = lo + float64(i)*step
	}
	return &Grid{knots: knots, degree: degree}, nil
}

// FromKnots creates a grid from an explicit interior knot sequence.
// Used when restoring checkpoints. Knots must be strictly increasing.
func FromKnots(knots []float64, degree int) (*Grid, error) {
	if err := validateArgs(len(knots)-1, degree); err != nil {
		return nil, err
	}
	for i := 1; i < len(knots); i++ {
		if knots[i] <= knots[i-1] {
			return nil, errors.Errorf("spline: knots must be strictly increasing, got %g after %g", knots[i], knots[i-1])
		}
	}
	return &Grid{knots: append([]float64(nil), knots...), degree: degree}, nil
}

// FromSamples derives a grid from observed inputs: knots are placed at sample
// quantiles, blended with a uniform grid over the (slightly widened) sample
// range so that clustered samples cannot produce coincident knots.
func FromSamples(xs []float64, intervals, degree int) (*Grid, error) {
	if err := validateArgs(intervals, degree); err != nil {
		return nil, err
	}
	if len(xs) < 2 {
		return nil, errors.Errorf("spline: need at least 2 samples to derive a grid, got %d", len(xs))
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		return nil, errors.Errorf("spline: degenerate samples (all equal to %g)", lo)
	}
	margin := gridMargin * (hi - lo)
	lo, hi = lo-margin, hi+margin

	knots := make([]float64, intervals+1)
	uniformStep := (hi - lo) / float64(intervals)
	for i := range knots {
		adaptive := quantile(sorted, float64(i)/float64(intervals))
		uniform := lo + float64(i)*uniformStep
		knots[i] = gridBlendEps*uniform + (1-gridBlendEps)*adaptive
	}
	knots[0], knots[len(knots)-1] = lo, hi

	// Quantiles of heavy ties can still coincide; enforce strict increase.
	for i := 1; i < len(knots); i++ {
		if knots[i] <= knots[i-1] {
			knots[i] = knots[i-1] + uniformStep*gridBlendEps
		}
	}
	return &Grid{knots: knots, degree: degree}, nil
}

// quantile returns the empirical q-quantile of sorted data by linear
// interpolation between order statistics.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	i := int(pos)
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(i)
	return sorted[i]*(1-frac) + sorted[i+1]*frac
}

func validateArgs(intervals, degree int) error {
	if degree < 1 {
		return errors.Errorf("spline: degree must be >= 1, got %d", degree)
	}
	if intervals < 1 {
		return errors.Errorf("spline: intervals must be >= 1, got %d", intervals)
	}
	return nil
}

// Degree returns the spline degree.
func (g *Grid) Degree() int { return g.degree }

// Intervals returns the number of knot intervals.
func (g *Grid) Intervals() int { return len(g.knots) - 1 }

// NumBasis returns the number of basis functions (and spline coefficients):
// intervals + degree.
func (g *Grid) NumBasis() int { return g.Intervals() + g.degree }

// Knots returns the interior knots (not a copy; callers must not mutate).
func (g *Grid) Knots() []float64 { return g.knots }

// Span returns the covered range [lo, hi] of the interior knots.
func (g *Grid) Span() (lo, hi float64) {
	return g.knots[0], g.knots[len(g.knots)-1]
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	return &Grid{knots: append([]float64(nil), g.knots...), degree: g.degree}
}

// Extended returns the boundary-extended knot vector: degree extra knots on
// each side, continuing the boundary spacing. Its length is
// intervals + 1 + 2*degree, giving NumBasis bases of the grid's degree.
func (g *Grid) Extended() []float64 {
	n := len(g.knots)
	ext := make([]float64, n+2*g.degree)
	loStep := g.knots[1] - g.knots[0]
	hiStep := g.knots[n-1] - g.knots[n-2]
	for i := 0; i < g.degree; i++ {
		ext[g.degree-1-i] = g.knots[0] - float64(i+1)*loStep
		ext[g.degree+n+i] = g.knots[n-1] + float64(i+1)*hiStep
	}
	copy(ext[g.degree:], g.knots)
	return ext
}

// ExtendTo returns a grid whose covered range includes [lo, hi], adding knots
// that continue the boundary spacing. Returns the receiver unchanged when the
// range is already covered. Extension changes the interval count, so refitting
// afterwards is a reparameterization.
func (g *Grid) ExtendTo(lo, hi float64) *Grid {
	if lo >= g.knots[0] && hi <= g.knots[len(g.knots)-1] {
		return g
	}
	knots := append([]float64(nil), g.knots...)
	loStep := knots[1] - knots[0]
	for knots[0] > lo {
		knots = append([]float64{knots[0] - loStep}, knots...)
	}
	hiStep := knots[len(knots)-1] - knots[len(knots)-2]
	for knots[len(knots)-1] < hi {
		knots = append(knots, knots[len(knots)-1]+hiStep)
	}
	return &Grid{knots: knots, degree: g.degree}
}

// Refine returns a new grid with factor times as many intervals, following
// the shape of the existing knot distribution (piecewise-linear resampling of
// the knot polyline, so data-adapted spacing survives refinement).
// The coefficient count changes, so refitting after Refine is a
// reparameterization: history-based optimizers must be reset.
func (g *Grid) Refine(factor int) (*Grid, error) {
	if factor < 2 {
		return nil, errors.Errorf("spline: refine factor must be >= 2, got %d", factor)
	}
	oldIntervals := g.Intervals()
	newIntervals := oldIntervals * factor
	knots := make([]float64, newIntervals+1)
	for i := range knots {
		pos := float64(i) / float64(factor) // position in old knot index space
		j := int(pos)
		if j >= oldIntervals {
			knots[i] = g.knots[oldIntervals]
			continue
		}
		frac := pos - float64(j)
		knots[i] = g.knots[j]*(1-frac) + g.knots[j+1]*frac
	}
	return &Grid{knots: knots, degree: g.degree}, nil
}
