package kan

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/kan-ml/kan/internal/autodiff"
	"github.com/kan-ml/kan/internal/spline"
	"github.com/kan-ml/kan/internal/tensor"
)

// Layer connects in input nodes to out output nodes with one edge activation
// per (input, output) pair. Each output node is the plain sum of its incoming
// edge values; the inner-function sum is the whole aggregation, there is no
// weight matrix.
type Layer struct {
	in, out int
	edges   []*EdgeActivation // row-major: edges[i*out+o]
}

// NewLayer creates an in×out layer with fresh spline edges over uniform grids.
func NewLayer(index, in, out int, grid *spline.Grid, rng *rand.Rand) *Layer {
	l := &Layer{in: in, out: out, edges: make([]*EdgeActivation, in*out)}
	for i := 0; i < in; i++ {
		for o := 0; o < out; o++ {
			name := fmt.Sprintf("layers.%d.edge.%d.%d", index, i, o)
			l.edges[i*out+o] = NewEdge(grid.Clone(), name, rng)
		}
	}
	return l
}

// In returns the input width.
func (l *Layer) In() int { return l.in }

// Out returns the output width.
func (l *Layer) Out() int { return l.out }

// Edge returns the activation connecting input i to output o.
func (l *Layer) Edge(i, o int) *EdgeActivation { return l.edges[i*l.out+o] }

// Forward evaluates the layer on a (N, in) batch, producing (N, out):
// y[n,o] = Σ_i φ_{i,o}(x[n,i]).
func (l *Layer) Forward(x *tensor.RawTensor, backend autodiff.TapeBackend) *tensor.RawTensor {
	if got := x.Shape(); len(got) != 2 || got[1] != l.in {
		panic(fmt.Sprintf("kan: layer expects (N, %d) input, got %v", l.in, x.Shape()))
	}
	cols := make([]*tensor.RawTensor, l.in)
	for i := range cols {
		cols[i] = autodiff.Column(x, i, backend)
	}
	sums := make([]*tensor.RawTensor, l.out)
	for o := 0; o < l.out; o++ {
		for i := 0; i < l.in; i++ {
			v := l.Edge(i, o).Evaluate(cols[i], backend)
			if sums[o] == nil {
				sums[o] = v
			} else {
				sums[o] = backend.Add(sums[o], v)
			}
		}
	}
	return autodiff.Stack(sums, backend)
}

// UpdateGridFromSamples re-derives every spline edge's grid from the observed
// input batch: the grid for input dimension i is placed at the quantiles of
// column i, and the edge coefficients are refit to preserve each activation's
// shape. Symbolically fixed edges have no grid to update and are skipped.
//
// The interval count is preserved, so this is not a reparameterization and
// optimizer history stays valid.
func (l *Layer) UpdateGridFromSamples(x *tensor.RawTensor) error {
	if got := x.Shape(); len(got) != 2 || got[1] != l.in {
		return errors.Errorf("kan: grid update expects (N, %d) samples, got %v", l.in, x.Shape())
	}
	n := x.Shape()[0]
	xd := x.AsFloat64()
	col := make([]float64, n)
	for i := 0; i < l.in; i++ {
		var ref *spline.Grid
		for o := 0; o < l.out; o++ {
			if e := l.Edge(i, o); e.Mode() == ModeSpline {
				ref = e.Grid()
				break
			}
		}
		if ref == nil {
			continue // every edge from this input is fixed
		}
		for row := 0; row < n; row++ {
			col[row] = xd[row*l.in+i]
		}
		newGrid, err := spline.FromSamples(col, ref.Intervals(), ref.Degree())
		if err != nil {
			return errors.Wrapf(err, "kan: deriving grid for input %d", i)
		}
		for o := 0; o < l.out; o++ {
			e := l.Edge(i, o)
			if e.Mode() != ModeSpline {
				continue
			}
			if _, err := e.RefitToGrid(newGrid.Clone(), col); err != nil {
				return errors.Wrapf(err, "kan: refitting edge (%d,%d)", i, o)
			}
		}
	}
	return nil
}

// RefineGrids multiplies every spline edge's interval count by factor,
// refitting coefficients onto the finer grid so each activation keeps its
// shape at the observed inputs. Columns of x are the per-input samples; grids
// grow further when samples fall outside the refined span. The coefficient
// count changes, so callers must reset history-based optimizer state
// afterwards.
func (l *Layer) RefineGrids(x *tensor.RawTensor, factor int) error {
	if got := x.Shape(); len(got) != 2 || got[1] != l.in {
		return errors.Errorf("kan: grid refinement expects (N, %d) samples, got %v", l.in, x.Shape())
	}
	n := x.Shape()[0]
	xd := x.AsFloat64()
	col := make([]float64, n)
	for i := 0; i < l.in; i++ {
		for row := 0; row < n; row++ {
			col[row] = xd[row*l.in+i]
		}
		for o := 0; o < l.out; o++ {
			e := l.Edge(i, o)
			if e.Mode() != ModeSpline {
				continue
			}
			fine, err := e.Grid().Refine(factor)
			if err != nil {
				return err
			}
			if _, err := e.RefitToGrid(fine, col); err != nil {
				return errors.Wrapf(err, "kan: refining edge (%d,%d)", i, o)
			}
		}
	}
	return nil
}

// Parameters returns the trainable parameters of every edge, in edge order.
func (l *Layer) Parameters() []*Parameter {
	var params []*Parameter
	for _, e := range l.edges {
		params = append(params, e.Parameters()...)
	}
	return params
}
