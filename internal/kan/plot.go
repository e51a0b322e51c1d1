package kan

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/kan-ml/kan/internal/tensor"
)

const plotSamples = 256

// PlotEdge renders one edge's activation φ over its grid's covered range and
// writes it as a PNG. Symbolic edges are rendered from their closed form.
func (n *Network) PlotEdge(l, i, o int, path string) error {
	e, err := n.edge(l, i, o)
	if err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("layer %d, edge %d -> %d (%s)", l, i, o, e.Mode())
	p.X.Label.Text = "x"
	p.Y.Label.Text = "phi(x)"

	line, err := plotter.NewLine(edgeCurve(e))
	if err != nil {
		return errors.Wrap(err, "kan: building edge curve")
	}
	p.Add(plotter.NewGrid(), line)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// Plot writes one PNG per layer into dir (created if missing), each showing
// every edge activation of that layer over its own covered range.
func (n *Network) Plot(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "kan: creating plot directory")
	}
	for li, l := range n.layers {
		p := plot.New()
		p.Title.Text = fmt.Sprintf("layer %d activations", li)
		p.X.Label.Text = "x"
		p.Y.Label.Text = "phi(x)"
		p.Add(plotter.NewGrid())

		var args []interface{}
		for i := 0; i < l.in; i++ {
			for o := 0; o < l.out; o++ {
				args = append(args, fmt.Sprintf("%d->%d", i, o), edgeCurve(l.Edge(i, o)))
			}
		}
		if err := plotutil.AddLines(p, args...); err != nil {
			return errors.Wrapf(err, "kan: plotting layer %d", li)
		}
		path := filepath.Join(dir, fmt.Sprintf("layer_%d.png", li))
		if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
			return errors.Wrapf(err, "kan: saving layer %d plot", li)
		}
	}
	return nil
}

func edgeCurve(e *EdgeActivation) plotter.XYs {
	lo, hi := e.Grid().Span()
	xs := tensor.LinspaceSlice(lo, hi, plotSamples)
	ys := e.EvaluateAt(xs)
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X, pts[i].Y = xs[i], ys[i]
	}
	return pts
}
