package kan

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/kan-ml/kan/internal/autodiff"
	"github.com/kan-ml/kan/internal/serialization"
	"github.com/kan-ml/kan/internal/spline"
	"github.com/kan-ml/kan/internal/symbolic"
)

// networkMeta is the architecture document stored in a checkpoint's
// descriptor. Knots are stored here (JSON float64 round-trips exactly);
// parameters go in the tensor payload.
type networkMeta struct {
	Widths        []int      `json:"widths"`
	Degree        int        `json:"degree"`
	GridIntervals int        `json:"grid_intervals"`
	GridRange     [2]float64 `json:"grid_range"`
	Seed          int64      `json:"seed"`
	Edges         []edgeMeta `json:"edges"`
}

type edgeMeta struct {
	Layer int       `json:"layer"`
	In    int       `json:"in"`
	Out   int       `json:"out"`
	Mode  string    `json:"mode"`
	Kind  string    `json:"kind,omitempty"`
	FitR2 float64   `json:"fit_r2,omitempty"`
	Knots []float64 `json:"knots"`
}

// Save writes the network to path as a .kan checkpoint. The retained spline
// state of symbolically fixed edges is saved too, so fix/unfix survives a
// save/load round-trip exactly.
func (n *Network) Save(path string) error {
	meta := networkMeta{
		Widths:        n.cfg.Widths,
		Degree:        n.cfg.Degree,
		GridIntervals: n.cfg.GridIntervals,
		GridRange:     n.cfg.GridRange,
		Seed:          n.cfg.Seed,
	}
	var entries []serialization.Entry
	for li, l := range n.layers {
		for i := 0; i < l.in; i++ {
			for o := 0; o < l.out; o++ {
				e := l.Edge(i, o)
				em := edgeMeta{
					Layer: li, In: i, Out: o,
					Mode:  e.mode.String(),
					Knots: e.grid.Knots(),
					FitR2: e.fitR2,
				}
				entries = append(entries,
					serialization.Entry{Name: e.coef.Name(), Raw: e.coef.Raw()},
					serialization.Entry{Name: e.wSpline.Name(), Raw: e.wSpline.Raw()},
					serialization.Entry{Name: e.wResidual.Name(), Raw: e.wResidual.Raw()},
				)
				if e.mode == ModeSymbolic {
					em.Kind = e.kind.Name
					entries = append(entries, serialization.Entry{Name: e.affine.Name(), Raw: e.affine.Raw()})
				}
				meta.Edges = append(meta.Edges, em)
			}
		}
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return errors.Wrap(err, "kan: marshaling checkpoint metadata")
	}
	return serialization.Save(path, entries, serialization.Options{Meta: metaJSON})
}

// Load restores a network from a .kan checkpoint onto the given backend.
func Load(path string, backend autodiff.TapeBackend) (*Network, error) {
	file, err := serialization.Open(path)
	if err != nil {
		return nil, err
	}
	var meta networkMeta
	if err := json.Unmarshal(file.Meta(), &meta); err != nil {
		return nil, errors.Wrap(err, "kan: decoding checkpoint metadata")
	}

	n, err := NewNetwork(Config{
		Widths:        meta.Widths,
		Degree:        meta.Degree,
		GridIntervals: meta.GridIntervals,
		GridRange:     meta.GridRange,
		Seed:          meta.Seed,
	}, backend)
	if err != nil {
		return nil, err
	}

	for _, em := range meta.Edges {
		e, err := n.edge(em.Layer, em.In, em.Out)
		if err != nil {
			return nil, errors.Wrap(err, "kan: checkpoint names an edge outside the architecture")
		}
		grid, err := spline.FromKnots(em.Knots, meta.Degree)
		if err != nil {
			return nil, errors.Wrapf(err, "kan: restoring grid of edge (%d,%d) in layer %d", em.In, em.Out, em.Layer)
		}
		e.grid = grid

		if err := restoreParam(file, e.coef, grid.NumBasis()); err != nil {
			return nil, err
		}
		if err := restoreParam(file, e.wSpline, 1); err != nil {
			return nil, err
		}
		if err := restoreParam(file, e.wResidual, 1); err != nil {
			return nil, err
		}

		switch em.Mode {
		case ModeSpline.String():
		case ModeSymbolic.String():
			kind, err := symbolic.Lookup(em.Kind)
			if err != nil {
				return nil, err
			}
			raw, err := file.Tensor(e.name + ".affine")
			if err != nil {
				return nil, err
			}
			if raw.NumElements() != 4 {
				return nil, errors.Errorf("kan: affine tensor of %s has %d elements, want 4", e.name, raw.NumElements())
			}
			e.mode = ModeSymbolic
			e.kind = kind
			e.affine = NewParameter(e.name+".affine", raw)
			e.fitR2 = em.FitR2
		default:
			return nil, errors.Errorf("kan: checkpoint has unknown edge mode %q", em.Mode)
		}
	}
	return n, nil
}

func restoreParam(file *serialization.File, p *Parameter, wantLen int) error {
	raw, err := file.Tensor(p.Name())
	if err != nil {
		return err
	}
	if got := raw.NumElements(); got != wantLen {
		return fmt.Errorf("kan: tensor %s has %d elements, want %d", p.Name(), got, wantLen)
	}
	p.setRaw(raw)
	return nil
}
