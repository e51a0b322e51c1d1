// Package symbolic converts numerically fit edge activations into closed-form
// expressions with affine pre/post parameters, and composes fixed edges into
// whole-network formulas.
package symbolic

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Kind is one supported closed form f, used as c*f(a*x+b)+d on an edge.
//
// Eval and Deriv must be total: kinds with singularities (inverse, log, sqrt)
// are evaluated with |·| guards so that fitting and training never fault.
// The guard is part of the kind's definition and shows up in its formula text.
type Kind struct {
	Name   string
	Format string // fmt pattern for the inner expression, e.g. "sin(%s)"
	Eval   func(x float64) float64
	Deriv  func(x float64) float64
}

const singularEps = 1e-12

var kinds = []*Kind{
	{
		Name: "identity", Format: "%s",
		Eval:  func(x float64) float64 { return x },
		Deriv: func(x float64) float64 { return 1 },
	},
	{
		Name: "square", Format: "(%s)^2",
		Eval:  func(x float64) float64 { return x * x },
		Deriv: func(x float64) float64 { return 2 * x },
	},
	{
		Name: "cube", Format: "(%s)^3",
		Eval:  func(x float64) float64 { return x * x * x },
		Deriv: func(x float64) float64 { return 3 * x * x },
	},
	{
		Name: "sqrt", Format: "sqrt(abs(%s))",
		Eval: func(x float64) float64 { return math.Sqrt(math.Abs(x)) },
		Deriv: func(x float64) float64 {
			return sign(x) / (2 * math.Sqrt(math.Abs(x)+singularEps))
		},
	},
	{
		Name: "inverse", Format: "1/(%s)",
		Eval: func(x float64) float64 {
			if x == 0 {
				return 0
			}
			return 1 / x
		},
		Deriv: func(x float64) float64 {
			d := x*x + singularEps
			return -1 / d
		},
	},
	{
		Name: "exp", Format: "exp(%s)",
		Eval:  math.Exp,
		Deriv: math.Exp,
	},
	{
		Name: "log", Format: "log(abs(%s))",
		Eval:  func(x float64) float64 { return math.Log(math.Abs(x) + singularEps) },
		Deriv: func(x float64) float64 { return sign(x) / (math.Abs(x) + singularEps) },
	},
	{
		Name: "abs", Format: "abs(%s)",
		Eval:  math.Abs,
		Deriv: sign,
	},
	{
		Name: "sin", Format: "sin(%s)",
		Eval:  math.Sin,
		Deriv: math.Cos,
	},
	{
		Name: "cos", Format: "cos(%s)",
		Eval:  math.Cos,
		Deriv: func(x float64) float64 { return -math.Sin(x) },
	},
	{
		Name: "tanh", Format: "tanh(%s)",
		Eval: math.Tanh,
		Deriv: func(x float64) float64 {
			t := math.Tanh(x)
			return 1 - t*t
		},
	},
	{
		Name: "sigmoid", Format: "sigmoid(%s)",
		Eval: sigmoid,
		Deriv: func(x float64) float64 {
			s := sigmoid(x)
			return s * (1 - s)
		},
	},
}

var kindsByName = func() map[string]*Kind {
	m := make(map[string]*Kind, len(kinds))
	for _, k := range kinds {
		m[k.Name] = k
	}
	return m
}()

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// Lookup returns the kind with the given name.
// Unknown names are an unsupported-operation error naming the request.
func Lookup(name string) (*Kind, error) {
	k, ok := kindsByName[name]
	if !ok {
		return nil, errors.Errorf("symbolic: unsupported kind %q", name)
	}
	return k, nil
}

// Kinds returns all registered kinds, in registration order.
func Kinds() []*Kind {
	return append([]*Kind(nil), kinds...)
}

// Descriptor is a fitted closed form: c*f(a*x+b)+d plus its fit quality.
// The affine parameters recorded here are the values at fit time; once a
// descriptor is installed on an edge the live (trainable) values are held in
// the edge's affine parameter tensor.
type Descriptor struct {
	Kind       *Kind
	A, B, C, D float64 // pre-scale, pre-shift, post-scale, post-shift
	R2         float64 // coefficient of determination of the fit
	AtBoundary bool    // best (a, b) pinned at the search range boundary
}

// Evaluate applies the descriptor's closed form at x.
func (d Descriptor) Evaluate(x float64) float64 {
	return d.C*d.Kind.Eval(d.A*x+d.B) + d.D
}

// String renders the descriptor with a placeholder input variable.
func (d Descriptor) String() string {
	return d.Render("x")
}

// Render formats the closed form around the given inner expression text.
func (d Descriptor) Render(inner string) string {
	arg := inner
	if d.A != 1 || d.B != 0 {
		arg = fmt.Sprintf("%s*%s + %s", trimFloat(d.A), inner, trimFloat(d.B))
	}
	body := fmt.Sprintf(d.Kind.Format, arg)
	out := body
	if d.C != 1 {
		out = fmt.Sprintf("%s*%s", trimFloat(d.C), body)
	}
	if d.D != 0 {
		out = fmt.Sprintf("%s + %s", out, trimFloat(d.D))
	}
	return out
}

func trimFloat(v float64) string {
	return fmt.Sprintf("%.4g", v)
}
