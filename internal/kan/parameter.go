// Package kan implements Kolmogorov-Arnold networks: layers of trainable
// univariate spline activations on every edge, with grid adaptation and
// symbolic distillation of trained edges into closed-form expressions.
package kan

import (
	"github.com/kan-ml/kan/internal/tensor"
)

// Parameter is a named trainable tensor. KAN parameters are always float64:
// the losses symbolic regression targets sit near machine epsilon, where
// float32 accumulation noise dominates the signal.
type Parameter struct {
	name  string
	value *tensor.RawTensor
}

// NewParameter wraps a raw tensor as a named parameter.
func NewParameter(name string, value *tensor.RawTensor) *Parameter {
	return &Parameter{name: name, value: value}
}

// Name returns the parameter's dotted path, e.g. "layers.0.edge.1.2.coef".
func (p *Parameter) Name() string { return p.name }

// Raw returns the underlying tensor.
func (p *Parameter) Raw() *tensor.RawTensor { return p.value }

// Data returns the parameter values as a mutable float64 slice.
func (p *Parameter) Data() []float64 { return p.value.AsFloat64() }

// NumElements returns the parameter size.
func (p *Parameter) NumElements() int { return p.value.NumElements() }

// setRaw swaps the underlying tensor. Used by grid refits that change the
// coefficient count; such swaps are reparameterizations and invalidate any
// optimizer history attached to the old tensor.
func (p *Parameter) setRaw(value *tensor.RawTensor) { p.value = value }
