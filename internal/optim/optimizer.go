// Package optim implements the optimizers used for KAN training: SGD and Adam
// for the stochastic phase, and LBFGS for the final high-precision polish
// symbolic regression depends on.
package optim

import (
	"github.com/kan-ml/kan/internal/kan"
	"github.com/kan-ml/kan/internal/tensor"
)

// Optimizer is a gradient-map optimizer: Step consumes the gradients produced
// by one backward pass, keyed by parameter tensor.
//
// LBFGS is not an Optimizer: it re-evaluates the loss during line search and
// therefore takes a closure (see LBFGS.Step).
type Optimizer interface {
	// Step applies one update. Parameters with no gradient are skipped.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)
	// ResetHistory discards internal state (momenta, moments). Required after
	// any operation that changes parameter dimensionality, such as grid
	// refinement; the old history lives in the old coordinate system.
	ResetHistory()
}

// grad looks up the gradient for a parameter's current tensor.
func grad(grads map[*tensor.RawTensor]*tensor.RawTensor, p *kan.Parameter) []float64 {
	g, ok := grads[p.Raw()]
	if !ok {
		return nil
	}
	return g.AsFloat64()
}
