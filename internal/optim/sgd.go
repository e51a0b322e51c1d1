package optim

import (
	"github.com/kan-ml/kan/internal/kan"
	"github.com/kan-ml/kan/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum.
type SGD struct {
	params   []*kan.Parameter
	lr       float64
	momentum float64
	velocity map[*kan.Parameter][]float64
}

// SGDConfig holds SGD hyperparameters.
type SGDConfig struct {
	LR       float64 // learning rate (default 0.01)
	Momentum float64 // momentum factor (default 0: plain SGD)
}

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD(params []*kan.Parameter, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		params:   params,
		lr:       config.LR,
		momentum: config.Momentum,
		velocity: make(map[*kan.Parameter][]float64),
	}
}

// Step applies one SGD update.
func (s *SGD) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, p := range s.params {
		g := grad(grads, p)
		if g == nil {
			continue
		}
		data := p.Data()
		if s.momentum == 0 {
			for i := range data {
				data[i] -= s.lr * g[i]
			}
			continue
		}
		v := s.velocity[p]
		if len(v) != len(data) {
			v = make([]float64, len(data))
			s.velocity[p] = v
		}
		for i := range data {
			v[i] = s.momentum*v[i] + g[i]
			data[i] -= s.lr * v[i]
		}
	}
}

// ResetHistory drops the momentum buffers.
func (s *SGD) ResetHistory() {
	s.velocity = make(map[*kan.Parameter][]float64)
}
