package optim

import (
	"math"

	"github.com/kan-ml/kan/internal/kan"
	"github.com/kan-ml/kan/internal/tensor"
)

// Adam implements the Adam optimizer (Kingma & Ba, 2014).
//
// Update rule:
//
//	m_t = beta1·m_{t-1} + (1-beta1)·g
//	v_t = beta2·v_{t-1} + (1-beta2)·g²
//	param -= lr · (m_t/(1-beta1^t)) / (sqrt(v_t/(1-beta2^t)) + eps)
type Adam struct {
	params []*kan.Parameter
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
	t      int
	m      map[*kan.Parameter][]float64
	v      map[*kan.Parameter][]float64
}

// AdamConfig holds Adam hyperparameters.
type AdamConfig struct {
	LR    float64    // learning rate (default 0.001)
	Betas [2]float64 // moment decay rates (default [0.9, 0.999])
	Eps   float64    // numerical stability term (default 1e-8)
}

// NewAdam creates an Adam optimizer over the given parameters.
func NewAdam(params []*kan.Parameter, config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make(map[*kan.Parameter][]float64),
		v:      make(map[*kan.Parameter][]float64),
	}
}

// Step applies one Adam update.
func (a *Adam) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))

	for _, p := range a.params {
		g := grad(grads, p)
		if g == nil {
			continue
		}
		data := p.Data()
		m, v := a.m[p], a.v[p]
		if len(m) != len(data) {
			m = make([]float64, len(data))
			v = make([]float64, len(data))
			a.m[p], a.v[p] = m, v
		}
		for i := range data {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g[i]
			v[i] = a.beta2*v[i] + (1-a.beta2)*g[i]*g[i]
			mHat := m[i] / c1
			vHat := v[i] / c2
			data[i] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
}

// ResetHistory drops the moment estimates and the bias-correction timestep.
func (a *Adam) ResetHistory() {
	a.t = 0
	a.m = make(map[*kan.Parameter][]float64)
	a.v = make(map[*kan.Parameter][]float64)
}
