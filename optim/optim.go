// Copyright 2025 The KAN Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim is the public API for the training optimizers.
package optim

import (
	"github.com/kan-ml/kan/internal/kan"
	"github.com/kan-ml/kan/internal/optim"
)

// Optimizer is a gradient-map optimizer (SGD, Adam).
type Optimizer = optim.Optimizer

// SGD is stochastic gradient descent with optional momentum.
type SGD = optim.SGD

// SGDConfig holds SGD hyperparameters.
type SGDConfig = optim.SGDConfig

// NewSGD creates an SGD optimizer.
func NewSGD(params []*kan.Parameter, config SGDConfig) *SGD {
	return optim.NewSGD(params, config)
}

// Adam is the Adam optimizer.
type Adam = optim.Adam

// AdamConfig holds Adam hyperparameters.
type AdamConfig = optim.AdamConfig

// NewAdam creates an Adam optimizer.
func NewAdam(params []*kan.Parameter, config AdamConfig) *Adam {
	return optim.NewAdam(params, config)
}

// LBFGS is limited-memory BFGS with backtracking line search.
type LBFGS = optim.LBFGS

// LBFGSConfig holds LBFGS hyperparameters.
type LBFGSConfig = optim.LBFGSConfig

// Closure evaluates the objective and returns the loss with its gradients.
type Closure = optim.Closure

// NewLBFGS creates an LBFGS optimizer.
func NewLBFGS(params []*kan.Parameter, config LBFGSConfig) *LBFGS {
	return optim.NewLBFGS(params, config)
}
