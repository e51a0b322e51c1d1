// Copyright 2025 The KAN Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package kan is the public API for Kolmogorov-Arnold networks.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	net, err := kan.NewNetwork(kan.Config{Widths: []int{2, 5, 1}}, backend)
package kan

import (
	"github.com/kan-ml/kan/internal/autodiff"
	"github.com/kan-ml/kan/internal/kan"
	"github.com/kan-ml/kan/internal/tensor"
)

// Config describes a network's architecture and initialization.
type Config = kan.Config

// Network is a stack of KAN layers.
type Network = kan.Network

// Layer is one in×out block of edge activations.
type Layer = kan.Layer

// EdgeActivation is one edge's univariate activation.
type EdgeActivation = kan.EdgeActivation

// Parameter is a named trainable tensor.
type Parameter = kan.Parameter

// Suggestion is one candidate closed form for an edge.
type Suggestion = kan.Suggestion

// Mode says how an edge activation is represented.
type Mode = kan.Mode

// Edge representation modes.
const (
	ModeSpline   Mode = kan.ModeSpline
	ModeSymbolic Mode = kan.ModeSymbolic
)

// NewNetwork builds a network per the config.
func NewNetwork(cfg Config, backend autodiff.TapeBackend) (*Network, error) {
	return kan.NewNetwork(cfg, backend)
}

// Load restores a network from a .kan checkpoint.
func Load(path string, backend autodiff.TapeBackend) (*Network, error) {
	return kan.Load(path, backend)
}

// MSELoss computes mean squared error as a differentiable scalar tensor.
func MSELoss(pred, target *tensor.RawTensor, backend autodiff.TapeBackend) *tensor.RawTensor {
	return kan.MSELoss(pred, target, backend)
}
