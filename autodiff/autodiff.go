// Copyright 2025 The KAN Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff is the public API for reverse-mode automatic
// differentiation. It wraps any backend with a gradient tape.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	loss := ... // tensor operations through `backend`
//	grads := autodiff.Backward(loss, backend)
package autodiff

import (
	"github.com/kan-ml/kan/internal/autodiff"
	"github.com/kan-ml/kan/internal/tensor"
)

// Backend is the autodiff decorator over an inner backend.
type Backend[B tensor.Backend] = autodiff.Backend[B]

// TapeBackend is any backend carrying a gradient tape.
type TapeBackend = autodiff.TapeBackend

// GradientTape records operations for the backward pass.
type GradientTape = autodiff.GradientTape

// New creates an autodiff backend wrapping the given inner backend.
func New[B tensor.Backend](inner B) *Backend[B] {
	return autodiff.New(inner)
}

// Backward computes gradients of a scalar tensor with respect to every tensor
// on the tape.
func Backward[T tensor.DType, B TapeBackend](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.Backward(t, backend)
}
