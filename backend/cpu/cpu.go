// Copyright 2025 The KAN Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu is the public API for the pure-Go CPU backend.
package cpu

import "github.com/kan-ml/kan/internal/backend/cpu"

// Backend is the CPU compute backend.
type Backend = cpu.Backend

// New creates a CPU backend with default parallelism.
func New() *Backend { return cpu.New() }

// NewSequential creates a CPU backend with parallel kernels disabled.
func NewSequential() *Backend { return cpu.NewSequential() }
