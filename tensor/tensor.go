// Copyright 2025 The KAN Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor is the public API for tensors and compute backends.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float64](tensor.Shape{2, 3}, backend)
//	y := tensor.Ones[float64](tensor.Shape{2, 3}, backend)
//	z := x.Add(y)
package tensor

import (
	"math/rand"

	"github.com/kan-ml/kan/internal/tensor"
)

// DType is the constraint for tensor element types.
type DType = tensor.DType

// DataType is runtime type information for tensors.
type DataType = tensor.DataType

// Data type constants.
const (
	Float64 DataType = tensor.Float64
	Float32 DataType = tensor.Float32
	Float16 DataType = tensor.Float16
	Bool    DataType = tensor.Bool
)

// Device identifies where tensor data lives.
type Device = tensor.Device

// Device constants.
const (
	CPU Device = tensor.CPU
	GPU Device = tensor.GPU
)

// Shape represents tensor dimensions, e.g. Shape{2, 3}.
type Shape = tensor.Shape

// Backend is the compute interface tensor operations dispatch to.
type Backend = tensor.Backend

// RawTensor is the untyped tensor: shape, dtype and a ref-counted buffer.
type RawTensor = tensor.RawTensor

// Tensor is the generic type-safe tensor over element type T and backend B.
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// New creates a Tensor from a RawTensor and backend.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return tensor.New[T, B](raw, b)
}

// NewRaw allocates an untyped tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// FromSlice creates a tensor by copying a Go slice.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice(data, shape, b)
}

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T, B](shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T, B](shape, b)
}

// Full creates a tensor filled with a value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	return tensor.Full[T, B](shape, value, b)
}

// Randn creates a float tensor with N(0, stddev²) values.
func Randn[T interface{ ~float32 | ~float64 }, B Backend](shape Shape, stddev float64, rng *rand.Rand, b B) *Tensor[T, B] {
	return tensor.Randn[T, B](shape, stddev, rng, b)
}

// Linspace creates a 1-D tensor with n evenly spaced values in [lo, hi].
func Linspace[T interface{ ~float32 | ~float64 }, B Backend](lo, hi float64, n int, b B) *Tensor[T, B] {
	return tensor.Linspace[T, B](lo, hi, n, b)
}

// BroadcastShapes computes the broadcast result shape of two shapes.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}
