// Package cpu implements the pure-Go CPU backend.
package cpu

import (
	"fmt"

	"github.com/kan-ml/kan/internal/parallel"
	"github.com/kan-ml/kan/internal/tensor"
)

// Backend implements tensor.Backend with pure-Go kernels.
// Matmul rows are chunked across goroutines; everything else is sequential.
type Backend struct {
	device   tensor.Device
	parallel parallel.Config
}

// New creates a CPU backend with default parallelism.
func New() *Backend {
	return &Backend{
		device:   tensor.CPU,
		parallel: parallel.DefaultConfig(),
	}
}

// NewSequential creates a CPU backend with parallel kernels disabled.
// Useful for deterministic profiling and tests.
func NewSequential() *Backend {
	b := New()
	b.parallel.Enabled = false
	return b
}

// Name returns the backend name.
func (b *Backend) Name() string { return "CPU" }

// Device returns the compute device.
func (b *Backend) Device() tensor.Device { return b.device }

// Add performs element-wise addition with broadcasting.
func (b *Backend) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binary("add", x, y,
		func(p, q float64) float64 { return p + q },
		func(p, q float32) float32 { return p + q })
}

// Sub performs element-wise subtraction with broadcasting.
func (b *Backend) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binary("sub", x, y,
		func(p, q float64) float64 { return p - q },
		func(p, q float32) float32 { return p - q })
}

// Mul performs element-wise multiplication with broadcasting.
func (b *Backend) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binary("mul", x, y,
		func(p, q float64) float64 { return p * q },
		func(p, q float32) float32 { return p * q })
}

// Div performs element-wise division with broadcasting.
func (b *Backend) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binary("div", x, y,
		func(p, q float64) float64 { return p / q },
		func(p, q float32) float32 { return p / q })
}

// binary applies a broadcast element-wise kernel.
func (b *Backend) binary(name string, x, y *tensor.RawTensor,
	f64 func(a, b float64) float64, f32 func(a, b float32) float32) *tensor.RawTensor {

	if x.DType() != y.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", name, x.DType(), y.DType()))
	}
	outShape, needsBroadcast, err := tensor.BroadcastShapes(x.Shape(), y.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	// Inplace fast path: same shape and x's buffer is not shared (the autodiff
	// decorator forces non-uniqueness on tensors the tape still references).
	if !needsBroadcast && x.IsUnique() {
		switch x.DType() {
		case tensor.Float64:
			xd, yd := x.AsFloat64(), y.AsFloat64()
			for i := range xd {
				xd[i] = f64(xd[i], yd[i])
			}
			return x
		case tensor.Float32:
			xd, yd := x.AsFloat32(), y.AsFloat32()
			for i := range xd {
				xd[i] = f32(xd[i], yd[i])
			}
			return x
		}
	}

	out := tensor.MustNewRaw(outShape, x.DType(), b.device)

	switch x.DType() {
	case tensor.Float64:
		xd, yd, od := x.AsFloat64(), y.AsFloat64(), out.AsFloat64()
		if !needsBroadcast {
			for i := range od {
				od[i] = f64(xd[i], yd[i])
			}
		} else {
			xi := newBroadcastIndexer(x.Shape(), outShape)
			yi := newBroadcastIndexer(y.Shape(), outShape)
			for i := range od {
				od[i] = f64(xd[xi.index(i)], yd[yi.index(i)])
			}
		}
	case tensor.Float32:
		xd, yd, od := x.AsFloat32(), y.AsFloat32(), out.AsFloat32()
		if !needsBroadcast {
			for i := range od {
				od[i] = f32(xd[i], yd[i])
			}
		} else {
			xi := newBroadcastIndexer(x.Shape(), outShape)
			yi := newBroadcastIndexer(y.Shape(), outShape)
			for i := range od {
				od[i] = f32(xd[xi.index(i)], yd[yi.index(i)])
			}
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}
	return out
}

// broadcastIndexer maps a flat index in the output shape back to the flat
// index in a (possibly smaller) source shape under broadcasting rules.
type broadcastIndexer struct {
	outStrides []int
	srcStrides []int // aligned to outShape; 0 for broadcast dimensions
}

func newBroadcastIndexer(srcShape, outShape tensor.Shape) broadcastIndexer {
	outStrides := outShape.ComputeStrides()
	srcStrides := make([]int, len(outShape))
	realStrides := srcShape.ComputeStrides()
	offset := len(outShape) - len(srcShape)
	for d := range outShape {
		sd := d - offset
		if sd >= 0 && srcShape[sd] != 1 {
			srcStrides[d] = realStrides[sd]
		}
	}
	return broadcastIndexer{outStrides: outStrides, srcStrides: srcStrides}
}

func (bi broadcastIndexer) index(flat int) int {
	idx := 0
	for d := range bi.outStrides {
		coord := flat / bi.outStrides[d]
		flat %= bi.outStrides[d]
		idx += coord * bi.srcStrides[d]
	}
	return idx
}
