package tensor

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/x448/float16"
)

// Device represents the compute device for tensor operations.
type Device int

// Supported compute devices. Only CPU is implemented; the constant set leaves
// room for device backends behind the same Backend interface.
const (
	CPU Device = iota
	GPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case GPU:
		return "GPU"
	default:
		return "Unknown"
	}
}

// tensorBuffer is a reference-counted shared buffer enabling cheap clones and
// inplace kernels when refCount == 1.
type tensorBuffer struct {
	data     []byte
	refCount atomic.Int32
}

func newTensorBuffer(size int) *tensorBuffer {
	buf := &tensorBuffer{data: make([]byte, size)}
	buf.refCount.Store(1)
	return buf
}

func (tb *tensorBuffer) addRef() { tb.refCount.Add(1) }

func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) == 0 {
		tb.data = nil
	}
}

func (tb *tensorBuffer) isUnique() bool { return tb.refCount.Load() == 1 }

// RawTensor is the low-level tensor representation: a dtype-tagged,
// reference-counted byte buffer plus shape and row-major strides.
type RawTensor struct {
	buffer *tensorBuffer
	shape  Shape
	stride []int
	dtype  DataType
	device Device
}

// NewRaw creates a RawTensor with the given shape and dtype.
// Memory is zero-initialized.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	byteSize := shape.NumElements() * dtype.Size()
	return &RawTensor{
		buffer: newTensorBuffer(byteSize),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// MustNewRaw is NewRaw that panics on invalid shapes. Backends use it for
// result tensors whose shapes were already validated.
func MustNewRaw(shape Shape, dtype DataType, device Device) *RawTensor {
	r, err := NewRaw(shape, dtype, device)
	if err != nil {
		panic(err)
	}
	return r
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape { return r.shape }

// Strides returns the tensor's row-major memory strides.
func (r *RawTensor) Strides() []int { return r.stride }

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType { return r.dtype }

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device { return r.device }

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int { return r.shape.NumElements() }

// ByteSize returns the payload size in bytes.
func (r *RawTensor) ByteSize() int { return r.NumElements() * r.dtype.Size() }

// Data returns the raw byte slice backing the tensor.
func (r *RawTensor) Data() []byte { return r.buffer.data }

// IsUnique reports whether no other RawTensor shares this buffer, which makes
// inplace kernel optimizations safe.
func (r *RawTensor) IsUnique() bool { return r.buffer.isUnique() }

// ForceNonUnique temporarily bumps the reference count so IsUnique reports
// false, and returns the undo function. The autodiff layer uses this to stop
// backends from overwriting tensors that the tape still references.
func (r *RawTensor) ForceNonUnique() func() {
	r.buffer.addRef()
	return r.buffer.release
}

// Clone returns a deep copy with its own buffer.
func (r *RawTensor) Clone() *RawTensor {
	out := MustNewRaw(r.shape, r.dtype, r.device)
	copy(out.buffer.data, r.buffer.data)
	return out
}

// WithShape returns a view sharing this buffer under a different shape.
// The element counts must match.
func (r *RawTensor) WithShape(shape Shape) *RawTensor {
	if shape.NumElements() != r.NumElements() {
		panic(fmt.Sprintf("WithShape: cannot view %v as %v", r.shape, shape))
	}
	r.buffer.addRef()
	return &RawTensor{
		buffer: r.buffer,
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  r.dtype,
		device: r.device,
	}
}

// AsFloat64 returns the buffer as a []float64. Panics on dtype mismatch.
func (r *RawTensor) AsFloat64() []float64 {
	r.checkDType(Float64)
	return unsafe.Slice((*float64)(unsafe.Pointer(unsafe.SliceData(r.buffer.data))), r.NumElements())
}

// AsFloat32 returns the buffer as a []float32. Panics on dtype mismatch.
func (r *RawTensor) AsFloat32() []float32 {
	r.checkDType(Float32)
	return unsafe.Slice((*float32)(unsafe.Pointer(unsafe.SliceData(r.buffer.data))), r.NumElements())
}

// AsFloat16 returns the buffer as a []float16.Float16. Panics on dtype mismatch.
func (r *RawTensor) AsFloat16() []float16.Float16 {
	r.checkDType(Float16)
	return unsafe.Slice((*float16.Float16)(unsafe.Pointer(unsafe.SliceData(r.buffer.data))), r.NumElements())
}

// AsBool returns the buffer as a []bool. Panics on dtype mismatch.
func (r *RawTensor) AsBool() []bool {
	r.checkDType(Bool)
	return unsafe.Slice((*bool)(unsafe.Pointer(unsafe.SliceData(r.buffer.data))), r.NumElements())
}

func (r *RawTensor) checkDType(want DataType) {
	if r.dtype != want {
		panic(fmt.Sprintf("dtype mismatch: tensor is %s, requested %s", r.dtype, want))
	}
}
