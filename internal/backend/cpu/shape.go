package cpu

import (
	"fmt"

	"github.com/kan-ml/kan/internal/tensor"
)

// Reshape returns a view of the tensor under a new shape (zero-copy).
func (b *Backend) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if newShape.NumElements() != x.NumElements() {
		panic(fmt.Sprintf("reshape: cannot view %v as %v", x.Shape(), newShape))
	}
	return x.WithShape(newShape)
}

// Transpose returns the transpose of a 2-D tensor.
func (b *Backend) Transpose(x *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("transpose: expected 2-D tensor, got shape %v", shape))
	}
	m, n := shape[0], shape[1]
	out := tensor.MustNewRaw(tensor.Shape{n, m}, x.DType(), b.device)
	switch x.DType() {
	case tensor.Float64:
		xd, od := x.AsFloat64(), out.AsFloat64()
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				od[j*m+i] = xd[i*n+j]
			}
		}
	case tensor.Float32:
		xd, od := x.AsFloat32(), out.AsFloat32()
		for i := 0; i < m; i++ {
			for j := 0; j < n; j++ {
				od[j*m+i] = xd[i*n+j]
			}
		}
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", x.DType()))
	}
	return out
}
