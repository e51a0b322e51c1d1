package cpu

import (
	"fmt"

	"github.com/kan-ml/kan/internal/tensor"
)

// Sum reduces all elements to a scalar tensor (shape {}).
func (b *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	out := tensor.MustNewRaw(tensor.Shape{}, x.DType(), b.device)
	switch x.DType() {
	case tensor.Float64:
		var s float64
		for _, v := range x.AsFloat64() {
			s += v
		}
		out.AsFloat64()[0] = s
	case tensor.Float32:
		var s float32
		for _, v := range x.AsFloat32() {
			s += v
		}
		out.AsFloat32()[0] = s
	default:
		panic(fmt.Sprintf("sum: unsupported dtype %s", x.DType()))
	}
	return out
}

// SumDim sums along a dimension.
func (b *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.reduceDim("sumdim", x, dim, keepDim, false)
}

// MeanDim averages along a dimension.
func (b *Backend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return b.reduceDim("meandim", x, dim, keepDim, true)
}

func (b *Backend) reduceDim(name string, x *tensor.RawTensor, dim int, keepDim, mean bool) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("%s: invalid dimension %d for shape %v", name, dim, shape))
	}

	// outer × reduced × inner decomposition of a row-major tensor.
	outer, inner := 1, 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	reduced := shape[dim]

	outShape := make(tensor.Shape, 0, len(shape))
	for d, sz := range shape {
		switch {
		case d != dim:
			outShape = append(outShape, sz)
		case keepDim:
			outShape = append(outShape, 1)
		}
	}
	out := tensor.MustNewRaw(outShape, x.DType(), b.device)

	switch x.DType() {
	case tensor.Float64:
		xd, od := x.AsFloat64(), out.AsFloat64()
		for o := 0; o < outer; o++ {
			for in := 0; in < inner; in++ {
				var s float64
				for r := 0; r < reduced; r++ {
					s += xd[(o*reduced+r)*inner+in]
				}
				if mean {
					s /= float64(reduced)
				}
				od[o*inner+in] = s
			}
		}
	case tensor.Float32:
		xd, od := x.AsFloat32(), out.AsFloat32()
		for o := 0; o < outer; o++ {
			for in := 0; in < inner; in++ {
				var s float32
				for r := 0; r < reduced; r++ {
					s += xd[(o*reduced+r)*inner+in]
				}
				if mean {
					s /= float32(reduced)
				}
				od[o*inner+in] = s
			}
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}
	return out
}
