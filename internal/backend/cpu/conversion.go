package cpu

import (
	"fmt"

	"github.com/x448/float16"

	"github.com/kan-ml/kan/internal/tensor"
)

// Cast converts a tensor to a different data type.
//
// Float16 is a storage dtype: casting to it is how checkpoints opt into
// half-precision payloads, and casting from it restores an arithmetic dtype.
// Float16 conversion uses IEEE round-to-nearest-even.
func (b *Backend) Cast(x *tensor.RawTensor, dtype tensor.DataType) *tensor.RawTensor {
	if x.DType() == dtype {
		return x.Clone()
	}
	out := tensor.MustNewRaw(x.Shape(), dtype, b.device)

	// Widen the source to float64, then narrow into the target.
	src := make([]float64, x.NumElements())
	switch x.DType() {
	case tensor.Float64:
		copy(src, x.AsFloat64())
	case tensor.Float32:
		for i, v := range x.AsFloat32() {
			src[i] = float64(v)
		}
	case tensor.Float16:
		for i, v := range x.AsFloat16() {
			src[i] = float64(v.Float32())
		}
	default:
		panic(fmt.Sprintf("cast: unsupported source dtype %s", x.DType()))
	}

	switch dtype {
	case tensor.Float64:
		copy(out.AsFloat64(), src)
	case tensor.Float32:
		od := out.AsFloat32()
		for i, v := range src {
			od[i] = float32(v)
		}
	case tensor.Float16:
		od := out.AsFloat16()
		for i, v := range src {
			od[i] = float16.Fromfloat32(float32(v))
		}
	default:
		panic(fmt.Sprintf("cast: unsupported target dtype %s", dtype))
	}
	return out
}
