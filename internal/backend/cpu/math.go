package cpu

import (
	"fmt"
	"math"

	"github.com/kan-ml/kan/internal/tensor"
)

// Exp applies e^x element-wise.
func (b *Backend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary("exp", x, math.Exp)
}

// Sin applies sin(x) element-wise.
func (b *Backend) Sin(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary("sin", x, math.Sin)
}

// Cos applies cos(x) element-wise.
func (b *Backend) Cos(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary("cos", x, math.Cos)
}

// Sqrt applies sqrt(x) element-wise.
func (b *Backend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary("sqrt", x, math.Sqrt)
}

// SiLU applies x*sigmoid(x) element-wise.
func (b *Backend) SiLU(x *tensor.RawTensor) *tensor.RawTensor {
	return b.unary("silu", x, Silu)
}

// Silu is the scalar SiLU kernel, exported for reuse by autodiff backward
// passes and the plain numeric evaluation path.
func Silu(v float64) float64 {
	return v / (1.0 + math.Exp(-v))
}

// SiluDeriv is d/dx of SiLU: sigmoid(x)*(1 + x*(1-sigmoid(x))).
func SiluDeriv(v float64) float64 {
	sig := 1.0 / (1.0 + math.Exp(-v))
	return sig * (1.0 + v*(1.0-sig))
}

// AddScalar adds a scalar to every element.
func (b *Backend) AddScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	return b.unary("addscalar", x, func(v float64) float64 { return v + s })
}

// MulScalar multiplies every element by a scalar.
func (b *Backend) MulScalar(x *tensor.RawTensor, s float64) *tensor.RawTensor {
	return b.unary("mulscalar", x, func(v float64) float64 { return v * s })
}

func (b *Backend) unary(name string, x *tensor.RawTensor, f func(float64) float64) *tensor.RawTensor {
	out := tensor.MustNewRaw(x.Shape(), x.DType(), b.device)
	switch x.DType() {
	case tensor.Float64:
		xd, od := x.AsFloat64(), out.AsFloat64()
		for i := range od {
			od[i] = f(xd[i])
		}
	case tensor.Float32:
		xd, od := x.AsFloat32(), out.AsFloat32()
		for i := range od {
			od[i] = float32(f(float64(xd[i])))
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}
	return out
}
