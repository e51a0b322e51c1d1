package cpu

import (
	"fmt"

	"github.com/kan-ml/kan/internal/parallel"
	"github.com/kan-ml/kan/internal/tensor"
)

// MatMul performs 2-D matrix multiplication: [M, K] @ [K, N] -> [M, N].
// Output rows are chunked across goroutines.
func (b *Backend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	xs, ys := x.Shape(), y.Shape()
	if len(xs) != 2 || len(ys) != 2 {
		panic(fmt.Sprintf("matmul: expected 2-D operands, got %v @ %v", xs, ys))
	}
	if xs[1] != ys[0] {
		panic(fmt.Sprintf("matmul: inner dimensions mismatch: %v @ %v", xs, ys))
	}
	if x.DType() != y.DType() {
		panic(fmt.Sprintf("matmul: dtype mismatch %s vs %s", x.DType(), y.DType()))
	}
	m, k, n := xs[0], xs[1], ys[1]
	out := tensor.MustNewRaw(tensor.Shape{m, n}, x.DType(), b.device)

	switch x.DType() {
	case tensor.Float64:
		xd, yd, od := x.AsFloat64(), y.AsFloat64(), out.AsFloat64()
		parallel.For(m, func(i int) {
			row := od[i*n : (i+1)*n]
			for p := 0; p < k; p++ {
				a := xd[i*k+p]
				if a == 0 {
					continue
				}
				yrow := yd[p*n : (p+1)*n]
				for j := range row {
					row[j] += a * yrow[j]
				}
			}
		}, b.parallel)
	case tensor.Float32:
		xd, yd, od := x.AsFloat32(), y.AsFloat32(), out.AsFloat32()
		parallel.For(m, func(i int) {
			row := od[i*n : (i+1)*n]
			for p := 0; p < k; p++ {
				a := xd[i*k+p]
				if a == 0 {
					continue
				}
				yrow := yd[p*n : (p+1)*n]
				for j := range row {
					row[j] += a * yrow[j]
				}
			}
		}, b.parallel)
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s", x.DType()))
	}
	return out
}
