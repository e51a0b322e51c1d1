package tensor

// Backend defines the compute interface tensor operations dispatch to.
//
// The operation set is exactly what the KAN forward/backward graph and its
// losses emit: broadcast arithmetic, dense matmul, a small unary-math family,
// reductions, and dtype casts. Implementations:
//   - cpu: pure Go kernels (internal/backend/cpu)
//   - autodiff: decorator recording operations onto a gradient tape
//
// Device backends can be added behind this same seam; the KAN core never
// issues explicit concurrency, backends are free to parallelize internally.
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// MatMul performs 2-D matrix multiplication: [M, K] @ [K, N] -> [M, N].
	MatMul(a, b *RawTensor) *RawTensor

	// Scalar operations (element-wise against a Go scalar).
	AddScalar(x *RawTensor, s float64) *RawTensor
	MulScalar(x *RawTensor, s float64) *RawTensor

	// Unary math (element-wise).
	Exp(x *RawTensor) *RawTensor
	Sin(x *RawTensor) *RawTensor
	Cos(x *RawTensor) *RawTensor
	Sqrt(x *RawTensor) *RawTensor
	SiLU(x *RawTensor) *RawTensor // x * sigmoid(x)

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor) *RawTensor // 2-D transpose

	// Reductions.
	Sum(x *RawTensor) *RawTensor                            // all elements -> scalar
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor  // sum along dim
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor // mean along dim

	// Cast converts between data types (including the float16 storage dtype).
	Cast(x *RawTensor, dtype DataType) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
