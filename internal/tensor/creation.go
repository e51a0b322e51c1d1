package tensor

import (
	"math"
	"math/rand"

	"golang.org/x/exp/constraints"
)

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	var dummy T
	raw, err := NewRaw(shape, inferDataType(dummy), b.Device())
	if err != nil {
		panic(err)
	}
	return New[T, B](raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	var dummy T
	var one any
	switch any(dummy).(type) {
	case float64:
		one = float64(1)
	case float32:
		one = float32(1)
	case bool:
		one = true
	}
	for i := range data {
		data[i] = one.(T)
	}
	return t
}

// Full creates a tensor filled with a specific value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = value
	}
	return t
}

// Randn creates a float tensor with values drawn from N(0, stddev²) using the
// given source. A nil rng falls back to the package-level generator.
// Uses math/rand, which is appropriate for weight initialization.
func Randn[T interface{ ~float32 | ~float64 }, B Backend](shape Shape, stddev float64, rng *rand.Rand, b B) *Tensor[T, B] {
	t := Zeros[T, B](shape, b)
	data := t.Data()
	norm := rand.NormFloat64
	if rng != nil {
		norm = rng.NormFloat64
	}
	for i := range data {
		data[i] = T(norm() * stddev)
	}
	return t
}

// Linspace creates a 1-D tensor with n evenly spaced values in [lo, hi].
func Linspace[T interface{ ~float32 | ~float64 }, B Backend](lo, hi float64, n int, b B) *Tensor[T, B] {
	if n < 2 {
		panic("Linspace: n must be >= 2")
	}
	t := Zeros[T, B](Shape{n}, b)
	data := t.Data()
	step := (hi - lo) / float64(n-1)
	for i := range data {
		data[i] = T(lo + float64(i)*step)
	}
	return t
}

// LinspaceSlice returns n evenly spaced values in [lo, hi] as a plain slice.
// Shared by grid construction and plotting, which work outside the tape.
func LinspaceSlice[T constraints.Float](lo, hi T, n int) []T {
	if n < 2 {
		panic("LinspaceSlice: n must be >= 2")
	}
	out := make([]T, n)
	step := (hi - lo) / T(n-1)
	for i := range out {
		out[i] = lo + T(i)*step
	}
	return out
}

// AllClose reports whether two float slices agree within tolerance.
func AllClose[T constraints.Float](a, b []T, tol T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if T(math.Abs(float64(a[i]-b[i]))) > tol {
			return false
		}
	}
	return true
}
