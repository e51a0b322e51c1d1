package autodiff

import (
	"fmt"

	"github.com/kan-ml/kan/internal/tensor"
)

// TapeBackend is satisfied by any backend that carries a gradient tape.
type TapeBackend interface {
	tensor.Backend
	GetTape() *GradientTape
}

// Backward computes gradients of a scalar tensor with respect to every tensor
// on the tape, seeding the output gradient with ones. The tape is left intact;
// call Tape().Clear() between training steps.
func Backward[T tensor.DType, B TapeBackend](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("backward requires a scalar output, got shape %v", t.Shape()))
	}
	seed := tensor.MustNewRaw(t.Shape(), t.DType(), backend.Device())
	switch t.DType() {
	case tensor.Float64:
		seed.AsFloat64()[0] = 1
	case tensor.Float32:
		seed.AsFloat32()[0] = 1
	default:
		panic(fmt.Sprintf("backward: unsupported dtype %s", t.DType()))
	}
	return backend.GetTape().Backward(t.Raw(), seed, backend)
}
