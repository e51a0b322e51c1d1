// Package tensor provides the core tensor types and operations for the KAN library.
package tensor

// DType is a constraint for supported tensor element types.
//
// Spline coefficients, grids and symbolic affine parameters are all float64:
// grid refits and symbolic fits chase coefficients of determination near 1 and
// losses near machine epsilon, which float32 cannot represent. Float32 is kept
// for bulk activations, bool for masks. Float16 exists only as a storage dtype
// (see DataType) and has no native Go element type.
type DType interface {
	~float32 | ~float64 | ~bool
}

// DataType is runtime type information for tensors.
type DataType int

// Supported data types.
const (
	Float64 DataType = iota
	Float32
	Float16 // storage only: checkpoint payloads, no arithmetic
	Bool
)

// Size returns the byte size of one element.
func (dt DataType) Size() int {
	switch dt {
	case Float64:
		return 8
	case Float32:
		return 4
	case Float16:
		return 2
	case Bool:
		return 1
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	case Float16:
		return "float16"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// ParseDataType maps a name produced by String back to a DataType.
// Used when decoding checkpoint headers.
func ParseDataType(name string) (DataType, bool) {
	switch name {
	case "float64":
		return Float64, true
	case "float32":
		return Float32, true
	case "float16":
		return Float16, true
	case "bool":
		return Bool, true
	default:
		return 0, false
	}
}

// inferDataType infers the DataType for a generic element type T.
func inferDataType[T DType](dummy T) DataType {
	switch any(dummy).(type) {
	case float64:
		return Float64
	case float32:
		return Float32
	case bool:
		return Bool
	default:
		panic("unsupported type")
	}
}
