// Package serialization implements the .kan checkpoint container: a fixed
// binary header, a JSON descriptor, and a raw tensor payload protected by a
// SHA-256 checksum.
//
// The container is model-agnostic. The descriptor carries an opaque Meta
// document owned by the caller (the kan package stores its architecture,
// grids and symbolic state there) plus per-tensor layout records for the
// payload section.
package serialization

import (
	"encoding/json"
	"time"

	"github.com/kan-ml/kan/internal/tensor"
)

// Layout constants of the .kan container.
const (
	Magic         = "KANF"
	FormatVersion = 1
	// FixedHeaderSize is the byte length of the fixed header:
	// magic(4) version(4) flags(4) reserved(4) headerSize(8) dataSize(8)
	// checksum(32).
	FixedHeaderSize = 64
	ChecksumOffset  = 0x20
	ChecksumSize    = 32
	// PayloadAlignment aligns the tensor payload after the JSON descriptor.
	PayloadAlignment = 64
	// MaxDescriptorSize bounds the JSON descriptor so a corrupted size field
	// cannot drive a huge allocation.
	MaxDescriptorSize = 64 << 20
)

// Payload flags.
const (
	// FlagHalfPrecision marks float64 tensors stored as float16 payload.
	// Loading widens them back; the round-trip is lossy.
	FlagHalfPrecision uint32 = 1 << 0
)

// Descriptor is the JSON document between the fixed header and the payload.
type Descriptor struct {
	FormatVersion int             `json:"format_version"`
	Library       string          `json:"library"`
	CreatedAt     time.Time       `json:"created_at"`
	Meta          json.RawMessage `json:"meta,omitempty"`
	Tensors       []TensorMeta    `json:"tensors"`
}

// TensorMeta locates one tensor inside the payload section.
type TensorMeta struct {
	Name   string `json:"name"`
	DType  string `json:"dtype"`
	Shape  []int  `json:"shape"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
}

// Entry is one named tensor to store.
type Entry struct {
	Name string
	Raw  *tensor.RawTensor
}

func dtypeToString(dt tensor.DataType) string { return dt.String() }

func stringToDtype(s string) (tensor.DataType, bool) {
	return tensor.ParseDataType(s)
}
