package serialization

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/kan-ml/kan/internal/tensor"
)

const libraryVersion = "kan/0.1.0"

// Options configures how a .kan file is written.
type Options struct {
	// Meta is an opaque caller document stored in the descriptor.
	Meta json.RawMessage
	// HalfPrecision stores float64 tensors as float16 payload. Halves the
	// file at the cost of exactness; leave off for resumable checkpoints.
	HalfPrecision bool
}

// Save writes the entries to path as a .kan file.
func Save(path string, entries []Entry, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "serialization: creating file")
	}
	if err := Write(f, entries, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write emits the .kan container to w. Entry order is preserved, so callers
// that sort their entries get byte-identical files for identical states.
func Write(w io.Writer, entries []Entry, opts Options) error {
	desc := Descriptor{
		FormatVersion: FormatVersion,
		Library:       libraryVersion,
		CreatedAt:     time.Now().UTC(),
		Meta:          opts.Meta,
		Tensors:       make([]TensorMeta, 0, len(entries)),
	}

	var payload []byte
	for _, e := range entries {
		data, dtype := payloadBytes(e.Raw, opts.HalfPrecision)
		desc.Tensors = append(desc.Tensors, TensorMeta{
			Name:   e.Name,
			DType:  dtypeToString(dtype),
			Shape:  []int(e.Raw.Shape()),
			Offset: int64(len(payload)),
			Size:   int64(len(data)),
		})
		payload = append(payload, data...)
	}
	sum := checksum(payload)

	descJSON, err := json.Marshal(desc)
	if err != nil {
		return errors.Wrap(err, "serialization: marshaling descriptor")
	}
	if len(descJSON) > MaxDescriptorSize {
		return ErrDescriptorTooLarge
	}

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], Magic)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	var flags uint32
	if opts.HalfPrecision {
		flags |= FlagHalfPrecision
	}
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(descJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(payload)))
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], sum[:])

	if _, err := w.Write(fixed); err != nil {
		return errors.Wrap(err, "serialization: writing fixed header")
	}
	if _, err := w.Write(descJSON); err != nil {
		return errors.Wrap(err, "serialization: writing descriptor")
	}
	pos := int64(FixedHeaderSize) + int64(len(descJSON))
	if pad := (PayloadAlignment - pos%PayloadAlignment) % PayloadAlignment; pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return errors.Wrap(err, "serialization: writing padding")
		}
	}
	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(err, "serialization: writing payload")
	}
	return nil
}

// payloadBytes returns the stored bytes and stored dtype for one tensor.
func payloadBytes(raw *tensor.RawTensor, half bool) ([]byte, tensor.DataType) {
	if !half || raw.DType() != tensor.Float64 {
		return raw.Data(), raw.DType()
	}
	src := raw.AsFloat64()
	out := make([]byte, len(src)*2)
	for i, v := range src {
		h := float16.Fromfloat32(downcast(v))
		binary.LittleEndian.PutUint16(out[i*2:], h.Bits())
	}
	return out, tensor.Float16
}

// downcast clamps float64 into float32 range before the float16 conversion,
// so overflow becomes ±Inf deterministically.
func downcast(v float64) float32 {
	if v > math.MaxFloat32 {
		return float32(math.Inf(1))
	}
	if v < -math.MaxFloat32 {
		return float32(math.Inf(-1))
	}
	return float32(v)
}
