package serialization

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/x448/float16"

	"github.com/kan-ml/kan/internal/tensor"
)

// File is a fully loaded .kan container.
type File struct {
	Descriptor Descriptor
	tensors    map[string]*tensor.RawTensor
}

// Meta returns the caller's opaque metadata document.
func (f *File) Meta() json.RawMessage { return f.Descriptor.Meta }

// Tensor returns the named tensor or ErrTensorNotFound.
func (f *File) Tensor(name string) (*tensor.RawTensor, error) {
	t, ok := f.tensors[name]
	if !ok {
		return nil, errors.Wrap(ErrTensorNotFound, name)
	}
	return t, nil
}

// Names returns the stored tensor names in payload order.
func (f *File) Names() []string {
	names := make([]string, len(f.Descriptor.Tensors))
	for i, tm := range f.Descriptor.Tensors {
		names[i] = tm.Name
	}
	return names
}

// Open reads and validates a .kan file.
func Open(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "serialization: opening file")
	}
	defer fh.Close()
	return Read(fh)
}

// Read parses the .kan container from r, verifying magic, version, layout and
// the payload checksum. Float16 payloads are widened back to float64.
func Read(r io.Reader) (*File, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, errors.Wrap(err, "serialization: reading fixed header")
	}
	if string(fixed[0:4]) != Magic {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(fixed[4:8]); v != FormatVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", v)
	}
	descSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	if descSize > MaxDescriptorSize {
		return nil, ErrDescriptorTooLarge
	}
	var stored [ChecksumSize]byte
	copy(stored[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	descJSON := make([]byte, descSize)
	if _, err := io.ReadFull(r, descJSON); err != nil {
		return nil, errors.Wrap(err, "serialization: reading descriptor")
	}
	var desc Descriptor
	if err := json.Unmarshal(descJSON, &desc); err != nil {
		return nil, errors.Wrap(err, "serialization: decoding descriptor")
	}

	pos := int64(FixedHeaderSize) + int64(descSize)
	if pad := (PayloadAlignment - pos%PayloadAlignment) % PayloadAlignment; pad > 0 {
		if _, err := io.CopyN(io.Discard, r, pad); err != nil {
			return nil, errors.Wrap(err, "serialization: skipping padding")
		}
	}
	payload := make([]byte, dataSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, errors.Wrap(err, "serialization: reading payload")
	}
	if err := validateChecksum(checksum(payload), stored); err != nil {
		return nil, err
	}

	file := &File{Descriptor: desc, tensors: make(map[string]*tensor.RawTensor, len(desc.Tensors))}
	for _, tm := range desc.Tensors {
		raw, err := decodeTensor(tm, payload)
		if err != nil {
			return nil, err
		}
		file.tensors[tm.Name] = raw
	}
	return file, nil
}

func decodeTensor(tm TensorMeta, payload []byte) (*tensor.RawTensor, error) {
	dtype, ok := stringToDtype(tm.DType)
	if !ok {
		return nil, errors.Wrapf(ErrLayoutInvalid, "tensor %q: unknown dtype %q", tm.Name, tm.DType)
	}
	shape := tensor.Shape(tm.Shape)
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrapf(ErrLayoutInvalid, "tensor %q: %v", tm.Name, err)
	}
	want := int64(shape.NumElements() * dtype.Size())
	if tm.Size != want {
		return nil, errors.Wrapf(ErrLayoutInvalid, "tensor %q: size %d does not match shape %v (%s)", tm.Name, tm.Size, tm.Shape, tm.DType)
	}
	if tm.Offset < 0 || tm.Offset+tm.Size > int64(len(payload)) {
		return nil, errors.Wrapf(ErrLayoutInvalid, "tensor %q: extends beyond payload", tm.Name)
	}
	data := payload[tm.Offset : tm.Offset+tm.Size]

	if dtype == tensor.Float16 {
		raw := tensor.MustNewRaw(shape, tensor.Float64, tensor.CPU)
		dst := raw.AsFloat64()
		for i := range dst {
			bits := binary.LittleEndian.Uint16(data[i*2:])
			dst[i] = float64(float16.Frombits(bits).Float32())
		}
		return raw, nil
	}
	raw := tensor.MustNewRaw(shape, dtype, tensor.CPU)
	copy(raw.Data(), data)
	return raw, nil
}
