package serialization

import "errors"

// Sentinel errors returned by the reader.
var (
	ErrInvalidMagic       = errors.New("serialization: invalid magic bytes")
	ErrUnsupportedVersion = errors.New("serialization: unsupported format version")
	ErrChecksumMismatch   = errors.New("serialization: payload checksum mismatch, file may be corrupted")
	ErrDescriptorTooLarge = errors.New("serialization: descriptor exceeds maximum size")
	ErrTensorNotFound     = errors.New("serialization: tensor not found")
	ErrLayoutInvalid      = errors.New("serialization: tensor layout is inconsistent")
)
