package serialization

import "crypto/sha256"

// checksum computes the SHA-256 digest of the payload section.
func checksum(payload []byte) [ChecksumSize]byte {
	return sha256.Sum256(payload)
}

// validateChecksum compares a computed digest against the stored one.
func validateChecksum(computed, stored [ChecksumSize]byte) error {
	if computed != stored {
		return ErrChecksumMismatch
	}
	return nil
}
