package binfmt

import "math"

// CheckMultiplyOverflow reports whether a*b would overflow uint64.
func CheckMultiplyOverflow(a, b uint64) error {
	if a == 0 || b == 0 {
		return nil
	}
	if a > math.MaxUint64/b {
		return New(InvalidData, "multiplication overflow: %d * %d exceeds uint64 max", a, b)
	}
	return nil
}

// SafeMultiply multiplies a and b, returning an error instead of
// wrapping on overflow. The byml and sarc packages do not call it.
func SafeMultiply(a, b uint64) (uint64, error) {
	if err := CheckMultiplyOverflow(a, b); err != nil {
		return 0, err
	}
	return a * b, nil
}

// ValidateBufferSize checks that size does not exceed maxSize. The byml
// reader uses it on Binary/File node sizes before slicing the payload,
// and the byml writer on blob lengths before encoding them. A size of
// zero is permitted: empty binary/file blobs are valid.
func ValidateBufferSize(size, maxSize uint64, description string) error {
	if size > maxSize {
		return New(InvalidData, "%s: size %d exceeds maximum %d", description, size, maxSize)
	}
	return nil
}

// Size limits for untrusted count or length fields. Only
// MaxScalarPayload is checked by the byml and sarc packages.
const (
	// MaxContainerEntries is a limit for the entry count of a single
	// BYML Array/Map/HashMap/ValueHashMap container; the byml reader
	// does not check counts against it.
	MaxContainerEntries = 16 * 1024 * 1024

	// MaxScalarPayload bounds a single Binary/File payload.
	MaxScalarPayload = 256 * 1024 * 1024

	// MaxSARCFiles is the exclusive limit of the num_files field of a
	// SARC SFAT header; the sarc reader checks the same limit by
	// masking the field's high bits rather than through this constant.
	MaxSARCFiles = 1 << 14 // high 2 bits of the 16-bit field must be zero
)
