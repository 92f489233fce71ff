package binfmt

// Decompressor expands a compressed buffer into its decompressed
// form. It is the Yaz0 injection point: this module never bundles a
// Yaz0 implementation (a bespoke LZ77 variant, not deflate/LZ4/zstd),
// so callers that need to transparently accept Yaz0-compressed BYML
// or SARC input supply their own.
type Decompressor func([]byte) ([]byte, error)

const yaz0Magic = "Yaz0"

// MaybeDecompress returns buf unchanged unless it opens with the Yaz0
// magic and decompress is non-nil, in which case it returns the
// decompressed result. A Yaz0 buffer with no decompressor supplied is
// passed through as-is and will fail downstream format detection.
func MaybeDecompress(buf []byte, decompress Decompressor) ([]byte, error) {
	if decompress == nil || len(buf) < 4 || string(buf[:4]) != yaz0Magic {
		return buf, nil
	}
	out, err := decompress(buf)
	if err != nil {
		return nil, &Error{Kind: External, Message: "yaz0 decompression failed", Cause: err}
	}
	return out, nil
}
