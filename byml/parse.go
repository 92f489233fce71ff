package byml

import "github.com/scigolib/nindata/internal/binfmt"

// Parse decodes buf as a BYML document, transparently decompressing a
// Yaz0-compressed input if decompress is non-nil. Callers that do not
// need Yaz0 support can pass nil and get exactly NewReader's behavior.
func Parse(buf []byte, decompress binfmt.Decompressor) (*Reader, error) {
	plain, err := binfmt.MaybeDecompress(buf, decompress)
	if err != nil {
		return nil, err
	}
	return NewReader(plain)
}
