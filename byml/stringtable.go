package byml

import (
	"bytes"
	"sort"
	"unicode/utf8"

	"github.com/scigolib/nindata/internal/binfmt"
)

// stringTable is an in-place view of a BYML string-table node (tag
// 0xC2): a 3-byte count followed by that many 4-byte offsets, each
// pointing at a NUL-terminated UTF-8 string stored later in the same
// node, in strictly ascending lexicographic order.
type stringTable struct {
	buf    []byte
	order  binfmt.Endian
	count  uint32
	tblOff uint32 // absolute offset of this table within buf
}

func newStringTable(buf []byte, order binfmt.Endian, off uint32) (stringTable, error) {
	if int(off)+4 > len(buf) {
		return stringTable{}, binfmt.New(binfmt.InsufficientData, "string table header out of range")
	}
	if buf[off] != byte(TagStringTable) {
		return stringTable{}, binfmt.New(binfmt.InvalidData, "expected string table tag 0x%02X, found 0x%02X", TagStringTable, buf[off])
	}
	count, err := binfmt.ReadU24(buf[off+1:], order)
	if err != nil {
		return stringTable{}, err
	}
	return stringTable{buf: buf, order: order, count: count, tblOff: off}, nil
}

// Len returns the number of strings in the table.
func (s stringTable) Len() int { return int(s.count) }

// Get returns the i-th string, bounds-checked and UTF-8-validated.
func (s stringTable) Get(i int) (string, error) {
	if i < 0 || uint32(i) >= s.count {
		return "", binfmt.New(binfmt.InvalidData, "string table index %d out of range [0,%d)", i, s.count)
	}
	entryOff := int(s.tblOff) + 4 + i*4
	if entryOff+4 > len(s.buf) {
		return "", binfmt.New(binfmt.InsufficientData, "string table offset entry out of range")
	}
	rel := s.order.Order().Uint32(s.buf[entryOff : entryOff+4])
	start := int(s.tblOff) + int(rel)
	if start < 0 || start > len(s.buf) {
		return "", binfmt.New(binfmt.InvalidData, "string table entry %d points out of range", i)
	}
	end := bytes.IndexByte(s.buf[start:], 0)
	if end < 0 {
		return "", binfmt.New(binfmt.InvalidData, "string table entry %d is not NUL-terminated", i)
	}
	raw := s.buf[start : start+end]
	if !utf8.Valid(raw) {
		return "", binfmt.New(binfmt.InvalidUTF8, "string table entry %d is not valid utf8", i)
	}
	return string(raw), nil
}

// Position performs a binary search for key over the table's
// lexicographically sorted entries, relying on the document-level
// sortedness invariant rather than re-verifying it.
func (s stringTable) Position(key string) (int, bool) {
	n := s.Len()
	i := sort.Search(n, func(i int) bool {
		v, err := s.Get(i)
		if err != nil {
			return true
		}
		return v >= key
	})
	if i < n {
		if v, err := s.Get(i); err == nil && v == key {
			return i, true
		}
	}
	return 0, false
}

// encodeStringTable builds a string-table node from a sorted, unique,
// deduplicated list of strings.
func encodeStringTable(strs []string, endian binfmt.Endian) ([]byte, error) {
	order := endian.Order()
	count := len(strs)

	headerLen := 4 + count*4
	var payload []byte
	offsets := make([]uint32, count)
	cursor := headerLen
	for i, s := range strs {
		offsets[i] = uint32(cursor)
		payload = append(payload, s...)
		payload = append(payload, 0)
		cursor += len(s) + 1
	}
	// Strings are NUL-terminated; pad the whole node to 4-byte
	// alignment so it can be safely followed by another aligned node.
	total := cursor
	padded := int(binfmt.AlignUp(uint64(total), 4))

	buf := make([]byte, padded)
	buf[0] = byte(TagStringTable)
	if err := binfmt.PutU24(buf[1:4], uint32(count), endian); err != nil {
		return nil, err
	}
	for i, off := range offsets {
		order.PutUint32(buf[4+i*4:8+i*4], off)
	}
	copy(buf[headerLen:], payload)
	return buf, nil
}
