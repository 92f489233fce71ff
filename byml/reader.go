package byml

import (
	"math"
	"sort"

	"github.com/scigolib/nindata/internal/binfmt"
)

// NodeRef is the lightweight (tag, payload) pair a container iterator
// hands to the caller or to a sub-reader. For inline scalars payload
// is the literal 4-byte bit pattern; for String it is an index into
// the string-value table; for every out-of-line kind (I64/U64/Double/
// Binary/File and all four containers) it is an absolute offset into
// the document buffer. No allocation is needed to pass one around.
type NodeRef struct {
	tag     NodeType
	payload uint32
}

// Tag returns the node's type code, letting a caller dispatch to the
// matching Getter without inspecting unexported fields.
func (n NodeRef) Tag() NodeType { return n.tag }

// Reader is a zero-copy view over a borrowed BYML document buffer.
// Returned byte slices (GetBinary, GetFile) alias the backing buffer;
// returned strings (Map keys and String values) are copied out of it.
type Reader struct {
	buf []byte
	hdr header
}

// NewReader parses the 16-byte document header and returns a Reader
// borrowing buf for its entire lifetime.
func NewReader(buf []byte) (*Reader, error) {
	hdr, err := parseHeader(buf)
	if err != nil {
		return nil, err
	}
	return &Reader{buf: buf, hdr: hdr}, nil
}

// Endian returns the document's detected byte order.
func (r *Reader) Endian() binfmt.Endian { return r.hdr.endian }

// Version returns the document's declared version.
func (r *Reader) Version() uint16 { return r.hdr.version }

func (r *Reader) order() binfmt.Endian { return r.hdr.endian }

// Root returns the root node as a NodeRef, or ok=false if the
// document has no root section.
func (r *Reader) Root() (NodeRef, bool, error) {
	if r.hdr.rootNodeOff == 0 {
		return NodeRef{}, false, nil
	}
	off := r.hdr.rootNodeOff
	if int(off) >= len(r.buf) {
		return NodeRef{}, false, binfmt.New(binfmt.InvalidData, "root node offset %d out of range", off)
	}
	tag := NodeType(r.buf[off])
	if !IsContainerType(tag) {
		return NodeRef{}, false, binfmt.New(binfmt.InvalidData, "root node tag 0x%02X is not a container", tag)
	}
	return NodeRef{tag: tag, payload: off}, true, nil
}

// IsContainer reports whether the document has a root and it is one
// of the four container kinds.
func (r *Reader) IsContainer() bool {
	ref, ok, err := r.Root()
	return ok && err == nil && IsContainerType(ref.tag)
}

// IsArray reports whether the root is an Array.
func (r *Reader) IsArray() bool { return r.rootIs(TagArray) }

// IsMap reports whether the root is a Map.
func (r *Reader) IsMap() bool { return r.rootIs(TagMap) }

// IsHashMap reports whether the root is a HashMap.
func (r *Reader) IsHashMap() bool { return r.rootIs(TagHashMap) }

// IsValueHashMap reports whether the root is a ValueHashMap.
func (r *Reader) IsValueHashMap() bool { return r.rootIs(TagValueHashMap) }

func (r *Reader) rootIs(tag NodeType) bool {
	ref, ok, err := r.Root()
	return ok && err == nil && ref.tag == tag
}

func (r *Reader) keyTable() (stringTable, error) {
	if r.hdr.keyTableOff == 0 {
		return stringTable{}, binfmt.New(binfmt.InvalidData, "document has no hash-key table")
	}
	return newStringTable(r.buf, r.hdr.endian, r.hdr.keyTableOff)
}

func (r *Reader) valueStringTable() (stringTable, error) {
	if r.hdr.stringTabOff == 0 {
		return stringTable{}, binfmt.New(binfmt.InvalidData, "document has no string-value table")
	}
	return newStringTable(r.buf, r.hdr.endian, r.hdr.stringTabOff)
}

// containerHeader reads the (tag, count) pair at the start of a
// container node.
func (r *Reader) containerHeader(off uint32) (NodeType, uint32, error) {
	if int(off)+4 > len(r.buf) {
		return 0, 0, binfmt.New(binfmt.InsufficientData, "container header out of range at %d", off)
	}
	tag := NodeType(r.buf[off])
	count, err := binfmt.ReadU24(r.buf[off+1:], r.hdr.endian)
	if err != nil {
		return 0, 0, err
	}
	return tag, count, nil
}

// --- Array ---

// ArrayLen returns the element count of the container at ref, which
// must be an Array.
func (r *Reader) ArrayLen(ref NodeRef) (int, error) {
	tag, count, err := r.containerHeader(ref.payload)
	if err != nil {
		return 0, err
	}
	if tag != TagArray {
		return 0, binfmt.New(binfmt.TypeError, "expected Array, found %s", tag)
	}
	return int(count), nil
}

// ArrayGet returns the i-th element's node reference.
func (r *Reader) ArrayGet(ref NodeRef, i int) (NodeRef, error) {
	tag, count, err := r.containerHeader(ref.payload)
	if err != nil {
		return NodeRef{}, err
	}
	if tag != TagArray {
		return NodeRef{}, binfmt.New(binfmt.TypeError, "expected Array, found %s", tag)
	}
	if i < 0 || uint32(i) >= count {
		return NodeRef{}, binfmt.New(binfmt.InvalidData, "array index %d out of range [0,%d)", i, count)
	}
	base := ref.payload + 4
	tagsEnd := base + count
	valuesBase := uint32(binfmt.AlignUp(uint64(tagsEnd), 4))

	tagOff := int(base) + i
	if tagOff >= len(r.buf) {
		return NodeRef{}, binfmt.New(binfmt.InsufficientData, "array tag out of range")
	}
	elemTag := NodeType(r.buf[tagOff])

	valOff := int(valuesBase) + i*4
	if valOff+4 > len(r.buf) {
		return NodeRef{}, binfmt.New(binfmt.InsufficientData, "array value out of range")
	}
	payload := r.order().Order().Uint32(r.buf[valOff : valOff+4])
	return NodeRef{tag: elemTag, payload: payload}, nil
}

// --- Map ---

// mapRecord is a decoded (key_index, tag, value) Map entry.
type mapRecord struct {
	keyIndex uint32
	tag      NodeType
	value    uint32
}

func (r *Reader) mapRecordAt(base uint32, i int) (mapRecord, error) {
	off := int(base) + i*8
	if off+8 > len(r.buf) {
		return mapRecord{}, binfmt.New(binfmt.InsufficientData, "map record out of range")
	}
	keyIdx, err := binfmt.ReadU24(r.buf[off:], r.hdr.endian)
	if err != nil {
		return mapRecord{}, err
	}
	tag := NodeType(r.buf[off+3])
	value := r.order().Order().Uint32(r.buf[off+4 : off+8])
	return mapRecord{keyIndex: keyIdx, tag: tag, value: value}, nil
}

// MapLen returns the entry count of the Map at ref.
func (r *Reader) MapLen(ref NodeRef) (int, error) {
	tag, count, err := r.containerHeader(ref.payload)
	if err != nil {
		return 0, err
	}
	if tag != TagMap {
		return 0, binfmt.New(binfmt.TypeError, "expected Map, found %s", tag)
	}
	return int(count), nil
}

// MapEntryAt returns the key and node reference of the i-th Map entry
// in on-disk (key-index-sorted) order.
func (r *Reader) MapEntryAt(ref NodeRef, i int) (string, NodeRef, error) {
	tag, count, err := r.containerHeader(ref.payload)
	if err != nil {
		return "", NodeRef{}, err
	}
	if tag != TagMap {
		return "", NodeRef{}, binfmt.New(binfmt.TypeError, "expected Map, found %s", tag)
	}
	if i < 0 || uint32(i) >= count {
		return "", NodeRef{}, binfmt.New(binfmt.InvalidData, "map index %d out of range [0,%d)", i, count)
	}
	rec, err := r.mapRecordAt(ref.payload+4, i)
	if err != nil {
		return "", NodeRef{}, err
	}
	kt, err := r.keyTable()
	if err != nil {
		return "", NodeRef{}, err
	}
	key, err := kt.Get(int(rec.keyIndex))
	if err != nil {
		return "", NodeRef{}, err
	}
	return key, NodeRef{tag: rec.tag, payload: rec.value}, nil
}

// MapGet resolves key to its key-index via the hash-key table, then
// binary-searches the Map's entries by key-index.
func (r *Reader) MapGet(ref NodeRef, key string) (NodeRef, bool, error) {
	tag, count, err := r.containerHeader(ref.payload)
	if err != nil {
		return NodeRef{}, false, err
	}
	if tag != TagMap {
		return NodeRef{}, false, binfmt.New(binfmt.TypeError, "expected Map, found %s", tag)
	}
	kt, err := r.keyTable()
	if err != nil {
		return NodeRef{}, false, err
	}
	keyIdx, found := kt.Position(key)
	if !found {
		return NodeRef{}, false, nil
	}
	base := ref.payload + 4
	n := int(count)
	var searchErr error
	i := sort.Search(n, func(i int) bool {
		rec, err := r.mapRecordAt(base, i)
		if err != nil {
			searchErr = err
			return true
		}
		return rec.keyIndex >= uint32(keyIdx)
	})
	if searchErr != nil {
		return NodeRef{}, false, searchErr
	}
	if i >= n {
		return NodeRef{}, false, nil
	}
	rec, err := r.mapRecordAt(base, i)
	if err != nil {
		return NodeRef{}, false, err
	}
	if rec.keyIndex != uint32(keyIdx) {
		return NodeRef{}, false, nil
	}
	return NodeRef{tag: rec.tag, payload: rec.value}, true, nil
}

// --- HashMap / ValueHashMap ---

func (r *Reader) hashMapRecord(base uint32, recWidth, i int) (hash, value uint32, aux uint32, err error) {
	off := int(base) + i*recWidth
	if off+8 > len(r.buf) {
		return 0, 0, 0, binfmt.New(binfmt.InsufficientData, "hashmap record out of range")
	}
	order := r.order().Order()
	hash = order.Uint32(r.buf[off : off+4])
	value = order.Uint32(r.buf[off+4 : off+8])
	if recWidth == 12 {
		if off+12 > len(r.buf) {
			return 0, 0, 0, binfmt.New(binfmt.InsufficientData, "value-hashmap record out of range")
		}
		aux = order.Uint32(r.buf[off+8 : off+12])
	}
	return hash, value, aux, nil
}

func (r *Reader) hashMapTagAt(recordsBase uint32, count, recWidth, i int) (NodeType, error) {
	tagsBase := int(recordsBase) + count*recWidth
	off := tagsBase + i
	if off >= len(r.buf) {
		return 0, binfmt.New(binfmt.InsufficientData, "hashmap tag out of range")
	}
	return NodeType(r.buf[off]), nil
}

// HashMapLen returns the entry count of the HashMap at ref.
func (r *Reader) HashMapLen(ref NodeRef) (int, error) {
	return r.hashLikeLen(ref, TagHashMap)
}

// ValueHashMapLen returns the entry count of the ValueHashMap at ref.
func (r *Reader) ValueHashMapLen(ref NodeRef) (int, error) {
	return r.hashLikeLen(ref, TagValueHashMap)
}

func (r *Reader) hashLikeLen(ref NodeRef, want NodeType) (int, error) {
	tag, count, err := r.containerHeader(ref.payload)
	if err != nil {
		return 0, err
	}
	if tag != want {
		return 0, binfmt.New(binfmt.TypeError, "expected %s, found %s", want, tag)
	}
	return int(count), nil
}

// HashMapEntryAt returns the hash and node reference of the i-th
// on-disk (hash-sorted) HashMap entry.
func (r *Reader) HashMapEntryAt(ref NodeRef, i int) (uint32, NodeRef, error) {
	count, err := r.hashLikeLen(ref, TagHashMap)
	if err != nil {
		return 0, NodeRef{}, err
	}
	if i < 0 || i >= count {
		return 0, NodeRef{}, binfmt.New(binfmt.InvalidData, "hashmap index %d out of range", i)
	}
	base := ref.payload + 4
	hash, value, _, err := r.hashMapRecord(base, 8, i)
	if err != nil {
		return 0, NodeRef{}, err
	}
	elemTag, err := r.hashMapTagAt(base, count, 8, i)
	if err != nil {
		return 0, NodeRef{}, err
	}
	return hash, NodeRef{tag: elemTag, payload: value}, nil
}

// ValueHashMapEntryAt returns the hash, node reference, and auxiliary
// word of the i-th on-disk ValueHashMap entry.
func (r *Reader) ValueHashMapEntryAt(ref NodeRef, i int) (uint32, NodeRef, uint32, error) {
	count, err := r.hashLikeLen(ref, TagValueHashMap)
	if err != nil {
		return 0, NodeRef{}, 0, err
	}
	if i < 0 || i >= count {
		return 0, NodeRef{}, 0, binfmt.New(binfmt.InvalidData, "value-hashmap index %d out of range", i)
	}
	base := ref.payload + 4
	hash, value, aux, err := r.hashMapRecord(base, 12, i)
	if err != nil {
		return 0, NodeRef{}, 0, err
	}
	elemTag, err := r.hashMapTagAt(base, count, 12, i)
	if err != nil {
		return 0, NodeRef{}, 0, err
	}
	return hash, NodeRef{tag: elemTag, payload: value}, aux, nil
}

// HashMapGet binary-searches the HashMap at ref for hash.
func (r *Reader) HashMapGet(ref NodeRef, hash uint32) (NodeRef, bool, error) {
	count, err := r.hashLikeLen(ref, TagHashMap)
	if err != nil {
		return NodeRef{}, false, err
	}
	base := ref.payload + 4
	i, found, err := r.searchByHash(base, 8, count, hash)
	if err != nil || !found {
		return NodeRef{}, found, err
	}
	_, value, _, err := r.hashMapRecord(base, 8, i)
	if err != nil {
		return NodeRef{}, false, err
	}
	elemTag, err := r.hashMapTagAt(base, count, 8, i)
	if err != nil {
		return NodeRef{}, false, err
	}
	return NodeRef{tag: elemTag, payload: value}, true, nil
}

// ValueHashMapGet binary-searches the ValueHashMap at ref for hash.
func (r *Reader) ValueHashMapGet(ref NodeRef, hash uint32) (NodeRef, uint32, bool, error) {
	count, err := r.hashLikeLen(ref, TagValueHashMap)
	if err != nil {
		return NodeRef{}, 0, false, err
	}
	base := ref.payload + 4
	i, found, err := r.searchByHash(base, 12, count, hash)
	if err != nil || !found {
		return NodeRef{}, 0, found, err
	}
	_, value, aux, err := r.hashMapRecord(base, 12, i)
	if err != nil {
		return NodeRef{}, 0, false, err
	}
	elemTag, err := r.hashMapTagAt(base, count, 12, i)
	if err != nil {
		return NodeRef{}, 0, false, err
	}
	return NodeRef{tag: elemTag, payload: value}, aux, true, nil
}

func (r *Reader) searchByHash(base uint32, recWidth, count int, hash uint32) (int, bool, error) {
	var searchErr error
	i := sort.Search(count, func(i int) bool {
		h, _, _, err := r.hashMapRecord(base, recWidth, i)
		if err != nil {
			searchErr = err
			return true
		}
		return h >= hash
	})
	if searchErr != nil {
		return 0, false, searchErr
	}
	if i >= count {
		return 0, false, nil
	}
	h, _, _, err := r.hashMapRecord(base, recWidth, i)
	if err != nil {
		return 0, false, err
	}
	return i, h == hash, nil
}

// --- scalar readers ---

// GetI64 dereferences an out-of-line I64 node.
func (r *Reader) GetI64(ref NodeRef) (int64, error) {
	b, err := r.sliceAt(ref.payload, 8)
	if err != nil {
		return 0, err
	}
	return int64(r.order().Order().Uint64(b)), nil
}

// GetU64 dereferences an out-of-line U64 node.
func (r *Reader) GetU64(ref NodeRef) (uint64, error) {
	b, err := r.sliceAt(ref.payload, 8)
	if err != nil {
		return 0, err
	}
	return r.order().Order().Uint64(b), nil
}

// GetDouble dereferences an out-of-line Double node.
func (r *Reader) GetDouble(ref NodeRef) (float64, error) {
	b, err := r.sliceAt(ref.payload, 8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(r.order().Order().Uint64(b)), nil
}

// GetString resolves a String node's payload (an index, not an
// offset) against the string-value table.
func (r *Reader) GetString(ref NodeRef) (string, error) {
	st, err := r.valueStringTable()
	if err != nil {
		return "", err
	}
	return st.Get(int(ref.payload))
}

// GetBinary reads a Binary node: a u32 size at offset 0 followed
// immediately by that many bytes.
func (r *Reader) GetBinary(ref NodeRef) ([]byte, error) {
	sizeBuf, err := r.sliceAt(ref.payload, 4)
	if err != nil {
		return nil, err
	}
	size := r.order().Order().Uint32(sizeBuf)
	if err := binfmt.ValidateBufferSize(uint64(size), binfmt.MaxScalarPayload, "binary node"); err != nil {
		return nil, err
	}
	return r.sliceAt(ref.payload+4, int(size))
}

// GetFile reads a File node: a u32 size at offset 0, then that many
// bytes starting at offset 8 (distinct from Binary's offset-4 start).
func (r *Reader) GetFile(ref NodeRef) ([]byte, error) {
	sizeBuf, err := r.sliceAt(ref.payload, 4)
	if err != nil {
		return nil, err
	}
	size := r.order().Order().Uint32(sizeBuf)
	if err := binfmt.ValidateBufferSize(uint64(size), binfmt.MaxScalarPayload, "file node"); err != nil {
		return nil, err
	}
	return r.sliceAt(ref.payload+8, int(size))
}

// GetInlineBool decodes an inline Bool node's bit pattern.
func GetInlineBool(ref NodeRef) bool { return ref.payload != 0 }

// GetInlineI32 decodes an inline I32 node's bit pattern.
func GetInlineI32(ref NodeRef) int32 { return int32(ref.payload) }

// GetInlineFloat decodes an inline Float node's bit pattern.
func GetInlineFloat(ref NodeRef) float32 { return math.Float32frombits(ref.payload) }

// GetInlineU32 decodes an inline U32 node's bit pattern.
func GetInlineU32(ref NodeRef) uint32 { return ref.payload }

func (r *Reader) sliceAt(off uint32, n int) ([]byte, error) {
	start := int(off)
	if start < 0 || start+n > len(r.buf) {
		return nil, binfmt.New(binfmt.InsufficientData, "need %d bytes at offset %d, buffer is %d bytes", n, off, len(r.buf))
	}
	return r.buf[start : start+n], nil
}
