package byml

import (
	"bytes"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/scigolib/nindata/internal/binfmt"
)

// Write encodes tree into a contiguous BYML document buffer using the
// given endianness.
//
// Phase 1 walks the tree once to collect the sorted-unique set of Map
// keys (the hash-key table) and String leaves (the string-value
// table). Phase 2 emits the header, both tables, and then the tree
// itself in a single depth-first post-order pass: every child is
// written — and its absolute offset known — before the parent record
// that references it, so no forward-patching of container contents is
// needed. Only the header's three section offsets are patched, at the
// very end.
func Write(tree Value, endian binfmt.Endian) ([]byte, error) {
	if tree == nil {
		tree = Null{}
	}

	keySet := treemap.NewWithStringComparator()
	strSet := treemap.NewWithStringComparator()
	collectInterned(tree, keySet, strSet)

	keys := internedKeys(keySet)
	strs := internedKeys(strSet)

	keyIndex := make(map[string]int, len(keys))
	for i, k := range keys {
		keyIndex[k] = i
	}
	strIndex := make(map[string]int, len(strs))
	for i, s := range strs {
		strIndex[s] = i
	}

	w := &writer{
		endian:   endian,
		keyIndex: keyIndex,
		strIndex: strIndex,
		dedup:    make(map[uint64][]dedupEntry),
	}

	w.body = make([]byte, headerSize)

	var keyTableOff, stringTabOff uint32
	if len(keys) > 0 {
		kt, err := encodeStringTable(keys, endian)
		if err != nil {
			return nil, err
		}
		keyTableOff = uint32(len(w.body))
		w.body = append(w.body, kt...)
	}
	if len(strs) > 0 {
		st, err := encodeStringTable(strs, endian)
		if err != nil {
			return nil, err
		}
		stringTabOff = uint32(len(w.body))
		w.body = append(w.body, st...)
	}

	var rootOff uint32
	if _, isNull := tree.(Null); !isNull {
		if !IsContainerType(tree.Tag()) {
			return nil, binfmt.New(binfmt.InvalidData, "root value must be a container, found %s", tree.Tag())
		}
		_, payload, err := w.emit(tree)
		if err != nil {
			return nil, err
		}
		rootOff = payload
	}

	hdr := header{
		endian:       endian,
		version:      4,
		keyTableOff:  keyTableOff,
		stringTabOff: stringTabOff,
		rootNodeOff:  rootOff,
	}
	copy(w.body[:headerSize], writeHeader(hdr))
	return w.body, nil
}

// writer accumulates the emitted document body and tracks interning
// tables and content-addressed deduplication of sub-payloads.
type writer struct {
	endian   binfmt.Endian
	body     []byte
	keyIndex map[string]int
	strIndex map[string]int
	dedup    map[uint64][]dedupEntry
}

type dedupEntry struct {
	hash   uint64
	bytes  []byte
	offset uint32
}

// appendDeduped appends payload to the body unless an identical
// payload was already emitted, in which case its offset is reused.
// This realizes the "writer may coalesce identical sub-payloads"
// allowance for encoded containers and blobs.
func (w *writer) appendDeduped(payload []byte) uint32 {
	h := xxhash.Sum64(payload)
	for _, e := range w.dedup[h] {
		if bytes.Equal(e.bytes, payload) {
			return e.offset
		}
	}
	off := uint32(len(w.body))
	w.body = append(w.body, payload...)
	// dedup keeps its own copy: payload is frequently a pooled scratch
	// buffer the caller releases right after this call returns.
	stored := append([]byte(nil), payload...)
	w.dedup[h] = append(w.dedup[h], dedupEntry{hash: h, bytes: stored, offset: off})
	return off
}

// appendDedupedU64 encodes a raw 8-byte scalar payload (I64/U64/Double)
// through a pooled scratch buffer and appends it with deduplication.
func (w *writer) appendDedupedU64(v uint64) uint32 {
	buf := binfmt.GetBuffer(8)
	defer binfmt.ReleaseBuffer(buf)
	w.endian.Order().PutUint64(buf, v)
	return w.appendDeduped(buf)
}

func (w *writer) alignBody(a uint64) {
	target := binfmt.AlignUp(uint64(len(w.body)), a)
	for uint64(len(w.body)) < target {
		w.body = append(w.body, 0)
	}
}

// emit writes v (recursing into children first) and returns its tag
// and payload as they should appear in the parent's record.
func (w *writer) emit(v Value) (NodeType, uint32, error) {
	switch val := v.(type) {
	case Null:
		return TagNull, 0, nil
	case Bool:
		if val {
			return TagBool, 1, nil
		}
		return TagBool, 0, nil
	case I32:
		return TagI32, uint32(val), nil
	case Float:
		return TagFloat, float32Bits(float32(val)), nil
	case U32:
		return TagU32, uint32(val), nil
	case I64:
		w.alignBody(4)
		off := w.appendDedupedU64(uint64(val))
		return TagI64, off, nil
	case U64:
		w.alignBody(4)
		off := w.appendDedupedU64(uint64(val))
		return TagU64, off, nil
	case Double:
		w.alignBody(4)
		off := w.appendDedupedU64(doubleBits(float64(val)))
		return TagDouble, off, nil
	case String:
		idx, ok := w.strIndex[string(val)]
		if !ok {
			return 0, 0, binfmt.New(binfmt.InvalidData, "string %q missing from interned table", string(val))
		}
		return TagString, uint32(idx), nil
	case Binary:
		return w.emitBlob(TagBinary, []byte(val), 4)
	case File:
		return w.emitBlob(TagFile, []byte(val), 8)
	case Array:
		return w.emitArray(val)
	case *Map:
		return w.emitMap(val)
	case HashMap:
		return w.emitHashMap(val)
	case ValueHashMap:
		return w.emitValueHashMap(val)
	default:
		return 0, 0, binfmt.New(binfmt.InvalidData, "unsupported value type %T", v)
	}
}

// emitBlob encodes a Binary/File payload: a u32 size followed by the
// bytes, with an extra 4 reserved bytes before the payload for File.
func (w *writer) emitBlob(tag NodeType, data []byte, preamble int) (NodeType, uint32, error) {
	if err := binfmt.ValidateBufferSize(uint64(len(data)), binfmt.MaxScalarPayload, "blob node"); err != nil {
		return 0, 0, err
	}
	buf := binfmt.GetBuffer(preamble + len(data))
	defer binfmt.ReleaseBuffer(buf)
	w.endian.Order().PutUint32(buf[0:4], uint32(len(data)))
	copy(buf[preamble:], data)

	w.alignBody(4)
	off := w.appendDeduped(buf)
	return tag, off, nil
}

func (w *writer) emitArray(arr Array) (NodeType, uint32, error) {
	n := len(arr)
	tags := binfmt.GetBuffer(n)
	defer binfmt.ReleaseBuffer(tags)
	values := binfmt.GetBuffer(n * 4)
	defer binfmt.ReleaseBuffer(values)
	for i, elem := range arr {
		tag, payload, err := w.emit(elem)
		if err != nil {
			return 0, 0, err
		}
		tags[i] = byte(tag)
		w.endian.Order().PutUint32(values[i*4:i*4+4], payload)
	}

	headerLen := 4 + n
	padded := int(binfmt.AlignUp(uint64(headerLen), 4))
	buf := binfmt.GetBuffer(padded + n*4)
	defer binfmt.ReleaseBuffer(buf)
	buf[0] = byte(TagArray)
	if err := binfmt.PutU24(buf[1:4], uint32(n), w.endian); err != nil {
		return 0, 0, err
	}
	copy(buf[4:4+n], tags)
	copy(buf[padded:], values)

	w.alignBody(4)
	off := w.appendDeduped(buf)
	return TagArray, off, nil
}

func (w *writer) emitMap(m *Map) (NodeType, uint32, error) {
	type entry struct {
		keyIndex uint32
		tag      NodeType
		value    uint32
	}
	entries := make([]entry, 0, m.Len())
	var firstErr error
	m.Range(func(key string, v Value) {
		if firstErr != nil {
			return
		}
		idx, ok := w.keyIndex[key]
		if !ok {
			firstErr = binfmt.New(binfmt.InvalidData, "key %q missing from interned table", key)
			return
		}
		tag, payload, err := w.emit(v)
		if err != nil {
			firstErr = err
			return
		}
		entries = append(entries, entry{keyIndex: uint32(idx), tag: tag, value: payload})
	})
	if firstErr != nil {
		return 0, 0, firstErr
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].keyIndex < entries[j].keyIndex })

	n := len(entries)
	buf := binfmt.GetBuffer(4 + n*8)
	defer binfmt.ReleaseBuffer(buf)
	buf[0] = byte(TagMap)
	if err := binfmt.PutU24(buf[1:4], uint32(n), w.endian); err != nil {
		return 0, 0, err
	}
	for i, e := range entries {
		off := 4 + i*8
		if err := binfmt.PutU24(buf[off:off+3], e.keyIndex, w.endian); err != nil {
			return 0, 0, err
		}
		buf[off+3] = byte(e.tag)
		w.endian.Order().PutUint32(buf[off+4:off+8], e.value)
	}

	w.alignBody(4)
	offset := w.appendDeduped(buf)
	return TagMap, offset, nil
}

func (w *writer) emitHashMap(hm HashMap) (NodeType, uint32, error) {
	type entry struct {
		hash  uint32
		tag   NodeType
		value uint32
	}
	entries := make([]entry, 0, len(hm))
	hashes := make([]uint32, 0, len(hm))
	for h := range hm {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	for _, h := range hashes {
		tag, payload, err := w.emit(hm[h])
		if err != nil {
			return 0, 0, err
		}
		entries = append(entries, entry{hash: h, tag: tag, value: payload})
	}

	n := len(entries)
	buf := binfmt.GetBuffer(4 + n*8 + n)
	defer binfmt.ReleaseBuffer(buf)
	buf[0] = byte(TagHashMap)
	if err := binfmt.PutU24(buf[1:4], uint32(n), w.endian); err != nil {
		return 0, 0, err
	}
	recBase := 4
	tagBase := 4 + n*8
	for i, e := range entries {
		off := recBase + i*8
		w.endian.Order().PutUint32(buf[off:off+4], e.hash)
		w.endian.Order().PutUint32(buf[off+4:off+8], e.value)
		buf[tagBase+i] = byte(e.tag)
	}

	w.alignBody(4)
	offset := w.appendDeduped(buf)
	return TagHashMap, offset, nil
}

func (w *writer) emitValueHashMap(vhm ValueHashMap) (NodeType, uint32, error) {
	type entry struct {
		hash  uint32
		tag   NodeType
		value uint32
		aux   uint32
	}
	entries := make([]entry, 0, len(vhm))
	hashes := make([]uint32, 0, len(vhm))
	for h := range vhm {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	for _, h := range hashes {
		elem := vhm[h]
		tag, payload, err := w.emit(elem.Value)
		if err != nil {
			return 0, 0, err
		}
		entries = append(entries, entry{hash: h, tag: tag, value: payload, aux: elem.Aux})
	}

	n := len(entries)
	buf := binfmt.GetBuffer(4 + n*12 + n)
	defer binfmt.ReleaseBuffer(buf)
	buf[0] = byte(TagValueHashMap)
	if err := binfmt.PutU24(buf[1:4], uint32(n), w.endian); err != nil {
		return 0, 0, err
	}
	recBase := 4
	tagBase := 4 + n*12
	for i, e := range entries {
		off := recBase + i*12
		w.endian.Order().PutUint32(buf[off:off+4], e.hash)
		w.endian.Order().PutUint32(buf[off+4:off+8], e.value)
		w.endian.Order().PutUint32(buf[off+8:off+12], e.aux)
		buf[tagBase+i] = byte(e.tag)
	}

	w.alignBody(4)
	offset := w.appendDeduped(buf)
	return TagValueHashMap, offset, nil
}

// collectInterned walks the tree, putting every Map key into keys and
// every String leaf into strs. Both are string-keyed treemaps used as
// sorted sets: Put on an existing key is a no-op duplicate, and
// in-order traversal of the tree yields the lexicographically sorted,
// deduplicated table the format requires.
func collectInterned(v Value, keys, strs *treemap.Map) {
	switch val := v.(type) {
	case String:
		strs.Put(string(val), struct{}{})
	case Array:
		for _, e := range val {
			collectInterned(e, keys, strs)
		}
	case *Map:
		val.Range(func(key string, v Value) {
			keys.Put(key, struct{}{})
			collectInterned(v, keys, strs)
		})
	case HashMap:
		for _, e := range val {
			collectInterned(e, keys, strs)
		}
	case ValueHashMap:
		for _, e := range val {
			collectInterned(e.Value, keys, strs)
		}
	}
}

// internedKeys extracts a treemap-backed sorted set's keys as a plain
// string slice, already in ascending lexicographic order.
func internedKeys(set *treemap.Map) []string {
	raw := set.Keys()
	out := make([]string, len(raw))
	for i, k := range raw {
		out[i] = k.(string)
	}
	return out
}

func float32Bits(f float32) uint32 {
	return math.Float32bits(f)
}

func doubleBits(f float64) uint64 {
	return math.Float64bits(f)
}
