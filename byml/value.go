package byml

import "math"

// Value is the materialized BYML tree node: a closed sum of fifteen
// variants, each a distinct Go type carrying its own NodeType tag.
// Dispatch is via a type switch on the concrete type, not an
// interface method table — there is no behavior here beyond holding
// data and reporting a tag.
type Value interface {
	// Tag returns the one-byte type code this value encodes as.
	Tag() NodeType
}

// Null is the default, absent value.
type Null struct{}

// Tag implements Value.
func (Null) Tag() NodeType { return TagNull }

// Bool is an inline boolean.
type Bool bool

// Tag implements Value.
func (Bool) Tag() NodeType { return TagBool }

// I32 is an inline signed 32-bit integer.
type I32 int32

// Tag implements Value.
func (I32) Tag() NodeType { return TagI32 }

// Float is an inline IEEE-754 binary32.
type Float float32

// Tag implements Value.
func (Float) Tag() NodeType { return TagFloat }

// U32 is an inline unsigned 32-bit integer.
type U32 uint32

// Tag implements Value.
func (U32) Tag() NodeType { return TagU32 }

// I64 is an out-of-line signed 64-bit integer.
type I64 int64

// Tag implements Value.
func (I64) Tag() NodeType { return TagI64 }

// U64 is an out-of-line unsigned 64-bit integer.
type U64 uint64

// Tag implements Value.
func (U64) Tag() NodeType { return TagU64 }

// Double is an out-of-line IEEE-754 binary64.
type Double float64

// Tag implements Value.
func (Double) Tag() NodeType { return TagDouble }

// String is an index into the document's string-value table,
// materialized to its referenced text.
type String string

// Tag implements Value.
func (String) Tag() NodeType { return TagString }

// Binary is an out-of-line length-prefixed byte blob. It is kept
// distinct from File even though both materialize to []byte: the two
// occupy different on-disk preambles and must round-trip as the
// variant they were read as.
type Binary []byte

// Tag implements Value.
func (Binary) Tag() NodeType { return TagBinary }

// File is an out-of-line length-prefixed byte blob with an extra
// 4-byte preamble word before its payload. See Binary.
type File []byte

// Tag implements Value.
func (File) Tag() NodeType { return TagFile }

// Array is an ordered sequence of values; both the tree and the
// binary encoding preserve this order.
type Array []Value

// Tag implements Value.
func (Array) Tag() NodeType { return TagArray }

// Map is a string-keyed mapping of values. Iteration order follows
// insertion order; the binary encoding is sorted by key index
// instead (see the writer).
type Map struct {
	keys   []string
	index  map[string]int
	values []Value
}

// NewMap returns an empty, ready-to-use Map.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

// Tag implements Value.
func (*Map) Tag() NodeType { return TagMap }

// Set inserts or overwrites the value at key, preserving the original
// insertion position on overwrite.
func (m *Map) Set(key string, v Value) {
	if i, ok := m.index[key]; ok {
		m.values[i] = v
		return
	}
	m.index[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.values = append(m.values, v)
}

// Get returns the value at key and whether it was present.
func (m *Map) Get(key string) (Value, bool) {
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.values[i], true
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string { return m.keys }

// Range calls fn for every entry in insertion order.
func (m *Map) Range(fn func(key string, v Value)) {
	for i, k := range m.keys {
		fn(k, m.values[i])
	}
}

// HashMap is a u32-keyed mapping of values, encoded sorted by hash
// for binary-search lookup.
type HashMap map[uint32]Value

// Tag implements Value.
func (HashMap) Tag() NodeType { return TagHashMap }

// ValueHashMapEntry pairs a ValueHashMap entry's value with its
// auxiliary u32, which the original format otherwise discards on
// materialization — this module preserves it deliberately.
type ValueHashMapEntry struct {
	Value Value
	Aux   uint32
}

// ValueHashMap is a u32-keyed mapping of (Value, aux uint32) pairs.
type ValueHashMap map[uint32]ValueHashMapEntry

// Tag implements Value.
func (ValueHashMap) Tag() NodeType { return TagValueHashMap }

// floatEqualEpsilon is the relative/absolute tolerance used by Equal
// when comparing Float and Double leaves.
const floatEqualEpsilon = 1e-5

func floatsAlmostEqual(a, b float64) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	if diff < floatEqualEpsilon {
		return true
	}
	largest := math.Max(math.Abs(a), math.Abs(b))
	return diff <= largest*floatEqualEpsilon
}

// Equal reports whether two values are equivalent, comparing
// Float/Double leaves approximately and recursing structurally into
// containers. Map comparison ignores insertion order, matching the
// binary encoding's key-index ordering.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Tag() != b.Tag() {
		return false
	}
	switch av := a.(type) {
	case Null:
		return true
	case Bool:
		return av == b.(Bool)
	case I32:
		return av == b.(I32)
	case Float:
		return floatsAlmostEqual(float64(av), float64(b.(Float)))
	case U32:
		return av == b.(U32)
	case I64:
		return av == b.(I64)
	case U64:
		return av == b.(U64)
	case Double:
		return floatsAlmostEqual(float64(av), float64(b.(Double)))
	case String:
		return av == b.(String)
	case Binary:
		bv := b.(Binary)
		return string(av) == string(bv)
	case File:
		bv := b.(File)
		return string(av) == string(bv)
	case Array:
		bv := b.(Array)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Map:
		bv := b.(*Map)
		if bv == nil || av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.keys {
			v1, _ := av.Get(k)
			v2, ok := bv.Get(k)
			if !ok || !Equal(v1, v2) {
				return false
			}
		}
		return true
	case HashMap:
		bv := b.(HashMap)
		if len(av) != len(bv) {
			return false
		}
		for k, v1 := range av {
			v2, ok := bv[k]
			if !ok || !Equal(v1, v2) {
				return false
			}
		}
		return true
	case ValueHashMap:
		bv := b.(ValueHashMap)
		if len(av) != len(bv) {
			return false
		}
		for k, v1 := range av {
			v2, ok := bv[k]
			if !ok || v1.Aux != v2.Aux || !Equal(v1.Value, v2.Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
