// Package byml reads, materializes, and writes the BYML binary tagged
// document format: a compact, offset-indexed analog of YAML/JSON used
// throughout Nintendo EAD/EPD titles.
package byml

// NodeType is the one-byte tag identifying a BYML value's variant.
type NodeType byte

const (
	// TagHashMap tags a u32-keyed container whose entries carry only a
	// value (0x20).
	TagHashMap NodeType = 0x20
	// TagValueHashMap tags a u32-keyed container whose entries carry a
	// value plus an auxiliary u32 (0x21).
	TagValueHashMap NodeType = 0x21

	// TagString tags an index into the string-value table (0xA0).
	TagString NodeType = 0xA0
	// TagBinary tags a length-prefixed out-of-line byte blob (0xA1).
	TagBinary NodeType = 0xA1
	// TagFile tags a length-prefixed out-of-line byte blob with an
	// 8-byte preamble (0xA2).
	TagFile NodeType = 0xA2

	// TagArray tags an ordered sequence of values (0xC0).
	TagArray NodeType = 0xC0
	// TagMap tags a string-keyed mapping of values (0xC1).
	TagMap NodeType = 0xC1
	// TagStringTable tags the shared interned string-table section
	// (0xC2); it never appears as a value's own tag.
	TagStringTable NodeType = 0xC2

	// TagBool tags an inline 0/1 byte (0xD0).
	TagBool NodeType = 0xD0
	// TagI32 tags an inline signed 32-bit integer (0xD1).
	TagI32 NodeType = 0xD1
	// TagFloat tags an inline IEEE-754 binary32 (0xD2).
	TagFloat NodeType = 0xD2
	// TagU32 tags an inline unsigned 32-bit integer (0xD3).
	TagU32 NodeType = 0xD3
	// TagI64 tags an out-of-line signed 64-bit integer (0xD4).
	TagI64 NodeType = 0xD4
	// TagU64 tags an out-of-line unsigned 64-bit integer (0xD5).
	TagU64 NodeType = 0xD5
	// TagDouble tags an out-of-line IEEE-754 binary64 (0xD6).
	TagDouble NodeType = 0xD6

	// TagNull tags the absent/default value (0xFF).
	TagNull NodeType = 0xFF
)

// IsContainerType reports whether t identifies one of the four
// container kinds (Array, Map, HashMap, ValueHashMap).
func IsContainerType(t NodeType) bool {
	switch t {
	case TagArray, TagMap, TagHashMap, TagValueHashMap:
		return true
	default:
		return false
	}
}

// IsOutOfLine reports whether a value of type t is stored as a 32-bit
// absolute offset rather than an inline bit pattern.
func IsOutOfLine(t NodeType) bool {
	switch t {
	case TagI64, TagU64, TagDouble, TagBinary, TagFile, TagArray, TagMap, TagHashMap, TagValueHashMap:
		return true
	default:
		return false
	}
}

// IsValidVersion reports whether v falls in the accepted BYML version
// range, 1 through 7 inclusive.
func IsValidVersion(v uint16) bool {
	return v >= 1 && v <= 7
}

func (t NodeType) String() string {
	switch t {
	case TagHashMap:
		return "HashMap"
	case TagValueHashMap:
		return "ValueHashMap"
	case TagString:
		return "String"
	case TagBinary:
		return "Binary"
	case TagFile:
		return "File"
	case TagArray:
		return "Array"
	case TagMap:
		return "Map"
	case TagStringTable:
		return "StringTable"
	case TagBool:
		return "Bool"
	case TagI32:
		return "I32"
	case TagFloat:
		return "Float"
	case TagU32:
		return "U32"
	case TagI64:
		return "I64"
	case TagU64:
		return "U64"
	case TagDouble:
		return "Double"
	case TagNull:
		return "Null"
	default:
		return "Unknown"
	}
}
