package byml

import "github.com/scigolib/nindata/internal/binfmt"

// Materialize performs a depth-first walk of r starting from its root
// node and builds an owned Value tree. It is a thin wrapper over the
// zero-copy Reader: every container it builds is produced by calling
// the same iteration methods a borrowing caller would use directly.
//
// The first parse error encountered aborts the walk; there is no
// partial tree.
func Materialize(r *Reader) (Value, error) {
	ref, ok, err := r.Root()
	if err != nil {
		return nil, err
	}
	if !ok {
		return Null{}, nil
	}
	return materializeRef(r, ref)
}

func materializeRef(r *Reader, ref NodeRef) (Value, error) {
	switch ref.tag {
	case TagNull:
		return Null{}, nil
	case TagBool:
		return Bool(GetInlineBool(ref)), nil
	case TagI32:
		return I32(GetInlineI32(ref)), nil
	case TagFloat:
		return Float(GetInlineFloat(ref)), nil
	case TagU32:
		return U32(GetInlineU32(ref)), nil
	case TagI64:
		v, err := r.GetI64(ref)
		return I64(v), err
	case TagU64:
		v, err := r.GetU64(ref)
		return U64(v), err
	case TagDouble:
		v, err := r.GetDouble(ref)
		return Double(v), err
	case TagString:
		v, err := r.GetString(ref)
		return String(v), err
	case TagBinary:
		v, err := r.GetBinary(ref)
		return Binary(v), err
	case TagFile:
		v, err := r.GetFile(ref)
		return File(v), err
	case TagArray:
		return materializeArray(r, ref)
	case TagMap:
		return materializeMap(r, ref)
	case TagHashMap:
		return materializeHashMap(r, ref)
	case TagValueHashMap:
		return materializeValueHashMap(r, ref)
	default:
		return nil, binfmt.New(binfmt.InvalidData, "unknown node tag 0x%02X", byte(ref.tag))
	}
}

func materializeArray(r *Reader, ref NodeRef) (Value, error) {
	n, err := r.ArrayLen(ref)
	if err != nil {
		return nil, err
	}
	out := make(Array, n)
	for i := 0; i < n; i++ {
		elemRef, err := r.ArrayGet(ref, i)
		if err != nil {
			return nil, err
		}
		v, err := materializeRef(r, elemRef)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func materializeMap(r *Reader, ref NodeRef) (Value, error) {
	n, err := r.MapLen(ref)
	if err != nil {
		return nil, err
	}
	out := NewMap()
	for i := 0; i < n; i++ {
		key, entryRef, err := r.MapEntryAt(ref, i)
		if err != nil {
			return nil, err
		}
		v, err := materializeRef(r, entryRef)
		if err != nil {
			return nil, err
		}
		out.Set(key, v)
	}
	return out, nil
}

func materializeHashMap(r *Reader, ref NodeRef) (Value, error) {
	n, err := r.HashMapLen(ref)
	if err != nil {
		return nil, err
	}
	out := make(HashMap, n)
	for i := 0; i < n; i++ {
		hash, entryRef, err := r.HashMapEntryAt(ref, i)
		if err != nil {
			return nil, err
		}
		v, err := materializeRef(r, entryRef)
		if err != nil {
			return nil, err
		}
		out[hash] = v
	}
	return out, nil
}

// materializeValueHashMap builds a ValueHashMap value, preserving the
// auxiliary u32 that a HashMap-typed materialization would discard.
func materializeValueHashMap(r *Reader, ref NodeRef) (Value, error) {
	n, err := r.ValueHashMapLen(ref)
	if err != nil {
		return nil, err
	}
	out := make(ValueHashMap, n)
	for i := 0; i < n; i++ {
		hash, entryRef, aux, err := r.ValueHashMapEntryAt(ref, i)
		if err != nil {
			return nil, err
		}
		v, err := materializeRef(r, entryRef)
		if err != nil {
			return nil, err
		}
		out[hash] = ValueHashMapEntry{Value: v, Aux: aux}
	}
	return out, nil
}
