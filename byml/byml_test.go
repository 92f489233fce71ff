package byml

import (
	"testing"

	"github.com/scigolib/nindata/internal/binfmt"
	"github.com/stretchr/testify/require"
)

func TestReader_EmptyDocument(t *testing.T) {
	buf := writeHeader(header{endian: binfmt.BigEndian, version: 4})
	r, err := NewReader(buf)
	require.NoError(t, err)

	require.False(t, r.IsContainer())
	v, err := Materialize(r)
	require.NoError(t, err)
	require.Equal(t, Null{}, v)
}

func TestReader_RejectsBadMagic(t *testing.T) {
	buf := make([]byte, headerSize)
	copy(buf, "XX")
	_, err := NewReader(buf)
	require.Error(t, err)
}

func TestReader_RejectsInvalidVersion(t *testing.T) {
	buf := writeHeader(header{endian: binfmt.LittleEndian, version: 99})
	_, err := NewReader(buf)
	require.Error(t, err)
}

func buildHashMapRootedDocument(t *testing.T) []byte {
	t.Helper()
	tree := HashMap{
		4253374: func() Value {
			m := NewMap()
			m.Set("Hash", U32(4253374))
			return m
		}(),
		7458797: Binary([]byte{0x01, 0x02, 0x03, 0x04}),
	}
	buf, err := Write(tree, binfmt.BigEndian)
	require.NoError(t, err)
	return buf
}

func TestReader_HashMapRootedDocument(t *testing.T) {
	buf := buildHashMapRootedDocument(t)
	r, err := NewReader(buf)
	require.NoError(t, err)
	require.True(t, r.IsHashMap())

	root, ok, err := r.Root()
	require.NoError(t, err)
	require.True(t, ok)

	entryRef, found, err := r.HashMapGet(root, 4253374)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, TagMap, entryRef.Tag())

	key, hashValRef, err := r.MapEntryAt(entryRef, 0)
	require.NoError(t, err)
	require.Equal(t, "Hash", key)
	require.Equal(t, TagU32, hashValRef.Tag())
	require.Equal(t, uint32(4253374), GetInlineU32(hashValRef))

	binRef, found, err := r.HashMapGet(root, 7458797)
	require.NoError(t, err)
	require.True(t, found)
	bin, err := r.GetBinary(binRef)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, bin)

	_, found, err = r.HashMapGet(root, 1)
	require.NoError(t, err)
	require.False(t, found)
}

func TestMaterialize_MapRootedDocument(t *testing.T) {
	inner := NewMap()
	inner.Set("Type", String("Tag"))
	inner.Set("Values", Array{I32(1), I32(2), I32(3)})

	root := NewMap()
	root.Set("Content", Array{inner})

	buf, err := Write(root, binfmt.LittleEndian)
	require.NoError(t, err)

	r, err := NewReader(buf)
	require.NoError(t, err)
	require.True(t, r.IsMap())

	v, err := Materialize(r)
	require.NoError(t, err)

	got, ok := v.(*Map)
	require.True(t, ok)
	require.Equal(t, 1, got.Len())
	require.True(t, Equal(root, got))
}

func TestWriteMaterializeRoundTrip(t *testing.T) {
	vhm := ValueHashMap{
		1: {Value: I32(10), Aux: 99},
		2: {Value: String("abc"), Aux: 0},
	}

	for _, endian := range []binfmt.Endian{binfmt.BigEndian, binfmt.LittleEndian} {
		buf, err := Write(vhm, endian)
		require.NoError(t, err)

		r, err := NewReader(buf)
		require.NoError(t, err)
		require.True(t, r.IsValueHashMap())

		v, err := Materialize(r)
		require.NoError(t, err)

		got, ok := v.(ValueHashMap)
		require.True(t, ok)
		require.True(t, Equal(vhm, got))
	}
}

func TestWrite_RejectsNonContainerRoot(t *testing.T) {
	_, err := Write(I32(5), binfmt.BigEndian)
	require.Error(t, err)
}

func TestWrite_EmptyArrayAndMap(t *testing.T) {
	buf, err := Write(Array{}, binfmt.BigEndian)
	require.NoError(t, err)
	r, err := NewReader(buf)
	require.NoError(t, err)
	root, ok, err := r.Root()
	require.NoError(t, err)
	require.True(t, ok)
	n, err := r.ArrayLen(root)
	require.NoError(t, err)
	require.Equal(t, 0, n)

	buf, err = Write(NewMap(), binfmt.LittleEndian)
	require.NoError(t, err)
	r, err = NewReader(buf)
	require.NoError(t, err)
	root, ok, err = r.Root()
	require.NoError(t, err)
	require.True(t, ok)
	n, err = r.MapLen(root)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestWrite_StringTableSortedAndDeduplicated(t *testing.T) {
	arr := Array{String("zebra"), String("apple"), String("apple"), String("mango")}
	buf, err := Write(arr, binfmt.BigEndian)
	require.NoError(t, err)

	r, err := NewReader(buf)
	require.NoError(t, err)
	st, err := r.valueStringTable()
	require.NoError(t, err)
	require.Equal(t, 3, st.Len())

	prev := ""
	for i := 0; i < st.Len(); i++ {
		s, err := st.Get(i)
		require.NoError(t, err)
		require.True(t, i == 0 || prev < s, "string table must be strictly ascending")
		prev = s
	}
}

func TestValue_EqualApproximateFloat(t *testing.T) {
	require.True(t, Equal(Float(1.0000001), Float(1.0000002)))
	require.False(t, Equal(Float(1.0), Float(2.0)))
	require.True(t, Equal(Double(0.1+0.2), Double(0.3)))
}

func TestBinaryVsFile_DistinctEncodingOffsets(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC}
	bin := Binary(payload)
	file := File(payload)

	buf, err := Write(Array{bin, file}, binfmt.BigEndian)
	require.NoError(t, err)

	r, err := NewReader(buf)
	require.NoError(t, err)
	root, _, err := r.Root()
	require.NoError(t, err)

	binRef, err := r.ArrayGet(root, 0)
	require.NoError(t, err)
	require.Equal(t, TagBinary, binRef.Tag())
	gotBin, err := r.GetBinary(binRef)
	require.NoError(t, err)
	require.Equal(t, payload, gotBin)

	fileRef, err := r.ArrayGet(root, 1)
	require.NoError(t, err)
	require.Equal(t, TagFile, fileRef.Tag())
	gotFile, err := r.GetFile(fileRef)
	require.NoError(t, err)
	require.Equal(t, payload, gotFile)
}
