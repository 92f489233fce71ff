package sarc

import (
	"testing"

	"github.com/scigolib/nindata/internal/binfmt"
	"github.com/stretchr/testify/require"
)

func buildArchive(t *testing.T, endian binfmt.Endian, files map[string][]byte) []byte {
	t.Helper()
	w := NewWriter(endian)
	for name, data := range files {
		w.AddFile(name, data)
	}
	buf, err := w.Write()
	require.NoError(t, err)
	return buf
}

func TestWriterReader_RoundTrip(t *testing.T) {
	files := map[string][]byte{
		"Actor/Pack/A.sbactorpack": {0x01, 0x02, 0x03},
		"Map/B.smubin":             {0x04, 0x05},
		"Model/C.sbfres":           {0xAA, 0xBB, 0xCC, 0xDD, 0xEE},
	}

	for _, endian := range []binfmt.Endian{binfmt.BigEndian, binfmt.LittleEndian} {
		buf := buildArchive(t, endian, files)

		r, err := NewReader(buf)
		require.NoError(t, err)
		require.Equal(t, endian, r.Endian())
		require.Equal(t, len(files), r.Len())

		for name, data := range files {
			f, found, err := r.Get(name)
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, data, f.Data)
			require.Equal(t, name, f.Name)
		}

		_, found, err := r.Get("does/not/exist.bin")
		require.NoError(t, err)
		require.False(t, found)
	}
}

func TestReader_FilesInHashSortedOrder(t *testing.T) {
	files := map[string][]byte{
		"zzz.bin": {1},
		"aaa.bin": {2},
		"mmm.bin": {3},
	}
	buf := buildArchive(t, binfmt.BigEndian, files)
	r, err := NewReader(buf)
	require.NoError(t, err)

	all, err := r.Files()
	require.NoError(t, err)
	require.Len(t, all, 3)

	prevHash := uint32(0)
	for i, f := range all {
		h := binfmt.HashName(r.HashMultiplier(), f.Name)
		require.True(t, i == 0 || h >= prevHash)
		prevHash = h
	}
}

func TestWriter_RebuildIsByteIdentical(t *testing.T) {
	files := map[string][]byte{
		"NavMesh/Dungeon119.shknm2":        {0x10, 0x20},
		"Map/Dungeon119_Static.smubin":     {0x30},
		"Physics/Dungeon119.shksc":         {0x40, 0x41, 0x42},
		"Actor/DgnMrgPrt_Dungeon119.sbactorpack": {0x50},
	}
	original := buildArchive(t, binfmt.BigEndian, files)

	r, err := NewReader(original)
	require.NoError(t, err)

	w, err := NewWriterFromReader(r)
	require.NoError(t, err)

	rebuilt, err := w.Write()
	require.NoError(t, err)
	require.Equal(t, original, rebuilt)
}

func TestAlignment_EveryEntrySatisfiesItsComputedAlignment(t *testing.T) {
	files := map[string][]byte{
		"a.sharc":  make([]byte, 10),
		"b.baglmf": make([]byte, 3),
		"c.bin":    make([]byte, 7),
	}
	buf := buildArchive(t, binfmt.LittleEndian, files)
	r, err := NewReader(buf)
	require.NoError(t, err)

	w := NewWriter(binfmt.LittleEndian)
	for name, data := range files {
		w.AddFile(name, data)
	}
	entries := w.sortedEntries()
	w.applyDefaultAlignments()
	for _, e := range entries {
		align := w.alignmentForFile(e.name, e.data)
		f, found, err := r.Get(e.name)
		require.NoError(t, err)
		require.True(t, found)
		absOffset := uint64(r.DataOffset()) + uint64(offsetOfData(t, r, e.name))
		require.Equal(t, 0, int(absOffset%align), "entry %s data not aligned to %d", e.name, align)
		_ = f
	}
}

func offsetOfData(t *testing.T, r *Reader, name string) uint64 {
	t.Helper()
	for i := 0; i < r.Len(); i++ {
		f, err := r.FileAt(i)
		require.NoError(t, err)
		if f.Name == name {
			entry, err := r.entryAt(i)
			require.NoError(t, err)
			return uint64(entry.dataBegin)
		}
	}
	t.Fatalf("file %s not found", name)
	return 0
}

func TestGuessMinAlignment_UsesEveryEntry(t *testing.T) {
	files := map[string][]byte{
		"a.bin": make([]byte, 4),
		"b.bin": make([]byte, 4),
		"c.bin": make([]byte, 4),
	}
	buf := buildArchive(t, binfmt.BigEndian, files)
	r, err := NewReader(buf)
	require.NoError(t, err)

	align, err := r.GuessMinAlignment()
	require.NoError(t, err)
	require.True(t, binfmt.IsValidAlignment(align))
	require.GreaterOrEqual(t, align, uint64(4))

	// With a 1-byte minimum alignment, three 1-byte files are packed
	// back to back, so only the first entry's data starts on a 4-byte
	// boundary; folding in every entry brings the result down to 1.
	packed := NewWriter(binfmt.BigEndian).WithMinAlignment(1)
	for _, name := range []string{"a.bin", "b.bin", "c.bin"} {
		packed.AddFile(name, []byte{0})
	}
	packedBuf, err := packed.Write()
	require.NoError(t, err)
	pr, err := NewReader(packedBuf)
	require.NoError(t, err)
	packedAlign, err := pr.GuessMinAlignment()
	require.NoError(t, err)
	require.Equal(t, uint64(1), packedAlign)
}

func TestAreFilesEqual(t *testing.T) {
	files := map[string][]byte{"x.bin": {1, 2, 3}}
	a := buildArchive(t, binfmt.BigEndian, files)
	b := buildArchive(t, binfmt.BigEndian, files)

	ra, err := NewReader(a)
	require.NoError(t, err)
	rb, err := NewReader(b)
	require.NoError(t, err)

	equal, err := AreFilesEqual(ra, rb)
	require.NoError(t, err)
	require.True(t, equal)
}

func TestWriter_BigEndianBffntAlignment(t *testing.T) {
	w := NewWriter(binfmt.BigEndian)
	w.applyDefaultAlignments()
	require.Equal(t, uint64(0x2000), w.alignmentMap["bffnt"])

	w2 := NewWriter(binfmt.LittleEndian)
	w2.applyDefaultAlignments()
	require.Equal(t, uint64(0x1000), w2.alignmentMap["bffnt"])
}

func TestParseResHeader_RejectsBadMagic(t *testing.T) {
	buf := make([]byte, resHeaderSize)
	copy(buf, "NOPE")
	_, err := NewReader(buf)
	require.Error(t, err)
}

// TestLayout_SectionOffsetsMatchRealArchives hand-builds a minimal raw
// SARC buffer (not round-tripped through Writer) and pins the section
// offsets a real archive uses: SFAT and SFNT header sizes are
// magic-inclusive, so entries begin at 0x14+0x0C=0x20 and the name
// table begins at fntOff+0x08, not four bytes further out.
func TestLayout_SectionOffsetsMatchRealArchives(t *testing.T) {
	const (
		nameTableOff = 0x38
		dataOff      = 0x40
	)
	buf := make([]byte, dataOff+4)
	order := binfmt.BigEndian.Order()

	copy(buf[0:4], "SARC")
	order.PutUint16(buf[4:6], resHeaderSize)
	copy(buf[6:8], binfmt.EncodeSARCBOM(binfmt.BigEndian))
	order.PutUint32(buf[8:12], uint32(len(buf)))
	order.PutUint32(buf[12:16], dataOff)
	order.PutUint16(buf[16:18], declaredVersion)

	copy(buf[0x14:0x18], "SFAT")
	order.PutUint16(buf[0x18:0x1A], sfatHeaderSize)
	order.PutUint16(buf[0x1A:0x1C], 1)
	order.PutUint32(buf[0x1C:0x20], defaultHashMultiplier)

	entryOff := 0x20
	order.PutUint32(buf[entryOff:entryOff+4], binfmt.HashName(defaultHashMultiplier, "a.bin"))
	order.PutUint32(buf[entryOff+4:entryOff+8], nameFlagBit)
	order.PutUint32(buf[entryOff+8:entryOff+12], 0)
	order.PutUint32(buf[entryOff+12:entryOff+16], 4)

	fntOff := entryOff + sfatEntrySize
	require.Equal(t, 0x30, fntOff)
	copy(buf[fntOff:fntOff+4], "SFNT")
	order.PutUint16(buf[fntOff+4:fntOff+6], sfntHeaderSize)

	namesOff := fntOff + sfntHeaderSize
	require.Equal(t, nameTableOff, namesOff)
	copy(buf[namesOff:], "a.bin\x00\x00\x00")

	copy(buf[dataOff:], "DATA")

	r, err := NewReader(buf)
	require.NoError(t, err)
	require.Equal(t, uint32(0x20), r.entriesOffset)
	require.Equal(t, uint32(nameTableOff), r.namesOffset)

	f, err := r.FileAt(0)
	require.NoError(t, err)
	require.Equal(t, "a.bin", f.Name)
	require.Equal(t, []byte("DATA"), f.Data)
}

func TestEmptyArchive_RoundTrips(t *testing.T) {
	w := NewWriter(binfmt.BigEndian)
	buf, err := w.Write()
	require.NoError(t, err)

	r, err := NewReader(buf)
	require.NoError(t, err)
	require.Equal(t, 0, r.Len())
}
