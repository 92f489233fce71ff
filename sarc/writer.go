package sarc

import (
	"sort"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/scigolib/nindata/internal/binfmt"
)

const defaultHashMultiplier = 0x65

// Writer builds a SARC archive from an insertion-ordered collection of
// named file payloads. Files are stored in a linkedhashmap so that
// AddFile's iteration order is deterministic and independent of Go's
// native map ordering, matching the "insertion-ordered associative
// container" ownership model a SARC writer holds its files in.
type Writer struct {
	endian         binfmt.Endian
	legacy         bool
	hashMultiplier uint32
	minAlignment   uint64
	alignmentMap   map[string]uint64
	files          *linkedhashmap.Map
}

// NewWriter returns an empty Writer for the given endianness.
func NewWriter(endian binfmt.Endian) *Writer {
	return &Writer{
		endian:         endian,
		hashMultiplier: defaultHashMultiplier,
		minAlignment:   minGuessedAlignment,
		alignmentMap:   make(map[string]uint64),
		files:          linkedhashmap.New(),
	}
}

// NewWriterFromReader seeds a Writer with every named file from r, in
// on-disk order, and a minimum alignment guessed from r.
func NewWriterFromReader(r *Reader) (*Writer, error) {
	w := NewWriter(r.Endian())
	guessed, err := r.GuessMinAlignment()
	if err != nil {
		return nil, err
	}
	w.minAlignment = guessed
	files, err := r.Files()
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.Name == "" {
			continue
		}
		w.AddFile(f.Name, append([]byte(nil), f.Data...))
	}
	return w, nil
}

// WithEndian sets the output endianness and returns the receiver.
func (w *Writer) WithEndian(endian binfmt.Endian) *Writer {
	w.endian = endian
	return w
}

// WithLegacyMode toggles legacy alignment rules (page alignment for
// nested SARCs, and content sniffing for factory extensions as well as
// non-factory ones) and returns the receiver.
func (w *Writer) WithLegacyMode(legacy bool) *Writer {
	w.legacy = legacy
	return w
}

// WithMinAlignment sets the floor alignment applied to every file and
// returns the receiver. alignment must be a power of two.
func (w *Writer) WithMinAlignment(alignment uint64) *Writer {
	if binfmt.IsValidAlignment(alignment) {
		w.minAlignment = alignment
	}
	return w
}

// WithHashMultiplier sets the name-hash multiplier and returns the
// receiver.
func (w *Writer) WithHashMultiplier(mul uint32) *Writer {
	w.hashMultiplier = mul
	return w
}

// AddAlignmentRequirement registers a per-extension alignment override
// (ext without the leading dot). alignment must be a power of two; set
// it to 1 to clear a prior override.
func (w *Writer) AddAlignmentRequirement(ext string, alignment uint64) *Writer {
	if binfmt.IsValidAlignment(alignment) {
		w.alignmentMap[ext] = alignment
	}
	return w
}

// AddFile inserts or overwrites a file, preserving its original
// insertion position on overwrite.
func (w *Writer) AddFile(name string, data []byte) *Writer {
	w.files.Put(name, data)
	return w
}

// Len returns the number of files currently in the writer.
func (w *Writer) Len() int { return w.files.Size() }

type writerEntry struct {
	name      string
	data      []byte
	nameHash  uint32
	alignment uint64
}

// Write builds the archive buffer.
func (w *Writer) Write() ([]byte, error) {
	entries := w.sortedEntries()
	w.applyDefaultAlignments()
	for i := range entries {
		entries[i].alignment = w.alignmentForFile(entries[i].name, entries[i].data)
	}

	var relCursor uint64
	dataBegins := make([]uint64, len(entries))
	dataEnds := make([]uint64, len(entries))
	for i, e := range entries {
		relCursor = binfmt.AlignUp(relCursor, e.alignment)
		dataBegins[i] = relCursor
		dataEnds[i] = relCursor + uint64(len(e.data))
		relCursor = dataEnds[i]
	}

	nameTable, relNameOffsets := buildNameTable(entries)

	fatOff := resHeaderSize
	entriesOff := fatOff + sfatHeaderSize
	fntOff := entriesOff + sfatEntrySize*len(entries)
	namesOff := fntOff + sfntHeaderSize
	namesEnd := namesOff + len(nameTable)

	requiredAlignment := uint64(1)
	for _, e := range entries {
		requiredAlignment = binfmt.LCM(requiredAlignment, e.alignment)
	}
	if requiredAlignment == 0 {
		requiredAlignment = 1
	}
	dataOffsetBegin := binfmt.AlignUp(uint64(namesEnd), requiredAlignment)

	buf := make([]byte, dataOffsetBegin)
	copy(buf[fatOff:], writeResFatHeader(resFatHeader{
		numFiles:       uint16(len(entries)),
		hashMultiplier: w.hashMultiplier,
	}, w.endian))
	for i, e := range entries {
		relOpt := uint32(0)
		if e.name != "" {
			relOpt = nameFlagBit | (relNameOffsets[i] >> nameOffsetShift)
		}
		rec := resFatEntry{
			nameHash:         e.nameHash,
			relNameOptOffset: relOpt,
			dataBegin:        uint32(dataBegins[i]),
			dataEnd:          uint32(dataEnds[i]),
		}
		copy(buf[entriesOff+i*sfatEntrySize:], writeResFatEntry(rec, w.endian))
	}
	copy(buf[fntOff:], writeResFntHeader(w.endian))
	copy(buf[namesOff:], nameTable)

	totalLen := int(dataOffsetBegin) + int(relCursor)
	out := make([]byte, totalLen)
	copy(out, buf)
	for i, e := range entries {
		start := int(dataOffsetBegin) + int(dataBegins[i])
		copy(out[start:], e.data)
	}

	hdr := writeResHeader(resHeader{
		endian:     w.endian,
		fileSize:   uint32(totalLen),
		dataOffset: uint32(dataOffsetBegin),
	})
	copy(out[0:resHeaderSize], hdr)

	return out, nil
}

func (w *Writer) sortedEntries() []writerEntry {
	keys := w.files.Keys()
	entries := make([]writerEntry, len(keys))
	for i, k := range keys {
		name := k.(string)
		v, _ := w.files.Get(name)
		entries[i] = writerEntry{
			name:     name,
			data:     v.([]byte),
			nameHash: binfmt.HashName(w.hashMultiplier, name),
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].nameHash < entries[j].nameHash })
	return entries
}

// buildNameTable assembles the NUL-terminated, 4-byte-aligned name
// table into a pooled scratch buffer, then copies it into a
// right-sized result the caller can hand off past this call's scope.
func buildNameTable(entries []writerEntry) ([]byte, []uint32) {
	table := binfmt.GetBuffer(0)
	defer binfmt.ReleaseBuffer(table)
	offsets := make([]uint32, len(entries))
	for i, e := range entries {
		if e.name == "" {
			offsets[i] = 0
			continue
		}
		offsets[i] = uint32(len(table))
		table = append(table, e.name...)
		table = append(table, 0)
		for len(table)%4 != 0 {
			table = append(table, 0)
		}
	}
	return append([]byte(nil), table...), offsets
}

// applyDefaultAlignments seeds the extension→alignment map with the
// compiled-in defaults, without overwriting caller-registered entries.
func (w *Writer) applyDefaultAlignments() {
	for ext, align := range defaultExtensionAlignment {
		if _, exists := w.alignmentMap[ext]; !exists {
			w.alignmentMap[ext] = align
		}
	}
	bffntAlign := uint64(0x1000)
	if w.endian == binfmt.BigEndian {
		bffntAlign = 0x2000
	}
	if _, exists := w.alignmentMap["bffnt"]; !exists {
		w.alignmentMap["bffnt"] = bffntAlign
	}
}

func fileExtension(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return ""
	}
	return name[idx+1:]
}

func (w *Writer) alignmentForFile(name string, data []byte) uint64 {
	ext := fileExtension(name)
	alignment := w.minAlignment
	if requirement, ok := w.alignmentMap[ext]; ok {
		alignment = binfmt.LCM(alignment, requirement)
	}
	if w.legacy && isLikelySarc(data) {
		alignment = binfmt.LCM(alignment, 0x2000)
	}
	if w.legacy || !isFactoryExtension(ext) {
		alignment = binfmt.LCM(alignment, alignmentForNewBinaryFile(data, w.endian))
		if w.endian == binfmt.BigEndian {
			alignment = binfmt.LCM(alignment, alignmentForBFLIM(data))
		}
	}
	if alignment == 0 {
		alignment = minGuessedAlignment
	}
	return alignment
}
