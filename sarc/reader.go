package sarc

import (
	"bytes"
	"sort"

	"github.com/scigolib/nindata/internal/binfmt"
)

const minGuessedAlignment = 4

// Reader is a zero-copy view over a borrowed SARC archive buffer.
// Returned file data slices alias the backing buffer; file names are
// copied out of it.
type Reader struct {
	buf            []byte
	endian         binfmt.Endian
	numFiles       uint16
	entriesOffset  uint32
	hashMultiplier uint32
	dataOffset     uint32
	namesOffset    uint32
}

// NewReader parses a SARC archive header, SFAT, and SFNT sections from
// buf and returns a Reader borrowing it.
func NewReader(buf []byte) (*Reader, error) {
	hdr, err := parseResHeader(buf)
	if err != nil {
		return nil, err
	}
	if hdr.version != declaredVersion {
		return nil, binfmt.New(binfmt.InvalidVersion, "SARC version 0x%04X, expected 0x%04X", hdr.version, declaredVersion)
	}
	if int(hdr.headerSize) != resHeaderSize {
		return nil, binfmt.New(binfmt.InvalidData, "SARC header_size %d, expected %d", hdr.headerSize, resHeaderSize)
	}

	fatOff := resHeaderSize
	fatHdr, err := parseResFatHeader(sliceFrom(buf, fatOff), hdr.endian)
	if err != nil {
		return nil, err
	}
	if int(fatHdr.headerSize) != sfatHeaderSize {
		return nil, binfmt.New(binfmt.InvalidData, "SFAT header_size %d, expected %d", fatHdr.headerSize, sfatHeaderSize)
	}

	entriesOffset := fatOff + sfatHeaderSize
	fntOff := entriesOffset + sfatEntrySize*int(fatHdr.numFiles)
	fntHdr, err := parseResFntHeader(sliceFrom(buf, fntOff), hdr.endian)
	if err != nil {
		return nil, err
	}
	if int(fntHdr.headerSize) != sfntHeaderSize {
		return nil, binfmt.New(binfmt.InvalidData, "SFNT header_size %d, expected %d", fntHdr.headerSize, sfntHeaderSize)
	}

	namesOffset := fntOff + sfntHeaderSize
	if hdr.dataOffset < uint32(namesOffset) {
		return nil, binfmt.New(binfmt.InvalidData, "SARC data_offset %d precedes name table at %d", hdr.dataOffset, namesOffset)
	}

	return &Reader{
		buf:            buf,
		endian:         hdr.endian,
		numFiles:       fatHdr.numFiles,
		entriesOffset:  uint32(entriesOffset),
		hashMultiplier: fatHdr.hashMultiplier,
		dataOffset:     hdr.dataOffset,
		namesOffset:    uint32(namesOffset),
	}, nil
}

func sliceFrom(buf []byte, off int) []byte {
	if off > len(buf) {
		return nil
	}
	return buf[off:]
}

// Len returns the number of files in the archive.
func (r *Reader) Len() int { return int(r.numFiles) }

// Endian returns the archive's detected byte order.
func (r *Reader) Endian() binfmt.Endian { return r.endian }

// HashMultiplier returns the hash multiplier used for name hashes.
func (r *Reader) HashMultiplier() uint32 { return r.hashMultiplier }

// DataOffset returns the archive's data section base offset.
func (r *Reader) DataOffset() uint32 { return r.dataOffset }

func (r *Reader) entryAt(i int) (resFatEntry, error) {
	off := int(r.entriesOffset) + i*sfatEntrySize
	if off+sfatEntrySize > len(r.buf) {
		return resFatEntry{}, binfmt.New(binfmt.InsufficientData, "SFAT entry %d out of range", i)
	}
	return parseResFatEntry(r.buf[off:], r.endian)
}

func (r *Reader) nameAt(entry resFatEntry) (string, error) {
	if !entry.hasName() {
		return "", nil
	}
	start := int(r.namesOffset) + int(entry.nameTableOffset())
	if start > len(r.buf) {
		return "", binfmt.New(binfmt.InvalidData, "file name offset %d out of range", start)
	}
	end := bytes.IndexByte(r.buf[start:], 0)
	if end < 0 {
		return "", binfmt.New(binfmt.InvalidData, "SARC filename contains unterminated string")
	}
	return string(r.buf[start : start+end]), nil
}

func (r *Reader) dataAt(entry resFatEntry) ([]byte, error) {
	start := int(r.dataOffset + entry.dataBegin)
	end := int(r.dataOffset + entry.dataEnd)
	if start < 0 || end > len(r.buf) || start > end {
		return nil, binfmt.New(binfmt.InsufficientData, "file data [%d,%d) out of range", start, end)
	}
	return r.buf[start:end], nil
}

// File is a single archive entry: an optional name (copied) and its
// data slice (borrowed from the Reader's buffer).
type File struct {
	Name string
	Data []byte
}

// FileAt returns the i-th file in on-disk order.
func (r *Reader) FileAt(i int) (File, error) {
	if i < 0 || i >= int(r.numFiles) {
		return File{}, binfmt.New(binfmt.InvalidData, "file index %d out of range [0,%d)", i, r.numFiles)
	}
	entry, err := r.entryAt(i)
	if err != nil {
		return File{}, err
	}
	name, err := r.nameAt(entry)
	if err != nil {
		return File{}, err
	}
	data, err := r.dataAt(entry)
	if err != nil {
		return File{}, err
	}
	return File{Name: name, Data: data}, nil
}

// Files returns every file in on-disk (hash-sorted) order.
func (r *Reader) Files() ([]File, error) {
	out := make([]File, r.numFiles)
	for i := range out {
		f, err := r.FileAt(i)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// Get looks up a file by name, binary-searching the FAT by
// hash_name(mul, name).
func (r *Reader) Get(name string) (File, bool, error) {
	if r.numFiles == 0 {
		return File{}, false, nil
	}
	needle := binfmt.HashName(r.hashMultiplier, name)
	n := int(r.numFiles)
	var searchErr error
	i := sort.Search(n, func(i int) bool {
		e, err := r.entryAt(i)
		if err != nil {
			searchErr = err
			return true
		}
		return e.nameHash >= needle
	})
	if searchErr != nil {
		return File{}, false, searchErr
	}
	if i >= n {
		return File{}, false, nil
	}
	entry, err := r.entryAt(i)
	if err != nil {
		return File{}, false, err
	}
	if entry.nameHash != needle {
		return File{}, false, nil
	}
	f, err := r.FileAt(i)
	return f, err == nil, err
}

// GuessMinAlignment computes the GCD of 4 and (data_offset +
// data_begin) for every file entry, so the result is never larger
// than 4, falling back to 4 when the result is not a valid
// power-of-two alignment.
//
// This intentionally folds in every entry, not just the first one
// read repeatedly: a prior implementation of this algorithm re-read
// entry zero on every loop iteration instead of advancing through the
// table, which can overstate the GCD and report an alignment stricter
// than the other entries actually satisfy.
func (r *Reader) GuessMinAlignment() (uint64, error) {
	gcd := uint64(minGuessedAlignment)
	for i := 0; i < int(r.numFiles); i++ {
		entry, err := r.entryAt(i)
		if err != nil {
			return 0, err
		}
		gcd = binfmt.GCD(gcd, uint64(r.dataOffset+entry.dataBegin))
	}
	if !binfmt.IsValidAlignment(gcd) {
		return minGuessedAlignment, nil
	}
	return gcd, nil
}

// AreFilesEqual reports whether a and b contain the same files, in
// the same order, with the same names and data.
func AreFilesEqual(a, b *Reader) (bool, error) {
	if a.Len() != b.Len() {
		return false, nil
	}
	for i := 0; i < a.Len(); i++ {
		fa, err := a.FileAt(i)
		if err != nil {
			return false, err
		}
		fb, err := b.FileAt(i)
		if err != nil {
			return false, err
		}
		if fa.Name != fb.Name || !bytes.Equal(fa.Data, fb.Data) {
			return false, nil
		}
	}
	return true, nil
}
