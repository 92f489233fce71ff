// Package sarc reads and writes the SARC archive format: a flat,
// name-hashed collection of files used alongside BYML documents in
// Nintendo EAD/EPD titles.
package sarc

import "github.com/scigolib/nindata/internal/binfmt"

const (
	sarcMagic = "SARC"
	sfatMagic = "SFAT"
	sfntMagic = "SFNT"

	resHeaderSize   = 0x14
	sfatHeaderSize  = 0x0C
	sfatEntrySize   = 0x10
	sfntHeaderSize  = 0x08
	declaredVersion = 0x0100
	nameFlagBit     = 1 << 24
	nameOffsetMask  = 0xFFFFFF
	nameOffsetShift = 2 // rel_name_opt_offset low bits are (offset / 4)
)

// resHeader is the 0x14-byte SARC archive header.
type resHeader struct {
	headerSize uint16
	endian     binfmt.Endian
	fileSize   uint32
	dataOffset uint32
	version    uint16
	reserved   uint16
}

func parseResHeader(buf []byte) (resHeader, error) {
	if len(buf) < resHeaderSize {
		return resHeader{}, binfmt.New(binfmt.InsufficientData, "need %d bytes for SARC header, have %d", resHeaderSize, len(buf))
	}
	if string(buf[0:4]) != sarcMagic {
		return resHeader{}, binfmt.New(binfmt.BadMagic, "expected %q, found %q", sarcMagic, buf[0:4])
	}
	endian, err := binfmt.DetectSARCEndian(buf[6:8])
	if err != nil {
		return resHeader{}, err
	}
	order := endian.Order()
	return resHeader{
		headerSize: order.Uint16(buf[4:6]),
		endian:     endian,
		fileSize:   order.Uint32(buf[8:12]),
		dataOffset: order.Uint32(buf[12:16]),
		version:    order.Uint16(buf[16:18]),
		reserved:   order.Uint16(buf[18:20]),
	}, nil
}

func writeResHeader(h resHeader) []byte {
	buf := make([]byte, resHeaderSize)
	copy(buf[0:4], sarcMagic)
	order := h.endian.Order()
	order.PutUint16(buf[4:6], resHeaderSize)
	copy(buf[6:8], binfmt.EncodeSARCBOM(h.endian))
	order.PutUint32(buf[8:12], h.fileSize)
	order.PutUint32(buf[12:16], h.dataOffset)
	order.PutUint16(buf[16:18], declaredVersion)
	order.PutUint16(buf[18:20], h.reserved)
	return buf
}

// resFatHeader is the 0x0C-byte SFAT section header, magic included
// (4-byte "SFAT" + 8 bytes of fields).
type resFatHeader struct {
	headerSize     uint16
	numFiles       uint16
	hashMultiplier uint32
}

func parseResFatHeader(buf []byte, endian binfmt.Endian) (resFatHeader, error) {
	if len(buf) < sfatHeaderSize {
		return resFatHeader{}, binfmt.New(binfmt.InsufficientData, "need %d bytes for SFAT header", sfatHeaderSize)
	}
	if string(buf[0:4]) != sfatMagic {
		return resFatHeader{}, binfmt.New(binfmt.BadMagic, "expected %q, found %q", sfatMagic, buf[0:4])
	}
	order := endian.Order()
	numFiles := order.Uint16(buf[6:8])
	if numFiles&0xC000 != 0 {
		return resFatHeader{}, binfmt.New(binfmt.InvalidData, "SFAT num_files high bits must be zero, got 0x%04X", numFiles)
	}
	return resFatHeader{
		headerSize:     order.Uint16(buf[4:6]),
		numFiles:       numFiles,
		hashMultiplier: order.Uint32(buf[8:12]),
	}, nil
}

func writeResFatHeader(h resFatHeader, endian binfmt.Endian) []byte {
	buf := make([]byte, sfatHeaderSize)
	copy(buf[0:4], sfatMagic)
	order := endian.Order()
	order.PutUint16(buf[4:6], sfatHeaderSize)
	order.PutUint16(buf[6:8], h.numFiles)
	order.PutUint32(buf[8:12], h.hashMultiplier)
	return buf
}

// resFatEntry is one 0x10-byte SFAT file record.
type resFatEntry struct {
	nameHash         uint32
	relNameOptOffset uint32
	dataBegin        uint32
	dataEnd          uint32
}

func (e resFatEntry) hasName() bool { return e.relNameOptOffset&nameFlagBit != 0 }

func (e resFatEntry) nameTableOffset() uint32 {
	return (e.relNameOptOffset & nameOffsetMask) << nameOffsetShift
}

func parseResFatEntry(buf []byte, endian binfmt.Endian) (resFatEntry, error) {
	if len(buf) < sfatEntrySize {
		return resFatEntry{}, binfmt.New(binfmt.InsufficientData, "need %d bytes for SFAT entry", sfatEntrySize)
	}
	order := endian.Order()
	return resFatEntry{
		nameHash:         order.Uint32(buf[0:4]),
		relNameOptOffset: order.Uint32(buf[4:8]),
		dataBegin:        order.Uint32(buf[8:12]),
		dataEnd:          order.Uint32(buf[12:16]),
	}, nil
}

func writeResFatEntry(e resFatEntry, endian binfmt.Endian) []byte {
	buf := make([]byte, sfatEntrySize)
	order := endian.Order()
	order.PutUint32(buf[0:4], e.nameHash)
	order.PutUint32(buf[4:8], e.relNameOptOffset)
	order.PutUint32(buf[8:12], e.dataBegin)
	order.PutUint32(buf[12:16], e.dataEnd)
	return buf
}

// resFntHeader is the 0x08-byte SFNT section header, magic included
// (4-byte "SFNT" + 4 bytes of fields).
type resFntHeader struct {
	headerSize uint16
	reserved   uint16
}

func parseResFntHeader(buf []byte, endian binfmt.Endian) (resFntHeader, error) {
	if len(buf) < sfntHeaderSize {
		return resFntHeader{}, binfmt.New(binfmt.InsufficientData, "need %d bytes for SFNT header", sfntHeaderSize)
	}
	if string(buf[0:4]) != sfntMagic {
		return resFntHeader{}, binfmt.New(binfmt.BadMagic, "expected %q, found %q", sfntMagic, buf[0:4])
	}
	order := endian.Order()
	return resFntHeader{
		headerSize: order.Uint16(buf[4:6]),
		reserved:   order.Uint16(buf[6:8]),
	}, nil
}

func writeResFntHeader(endian binfmt.Endian) []byte {
	buf := make([]byte, sfntHeaderSize)
	copy(buf[0:4], sfntMagic)
	order := endian.Order()
	order.PutUint16(buf[4:6], sfntHeaderSize)
	return buf
}
