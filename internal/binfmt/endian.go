package binfmt

import "encoding/binary"

// Endian is the byte order of a parsed document. BYML and SARC each
// signal it with a different on-wire convention (see DetectBYMLEndian
// and DetectSARCEndian) but share this one representation once detected.
type Endian int

const (
	// LittleEndian documents use binary.LittleEndian for every
	// multi-byte integer field.
	LittleEndian Endian = iota
	// BigEndian documents use binary.BigEndian for every multi-byte
	// integer field.
	BigEndian
)

// Order returns the standard library byte order matching e.
func (e Endian) Order() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (e Endian) String() string {
	if e == BigEndian {
		return "big"
	}
	return "little"
}

// bymlMagicBig and bymlMagicLittle are the two-byte ASCII signatures a
// BYML document opens with; the signature itself doubles as the
// endianness marker.
const (
	bymlMagicBig    = "BY"
	bymlMagicLittle = "YB"
)

// DetectBYMLEndian reads the leading two-byte BYML signature and
// returns the endianness it selects. BYML uses ASCII "BY"/"YB" as both
// magic and byte-order mark; this is a distinct mechanism from SARC's
// numeric BOM (DetectSARCEndian) and the two must not be conflated.
func DetectBYMLEndian(buf []byte) (Endian, error) {
	if len(buf) < 2 {
		return 0, New(InsufficientData, "need 2 bytes for byml magic, have %d", len(buf))
	}
	switch string(buf[:2]) {
	case bymlMagicBig:
		return BigEndian, nil
	case bymlMagicLittle:
		return LittleEndian, nil
	default:
		return 0, New(BadMagic, `expected "BY" or "YB", found %q`, buf[:2])
	}
}

// sarcBOMBig and sarcBOMLittle are the two-byte numeric byte-order
// marks a SARC header carries at offset 6 (after "SARC" and the
// header-size field), per the ResHeader layout.
const (
	sarcBOMBig    uint16 = 0xFEFF
	sarcBOMLittle uint16 = 0xFFFE
)

// DetectSARCEndian decodes a two-byte SARC byte-order mark. Unlike
// BYML's ASCII magic, SARC's BOM is a numeric sentinel whose byte
// pattern is ambiguous without knowing which order to decode it in;
// both candidate values are checked directly against the raw bytes.
func DetectSARCEndian(bom []byte) (Endian, error) {
	if len(bom) < 2 {
		return 0, New(InsufficientData, "need 2 bytes for sarc bom, have %d", len(bom))
	}
	switch {
	case binary.BigEndian.Uint16(bom) == sarcBOMBig:
		return BigEndian, nil
	case binary.LittleEndian.Uint16(bom) == sarcBOMLittle:
		return LittleEndian, nil
	default:
		return 0, New(BadMagic, "unrecognized sarc byte-order mark % x", bom[:2])
	}
}

// EncodeSARCBOM returns the two-byte byte-order mark for e, as written
// by the SARC writer.
func EncodeSARCBOM(e Endian) []byte {
	buf := make([]byte, 2)
	if e == BigEndian {
		binary.BigEndian.PutUint16(buf, sarcBOMBig)
	} else {
		binary.LittleEndian.PutUint16(buf, sarcBOMLittle)
	}
	return buf
}
