package sarc

import "github.com/scigolib/nindata/internal/binfmt"

// defaultExtensionAlignment is the compiled-in extension→alignment
// table applied before any per-writer override. It approximates the
// AGLENV resource-class alignment table (the original parameter sheet
// listing every engine resource extension and its required alignment
// was not available to ground this table exactly; the entries below
// are the well-known fixed overrides the format documentation and the
// writer logic call out by name, plus the common AGLENV extensions
// this module could confirm).
var defaultExtensionAlignment = map[string]uint64{
	"ksky":   8,
	"bksky":  8,
	"gtx":    0x2000,
	"sharcb": 0x1000,
	"sharc":  0x1000,
	"baglmf": 0x80,
	// bffnt's alignment is endianness-dependent and is applied
	// separately in applyDefaultAlignments, not from this table.
}

// factoryExtensions is the set of "factory" resource-class extensions:
// known binary formats treated as already internally aligned, so the
// content-sniffing alignment passes in alignmentForFile are skipped
// for them unless legacy mode is set. None of them has an entry in
// defaultExtensionAlignment. Approximated from the subset of AGLENV
// resource classes this module could confirm. The set is fixed:
// AddAlignmentRequirement sets an extension's alignment but does not
// add the extension to this set.
var factoryExtensions = map[string]struct{}{
	"sbactorpack":  {},
	"sbeventpack":  {},
	"bmscdef":      {},
	"sblwp":        {},
	"sbfres":       {},
	"sbactorname":  {},
	"sbquestpack":  {},
	"sbgparamlist": {},
}

func isFactoryExtension(ext string) bool {
	_, ok := factoryExtensions[ext]
	return ok
}

// alignmentForNewBinaryFile sniffs the generic "new binary file"
// alignment: a one-byte shift amount at offset 0xE, validated by a u32
// file-size field at offset 0x1C matching the payload's actual length.
func alignmentForNewBinaryFile(data []byte, endian binfmt.Endian) uint64 {
	if len(data) <= 0x20 {
		return 1
	}
	fileEndian, err := sniffNewBinaryEndian(data)
	if err != nil {
		return 1
	}
	fileSize := fileEndian.Order().Uint32(data[0x1C:0x20])
	if int(fileSize) != len(data) {
		return 1
	}
	return 1 << data[0xE]
}

// sniffNewBinaryEndian reads the two-byte BOM a "new binary" resource
// carries at offset 0xC, distinct from both the BYML and SARC BOM
// conventions but numerically identical to SARC's.
func sniffNewBinaryEndian(data []byte) (binfmt.Endian, error) {
	return binfmt.DetectSARCEndian(data[0xC:0xE])
}

// alignmentForBFLIM sniffs the Cafe BFLIM trailer alignment: the
// 0x28-byte trailer begins with "FLIM", and the alignment is a
// big-endian u16 at len-0x8 (not the final two bytes of the file).
func alignmentForBFLIM(data []byte) uint64 {
	if len(data) <= 0x28 {
		return 1
	}
	trailer := data[len(data)-0x28:]
	if string(trailer[:4]) != "FLIM" {
		return 1
	}
	return uint64(binfmt.BigEndian.Order().Uint16(data[len(data)-0x8 : len(data)-0x6]))
}

// isLikelySarc reports whether data looks like a (possibly Yaz0
// compressed) SARC archive, used by legacy mode to require nested
// archives be page-aligned.
func isLikelySarc(data []byte) bool {
	if len(data) < 0x20 {
		return false
	}
	if string(data[0:4]) == sarcMagic {
		return true
	}
	return len(data) >= 0x15 && string(data[0:4]) == "Yaz0" && string(data[0x11:0x15]) == sarcMagic
}
