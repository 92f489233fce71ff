package byml

import "github.com/scigolib/nindata/internal/binfmt"

// headerSize is the fixed 16-byte length of a BYML document header.
const headerSize = 16

// header holds the fixed document preamble: detected endianness,
// declared version, and the three section offsets (any may be zero).
type header struct {
	endian       binfmt.Endian
	version      uint16
	keyTableOff  uint32
	stringTabOff uint32
	rootNodeOff  uint32
}

// parseHeader decodes the 16-byte BYML header at the start of buf.
func parseHeader(buf []byte) (header, error) {
	if len(buf) < headerSize {
		return header{}, binfmt.New(binfmt.InsufficientData,
			"need %d bytes for byml header, have %d", headerSize, len(buf))
	}

	endian, err := binfmt.DetectBYMLEndian(buf[:2])
	if err != nil {
		return header{}, err
	}
	order := endian.Order()

	version := order.Uint16(buf[2:4])
	if !IsValidVersion(version) {
		return header{}, binfmt.New(binfmt.InvalidVersion, "version %d outside 1..7", version)
	}

	return header{
		endian:       endian,
		version:      version,
		keyTableOff:  order.Uint32(buf[4:8]),
		stringTabOff: order.Uint32(buf[8:12]),
		rootNodeOff:  order.Uint32(buf[12:16]),
	}, nil
}

// writeHeader encodes h into a fresh 16-byte buffer.
func writeHeader(h header) []byte {
	buf := make([]byte, headerSize)
	order := h.endian.Order()

	if h.endian == binfmt.BigEndian {
		copy(buf[0:2], "BY")
	} else {
		copy(buf[0:2], "YB")
	}
	order.PutUint16(buf[2:4], h.version)
	order.PutUint32(buf[4:8], h.keyTableOff)
	order.PutUint32(buf[8:12], h.stringTabOff)
	order.PutUint32(buf[12:16], h.rootNodeOff)
	return buf
}
