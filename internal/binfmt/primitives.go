package binfmt

// MaxU24 is the largest value representable in a 24-bit field.
const MaxU24 = 1<<24 - 1

// ReadU24 decodes a 3-byte unsigned integer at buf[0:3] in the given
// byte order.
func ReadU24(buf []byte, order Endian) (uint32, error) {
	if len(buf) < 3 {
		return 0, New(InsufficientData, "need 3 bytes for u24, have %d", len(buf))
	}
	if order == BigEndian {
		return uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2]), nil
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16, nil
}

// PutU24 encodes v into buf[0:3] in the given byte order. It returns
// an error if v does not fit in 24 bits.
func PutU24(buf []byte, v uint32, order Endian) error {
	if v > MaxU24 {
		return New(InvalidData, "value %d exceeds u24 range", v)
	}
	if len(buf) < 3 {
		return New(InsufficientData, "need 3 bytes for u24, have %d", len(buf))
	}
	if order == BigEndian {
		buf[0] = byte(v >> 16)
		buf[1] = byte(v >> 8)
		buf[2] = byte(v)
	} else {
		buf[0] = byte(v)
		buf[1] = byte(v >> 8)
		buf[2] = byte(v >> 16)
	}
	return nil
}

// AlignUp rounds pos up to the next multiple of a. a must be a power
// of two; callers that cannot guarantee this should check
// IsValidAlignment first.
func AlignUp(pos, a uint64) uint64 {
	if a == 0 {
		return pos
	}
	return pos + (a-pos%a)%a
}

// IsValidAlignment reports whether a is a positive power of two.
func IsValidAlignment(a uint64) bool {
	return a > 0 && a&(a-1) == 0
}

// GCD returns the greatest common divisor of a and b, 0 if both are 0.
func GCD(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// LCM returns the least common multiple of a and b, 0 if either is 0.
func LCM(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	return a / GCD(a, b) * b
}

// HashName computes the SARC file-name hash: h = h*mul + b over the
// ASCII bytes of name, with wrapping 32-bit arithmetic starting from
// h = 0.
func HashName(mul uint32, name string) uint32 {
	var h uint32
	for i := 0; i < len(name); i++ {
		h = h*mul + uint32(name[i])
	}
	return h
}
