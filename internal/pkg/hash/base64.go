package hash

// bcrypt uses its own base64 alphabet, without padding, and never emits '+'
// or '/'.
const alphabet = "./ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const invalidSymbol byte = 0xFF

// decodeTable maps an ASCII byte to its 6-bit value, or invalidSymbol.
var decodeTable = func() [128]byte {
	var t [128]byte
	for i := range t {
		t[i] = invalidSymbol
	}
	for i := 0; i < len(alphabet); i++ {
		t[alphabet[i]] = byte(i)
	}
	return t
}()

const (
	saltLen        = 16
	encodedSaltLen = 22
	rawHashLen     = 24
	encodedHashLen = 31
)

// encodeGroups encodes src in 3 byte groups; len(src) must be a multiple of 3.
func encodeGroups(src []byte) []byte {
	dst := make([]byte, 0, len(src)/3*4)
	for i := 0; i+2 < len(src); i += 3 {
		v := uint32(src[i])<<16 | uint32(src[i+1])<<8 | uint32(src[i+2])
		dst = append(dst,
			alphabet[v>>18&0x3f],
			alphabet[v>>12&0x3f],
			alphabet[v>>6&0x3f],
			alphabet[v&0x3f],
		)
	}
	return dst
}

// decodeGroups is the inverse of encodeGroups over 6-bit values; len(src)
// must be a multiple of 4.
func decodeGroups(src []byte) []byte {
	dst := make([]byte, 0, len(src)/4*3)
	for i := 0; i+3 < len(src); i += 4 {
		v := uint32(src[i])<<18 | uint32(src[i+1])<<12 | uint32(src[i+2])<<6 | uint32(src[i+3])
		dst = append(dst, byte(v>>16), byte(v>>8), byte(v))
	}
	return dst
}

// encodeSalt pads the 16 byte salt to 18 bytes and keeps 22 characters.
func encodeSalt(salt []byte) string {
	buf := make([]byte, saltLen+2)
	copy(buf, salt)
	return string(encodeGroups(buf)[:encodedSaltLen])
}

// encodeHash zeroes the last of the 24 bytes and drops the last character.
func encodeHash(sum []byte) string {
	buf := make([]byte, rawHashLen)
	copy(buf, sum)
	buf[rawHashLen-1] = 0
	return string(encodeGroups(buf)[:encodedHashLen])
}

// decodeSalt turns the 22 character salt segment back into 16 raw bytes.
func decodeSalt(s string) ([]byte, error) {
	if len(s) != encodedSaltLen {
		return nil, ErrInvalidRecord
	}

	values := make([]byte, encodedSaltLen+2)
	for i := 0; i < encodedSaltLen; i++ {
		c := s[i]
		if c >= 128 || decodeTable[c] == invalidSymbol {
			return nil, ErrInvalidRecord
		}
		values[i] = decodeTable[c]
	}

	return decodeGroups(values)[:saltLen], nil
}
