package header

import (
	"crypto/sha3"
)

// kmacRate is the cSHAKE256 rate in bytes, used as the bytepad width.
const kmacRate = 136

// kmacName is the function name string defined for KMAC in NIST SP 800-185.
var kmacName = []byte("KMAC")

// kmac computes KMAC256 with a fixed customization string. The cSHAKE state
// with the name and customization absorbed is built once and copied for
// every computation, and the encodings are written into a reused buffer.
// A kmac is not safe for concurrent use.
type kmac struct {
	base  *sha3.SHAKE
	state sha3.SHAKE
	buf   []byte
}

func newKMAC256(custom []byte) *kmac {
	return &kmac{
		base: sha3.NewCSHAKE256(kmacName, custom),
		buf:  make([]byte, 0, kmacRate),
	}
}

// sum computes KMAC256(key, msg, len(out)*8) into out.
func (k *kmac) sum(out []byte, key []byte, msg []byte) {
	k.state = *k.base

	k.buf = appendBytepad(k.buf[:0], key, kmacRate)
	k.state.Write(k.buf)
	k.state.Write(msg)

	k.buf = appendRightEncode(k.buf[:0], uint64(len(out))*8)
	k.state.Write(k.buf)

	k.state.Read(out)
}

// kmac256 is the one shot form of KMAC256 with a customization string.
func kmac256(out []byte, key []byte, msg []byte, custom []byte) {
	newKMAC256(custom).sum(out, key, msg)
}

// =============================================================================

// appendLeftEncode appends x as its byte length followed by the big-endian
// bytes.
func appendLeftEncode(b []byte, x uint64) []byte {
	n := encodedLen(x)

	b = append(b, byte(n))
	for i := n - 1; i >= 0; i-- {
		b = append(b, byte(x>>(8*i)))
	}

	return b
}

// appendRightEncode appends x as the big-endian bytes followed by the byte
// length.
func appendRightEncode(b []byte, x uint64) []byte {
	n := encodedLen(x)

	for i := n - 1; i >= 0; i-- {
		b = append(b, byte(x>>(8*i)))
	}

	return append(b, byte(n))
}

// appendBytepad appends bytepad(encode_string(s), w): the width, the bit
// length of s, s itself, then zeros up to a multiple of w.
func appendBytepad(b []byte, s []byte, w int) []byte {
	start := len(b)

	b = appendLeftEncode(b, uint64(w))
	b = appendLeftEncode(b, uint64(len(s))*8)
	b = append(b, s...)

	for (len(b)-start)%w != 0 {
		b = append(b, 0)
	}

	return b
}

// encodedLen returns the number of bytes needed for x, at least one.
func encodedLen(x uint64) int {
	n := 1
	for x > 0xff {
		x >>= 8
		n++
	}

	return n
}
