// Package chain provides the data model shared by the mining core: hashes,
// transactions, block templates, headers, and solutions.
package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HashSize is the number of bytes in a Hash.
const HashSize = 32

// ZeroHash represents a hash of all zeros.
var ZeroHash Hash

// Hash represents a 256-bit hash value. Hashes are fixed 32 byte sequences
// and when treated as numbers they are little-endian.
type Hash [HashSize]byte

// ToHash converts a 0x prefixed hex string into a Hash.
func ToHash(s string) (Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Hash{}, fmt.Errorf("decoding hash %q: %w", s, err)
	}

	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("invalid hash length %d, exp %d", len(b), HashSize)
	}

	var h Hash
	copy(h[:], b)

	return h, nil
}

// String returns the 0x prefixed hex encoding of the hash.
func (h Hash) String() string {
	return hexutil.Encode(h[:])
}

// IsZero reports whether every byte of the hash is zero.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Bytes returns a copy of the hash as a slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// MarshalText implements the encoding.TextMarshaler interface.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (h *Hash) UnmarshalText(data []byte) error {
	v, err := ToHash(string(data))
	if err != nil {
		return err
	}

	*h = v
	return nil
}
