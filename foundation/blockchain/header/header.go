// Package header maintains the serialized block header used while mining.
// Instead of serializing a header from scratch for every attempt, the bytes
// are kept in memory and only the fields that change are overwritten.
package header

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"github.com/holiman/uint256"
)

// ErrInvalidLength is returned when raw bytes aren't a complete header.
var ErrInvalidLength = errors.New("invalid header length")

// Header layout. All numeric fields are little-endian.
//
//	version(4) | prev(32) | merkle(32) | witness(32) | tree(32) |
//	reserved(32) | time(8) | bits(4) | padding(32) | nonce(32)
const (
	Size        = 240
	NonceOffset = 208
	NonceSize   = 32

	versionOffset  = 0
	prevOffset     = 4
	merkleOffset   = 36
	witnessOffset  = 68
	treeOffset     = 100
	reservedOffset = 132
	timeOffset     = 164
	bitsOffset     = 172
)

// Bytes is the in-place mutable header. Offsets never move for the life of
// the value and mutators only touch their own range.
// A Bytes value is not safe for concurrent use.
type Bytes struct {
	data   [Size]byte
	hasher *hasher
}

// New constructs the header bytes with the fixed fields written and all
// roots, the time, and the nonce set to zero.
func New(version uint32, prevBlock chain.Hash, bits uint32) *Bytes {
	var b Bytes

	binary.LittleEndian.PutUint32(b.data[versionOffset:], version)
	copy(b.data[prevOffset:merkleOffset], prevBlock[:])
	binary.LittleEndian.PutUint32(b.data[bitsOffset:], bits)

	return &b
}

// FromSlice constructs header bytes from a raw serialized header.
func FromSlice(raw []byte) (*Bytes, error) {
	if len(raw) != Size {
		return nil, fmt.Errorf("got %d bytes, exp %d: %w", len(raw), Size, ErrInvalidLength)
	}

	var b Bytes
	copy(b.data[:], raw)

	return &b, nil
}

// SetMerkleRoot overwrites the merkle root.
func (b *Bytes) SetMerkleRoot(root chain.Hash) {
	copy(b.data[merkleOffset:witnessOffset], root[:])
}

// SetWitnessRoot overwrites the witness root. The miner never calls this.
func (b *Bytes) SetWitnessRoot(root chain.Hash) {
	copy(b.data[witnessOffset:treeOffset], root[:])
}

// SetTreeRoot overwrites the tree root. The miner never calls this.
func (b *Bytes) SetTreeRoot(root chain.Hash) {
	copy(b.data[treeOffset:reservedOffset], root[:])
}

// SetReservedRoot overwrites the reserved root. The miner never calls this.
func (b *Bytes) SetReservedRoot(root chain.Hash) {
	copy(b.data[reservedOffset:timeOffset], root[:])
}

// SetTime overwrites the time.
func (b *Bytes) SetTime(t uint64) {
	binary.LittleEndian.PutUint64(b.data[timeOffset:], t)
}

// SetNonce overwrites the 256-bit nonce, least significant byte first.
func (b *Bytes) SetNonce(nonce *uint256.Int) {
	n := b.data[NonceOffset:]
	binary.LittleEndian.PutUint64(n[0:], nonce[0])
	binary.LittleEndian.PutUint64(n[8:], nonce[1])
	binary.LittleEndian.PutUint64(n[16:], nonce[2])
	binary.LittleEndian.PutUint64(n[24:], nonce[3])
}

// Hash computes the mining hash over the current contents.
func (b *Bytes) Hash() chain.Hash {
	if b.hasher == nil {
		b.hasher = newHasher()
	}

	return b.hasher.hash(b.data[:NonceOffset], b.data[NonceOffset:])
}

// =============================================================================

// Version returns the version field.
func (b *Bytes) Version() uint32 {
	return binary.LittleEndian.Uint32(b.data[versionOffset:])
}

// PrevBlock returns the previous header hash.
func (b *Bytes) PrevBlock() chain.Hash {
	return b.hashAt(prevOffset)
}

// MerkleRoot returns the merkle root.
func (b *Bytes) MerkleRoot() chain.Hash {
	return b.hashAt(merkleOffset)
}

// WitnessRoot returns the witness root.
func (b *Bytes) WitnessRoot() chain.Hash {
	return b.hashAt(witnessOffset)
}

// TreeRoot returns the tree root.
func (b *Bytes) TreeRoot() chain.Hash {
	return b.hashAt(treeOffset)
}

// ReservedRoot returns the reserved root.
func (b *Bytes) ReservedRoot() chain.Hash {
	return b.hashAt(reservedOffset)
}

// Time returns the time field.
func (b *Bytes) Time() uint64 {
	return binary.LittleEndian.Uint64(b.data[timeOffset:])
}

// Bits returns the compact difficulty.
func (b *Bytes) Bits() uint32 {
	return binary.LittleEndian.Uint32(b.data[bitsOffset:])
}

// Nonce returns the nonce as a number.
func (b *Bytes) Nonce() *uint256.Int {
	n := b.data[NonceOffset:]

	var z uint256.Int
	z[0] = binary.LittleEndian.Uint64(n[0:])
	z[1] = binary.LittleEndian.Uint64(n[8:])
	z[2] = binary.LittleEndian.Uint64(n[16:])
	z[3] = binary.LittleEndian.Uint64(n[24:])

	return &z
}

// Raw returns a copy of the serialized header.
func (b *Bytes) Raw() []byte {
	raw := make([]byte, Size)
	copy(raw, b.data[:])
	return raw
}

func (b *Bytes) hashAt(offset int) chain.Hash {
	var h chain.Hash
	copy(h[:], b.data[offset:offset+chain.HashSize])
	return h
}
