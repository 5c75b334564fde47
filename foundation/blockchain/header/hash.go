package header

import (
	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"golang.org/x/crypto/blake2b"
)

// MiningHash converts the pre-nonce header bytes and the nonce bytes into
// the proof of work hash.
//
// The nonce is never part of the message. It is the key material for a
// KMAC256 that produces a 32 byte key, and that key drives a keyed
// BLAKE2b-256 over the same data. Every nonce changes the internal state of
// both functions so no work can be carried from one attempt to the next.
func MiningHash(data []byte, nonce []byte) chain.Hash {
	return newHasher().hash(data, nonce)
}

// hasher holds the state reused between attempts on the same header. Only
// the keyed BLAKE2b digest is constructed per attempt since x/crypto can't
// re-key an existing one.
type hasher struct {
	kmac *kmac
	key  [32]byte
	sum  [blake2b.Size256]byte
}

func newHasher() *hasher {
	return &hasher{
		kmac: newKMAC256(nil),
	}
}

func (h *hasher) hash(data []byte, nonce []byte) chain.Hash {
	h.kmac.sum(h.key[:], nonce, data)

	d, err := blake2b.New256(h.key[:])
	if err != nil {

		// Only possible for a key longer than 64 bytes.
		panic(err)
	}
	d.Write(data)
	d.Sum(h.sum[:0])

	return chain.Hash(h.sum)
}
