package header

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"github.com/ardanlabs/miner/foundation/blockchain/pow"
	"github.com/holiman/uint256"
)

// ErrPOWNotSolved is returned when a header hash doesn't meet its target.
var ErrPOWNotSolved = errors.New("proof of work not solved")

// BlockHeader is the field form of a header, used for submission and
// independent validation of mined blocks.
type BlockHeader struct {
	Version      uint32       `json:"version"`
	PrevBlock    chain.Hash   `json:"prev_block"`
	MerkleRoot   chain.Hash   `json:"merkle_root"`
	WitnessRoot  chain.Hash   `json:"witness_root"`
	TreeRoot     chain.Hash   `json:"tree_root"`
	ReservedRoot chain.Hash   `json:"reserved_root"`
	Time         uint64       `json:"time"`
	Bits         uint32       `json:"bits"`
	Nonce        *uint256.Int `json:"nonce"`
}

// FromSolution assembles the header of a solved template. The merkle root
// is the one computed for the solution's coinbase.
func FromSolution(tmpl chain.BlockTemplate, sol chain.Solution, merkleRoot chain.Hash) BlockHeader {
	return BlockHeader{
		Version:      tmpl.Version,
		PrevBlock:    tmpl.PrevBlockHash,
		MerkleRoot:   merkleRoot,
		WitnessRoot:  tmpl.WitnessRoot,
		TreeRoot:     tmpl.TreeRoot,
		ReservedRoot: tmpl.ReservedRoot,
		Time:         sol.Time,
		Bits:         tmpl.Bits,
		Nonce:        sol.Nonce.Clone(),
	}
}

// Decode reads the field form out of header bytes.
func Decode(b *Bytes) BlockHeader {
	return BlockHeader{
		Version:      b.Version(),
		PrevBlock:    b.PrevBlock(),
		MerkleRoot:   b.MerkleRoot(),
		WitnessRoot:  b.WitnessRoot(),
		TreeRoot:     b.TreeRoot(),
		ReservedRoot: b.ReservedRoot(),
		Time:         b.Time(),
		Bits:         b.Bits(),
		Nonce:        b.Nonce(),
	}
}

// Bytes serializes the header.
func (bh BlockHeader) Bytes() *Bytes {
	b := New(bh.Version, bh.PrevBlock, bh.Bits)
	b.SetMerkleRoot(bh.MerkleRoot)
	b.SetWitnessRoot(bh.WitnessRoot)
	b.SetTreeRoot(bh.TreeRoot)
	b.SetReservedRoot(bh.ReservedRoot)
	b.SetTime(bh.Time)

	nonce := bh.Nonce
	if nonce == nil {
		nonce = new(uint256.Int)
	}
	b.SetNonce(nonce)

	return b
}

// Hash returns the proof of work hash of the header.
func (bh BlockHeader) Hash() chain.Hash {
	return bh.Bytes().Hash()
}

// ValidatePOW checks the header hash against the header's own bits using
// the same rule the miner uses.
func (bh BlockHeader) ValidatePOW() error {
	if _, err := pow.BitsToTarget(bh.Bits); err != nil {
		return fmt.Errorf("bits %08x: %w", bh.Bits, err)
	}

	hash := bh.Hash()
	if !pow.Verify(hash, bh.Bits) {
		return fmt.Errorf("hash %s bits %08x: %w", hash, bh.Bits, ErrPOWNotSolved)
	}

	return nil
}
