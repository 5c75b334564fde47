package merkle

import (
	"errors"
	"hash"

	"github.com/ardanlabs/miner/foundation/blockchain/chain"
)

// ErrNoLeaves is returned when a root is requested for an empty set.
var ErrNoLeaves = errors.New("no leaves to build a merkle root")

// Leaf is a transaction hash placed in the tree as is.
type Leaf chain.Hash

// Hash implements the Hashable interface. A leaf is its own hash.
func (l Leaf) Hash() (chain.Hash, error) {
	return chain.Hash(l), nil
}

// Equals implements the Hashable interface.
func (l Leaf) Equals(other Leaf) bool {
	return l == other
}

// =============================================================================

// RootBuilder computes merkle roots from ordered leaf hashes. The miner
// uses it to recompute the root each time the coinbase changes.
type RootBuilder struct {
	hashStrategy func() hash.Hash
}

// NewRootBuilder constructs a root builder. A nil strategy means BLAKE2b-256.
func NewRootBuilder(hashStrategy func() hash.Hash) RootBuilder {
	if hashStrategy == nil {
		hashStrategy = newBlake2b
	}

	return RootBuilder{
		hashStrategy: hashStrategy,
	}
}

// Root returns the merkle root of the leaves in the order provided.
func (rb RootBuilder) Root(leaves []chain.Hash) (chain.Hash, error) {
	tree, err := rb.Tree(leaves)
	if err != nil {
		return chain.Hash{}, err
	}

	return tree.MerkleRoot, nil
}

// Tree builds the full tree over the leaves so proofs can be produced.
func (rb RootBuilder) Tree(leaves []chain.Hash) (*Tree[Leaf], error) {
	if len(leaves) == 0 {
		return nil, ErrNoLeaves
	}

	values := make([]Leaf, len(leaves))
	for i, l := range leaves {
		values[i] = Leaf(l)
	}

	hs := rb.hashStrategy
	if hs == nil {
		hs = newBlake2b
	}

	return NewTree(values, WithHashStrategy[Leaf](hs))
}
