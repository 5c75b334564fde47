// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.
// This code has been cleaned up, refactored, and turned into generics.

// Package merkle provides an implementation of a merkle tree used to
// commit a block's transactions into the header's merkle root.
package merkle

import (
	"errors"
	"fmt"
	"hash"

	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"golang.org/x/crypto/blake2b"
)

// ErrNotFound is returned when a proof is requested for a value that isn't
// in the tree.
var ErrNotFound = errors.New("unable to find data in tree")

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable[T any] interface {
	Hash() (chain.Hash, error)
	Equals(other T) bool
}

// =============================================================================

// Tree represents a merkle tree that uses data of some type T that exhibits the
// behavior defined by the Hashable constraint.
type Tree[T Hashable[T]] struct {
	Root         *Node[T]
	Leafs        []*Node[T]
	MerkleRoot   chain.Hash
	hashStrategy func() hash.Hash
}

// WithHashStrategy is used to change the default hash strategy of using
// BLAKE2b-256 when constructing a new tree. The strategy must produce
// 32 byte digests.
func WithHashStrategy[T Hashable[T]](hashStrategy func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a new merkle tree that uses data of some type T that
// exhibits the behavior defined by the Hashable interface.
func NewTree[T Hashable[T]](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	t := Tree[T]{
		hashStrategy: newBlake2b,
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.Generate(values); err != nil {
		return nil, err
	}

	return &t, nil
}

// Generate constructs the leafs and nodes of the tree from the specified
// data. If the tree has been generated previously, the tree is re-generated
// from scratch.
func (t *Tree[T]) Generate(values []T) error {
	if len(values) == 0 {
		return errors.New("cannot construct tree with no content")
	}

	leafs := make([]*Node[T], 0, len(values)+1)
	for _, value := range values {
		hash, err := value.Hash()
		if err != nil {
			return err
		}

		leafs = append(leafs, &Node[T]{
			Hash:  hash,
			Value: value,
			Tree:  t,
		})
	}

	// An odd number of leafs pairs the last leaf with itself.
	if len(leafs)%2 == 1 {
		last := leafs[len(leafs)-1]
		leafs = append(leafs, &Node[T]{
			Hash:  last.Hash,
			Value: last.Value,
			dup:   true,
			Tree:  t,
		})
	}

	root, err := buildIntermediate(leafs, t)
	if err != nil {
		return err
	}

	t.Root = root
	t.Leafs = leafs
	t.MerkleRoot = root.Hash

	return nil
}

// Proof returns the set of hashes and the order of concatenating those
// hashes for proving a value is in the tree. An order of 0 means the proof
// hash is concatenated first, 1 means it is concatenated second.
func (t *Tree[T]) Proof(data T) ([]chain.Hash, []int64, error) {
	for _, node := range t.Leafs {
		if node.dup || !node.Value.Equals(data) {
			continue
		}

		var merkleProof []chain.Hash
		var order []int64
		nodeParent := node.Parent

		for nodeParent != nil {
			if nodeParent.Left.Hash == node.Hash {
				merkleProof = append(merkleProof, nodeParent.Right.Hash)
				order = append(order, 1)
			} else {
				merkleProof = append(merkleProof, nodeParent.Left.Hash)
				order = append(order, 0)
			}
			node = nodeParent
			nodeParent = nodeParent.Parent
		}

		return merkleProof, order, nil
	}

	return nil, nil, ErrNotFound
}

// =============================================================================

// Node represents a node, root, or leaf in the tree. It stores pointers to its
// immediate relationships, a hash, the data if it is a leaf, and other metadata.
type Node[T Hashable[T]] struct {
	Tree   *Tree[T]
	Parent *Node[T]
	Left   *Node[T]
	Right  *Node[T]
	Hash   chain.Hash
	Value  T
	dup    bool
}

// =============================================================================

// hashPair hashes the concatenation of two child hashes.
func (t *Tree[T]) hashPair(left chain.Hash, right chain.Hash) (chain.Hash, error) {
	h := t.hashStrategy()

	var buf [2 * chain.HashSize]byte
	copy(buf[:chain.HashSize], left[:])
	copy(buf[chain.HashSize:], right[:])

	if _, err := h.Write(buf[:]); err != nil {
		return chain.Hash{}, err
	}

	sum := h.Sum(nil)
	if len(sum) != chain.HashSize {
		return chain.Hash{}, fmt.Errorf("hash strategy produced %d bytes, exp %d", len(sum), chain.HashSize)
	}

	var out chain.Hash
	copy(out[:], sum)

	return out, nil
}

// buildIntermediate is a helper function that for a given list of leaf nodes,
// constructs the intermediate and root levels of the tree. Returns the resulting
// root node of the tree.
func buildIntermediate[T Hashable[T]](nl []*Node[T], t *Tree[T]) (*Node[T], error) {
	var nodes []*Node[T]

	for i := 0; i < len(nl); i += 2 {
		left, right := i, i+1
		if i+1 == len(nl) {
			right = i
		}

		hash, err := t.hashPair(nl[left].Hash, nl[right].Hash)
		if err != nil {
			return nil, err
		}

		n := Node[T]{
			Left:  nl[left],
			Right: nl[right],
			Hash:  hash,
			Tree:  t,
		}

		nodes = append(nodes, &n)
		nl[left].Parent = &n
		nl[right].Parent = &n

		if len(nl) == 2 {
			return &n, nil
		}
	}

	return buildIntermediate(nodes, t)
}

// newBlake2b is the default hash strategy.
func newBlake2b() hash.Hash {
	h, _ := blake2b.New256(nil)
	return h
}
