package database

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"github.com/ardanlabs/miner/foundation/blockchain/header"
	"github.com/ardanlabs/miner/foundation/blockchain/merkle"
)

// Set of errors returned when the block file doesn't verify.
var (
	ErrHashMismatch   = errors.New("block hash does not match its header")
	ErrChainBroken    = errors.New("block does not link to the previous block")
	ErrMerkleMismatch = errors.New("block transactions do not match its merkle root")
)

// Block represents a solved block as it is recorded by the miner.
type Block struct {
	Height     uint32             `json:"height"`
	Header     header.BlockHeader `json:"header"`
	Extranonce uint32             `json:"extranonce"`
	Coinbase   chain.Transaction  `json:"coinbase"`
	TxHashes   []chain.Hash       `json:"tx_hashes"`
}

// MerkleTree builds the tree over the coinbase followed by the block's
// transactions, the same order the miner committed them in.
func (b Block) MerkleTree() (*merkle.Tree[merkle.Leaf], error) {
	leaves := append([]chain.Hash{b.Coinbase.Hash()}, b.TxHashes...)
	return merkle.NewRootBuilder(nil).Tree(leaves)
}

// BlockFS represents what is written to the DB file.
type BlockFS struct {
	Hash  chain.Hash `json:"hash"`
	Block Block      `json:"block"`
}

// NewBlockFS constructs a new BlockFS for persisting.
func NewBlockFS(block Block) BlockFS {
	return BlockFS{
		Hash:  block.Header.Hash(),
		Block: block,
	}
}

// =============================================================================

// loadBlocks reads the current set of blocks. Every block must hash to its
// recorded value, satisfy its own target, commit to its transactions, and
// link to the block before it.
func loadBlocks(dbPath string) ([]BlockFS, error) {
	dbFile, err := os.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer dbFile.Close()

	var blockNum int
	var blocks []BlockFS
	scanner := bufio.NewScanner(dbFile)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		var blockFS BlockFS
		if err := json.Unmarshal(scanner.Bytes(), &blockFS); err != nil {
			return nil, fmt.Errorf("block %d: %w", blockNum, err)
		}

		if hash := blockFS.Block.Header.Hash(); hash != blockFS.Hash {
			return nil, fmt.Errorf("block %d: %w", blockNum, ErrHashMismatch)
		}

		if err := blockFS.Block.Header.ValidatePOW(); err != nil {
			return nil, fmt.Errorf("block %d: %w", blockNum, err)
		}

		tree, err := blockFS.Block.MerkleTree()
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", blockNum, err)
		}

		if tree.MerkleRoot != blockFS.Block.Header.MerkleRoot {
			return nil, fmt.Errorf("block %d: %w", blockNum, ErrMerkleMismatch)
		}

		if blockNum > 0 && blockFS.Block.Header.PrevBlock != blocks[blockNum-1].Hash {
			return nil, fmt.Errorf("block %d: %w", blockNum, ErrChainBroken)
		}

		blocks = append(blocks, blockFS)
		blockNum++
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return blocks, nil
}
