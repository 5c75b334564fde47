// Package mining provides the core business API for a standalone miner. It
// serves block templates that extend the locally recorded chain and records
// every solution the worker submits.
package mining

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/miner/business/sys/database"
	"github.com/ardanlabs/miner/business/sys/validate"
	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"github.com/ardanlabs/miner/foundation/blockchain/merkle"
	"github.com/ardanlabs/miner/foundation/blockchain/miner"
)

// Set of error variables for the mining core.
var (
	ErrStaleTemplate = errors.New("template does not extend the latest block")
	ErrBlockNotFound = errors.New("block not found")
)

// MerkleProof is the path from a committed transaction to the merkle root
// of its block. An order of 0 means the proof hash is concatenated first.
type MerkleProof struct {
	Height uint32       `json:"height"`
	Root   chain.Hash   `json:"merkle_root"`
	Leaf   chain.Hash   `json:"leaf"`
	Hashes []chain.Hash `json:"hashes"`
	Order  []int64      `json:"order"`
}

// Config represents the systems the core needs.
type Config struct {
	DB        *database.DB
	Template  chain.BlockTemplate
	EvHandler func(v string, args ...any)
}

// Core manages the set of APIs for mining.
type Core struct {
	db        *database.DB
	mrb       miner.MerkleRootBuilder
	evHandler func(v string, args ...any)

	mu   sync.RWMutex
	base chain.BlockTemplate
}

// NewCore constructs a core for mining api access.
func NewCore(cfg Config) (*Core, error) {
	if cfg.DB == nil {
		return nil, errors.New("database is required")
	}

	if err := validate.Check(cfg.Template); err != nil {
		return nil, fmt.Errorf("validating template: %w", err)
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	c := Core{
		db:        cfg.DB,
		mrb:       merkle.NewRootBuilder(nil),
		evHandler: ev,
		base:      cfg.Template,
	}

	return &c, nil
}

// Template returns the next template to mine. Once blocks are recorded the
// previous hash and height come from the latest block.
func (c *Core) Template(ctx context.Context) (chain.BlockTemplate, error) {
	c.mu.RLock()
	tmpl := c.base
	c.mu.RUnlock()

	tmpl.Transactions = append([]chain.Transaction(nil), tmpl.Transactions...)

	if latest, exists := c.db.LatestBlock(); exists {
		tmpl.PrevBlockHash = latest.Hash
		tmpl.Height = latest.Block.Height + 1
	}

	return tmpl, nil
}

// SetTemplate replaces the template the miner works from.
func (c *Core) SetTemplate(tmpl chain.BlockTemplate) error {
	if err := validate.Check(tmpl); err != nil {
		return err
	}

	if err := tmpl.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.base = tmpl
	c.mu.Unlock()

	c.evHandler("mining: SetTemplate: height[%d] bits[%08x] txs[%d]", tmpl.Height, tmpl.Bits, len(tmpl.Transactions))

	return nil
}

// Submit validates a solution independently of the search and records it.
func (c *Core) Submit(ctx context.Context, tmpl chain.BlockTemplate, sol chain.Solution) error {
	bh, err := miner.SolvedHeader(tmpl, sol, c.mrb)
	if err != nil {
		return err
	}

	if err := bh.ValidatePOW(); err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	if tmpl.PrevBlockHash != c.expectedPrev() {
		return fmt.Errorf("submit: prev[%s]: %w", tmpl.PrevBlockHash, ErrStaleTemplate)
	}

	block := database.Block{
		Height:     tmpl.Height,
		Header:     bh,
		Extranonce: sol.Extranonce,
		Coinbase:   sol.CoinbaseTx,
		TxHashes:   tmpl.TxHashes(),
	}

	blockFS, err := c.db.Write(block)
	if err != nil {
		return fmt.Errorf("submit: write: %w", err)
	}

	c.evHandler("mining: Submit: recorded: height[%d] hash[%s] nonce[%s]", block.Height, blockFS.Hash, bh.Nonce.Hex())

	return nil
}

// Blocks returns the most recent recorded blocks.
func (c *Core) Blocks(limit int) []database.BlockFS {
	return c.db.Blocks(limit)
}

// Len returns the number of recorded blocks.
func (c *Core) Len() int {
	return c.db.Len()
}

// MerkleProof proves that the transaction hash, or the coinbase hash, is
// committed in the block recorded at the specified height.
func (c *Core) MerkleProof(height uint32, tx chain.Hash) (MerkleProof, error) {
	blockFS, exists := c.db.Block(height)
	if !exists {
		return MerkleProof{}, fmt.Errorf("height[%d]: %w", height, ErrBlockNotFound)
	}

	tree, err := blockFS.Block.MerkleTree()
	if err != nil {
		return MerkleProof{}, fmt.Errorf("height[%d]: %w", height, err)
	}

	hashes, order, err := tree.Proof(merkle.Leaf(tx))
	if err != nil {
		return MerkleProof{}, fmt.Errorf("height[%d] tx[%s]: %w", height, tx, err)
	}

	mp := MerkleProof{
		Height: height,
		Root:   tree.MerkleRoot,
		Leaf:   tx,
		Hashes: hashes,
		Order:  order,
	}

	return mp, nil
}

// LatestBlock returns the last recorded block.
func (c *Core) LatestBlock() (database.BlockFS, bool) {
	return c.db.LatestBlock()
}

// =============================================================================

// expectedPrev returns the hash a new block must build on.
func (c *Core) expectedPrev() chain.Hash {
	if latest, exists := c.db.LatestBlock(); exists {
		return latest.Hash
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.base.PrevBlockHash
}
