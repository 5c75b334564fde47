// Package database maintains the file of blocks solved by the miner. Each
// block is written as a line of JSON so the file can be appended to and
// verified when it is loaded.
package database

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ardanlabs/miner/foundation/blockchain/chain"
)

// DB represents the set of solved blocks.
type DB struct {
	blocks []BlockFS
	dbPath string
	file   *os.File
	mu     sync.RWMutex
}

// New opens the block file, creating it if needed, and loads the blocks
// already recorded.
func New(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}

	// Load the current set of recorded blocks.
	blocks, err := loadBlocks(dbPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	// Open the block database file.
	file, err := os.OpenFile(dbPath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}

	db := DB{
		blocks: blocks,
		dbPath: dbPath,
		file:   file,
	}

	return &db, nil
}

// Close cleanly closes the database file underneath.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.file.Close()
}

// Write appends a solved block to the file and returns what was recorded.
func (db *DB) Write(block Block) (BlockFS, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	blockFS := NewBlockFS(block)

	data, err := json.Marshal(blockFS)
	if err != nil {
		return BlockFS{}, err
	}

	if _, err := db.file.Write(append(data, '\n')); err != nil {
		return BlockFS{}, err
	}

	db.blocks = append(db.blocks, blockFS)

	return blockFS, nil
}

// LatestBlock returns the last recorded block. The boolean is false when
// nothing has been recorded.
func (db *DB) LatestBlock() (BlockFS, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if len(db.blocks) == 0 {
		return BlockFS{}, false
	}

	return db.blocks[len(db.blocks)-1], true
}

// LatestBlockHash returns the hash of the last recorded block or the zero
// hash when nothing has been recorded.
func (db *DB) LatestBlockHash() chain.Hash {
	blockFS, exists := db.LatestBlock()
	if !exists {
		return chain.ZeroHash
	}

	return blockFS.Hash
}

// Blocks returns the recorded blocks, most recent last. When limit is
// positive only the last limit blocks are returned.
func (db *DB) Blocks(limit int) []BlockFS {
	db.mu.RLock()
	defer db.mu.RUnlock()

	blocks := db.blocks
	if limit > 0 && len(blocks) > limit {
		blocks = blocks[len(blocks)-limit:]
	}

	out := make([]BlockFS, len(blocks))
	copy(out, blocks)

	return out
}

// Block returns the recorded block at the specified height.
func (db *DB) Block(height uint32) (BlockFS, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, blockFS := range db.blocks {
		if blockFS.Block.Height == height {
			return blockFS, true
		}
	}

	return BlockFS{}, false
}

// Len returns the number of recorded blocks.
func (db *DB) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.blocks)
}
