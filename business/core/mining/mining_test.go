package mining_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/miner/business/core/mining"
	"github.com/ardanlabs/miner/business/sys/database"
	"github.com/ardanlabs/miner/business/sys/validate"
	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"github.com/ardanlabs/miner/foundation/blockchain/coinbase"
	"github.com/ardanlabs/miner/foundation/blockchain/header"
	"github.com/ardanlabs/miner/foundation/blockchain/merkle"
	"github.com/ardanlabs/miner/foundation/blockchain/miner"
	"github.com/ardanlabs/miner/foundation/blockchain/pow"
	"github.com/holiman/uint256"
)

func newCore(t *testing.T, bits uint32) *mining.Core {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "blocks.db"))
	if err != nil {
		t.Fatalf("Should be able to open the database: %s", err)
	}
	t.Cleanup(func() { db.Close() })

	core, err := mining.NewCore(mining.Config{
		DB: db,
		Template: chain.BlockTemplate{
			Version:       1,
			Time:          1_700_000_000,
			Bits:          bits,
			Height:        100,
			CoinbaseValue: 50,
		},
	})
	if err != nil {
		t.Fatalf("Should be able to construct the core: %s", err)
	}

	return core
}

func solve(t *testing.T, tmpl chain.BlockTemplate) chain.Solution {
	t.Helper()

	builder := coinbase.P2PKH(tmpl.Height, [20]byte{}, tmpl.CoinbaseValue)

	sol, err := miner.FindSolution(context.Background(), tmpl, builder, 16)
	if err != nil || sol == nil {
		t.Fatalf("Should be able to solve the template: %v", err)
	}

	return *sol
}

// =============================================================================

func Test_ExtendsChain(t *testing.T) {
	core := newCore(t, pow.MaxTargetBits)
	ctx := context.Background()

	tmpl, err := core.Template(ctx)
	if err != nil {
		t.Fatalf("Should be able to get a template: %s", err)
	}

	if tmpl.Height != 100 || !tmpl.PrevBlockHash.IsZero() {
		t.Fatalf("Should start from the configured template.")
	}

	if err := core.Submit(ctx, tmpl, solve(t, tmpl)); err != nil {
		t.Fatalf("Should be able to submit the solution: %s", err)
	}

	latest, exists := core.LatestBlock()
	if !exists {
		t.Fatalf("Should record the block.")
	}

	next, err := core.Template(ctx)
	if err != nil {
		t.Fatalf("Should be able to get a template: %s", err)
	}

	if next.Height != 101 {
		t.Fatalf("Should advance the height, got %d", next.Height)
	}

	if next.PrevBlockHash != latest.Hash {
		t.Fatalf("Should build on the recorded block.")
	}

	if err := core.Submit(ctx, tmpl, solve(t, tmpl)); !errors.Is(err, mining.ErrStaleTemplate) {
		t.Fatalf("Should reject a solution for an old template, got %v", err)
	}

	if n := len(core.Blocks(0)); n != 1 {
		t.Fatalf("Should have one recorded block, got %d", n)
	}
}

func Test_RejectsUnsolved(t *testing.T) {
	core := newCore(t, pow.MinTargetBits)
	ctx := context.Background()

	tmpl, err := core.Template(ctx)
	if err != nil {
		t.Fatalf("Should be able to get a template: %s", err)
	}

	sol := chain.Solution{
		Nonce:      uint256.NewInt(7),
		Time:       tmpl.Time,
		CoinbaseTx: chain.NewCoinbase([]byte{0x01}, tmpl.CoinbaseValue, nil),
	}

	if err := core.Submit(ctx, tmpl, sol); !errors.Is(err, header.ErrPOWNotSolved) {
		t.Fatalf("Should reject a header that misses its target, got %v", err)
	}
}

func Test_SetTemplate(t *testing.T) {
	core := newCore(t, pow.MaxTargetBits)

	err := core.SetTemplate(chain.BlockTemplate{Version: 1, Bits: 0})
	if !validate.IsFieldErrors(err) {
		t.Fatalf("Should reject undecodable bits, got %v", err)
	}

	if err := core.SetTemplate(chain.BlockTemplate{Version: 2, Bits: 0x1d00ffff, Height: 7}); err != nil {
		t.Fatalf("Should accept a valid template: %s", err)
	}

	tmpl, _ := core.Template(context.Background())
	if tmpl.Version != 2 || tmpl.Bits != 0x1d00ffff || tmpl.Height != 7 {
		t.Fatalf("Should mine the new template, got %+v", tmpl)
	}
}

func Test_MerkleProof(t *testing.T) {
	core := newCore(t, pow.MaxTargetBits)
	ctx := context.Background()

	tx := chain.Transaction{Version: 1, Outputs: []chain.Output{{Value: 7}}}

	base, _ := core.Template(ctx)
	base.Transactions = []chain.Transaction{tx}
	if err := core.SetTemplate(base); err != nil {
		t.Fatalf("Should be able to set the template: %s", err)
	}

	tmpl, _ := core.Template(ctx)
	if err := core.Submit(ctx, tmpl, solve(t, tmpl)); err != nil {
		t.Fatalf("Should be able to submit the solution: %s", err)
	}

	if n := core.Len(); n != 1 {
		t.Fatalf("Should count the recorded block, got %d", n)
	}

	latest, _ := core.LatestBlock()

	mp, err := core.MerkleProof(tmpl.Height, tx.Hash())
	if err != nil {
		t.Fatalf("Should be able to prove a committed transaction: %s", err)
	}

	if mp.Root != latest.Block.Header.MerkleRoot {
		t.Fatalf("Should prove against the recorded merkle root.")
	}

	// Two leaves, the coinbase is first so the proof hash is the coinbase.
	if len(mp.Hashes) != 1 || mp.Hashes[0] != latest.Block.Coinbase.Hash() || mp.Order[0] != 0 {
		t.Fatalf("Should pair the transaction with the coinbase, got %v %v", mp.Hashes, mp.Order)
	}

	if _, err := core.MerkleProof(tmpl.Height+1, tx.Hash()); !errors.Is(err, mining.ErrBlockNotFound) {
		t.Fatalf("Should not find a height that wasn't mined, got %v", err)
	}

	if _, err := core.MerkleProof(tmpl.Height, chain.Hash{0x01}); !errors.Is(err, merkle.ErrNotFound) {
		t.Fatalf("Should not prove a transaction that isn't committed, got %v", err)
	}
}
