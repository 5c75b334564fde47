package miner_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ardanlabs/miner/foundation/blockchain/coinbase"
	"github.com/ardanlabs/miner/foundation/blockchain/merkle"
	"github.com/ardanlabs/miner/foundation/blockchain/miner"
	"github.com/ardanlabs/miner/foundation/blockchain/pow"
	"github.com/holiman/uint256"
)

func Test_ParallelSolves(t *testing.T) {
	tmpl := template(pow.MaxTargetBits)

	var builders atomic.Int32
	newBuilder := func() miner.CoinbaseBuilder {
		builders.Add(1)
		return coinbase.P2PKH(tmpl.Height, [20]byte{}, 0)
	}

	sol, err := miner.FindSolutionParallel(context.Background(), tmpl, newBuilder, 1, 4)
	if err != nil {
		t.Fatalf("Should be able to search: %s", err)
	}

	if sol == nil {
		t.Fatalf("Should find a solution at the easiest target.")
	}

	if n := builders.Load(); n != 4 {
		t.Fatalf("Should give every worker its own builder, got %d", n)
	}

	bh, err := miner.SolvedHeader(tmpl, *sol, merkle.NewRootBuilder(nil))
	if err != nil {
		t.Fatalf("Should be able to assemble the header: %s", err)
	}

	if err := bh.ValidatePOW(); err != nil {
		t.Fatalf("Should produce a header that validates: %s", err)
	}
}

func Test_ParallelExhausts(t *testing.T) {
	var stats miner.Stats
	start := new(uint256.Int).SubUint64(maxNonce(), 6)

	newBuilder := func() miner.CoinbaseBuilder {
		return &recorder{}
	}

	sol, err := miner.FindSolutionParallel(context.Background(), template(pow.MinTargetBits), newBuilder, 1, 3,
		miner.WithNonceRange(start, maxNonce()),
		miner.WithStats(&stats),
	)
	if err != nil {
		t.Fatalf("Should be able to search: %s", err)
	}

	if sol != nil {
		t.Fatalf("Should exhaust the space at the hardest target.")
	}

	if n := stats.Hashes.Load(); n != 7 {
		t.Fatalf("Should hash every nonce exactly once across workers, got %d", n)
	}

	if n := stats.Searches.Load(); n != 1 {
		t.Fatalf("Should count one search for all the workers, got %d", n)
	}
}

func Test_ParallelMoreWorkersThanNonces(t *testing.T) {
	var stats miner.Stats
	start := new(uint256.Int).SubUint64(maxNonce(), 1)

	newBuilder := func() miner.CoinbaseBuilder {
		return &recorder{}
	}

	_, err := miner.FindSolutionParallel(context.Background(), template(pow.MinTargetBits), newBuilder, 1, 8,
		miner.WithNonceRange(start, maxNonce()),
		miner.WithStats(&stats),
	)
	if err != nil {
		t.Fatalf("Should be able to search: %s", err)
	}

	if n := stats.Extranonces.Load(); n != 2 {
		t.Fatalf("Should not start more workers than nonces, got %d", n)
	}

	if n := stats.Hashes.Load(); n != 2 {
		t.Fatalf("Should hash both nonces, got %d", n)
	}
}

func Test_ParallelError(t *testing.T) {
	errBoom := errors.New("boom")

	newBuilder := func() miner.CoinbaseBuilder {
		return &recorder{hashErr: errBoom}
	}

	_, err := miner.FindSolutionParallel(context.Background(), template(pow.MaxTargetBits), newBuilder, 1, 2)
	if !errors.Is(err, errBoom) {
		t.Fatalf("Should propagate a worker error, got %v", err)
	}
}

func Test_ParallelInvalidTemplate(t *testing.T) {
	var stats miner.Stats

	var builders atomic.Int32
	newBuilder := func() miner.CoinbaseBuilder {
		builders.Add(1)
		return &recorder{}
	}

	_, err := miner.FindSolutionParallel(context.Background(), template(0), newBuilder, 1, 4, miner.WithStats(&stats))
	if !errors.Is(err, pow.ErrZeroTarget) {
		t.Fatalf("Should reject the template before starting workers, got %v", err)
	}

	if n := builders.Load(); n != 0 {
		t.Fatalf("Should not build coinbases for a rejected template, got %d", n)
	}

	if n := stats.Searches.Load(); n != 0 {
		t.Fatalf("Should not count a rejected search, got %d", n)
	}
}
