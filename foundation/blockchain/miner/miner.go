// Package miner implements the proof of work search. Given a block template
// and a coinbase builder it walks the extranonce and nonce space in order and
// returns the first header that satisfies the template's target.
package miner

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"github.com/ardanlabs/miner/foundation/blockchain/header"
	"github.com/ardanlabs/miner/foundation/blockchain/pow"
	"github.com/holiman/uint256"
)

// Set of errors returned before a search begins.
var (
	ErrNoBuilder         = errors.New("coinbase builder is required")
	ErrInvalidNonceRange = errors.New("nonce range start is after its end")
)

// CoinbaseBuilder represents the behavior required to maintain the coinbase
// transaction during a search. A builder belongs to a single search.
type CoinbaseBuilder interface {
	SetExtranonce(extranonce []byte)
	Hash() (chain.Hash, error)
	Finish() (chain.Transaction, error)
}

// MerkleRootBuilder represents the behavior required to commit the coinbase
// and the template transactions into a single root.
type MerkleRootBuilder interface {
	Root(leaves []chain.Hash) (chain.Hash, error)
}

// =============================================================================

// FindSolution searches for a nonce and extranonce that solve the template.
// Extranonce values run from 0 up to, not including, maxExtranonce. For each
// one every nonce in the configured range is tried in increasing order. The
// first accepted hash ends the search. A nil solution and nil error means
// the space was exhausted.
func FindSolution(ctx context.Context, tmpl chain.BlockTemplate, builder CoinbaseBuilder, maxExtranonce uint32, options ...Option) (*chain.Solution, error) {
	cfg := newConfig(options)

	if builder == nil {
		return nil, ErrNoBuilder
	}

	target, err := prepare(tmpl, cfg)
	if err != nil {
		return nil, err
	}

	cfg.stats.Searches.Inc()

	return search(ctx, tmpl, builder, target, maxExtranonce, cfg)
}

// SolvedHeader assembles the header for a solution so it can be submitted
// or validated independently of the search.
func SolvedHeader(tmpl chain.BlockTemplate, sol chain.Solution, mrb MerkleRootBuilder) (header.BlockHeader, error) {
	leaves := append([]chain.Hash{sol.CoinbaseTx.Hash()}, tmpl.TxHashes()...)

	root, err := mrb.Root(leaves)
	if err != nil {
		return header.BlockHeader{}, fmt.Errorf("merkle root: %w", err)
	}

	return header.FromSolution(tmpl, sol, root), nil
}

// =============================================================================

// prepare checks the preconditions of a search and decodes the target.
func prepare(tmpl chain.BlockTemplate, cfg config) (*uint256.Int, error) {
	if err := tmpl.Validate(); err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	if cfg.nonceStart.Gt(cfg.nonceEnd) {
		return nil, ErrInvalidNonceRange
	}

	target, err := tmpl.Target()
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	return target, nil
}

// search runs the extranonce and nonce loops. The header bytes are built
// once with the template's fixed fields and roots, and only the merkle root
// and nonce are rewritten after that.
func search(ctx context.Context, tmpl chain.BlockTemplate, builder CoinbaseBuilder, target *uint256.Int, maxExtranonce uint32, cfg config) (*chain.Solution, error) {
	ev := cfg.evHandler

	ev("miner: FindSolution: MINING: started: height[%d] bits[%08x] range[%s, %s]", tmpl.Height, tmpl.Bits, cfg.nonceStart.Hex(), cfg.nonceEnd.Hex())
	defer ev("miner: FindSolution: MINING: completed")

	hb := header.New(tmpl.Version, tmpl.PrevBlockHash, tmpl.Bits)
	hb.SetWitnessRoot(tmpl.WitnessRoot)
	hb.SetTreeRoot(tmpl.TreeRoot)
	hb.SetReservedRoot(tmpl.ReservedRoot)
	hb.SetTime(tmpl.Time)

	// The first leaf is reserved for the coinbase hash.
	leaves := make([]chain.Hash, len(tmpl.Transactions)+1)
	copy(leaves[1:], tmpl.TxHashes())

	var extranonceBytes [4]byte
	nonce := new(uint256.Int)

	for extranonce := uint32(0); extranonce < maxExtranonce; extranonce++ {
		binary.LittleEndian.PutUint32(extranonceBytes[:], extranonce)
		builder.SetExtranonce(extranonceBytes[:])

		coinbaseHash, err := builder.Hash()
		if err != nil {
			return nil, fmt.Errorf("coinbase hash: extranonce[%d]: %w", extranonce, err)
		}
		leaves[0] = coinbaseHash

		root, err := cfg.merkle.Root(leaves)
		if err != nil {
			return nil, fmt.Errorf("merkle root: extranonce[%d]: %w", extranonce, err)
		}
		hb.SetMerkleRoot(root)

		cfg.stats.Extranonces.Inc()
		ev("miner: FindSolution: MINING: extranonce[%d] merkle[%s]", extranonce, root)

		var attempts uint64
		nonce.Set(cfg.nonceStart)

		for {
			if err := ctx.Err(); err != nil {
				ev("miner: FindSolution: MINING: CANCELLED: attempts[%d]", attempts)
				return nil, err
			}

			hb.SetNonce(nonce)
			hash := hb.Hash()

			attempts++
			cfg.stats.Hashes.Inc()
			if attempts%1_000_000 == 0 {
				ev("miner: FindSolution: MINING: attempts[%d]", attempts)
			}

			if pow.VerifyTarget(hash, target) {
				tx, err := builder.Finish()
				if err != nil {
					return nil, fmt.Errorf("coinbase finish: %w", err)
				}

				cfg.stats.Solutions.Inc()
				ev("miner: FindSolution: MINING: SOLVED: hash[%s] nonce[%s] extranonce[%d] attempts[%d]", hash, nonce.Hex(), extranonce, attempts)

				sol := chain.Solution{
					Nonce:      nonce.Clone(),
					Extranonce: extranonce,
					Time:       tmpl.Time,
					CoinbaseTx: tx,
				}

				return &sol, nil
			}

			// The end of the range was tested, incrementing would wrap.
			if nonce.Eq(cfg.nonceEnd) {
				break
			}
			nonce.AddUint64(nonce, 1)
		}
	}

	ev("miner: FindSolution: MINING: EXHAUSTED: max extranonce[%d]", maxExtranonce)

	return nil, nil
}
