package miner

import (
	"github.com/ardanlabs/miner/foundation/blockchain/merkle"
	"github.com/holiman/uint256"
)

// Option changes the default behavior of a search.
type Option func(cfg *config)

// WithMerkleRootBuilder replaces the default BLAKE2b merkle root builder.
func WithMerkleRootBuilder(mrb MerkleRootBuilder) Option {
	return func(cfg *config) {
		cfg.merkle = mrb
	}
}

// WithNonceRange restricts the nonce loop to [start, end] inclusive. This
// is how the nonce space is partitioned between concurrent searches.
func WithNonceRange(start *uint256.Int, end *uint256.Int) Option {
	return func(cfg *config) {
		cfg.nonceStart = start.Clone()
		cfg.nonceEnd = end.Clone()
	}
}

// WithEvHandler sets a function to receive search events.
func WithEvHandler(evHandler func(v string, args ...any)) Option {
	return func(cfg *config) {
		cfg.evHandler = evHandler
	}
}

// WithStats sets the counters the search updates as it runs.
func WithStats(stats *Stats) Option {
	return func(cfg *config) {
		cfg.stats = stats
	}
}

// =============================================================================

type config struct {
	merkle     MerkleRootBuilder
	nonceStart *uint256.Int
	nonceEnd   *uint256.Int
	evHandler  func(v string, args ...any)
	stats      *Stats
}

func newConfig(options []Option) config {
	cfg := config{
		merkle:     merkle.NewRootBuilder(nil),
		nonceStart: new(uint256.Int),
		nonceEnd:   new(uint256.Int).SetAllOne(),
	}

	for _, option := range options {
		option(&cfg)
	}

	// Build a safe event handler function for use.
	ev := cfg.evHandler
	cfg.evHandler = func(v string, args ...any) {
		if ev != nil {
			ev(v, args...)
		}
	}

	if cfg.merkle == nil {
		cfg.merkle = merkle.NewRootBuilder(nil)
	}

	if cfg.stats == nil {
		cfg.stats = new(Stats)
	}

	return cfg
}
