package miner

import (
	"context"
	"errors"
	"sync"

	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"
)

// errSolved is returned by the worker that finds a solution so the group
// context is cancelled for the others.
var errSolved = errors.New("solved")

// FindSolutionParallel splits the nonce range into contiguous partitions and
// searches each one concurrently. Every worker gets its own header buffer and
// its own builder from newBuilder. The first solution found is returned and
// the remaining workers are cancelled. A nil solution and nil error means
// every partition was exhausted.
func FindSolutionParallel(ctx context.Context, tmpl chain.BlockTemplate, newBuilder func() CoinbaseBuilder, maxExtranonce uint32, workers int, options ...Option) (*chain.Solution, error) {
	if newBuilder == nil {
		return nil, ErrNoBuilder
	}

	if workers < 1 {
		workers = 1
	}

	cfg := newConfig(options)

	target, err := prepare(tmpl, cfg)
	if err != nil {
		return nil, err
	}

	cfg.stats.Searches.Inc()

	ranges := partition(cfg.nonceStart, cfg.nonceEnd, workers)
	cfg.evHandler("miner: FindSolutionParallel: started: workers[%d]", len(ranges))

	g, ctx := errgroup.WithContext(ctx)

	var once sync.Once
	var solution *chain.Solution

	for _, r := range ranges {
		pcfg := cfg
		pcfg.nonceStart = r.start
		pcfg.nonceEnd = r.end

		g.Go(func() error {
			sol, err := search(ctx, tmpl, newBuilder(), target, maxExtranonce, pcfg)
			if err != nil {
				return err
			}

			if sol != nil {
				once.Do(func() { solution = sol })
				return errSolved
			}

			return nil
		})
	}

	err = g.Wait()

	if solution != nil {
		return solution, nil
	}

	if err != nil {
		return nil, err
	}

	return nil, nil
}

// =============================================================================

type nonceRange struct {
	start *uint256.Int
	end   *uint256.Int
}

// partition divides [start, end] into at most n contiguous inclusive ranges.
// The last range absorbs any remainder.
func partition(start *uint256.Int, end *uint256.Int, n int) []nonceRange {
	span := new(uint256.Int).Sub(end, start)
	if span.LtUint64(uint64(n)) {
		n = int(span.Uint64()) + 1
	}

	// width = (span+1)/n without overflowing when the range is the full space.
	count := uint256.NewInt(uint64(n))
	q := new(uint256.Int).Div(span, count)
	r := new(uint256.Int).Mod(span, count)
	width := new(uint256.Int).Add(q, new(uint256.Int).Div(r.AddUint64(r, 1), count))

	ranges := make([]nonceRange, n)
	next := start.Clone()

	for i := range n {
		rs := next.Clone()

		var re *uint256.Int
		switch i {
		case n - 1:
			re = end.Clone()
		default:
			re = new(uint256.Int).Add(rs, width)
			re.SubUint64(re, 1)
			next = new(uint256.Int).Add(rs, width)
		}

		ranges[i] = nonceRange{start: rs, end: re}
	}

	return ranges
}
