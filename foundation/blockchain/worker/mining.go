package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ardanlabs/miner/foundation/blockchain/miner"
)

// miningOperations handles mining.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation mines a single template. When the search is solved or
// exhausted another operation is signaled so the next template is mined.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	w.mining.Store(true)
	defer w.mining.Store(false)
	defer w.rounds.Inc()

	// Drain the cancel mining channel before starting.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}

	// Create a context so mining can be cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set by the mining G when another template should be mined.
	var again bool

	// Can't return from this function until these G's are complete.
	var wg sync.WaitGroup
	wg.Add(2)

	// This G exists to cancel the mining operation.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		select {
		case <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
		case <-w.shut:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: shutdown")
		case <-ctx.Done():
		}
	}()

	// This G is performing the mining.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		again = w.mine(ctx)
	}()

	// Wait for both G's to terminate.
	wg.Wait()

	if again && !w.isShutdown() {
		w.SignalStartMining()
	}
}

// mine fetches a template and searches it. It reports whether mining should
// continue with a fresh template.
func (w *Worker) mine(ctx context.Context) bool {
	tmpl, err := w.cfg.Source.Template(ctx)
	if err != nil {
		w.evHandler("worker: runMiningOperation: MINING: ERROR: template: %s", err)
		return false
	}

	if w.cfg.Now != nil {
		tmpl.Time = uint64(w.cfg.Now().Unix())
	}

	newBuilder := func() miner.CoinbaseBuilder {
		return w.cfg.NewBuilder(tmpl)
	}

	options := append(w.cfg.Options[:len(w.cfg.Options):len(w.cfg.Options)],
		miner.WithEvHandler(w.evHandler),
		miner.WithStats(w.cfg.Stats),
	)

	t := time.Now()
	sol, err := miner.FindSolutionParallel(ctx, tmpl, newBuilder, w.cfg.MaxExtranonce, w.cfg.Workers, options...)
	duration := time.Since(t)

	w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

	switch {
	case err != nil:
		if ctx.Err() != nil {
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
			return false
		}
		w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
		return false

	case sol == nil:
		w.evHandler("worker: runMiningOperation: MINING: EXHAUSTED: height[%d]: retry with a fresh template", tmpl.Height)
		return true
	}

	// WOW, we mined a block. Hand it to the sink, log the error, but that's it.
	if err := w.cfg.Sink.Submit(ctx, tmpl, *sol); err != nil {
		w.evHandler("worker: runMiningOperation: MINING: submit: WARNING %s", err)
	}

	return true
}
