// Package worker implements the long running mining workflow. It pulls block
// templates from a source, runs the proof of work search and hands every
// solution to a sink.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"github.com/ardanlabs/miner/foundation/blockchain/miner"
	"go.uber.org/atomic"
)

// TemplateSource provides the next block template to mine.
type TemplateSource interface {
	Template(ctx context.Context) (chain.BlockTemplate, error)
}

// SolutionSink receives solved templates.
type SolutionSink interface {
	Submit(ctx context.Context, tmpl chain.BlockTemplate, sol chain.Solution) error
}

// Config represents the systems and settings the worker needs.
type Config struct {
	Source        TemplateSource
	Sink          SolutionSink
	NewBuilder    func(tmpl chain.BlockTemplate) miner.CoinbaseBuilder
	Workers       int
	MaxExtranonce uint32
	Stats         *miner.Stats
	Options       []miner.Option
	Now           func() time.Time
	EvHandler     func(v string, args ...any)
}

// =============================================================================

// Worker manages the mining workflow.
type Worker struct {
	cfg          Config
	wg           sync.WaitGroup
	shut         chan struct{}
	startMining  chan bool
	cancelMining chan bool
	evHandler    func(v string, args ...any)
	mining       atomic.Bool
	rounds       atomic.Uint64
}

// Run constructs a worker and starts the mining goroutine. Mining does not
// begin until SignalStartMining is called.
func Run(cfg Config) (*Worker, error) {
	switch {
	case cfg.Source == nil:
		return nil, errors.New("template source is required")
	case cfg.Sink == nil:
		return nil, errors.New("solution sink is required")
	case cfg.NewBuilder == nil:
		return nil, errors.New("coinbase builder factory is required")
	case cfg.MaxExtranonce == 0:
		return nil, errors.New("max extranonce must be at least one")
	}

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	if cfg.Stats == nil {
		cfg.Stats = new(miner.Stats)
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	w := Worker{
		cfg:          cfg,
		shut:         make(chan struct{}),
		startMining:  make(chan bool, 1),
		cancelMining: make(chan bool, 1),
		evHandler:    ev,
	}

	// We don't want to return until we know the G is up and running.
	hasStarted := make(chan bool)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		hasStarted <- true
		w.miningOperations()
	}()

	<-hasStarted

	return &w, nil
}

// Shutdown terminates the goroutine performing work.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: signal cancel mining")
	w.SignalCancelMining()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalStartMining starts a mining operation. If there is already a signal
// pending in the channel, just return since a mining operation will start.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// SignalCancelMining signals the G executing the runMiningOperation function
// to stop immediately.
func (w *Worker) SignalCancelMining() {
	select {
	case w.cancelMining <- true:
	default:
	}
	w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")
}

// IsMining reports whether a search is in progress.
func (w *Worker) IsMining() bool {
	return w.mining.Load()
}

// Rounds returns the number of mining operations that have completed.
func (w *Worker) Rounds() uint64 {
	return w.rounds.Load()
}

// Stats returns the counters shared by every search this worker runs.
func (w *Worker) Stats() *miner.Stats {
	return w.cfg.Stats
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
