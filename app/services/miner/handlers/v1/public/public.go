// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/miner/business/core/mining"
	"github.com/ardanlabs/miner/business/sys/validate"
	"github.com/ardanlabs/miner/business/web/errs"
	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"github.com/ardanlabs/miner/foundation/blockchain/merkle"
	"github.com/ardanlabs/miner/foundation/blockchain/pow"
	"github.com/ardanlabs/miner/foundation/blockchain/worker"
	"github.com/ardanlabs/miner/foundation/events"
	"github.com/ardanlabs/miner/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// maxBlocks caps the number of blocks returned by a single call.
const maxBlocks = 1000

// Handlers manages the set of miner endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Core   *mining.Core
	Worker *worker.Worker
	WS     websocket.Upgrader
	Evts   *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteJSON(evt); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// Status returns the state of the miner.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	tmpl, err := h.Core.Template(ctx)
	if err != nil {
		return err
	}

	target, err := tmpl.Target()
	if err != nil {
		return err
	}

	latest, _ := h.Core.LatestBlock()

	st := status{
		Mining:      h.Worker.IsMining(),
		Rounds:      h.Worker.Rounds(),
		Blocks:      h.Core.Len(),
		LatestBlock: latest.Hash,
		Height:      tmpl.Height,
		Bits:        bitsString(tmpl.Bits),
		Target:      target.Hex(),
		Stats:       h.Worker.Stats().Snapshot(),
	}

	return web.Respond(ctx, w, st, http.StatusOK)
}

// Blocks returns the most recent solved blocks.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	limit := maxBlocks
	if s := web.Param(r, "limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return errs.NewTrusted(fmt.Errorf("invalid limit %q", s), http.StatusBadRequest)
		}
		limit = min(n, maxBlocks)
	}

	dbBlocks := h.Core.Blocks(limit)
	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blocks := make([]block, len(dbBlocks))
	for i, blockFS := range dbBlocks {
		blocks[i] = toBlock(blockFS)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// MerkleProof returns the proof that a transaction is committed in the block
// mined at the specified height.
func (h Handlers) MerkleProof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := strconv.ParseUint(web.Param(r, "height"), 10, 32)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid height: %w", err), http.StatusBadRequest)
	}

	tx, err := chain.ToHash(web.Param(r, "tx"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	mp, err := h.Core.MerkleProof(uint32(height), tx)
	if err != nil {
		switch {
		case errors.Is(err, mining.ErrBlockNotFound), errors.Is(err, merkle.ErrNotFound):
			return errs.NewTrusted(err, http.StatusNotFound)
		default:
			return fmt.Errorf("merkle proof: %w", err)
		}
	}

	return web.Respond(ctx, w, mp, http.StatusOK)
}

// Template returns the template that will be mined next.
func (h Handlers) Template(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	tmpl, err := h.Core.Template(ctx)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, tmpl, http.StatusOK)
}

// UpdateTemplate replaces the template and restarts mining with it.
func (h Handlers) UpdateTemplate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var tmpl chain.BlockTemplate
	if err := web.Decode(r, &tmpl); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := h.Core.SetTemplate(tmpl); err != nil {
		if validate.IsFieldErrors(err) {
			return err
		}
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("update template", "traceid", v.TraceID, "height", tmpl.Height, "bits", bitsString(tmpl.Bits), "txs", len(tmpl.Transactions))

	h.Worker.SignalCancelMining()
	h.Worker.SignalStartMining()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "template updated, mining restarted",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// StartMining signals the worker to start mining.
func (h Handlers) StartMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.Worker.SignalStartMining()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining signaled",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// CancelMining signals the worker to stop the current search.
func (h Handlers) CancelMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.Worker.SignalCancelMining()

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "mining cancel signaled",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Verify checks a hash against difficulty bits, both given in hex.
func (h Handlers) Verify(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash, err := chain.ToHash(web.Param(r, "hash"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	bits, err := strconv.ParseUint(web.Param(r, "bits"), 16, 32)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid bits: %w", err), http.StatusBadRequest)
	}

	if _, err := pow.BitsToTarget(uint32(bits)); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	resp := struct {
		Valid bool `json:"valid"`
	}{
		Valid: pow.Verify(hash, uint32(bits)),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

func bitsString(bits uint32) string {
	return fmt.Sprintf("%08x", bits)
}
