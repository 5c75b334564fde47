// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/miner/app/services/miner/handlers/v1/public"
	"github.com/ardanlabs/miner/business/core/mining"
	"github.com/ardanlabs/miner/foundation/blockchain/worker"
	"github.com/ardanlabs/miner/foundation/events"
	"github.com/ardanlabs/miner/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log    *zap.SugaredLogger
	Core   *mining.Core
	Worker *worker.Worker
	Evts   *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:    cfg.Log,
		Core:   cfg.Core,
		Worker: cfg.Worker,
		Evts:   cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/status", pbl.Status)
	app.Handle(http.MethodGet, version, "/blocks/list", pbl.Blocks)
	app.Handle(http.MethodGet, version, "/blocks/list/:limit", pbl.Blocks)
	app.Handle(http.MethodGet, version, "/blocks/proof/:height/:tx", pbl.MerkleProof)
	app.Handle(http.MethodGet, version, "/template", pbl.Template)
	app.Handle(http.MethodPost, version, "/template", pbl.UpdateTemplate)
	app.Handle(http.MethodGet, version, "/mining/start", pbl.StartMining)
	app.Handle(http.MethodGet, version, "/mining/cancel", pbl.CancelMining)
	app.Handle(http.MethodGet, version, "/verify/:hash/:bits", pbl.Verify)
}
