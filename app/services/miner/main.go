package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/miner/app/services/miner/handlers"
	"github.com/ardanlabs/miner/business/core/mining"
	"github.com/ardanlabs/miner/business/sys/database"
	"github.com/ardanlabs/miner/business/sys/metrics"
	"github.com/ardanlabs/miner/foundation/blockchain/chain"
	"github.com/ardanlabs/miner/foundation/blockchain/coinbase"
	"github.com/ardanlabs/miner/foundation/blockchain/miner"
	"github.com/ardanlabs/miner/foundation/blockchain/worker"
	"github.com/ardanlabs/miner/foundation/events"
	"github.com/ardanlabs/miner/foundation/logger"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("MINER")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// GOMAXPROCS

	log.Infow("startup", "GOMAXPROCS", runtime.GOMAXPROCS(0))

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
		}
		Miner struct {
			KeyPath       string `conf:"default:zblock/accounts/miner1.ecdsa"`
			KeyHex        string `conf:"mask"`
			DBPath        string `conf:"default:zblock/blocks.db"`
			Workers       int    `conf:"default:0"`
			MaxExtranonce uint32 `conf:"default:4294967295"`
			AutoStart     bool   `conf:"default:true"`
		}
		Template struct {
			Version       uint32 `conf:"default:1"`
			PrevBlock     string
			Bits          string `conf:"default:1f00ffff"`
			Height        uint32 `conf:"default:0"`
			CoinbaseValue uint64 `conf:"default:5000000000"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "MINER"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Miner Key Support

	// The coinbase of every solved block pays to the address of this key.
	privateKey, err := loadKey(cfg.Miner.KeyHex, cfg.Miner.KeyPath)
	if err != nil {
		return fmt.Errorf("unable to load private key for miner: %w", err)
	}
	log.Infow("startup", "status", "miner key loaded", "address", crypto.PubkeyToAddress(privateKey.PublicKey).Hex())

	// =========================================================================
	// Template Support

	bits, err := strconv.ParseUint(cfg.Template.Bits, 16, 32)
	if err != nil {
		return fmt.Errorf("parsing template bits: %w", err)
	}

	var prevBlock chain.Hash
	if cfg.Template.PrevBlock != "" {
		if prevBlock, err = chain.ToHash(cfg.Template.PrevBlock); err != nil {
			return fmt.Errorf("parsing template prev block: %w", err)
		}
	}

	tmpl := chain.BlockTemplate{
		Version:       cfg.Template.Version,
		PrevBlockHash: prevBlock,
		Bits:          uint32(bits),
		Height:        cfg.Template.Height,
		CoinbaseValue: cfg.Template.CoinbaseValue,
	}

	// =========================================================================
	// Mining Support

	// The mining packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	db, err := database.New(cfg.Miner.DBPath)
	if err != nil {
		return fmt.Errorf("unable to open block database: %w", err)
	}
	defer db.Close()

	core, err := mining.NewCore(mining.Config{
		DB:        db,
		Template:  tmpl,
		EvHandler: ev,
	})
	if err != nil {
		return err
	}

	workers := cfg.Miner.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	stats := new(miner.Stats)
	if err := metrics.RegisterMinerStats(prometheus.DefaultRegisterer, stats); err != nil {
		return fmt.Errorf("registering miner metrics: %w", err)
	}

	// The worker pulls templates from the core, searches them, and hands
	// every solution back to the core to be recorded.
	wrk, err := worker.Run(worker.Config{
		Source: core,
		Sink:   core,
		NewBuilder: func(tmpl chain.BlockTemplate) miner.CoinbaseBuilder {
			return coinbase.FromECDSA(tmpl.Height, privateKey.PublicKey, tmpl.CoinbaseValue)
		},
		Workers:       workers,
		MaxExtranonce: cfg.Miner.MaxExtranonce,
		Stats:         stats,
		Now:           time.Now,
		EvHandler:     ev,
	})
	if err != nil {
		return fmt.Errorf("starting worker: %w", err)
	}
	defer wrk.Shutdown()

	if cfg.Miner.AutoStart {
		wrk.SignalStartMining()
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, prometheus.DefaultGatherer)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		Core:     core,
		Worker:   wrk,
		Evts:     evts,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// loadKey reads the miner key from hex when provided, otherwise from the
// key file.
func loadKey(keyHex string, keyPath string) (*ecdsa.PrivateKey, error) {
	if keyHex != "" {
		return crypto.HexToECDSA(keyHex)
	}

	return crypto.LoadECDSA(keyPath)
}
