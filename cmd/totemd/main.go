package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"totemchain/config"
	"totemchain/core/events"
	"totemchain/observability/logging"
	"totemchain/observability/metrics"
	"totemchain/state"
	"totemchain/storage"
)

const persistInterval = 30 * time.Second

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("TOTEM_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(logging.Options{
		Service: "totemd",
		Env:     env,
		Level:   cfg.LogLevel,
		Path:    cfg.LogPath,
	})

	journal := events.NewJournal()
	emitter := metrics.NewEmitter(journal)

	processor, err := state.Bootstrap(cfg, emitter)
	if err != nil {
		logger.Error("failed to bootstrap engines", "error", err)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		logger.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	manager, err := state.NewManager(db)
	if err != nil {
		logger.Error("failed to create state manager", "error", err)
		os.Exit(1)
	}
	if err := processor.Load(manager); err != nil {
		logger.Error("failed to load checkpoint", "error", err)
		os.Exit(1)
	}

	admin, err := cfg.AdminAddress()
	if err != nil {
		logger.Error("invalid admin address", "error", err)
		os.Exit(1)
	}

	if addr := strings.TrimSpace(cfg.MetricsAddress); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		logger.Info("metrics server listening", "address", addr)
	}

	logger.Info("totemd started",
		"dataDir", cfg.DataDir,
		"periodDuration", cfg.PeriodDuration,
		"currentPeriod", processor.Merit.CurrentPeriod(),
	)

	ticker := time.NewTicker(persistInterval)
	defer ticker.Stop()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			if err := processor.Apply(func() error {
				return processor.Merit.Advance(admin)
			}); err != nil {
				logger.Warn("period advance failed", "error", err)
			}
			metrics.Totem().SetCurrentPeriod(processor.Merit.CurrentPeriod())
			if err := processor.Persist(manager); err != nil {
				logger.Error("checkpoint persist failed", "error", err)
			}
		case sig := <-sigCh:
			logger.Info("shutting down", "signal", sig.String())
			if err := processor.Persist(manager); err != nil {
				logger.Error("final checkpoint failed", "error", err)
			}
			return
		}
	}
}
