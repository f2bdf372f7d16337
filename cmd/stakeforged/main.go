package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"stakeforge/api"
	"stakeforge/config"
	"stakeforge/core"
	"stakeforge/native/assets"
	"stakeforge/observability/logging"
	"stakeforge/storage"
)

const shutdownGrace = 10 * time.Second

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logging.Setup("stakeforged", "", "").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup("stakeforged", cfg.Env, cfg.LogFile)

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		logger.Error("failed to open database", "error", err, "dir", cfg.DataDir)
		os.Exit(1)
	}
	defer db.Close()

	ledger := assets.NewMemoryLedger()
	for _, balance := range cfg.GenesisBalances {
		addr, token, amount := balance.Decode()
		if err := ledger.Mint(token, addr, amount); err != nil {
			logger.Error("failed to seed genesis balance", "error", err, "token", token)
			os.Exit(1)
		}
	}

	node := core.NewNode(db, ledger, cfg.Approver())
	server := api.NewServer(node, logger, cfg.RateLimitRPS, cfg.RateLimitBurst)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			"address", cfg.ListenAddress,
			"approver", cfg.ApproverAddress,
			"genesis_balances", len(cfg.GenesisBalances),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
