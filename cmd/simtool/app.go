package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"portfolio-sim/internal/bootstrap"
	"portfolio-sim/internal/config"
	"portfolio-sim/internal/logging"
)

// app bundles what every command needs: configuration, logger and stores.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	stores  *bootstrap.Stores
	cleanup func()
}

// openApp loads configuration and opens the configured stores.
// CLI logs always use the console encoder.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: "console"})
	if err != nil {
		return nil, err
	}

	stores, cleanup, err := bootstrap.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, stores: stores, cleanup: cleanup}, nil
}

func (a *app) close() {
	a.cleanup()
	_ = a.logger.Sync()
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
