package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"portfolio-sim/internal/bootstrap"
	"portfolio-sim/internal/config"
	"portfolio-sim/internal/logging"
)

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply database migrations" }
func (*migrateCmd) Usage() string {
	return `simtool migrate

  Applies the embedded PostgreSQL migrations, and the ClickHouse ones when
  clickhouse_dsn is configured. Already applied PostgreSQL files are skipped.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	if cfg.Storage.PostgresDSN == "" {
		fail(errors.New("postgres_dsn is required for migrate"))
		return subcommands.ExitUsageError
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: "console"})
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	defer func() { _ = logger.Sync() }()

	cfg.Storage.Migrate = true
	stores, cleanup, err := bootstrap.OpenStores(ctx, cfg.Storage, logger)
	if err != nil {
		fail(err)
		return subcommands.ExitFailure
	}
	cleanup()

	fmt.Printf("migrations applied (%s)\n", stores.Backend)
	return subcommands.ExitSuccess
}
