// Package bootstrap builds the storage and event backends selected by configuration.
// It is shared by the server and the CLI.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"portfolio-sim/internal/config"
	"portfolio-sim/internal/events"
	"portfolio-sim/internal/logging"
	"portfolio-sim/internal/storage"
	chstore "portfolio-sim/internal/storage/clickhouse"
	"portfolio-sim/internal/storage/memory"
	"portfolio-sim/internal/storage/migrations"
	pgstore "portfolio-sim/internal/storage/postgres"
)

// Backend names reported by Stores.Backend.
const (
	BackendMemory             = "memory"
	BackendPostgres           = "postgres"
	BackendPostgresClickhouse = "postgres+clickhouse"
)

// Stores holds all storage implementations.
type Stores struct {
	Instruments storage.InstrumentStore
	Bars        storage.PriceBarStore
	Runs        storage.RunStore
	Backend     string
}

// OpenStores creates stores for cfg and returns a cleanup func that closes connections.
//   - no PostgresDSN: in-memory stores
//   - PostgresDSN: instruments, bars and runs in PostgreSQL
//   - PostgresDSN + ClickhouseDSN: price bars move to ClickHouse
//
// With cfg.Migrate the embedded migrations are applied first.
func OpenStores(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*Stores, func(), error) {
	logger = logging.OrNop(logger)

	if cfg.PostgresDSN == "" {
		logger.Info("using in-memory stores")
		return &Stores{
			Instruments: memory.NewInstrumentStore(),
			Bars:        memory.NewPriceBarStore(),
			Runs:        memory.NewRunStore(),
			Backend:     BackendMemory,
		}, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if cfg.Migrate {
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		logger.Info("postgres migrations applied", zap.Strings("versions", applied))
	}

	stores := &Stores{
		Instruments: pgstore.NewInstrumentStore(pool),
		Bars:        pgstore.NewPriceBarStore(pool),
		Runs:        pgstore.NewRunStore(pool),
		Backend:     BackendPostgres,
	}
	if cfg.ClickhouseDSN == "" {
		return stores, pool.Close, nil
	}

	// ClickHouse
	var chConn *chstore.Conn
	if cfg.Migrate {
		chConn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	} else {
		chConn, err = chstore.NewConn(ctx, cfg.ClickhouseDSN)
	}
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	stores.Bars = chstore.NewPriceBarStore(chConn)
	stores.Backend = BackendPostgresClickhouse

	cleanup := func() {
		if err := chConn.Close(); err != nil {
			logger.Warn("close clickhouse", zap.Error(err))
		}
		pool.Close()
	}
	return stores, cleanup, nil
}

// NewPublisher returns a NATS publisher when url is set, otherwise a NopPublisher.
func NewPublisher(cfg config.NATSConfig, logger *zap.Logger) (events.Publisher, error) {
	if cfg.URL == "" {
		return events.NopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(cfg.URL, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return pub, nil
}
