package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/logging"
	"portfolio-sim/internal/observability"
	"portfolio-sim/internal/storage"
	"portfolio-sim/internal/tracing"
)

// Remover deletes an instrument together with its price bars and stored runs.
type Remover struct {
	instruments storage.InstrumentStore
	bars        storage.PriceBarStore
	runs        storage.RunStore
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// RemoverOptions contains configuration for creating a Remover.
// Runs is optional; without it only bars and the instrument are removed.
type RemoverOptions struct {
	Instruments storage.InstrumentStore
	Bars        storage.PriceBarStore
	Runs        storage.RunStore
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewRemover creates a new instrument remover.
func NewRemover(opts RemoverOptions) *Remover {
	m := opts.Metrics
	if m == nil {
		m = observability.DefaultMetrics
	}
	return &Remover{
		instruments: opts.Instruments,
		bars:        opts.Bars,
		runs:        opts.Runs,
		metrics:     m,
		logger:      logging.OrNop(opts.Logger),
	}
}

// RemoveResult contains statistics from a removal.
type RemoveResult struct {
	Instrument  *domain.Instrument `json:"instrument"`
	BarsDeleted int64              `json:"bars_deleted"`
	RunsDeleted int64              `json:"runs_deleted"`
}

// Remove deletes symbol and everything stored for it.
// Steps:
//  1. Resolve the instrument (ErrNotFound when unknown)
//  2. Delete its price bars
//  3. Delete its stored runs
//  4. Delete the instrument
//
// Bars and runs go first so a bar store without foreign keys (ClickHouse) is
// cleaned too. A failure part way leaves the instrument in place, so Remove can be retried.
func (rm *Remover) Remove(ctx context.Context, symbol string) (res *RemoveResult, err error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", storage.ErrInvalidInput)
	}

	ctx, span := tracing.StartSpan(ctx, "ingestion.Remove", trace.WithAttributes(
		attribute.String("symbol", symbol),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	// 1. Resolve instrument
	inst, err := rm.instruments.GetBySymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("instrument %s: %w", symbol, err)
	}
	res = &RemoveResult{Instrument: inst}

	// 2. Delete bars
	queryStart := time.Now()
	res.BarsDeleted, err = rm.bars.DeleteByInstrument(ctx, inst.ID)
	rm.metrics.RecordDBQuery("price_bars", "delete_by_instrument", time.Since(queryStart).Seconds(), err)
	if err != nil {
		rm.metrics.RecordImportError("store")
		return nil, fmt.Errorf("delete bars for %s: %w", symbol, err)
	}

	// 3. Delete runs
	if rm.runs != nil {
		queryStart = time.Now()
		res.RunsDeleted, err = rm.runs.DeleteByInstrument(ctx, inst.ID)
		rm.metrics.RecordDBQuery("simulation_runs", "delete_by_instrument", time.Since(queryStart).Seconds(), err)
		if err != nil {
			rm.metrics.RecordImportError("store")
			return nil, fmt.Errorf("delete runs for %s: %w", symbol, err)
		}
	}

	// 4. Delete instrument
	queryStart = time.Now()
	err = rm.instruments.Delete(ctx, inst.ID)
	rm.metrics.RecordDBQuery("instruments", "delete", time.Since(queryStart).Seconds(), err)
	if err != nil {
		rm.metrics.RecordImportError("instrument")
		return nil, fmt.Errorf("delete instrument %s: %w", symbol, err)
	}

	rm.metrics.InstrumentsRemoved.Inc()
	rm.logger.Info("instrument removed",
		zap.String("symbol", symbol),
		zap.Int64("instrument_id", inst.ID),
		zap.Int64("bars", res.BarsDeleted),
		zap.Int64("runs", res.RunsDeleted),
	)

	return res, nil
}
