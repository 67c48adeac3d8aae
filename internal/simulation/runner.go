package simulation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/events"
	"portfolio-sim/internal/idhash"
	"portfolio-sim/internal/logging"
	"portfolio-sim/internal/observability"
	"portfolio-sim/internal/storage"
	"portfolio-sim/internal/tracing"
)

// RunRequest asks the Runner to simulate one instrument.
type RunRequest struct {
	Symbol  string                  `json:"symbol"`
	Config  domain.SimulationConfig `json:"config"`
	Persist bool                    `json:"persist"`
}

// BatchResult pairs a request with its outcome. Exactly one of Run and Err is set.
type BatchResult struct {
	Request RunRequest
	Run     *domain.SimulationRun
	Err     error
}

// Runner loads data from storage, runs the engine and records the outcome.
type Runner struct {
	instruments storage.InstrumentStore
	bars        storage.PriceBarStore
	runs        storage.RunStore
	publisher   events.Publisher
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// RunnerOptions contains configuration for creating a Runner.
// Runs and Publisher are optional; Metrics defaults to observability.DefaultMetrics.
type RunnerOptions struct {
	Instruments storage.InstrumentStore
	Bars        storage.PriceBarStore
	Runs        storage.RunStore
	Publisher   events.Publisher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Now         func() time.Time
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	r := &Runner{
		instruments: opts.Instruments,
		bars:        opts.Bars,
		runs:        opts.Runs,
		publisher:   opts.Publisher,
		metrics:     opts.Metrics,
		logger:      logging.OrNop(opts.Logger),
		now:         opts.Now,
	}
	if r.publisher == nil {
		r.publisher = events.NopPublisher{}
	}
	if r.metrics == nil {
		r.metrics = observability.DefaultMetrics
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Run executes a simulation for a symbol.
// Steps:
//  1. Validate config bounds (no I/O on a bad config)
//  2. Resolve instrument by symbol
//  3. Load bars in the configured range
//  4. Run the engine
//  5. Compute the deterministic run ID from symbol, config and the loaded series
//  6. Persist when requested; an existing run with the same ID is returned as is,
//     which is only possible when the series is unchanged
//  7. Publish the run-completed event
//  8. Record metrics and span status
func (r *Runner) Run(ctx context.Context, req RunRequest) (run *domain.SimulationRun, err error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	cfg := req.Config

	ctx, span := tracing.StartSpan(ctx, "simulation.Run", trace.WithAttributes(
		attribute.String("symbol", symbol),
		attribute.Bool("persist", req.Persist),
	))
	started := r.now()
	barCount := 0

	// 8. Record metrics and span status
	defer func() {
		status := errorClass(err)
		r.metrics.RecordSimulationRun(status, r.now().Sub(started).Seconds(), barCount)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.logger.Warn("simulation failed",
				zap.String("symbol", symbol),
				zap.String("status", status),
				zap.Error(err),
			)
		} else {
			span.SetAttributes(attribute.String("run_id", run.RunID))
			r.metrics.LastSuccessfulRun.Set(float64(r.now().Unix()))
		}
		span.End()
	}()

	// 1. Validate config bounds
	if err := ValidateBounds(cfg); err != nil {
		return nil, err
	}

	// 2. Resolve instrument by symbol
	inst, err := r.instruments.GetBySymbol(ctx, symbol)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("instrument %s: %w", symbol, err)
		}
		return nil, fmt.Errorf("resolve instrument %s: %w", symbol, err)
	}

	// 3. Load bars in the configured range
	queryStart := r.now()
	bars, err := r.bars.GetByDateRange(ctx, inst.ID, cfg.StartDate, cfg.EndDate)
	r.metrics.RecordDBQuery("price_bars", "get_by_date_range", r.now().Sub(queryStart).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("load bars for %s: %w", symbol, err)
	}
	barCount = len(bars)

	// 4. Run the engine
	result, err := Run(bars, cfg)
	if err != nil {
		return nil, err
	}
	for _, t := range result.Trades {
		r.metrics.RecordLedgerEvent(string(t.Action))
	}

	// 5. Compute the deterministic run ID; re-imported bars yield a new ID
	run = &domain.SimulationRun{
		RunID:        idhash.ComputeRunID(inst.Symbol, cfg, bars),
		InstrumentID: inst.ID,
		Symbol:       inst.Symbol,
		Config:       cfg,
		Result:       *result,
		CreatedAt:    r.now().UTC(),
	}

	// 6. Persist when requested
	persisted := false
	if req.Persist && r.runs != nil {
		run, err = r.persist(ctx, run)
		if err != nil {
			return nil, err
		}
		persisted = true
	}

	// 7. Publish the run-completed event; delivery failures do not fail the run
	pubErr := r.publisher.Publish(ctx, events.NewRunCompleted(run, persisted))
	r.metrics.RecordEventPublished(pubErr)
	if pubErr != nil {
		r.logger.Warn("publish run event failed", zap.String("run_id", run.RunID), zap.Error(pubErr))
	}

	r.logger.Info("simulation completed",
		zap.String("symbol", symbol),
		zap.String("run_id", run.RunID),
		zap.Int("bars", barCount),
		zap.Int("ledger_entries", len(run.Result.Trades)),
		zap.Float64("final_value", run.Result.FinalPortfolioValue()),
		zap.Bool("persisted", persisted),
	)

	return run, nil
}

// persist inserts run, or loads the stored run when the ID already exists.
func (r *Runner) persist(ctx context.Context, run *domain.SimulationRun) (*domain.SimulationRun, error) {
	err := r.runs.Insert(ctx, run)
	switch {
	case err == nil:
		r.metrics.RunsPersisted.Inc()
		return run, nil
	case errors.Is(err, storage.ErrDuplicateKey):
		existing, getErr := r.runs.GetByID(ctx, run.RunID)
		if getErr != nil {
			return nil, fmt.Errorf("load existing run %s: %w", run.RunID, getErr)
		}
		r.logger.Debug("run already stored", zap.String("run_id", run.RunID))
		return existing, nil
	default:
		return nil, fmt.Errorf("persist run %s: %w", run.RunID, err)
	}
}

// RunBatch executes requests with at most workers in flight and returns
// one result per request in request order. A failed request does not stop the others.
// Returns ctx.Err() if the context is cancelled before all requests finish;
// requests that were never started carry that error in their result.
func (r *Runner) RunBatch(ctx context.Context, reqs []RunRequest, workers int) ([]BatchResult, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]BatchResult, len(reqs))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			results[i] = BatchResult{Request: req, Err: err}
			continue
		}
		i, req := i, req // per-iteration copies; module targets Go 1.21 loop semantics
		g.Go(func() error {
			run, err := r.Run(ctx, req)
			results[i] = BatchResult{Request: req, Run: run, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// errorClass maps an error to a metrics status label.
func errorClass(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, storage.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, ErrInvalidSeries):
		return "invalid_series"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
