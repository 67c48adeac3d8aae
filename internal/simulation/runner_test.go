package simulation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/events"
	"portfolio-sim/internal/idhash"
	"portfolio-sim/internal/observability"
	"portfolio-sim/internal/storage"
	"portfolio-sim/internal/storage/memory"
)

type runnerFixture struct {
	runner    *Runner
	instStore *memory.InstrumentStore
	barStore  *memory.PriceBarStore
	runStore  *memory.RunStore
	recorder  *events.Recorder
	metrics   *observability.Metrics
}

// newRunnerFixture seeds SPY with daily closes starting 2024-01-01.
func newRunnerFixture(t *testing.T, closes ...float64) *runnerFixture {
	t.Helper()
	ctx := context.Background()

	f := &runnerFixture{
		instStore: memory.NewInstrumentStore(),
		barStore:  memory.NewPriceBarStore(),
		runStore:  memory.NewRunStore(),
		recorder:  &events.Recorder{},
		metrics:   observability.NewMetricsWith(prometheus.NewRegistry(), "test"),
	}

	inst := &domain.Instrument{Symbol: "SPY"}
	if err := f.instStore.Insert(ctx, inst); err != nil {
		t.Fatalf("insert instrument: %v", err)
	}

	bars := makeBars(day(2024, 1, 1), closes...)
	for _, b := range bars {
		b.InstrumentID = inst.ID
	}
	if err := f.barStore.Upsert(ctx, bars); err != nil {
		t.Fatalf("upsert bars: %v", err)
	}

	f.runner = NewRunner(RunnerOptions{
		Instruments: f.instStore,
		Bars:        f.barStore,
		Runs:        f.runStore,
		Publisher:   f.recorder,
		Metrics:     f.metrics,
		Now:         func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
	return f
}

func TestRunner_Run(t *testing.T) {
	f := newRunnerFixture(t, 100, 106, 90)
	ctx := context.Background()

	cfg := baseConfig()
	cfg.BuyThresholdPct = 5
	cfg.SellThresholdPct = -10

	run, err := f.runner.Run(ctx, RunRequest{Symbol: "spy", Config: cfg})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if run.Symbol != "SPY" {
		t.Errorf("Symbol = %s, want SPY", run.Symbol)
	}
	bars, _ := f.barStore.GetAll(ctx, run.InstrumentID)
	if run.RunID != idhash.ComputeRunID("SPY", cfg, bars) {
		t.Errorf("RunID is not the deterministic hash of the inputs")
	}
	if len(run.Result.History) != 3 {
		t.Errorf("History length = %d, want 3", len(run.Result.History))
	}
	if countAction(run.Result.Trades, domain.ActionBuy) != 1 || countAction(run.Result.Trades, domain.ActionSell) != 1 {
		t.Errorf("expected one BUY and one SELL, got %+v", run.Result.Trades)
	}

	// Not persisted unless requested
	if _, err := f.runStore.GetByID(ctx, run.RunID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("run should not be stored, got %v", err)
	}

	evs := f.recorder.Events()
	if len(evs) != 1 || evs[0].RunID != run.RunID || evs[0].Persisted {
		t.Errorf("unexpected events: %+v", evs)
	}

	if got := testutil.ToFloat64(f.metrics.SimulationRuns.WithLabelValues("ok")); got != 1 {
		t.Errorf("ok runs metric = %v, want 1", got)
	}
	if got := testutil.ToFloat64(f.metrics.LedgerEvents.WithLabelValues("BUY")); got != 1 {
		t.Errorf("BUY ledger metric = %v, want 1", got)
	}
}

func TestRunner_Persist(t *testing.T) {
	f := newRunnerFixture(t, 100, 106, 90)
	ctx := context.Background()

	req := RunRequest{Symbol: "SPY", Config: baseConfig(), Persist: true}

	first, err := f.runner.Run(ctx, req)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	stored, err := f.runStore.GetByID(ctx, first.RunID)
	if err != nil {
		t.Fatalf("run not stored: %v", err)
	}
	if len(stored.Result.History) != len(first.Result.History) {
		t.Errorf("stored history length mismatch")
	}

	// Same inputs hash to the same ID; the stored run is returned.
	second, err := f.runner.Run(ctx, req)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if second.RunID != first.RunID {
		t.Errorf("RunID changed between identical runs")
	}

	runs, _ := f.runStore.ListByInstrument(ctx, stored.InstrumentID)
	if len(runs) != 1 {
		t.Errorf("expected 1 stored run, got %d", len(runs))
	}

	if got := testutil.ToFloat64(f.metrics.RunsPersisted); got != 1 {
		t.Errorf("persisted metric = %v, want 1", got)
	}
	if evs := f.recorder.Events(); len(evs) != 2 || !evs[1].Persisted {
		t.Errorf("unexpected events: %+v", evs)
	}
}

func TestRunner_PersistAfterReimport(t *testing.T) {
	f := newRunnerFixture(t, 100, 106)
	ctx := context.Background()

	cfg := baseConfig()
	cfg.BuyThresholdPct = 5
	req := RunRequest{Symbol: "SPY", Config: cfg, Persist: true}

	first, err := f.runner.Run(ctx, req)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if first.Result.LastPrice() != 106 || len(first.Result.Trades) != 1 {
		t.Fatalf("unexpected first run: last price %v, trades %+v", first.Result.LastPrice(), first.Result.Trades)
	}

	// Re-import the second day with a lower close.
	replaced := makeBars(day(2024, 1, 2), 80)
	replaced[0].InstrumentID = first.InstrumentID
	if err := f.barStore.Upsert(ctx, replaced); err != nil {
		t.Fatalf("upsert bars: %v", err)
	}

	second, err := f.runner.Run(ctx, req)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if second.RunID == first.RunID {
		t.Fatal("RunID should change when the series changes")
	}
	if second.Result.LastPrice() != 80 {
		t.Errorf("second run last price = %v, want 80", second.Result.LastPrice())
	}
	if len(second.Result.Trades) != 0 {
		t.Errorf("second run should not trade, got %+v", second.Result.Trades)
	}

	// Both runs are kept; the earlier one is unchanged.
	runs, err := f.runStore.ListByInstrument(ctx, first.InstrumentID)
	if err != nil {
		t.Fatalf("ListByInstrument failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 stored runs, got %d", len(runs))
	}
	stored, err := f.runStore.GetByID(ctx, first.RunID)
	if err != nil {
		t.Fatalf("first run missing: %v", err)
	}
	if stored.Result.LastPrice() != 106 {
		t.Errorf("stored first run last price = %v, want 106", stored.Result.LastPrice())
	}
	if got := testutil.ToFloat64(f.metrics.RunsPersisted); got != 2 {
		t.Errorf("persisted metric = %v, want 2", got)
	}
}

func TestRunner_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid config before lookup", func(t *testing.T) {
		f := newRunnerFixture(t, 100, 101)
		cfg := baseConfig()
		cfg.TradePercent = 2

		_, err := f.runner.Run(ctx, RunRequest{Symbol: "UNKNOWN", Config: cfg})
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) || cfgErr.Field != "trade_percent" {
			t.Fatalf("expected trade_percent ConfigError, got %v", err)
		}
		if got := testutil.ToFloat64(f.metrics.SimulationRuns.WithLabelValues("invalid_config")); got != 1 {
			t.Errorf("invalid_config metric = %v, want 1", got)
		}
	})

	t.Run("unknown symbol", func(t *testing.T) {
		f := newRunnerFixture(t, 100, 101)
		_, err := f.runner.Run(ctx, RunRequest{Symbol: "QQQ", Config: baseConfig()})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("no data in range", func(t *testing.T) {
		f := newRunnerFixture(t, 100, 101)
		cfg := baseConfig()
		cfg.StartDate = day(2025, 1, 1)
		cfg.EndDate = day(2025, 12, 31)

		_, err := f.runner.Run(ctx, RunRequest{Symbol: "SPY", Config: cfg})
		if !errors.Is(err, ErrNoData) {
			t.Fatalf("expected ErrNoData, got %v", err)
		}
		if len(f.recorder.Events()) != 0 {
			t.Error("no event should be published for a failed run")
		}
	})
}

func TestRunner_RunBatch(t *testing.T) {
	f := newRunnerFixture(t, 100, 106, 90, 95, 120)
	ctx := context.Background()

	var reqs []RunRequest
	for i := 0; i < 8; i++ {
		cfg := baseConfig()
		cfg.BuyThresholdPct = float64(i)
		reqs = append(reqs, RunRequest{Symbol: "SPY", Config: cfg})
	}
	reqs = append(reqs, RunRequest{Symbol: "MISSING", Config: baseConfig()})

	results, err := f.runner.RunBatch(ctx, reqs, 3)
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	spy, _ := f.instStore.GetBySymbol(ctx, "SPY")
	bars, _ := f.barStore.GetAll(ctx, spy.ID)
	if len(results) != len(reqs) {
		t.Fatalf("got %d results, want %d", len(results), len(reqs))
	}

	for i, res := range results[:8] {
		if res.Err != nil {
			t.Errorf("result %d failed: %v", i, res.Err)
			continue
		}
		if res.Request.Config.BuyThresholdPct != float64(i) {
			t.Errorf("result %d out of order", i)
		}
		if res.Run.RunID != idhash.ComputeRunID("SPY", reqs[i].Config, bars) {
			t.Errorf("result %d has the wrong run", i)
		}
	}
	if !errors.Is(results[8].Err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing symbol, got %v", results[8].Err)
	}
}

func TestRunner_RunBatchCancelled(t *testing.T) {
	f := newRunnerFixture(t, 100, 101)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reqs := []RunRequest{
		{Symbol: "SPY", Config: baseConfig()},
		{Symbol: "SPY", Config: baseConfig()},
		{Symbol: "SPY", Config: baseConfig()},
	}
	results, err := f.runner.RunBatch(ctx, reqs, 2)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(results) != len(reqs) {
		t.Fatalf("got %d results, want %d", len(results), len(reqs))
	}
	for i, res := range results {
		if (res.Run == nil) == (res.Err == nil) {
			t.Errorf("result %d: exactly one of Run and Err must be set, got %+v", i, res)
		}
		if !errors.Is(res.Err, context.Canceled) {
			t.Errorf("result %d: expected context.Canceled, got %v", i, res.Err)
		}
		if res.Request.Symbol != "SPY" {
			t.Errorf("result %d: request not recorded", i)
		}
	}
}

func TestErrorClass(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&ConfigError{Field: "x"}, "invalid_config"},
		{storage.ErrNotFound, "not_found"},
		{ErrNoData, "no_data"},
		{ErrInvalidSeries, "invalid_series"},
		{context.Canceled, "cancelled"},
		{errors.New("boom"), "error"},
	}

	for _, tt := range tests {
		if got := errorClass(tt.err); got != tt.want {
			t.Errorf("errorClass(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
