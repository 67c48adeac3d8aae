package storage

import (
	"context"
	"math"
	"time"

	"portfolio-sim/internal/domain"
)

// InstrumentStore provides access to instruments storage.
type InstrumentStore interface {
	// Insert adds a new instrument and assigns its ID. Returns ErrDuplicateKey if symbol exists.
	Insert(ctx context.Context, inst *domain.Instrument) error

	// GetByID retrieves an instrument by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id int64) (*domain.Instrument, error)

	// GetBySymbol retrieves an instrument by its symbol. Returns ErrNotFound if not exists.
	GetBySymbol(ctx context.Context, symbol string) (*domain.Instrument, error)

	// List retrieves all instruments, ordered by symbol ASC.
	List(ctx context.Context) ([]*domain.Instrument, error)

	// Delete removes an instrument. Returns ErrNotFound if not exists.
	// Backends with foreign keys cascade to the instrument's bars and runs.
	Delete(ctx context.Context, id int64) error
}

// PriceBarStore provides access to price_bars storage.
// Bars are keyed by (instrument_id, date); a later write for the same key replaces the earlier one.
type PriceBarStore interface {
	// Upsert inserts or replaces bars. The whole batch is validated before any write;
	// returns ErrInvalidInput on a nil bar, a missing instrument ID, a non-positive or
	// non-finite close, or a NaN or infinite optional price.
	Upsert(ctx context.Context, bars []*domain.PriceBar) error

	// GetByDateRange retrieves bars for an instrument within [start, end] (inclusive), ordered by date ASC.
	// A zero start or end leaves that side of the range open.
	GetByDateRange(ctx context.Context, instrumentID int64, start, end time.Time) ([]*domain.PriceBar, error)

	// GetAll retrieves all bars for an instrument, ordered by date ASC.
	GetAll(ctx context.Context, instrumentID int64) ([]*domain.PriceBar, error)

	// DeleteByInstrument removes all bars of an instrument and returns how many were removed.
	DeleteByInstrument(ctx context.Context, instrumentID int64) (int64, error)
}

// RunStore provides access to simulation_runs storage and the per-run ledger and history.
type RunStore interface {
	// Insert persists a run with its trades and history atomically.
	// Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.SimulationRun) error

	// GetByID retrieves a run with its trades and history. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.SimulationRun, error)

	// ListByInstrument retrieves all runs for an instrument, ordered by created_at ASC.
	ListByInstrument(ctx context.Context, instrumentID int64) ([]*domain.SimulationRun, error)

	// DeleteByInstrument removes all runs of an instrument with their trades and history.
	// Returns the number of runs removed.
	DeleteByInstrument(ctx context.Context, instrumentID int64) (int64, error)
}

// ValidateBars checks a batch before it is written.
func ValidateBars(bars []*domain.PriceBar) error {
	for _, b := range bars {
		if b == nil || b.InstrumentID <= 0 || b.Date.IsZero() {
			return ErrInvalidInput
		}
		if !(b.Close > 0) || math.IsInf(b.Close, 1) {
			return ErrInvalidInput
		}
		for _, p := range []*float64{b.Open, b.High, b.Low} {
			if p != nil && (math.IsNaN(*p) || math.IsInf(*p, 0)) {
				return ErrInvalidInput
			}
		}
		if b.Volume != nil && *b.Volume < 0 {
			return ErrInvalidInput
		}
	}
	return nil
}
