package memory

import (
	"context"
	"sort"
	"sync"

	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/storage"
)

// RunStore is an in-memory implementation of storage.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SimulationRun // keyed by run_id
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		data: make(map[string]*domain.SimulationRun),
	}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert persists a run with its trades and history. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(_ context.Context, run *domain.SimulationRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[run.RunID] = copyRun(run)
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(_ context.Context, runID string) (*domain.SimulationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copyRun(run), nil
}

// ListByInstrument retrieves all runs for an instrument, ordered by created_at ASC.
func (s *RunStore) ListByInstrument(_ context.Context, instrumentID int64) ([]*domain.SimulationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SimulationRun
	for _, run := range s.data {
		if run.InstrumentID == instrumentID {
			result = append(result, copyRun(run))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].RunID < result[j].RunID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// DeleteByInstrument removes all runs of an instrument and returns how many were removed.
func (s *RunStore) DeleteByInstrument(_ context.Context, instrumentID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, run := range s.data {
		if run.InstrumentID == instrumentID {
			delete(s.data, id)
			n++
		}
	}
	return n, nil
}

// copyRun copies a run so callers cannot mutate stored slices.
func copyRun(run *domain.SimulationRun) *domain.SimulationRun {
	c := *run
	c.Result.History = append([]domain.HistoryRecord(nil), run.Result.History...)
	c.Result.Trades = append([]domain.Trade(nil), run.Result.Trades...)
	return &c
}
