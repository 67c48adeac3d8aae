package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/storage"
)

// PriceBarStore is an in-memory implementation of storage.PriceBarStore.
type PriceBarStore struct {
	mu   sync.RWMutex
	data map[int64]map[time.Time]*domain.PriceBar // instrument_id -> date -> bar
}

// NewPriceBarStore creates a new in-memory price bar store.
func NewPriceBarStore() *PriceBarStore {
	return &PriceBarStore{
		data: make(map[int64]map[time.Time]*domain.PriceBar),
	}
}

// Compile-time interface check.
var _ storage.PriceBarStore = (*PriceBarStore)(nil)

// Upsert inserts or replaces bars keyed by (instrument_id, date).
// Nothing is written if any bar in the batch is invalid.
func (s *PriceBarStore) Upsert(_ context.Context, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	if err := storage.ValidateBars(bars); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range bars {
		copy := copyBar(b)
		copy.Date = domain.NormalizeDate(b.Date)

		byDate, ok := s.data[b.InstrumentID]
		if !ok {
			byDate = make(map[time.Time]*domain.PriceBar)
			s.data[b.InstrumentID] = byDate
		}
		byDate[copy.Date] = copy
	}

	return nil
}

// GetByDateRange retrieves bars for an instrument within [start, end] (inclusive), ordered by date ASC.
func (s *PriceBarStore) GetByDateRange(_ context.Context, instrumentID int64, start, end time.Time) ([]*domain.PriceBar, error) {
	start = domain.NormalizeDate(start)
	end = domain.NormalizeDate(end)

	return s.collect(instrumentID, func(b *domain.PriceBar) bool {
		if !start.IsZero() && b.Date.Before(start) {
			return false
		}
		return end.IsZero() || !b.Date.After(end)
	}), nil
}

// GetAll retrieves all bars for an instrument, ordered by date ASC.
func (s *PriceBarStore) GetAll(_ context.Context, instrumentID int64) ([]*domain.PriceBar, error) {
	return s.collect(instrumentID, func(*domain.PriceBar) bool { return true }), nil
}

// DeleteByInstrument removes all bars of an instrument and returns how many were removed.
func (s *PriceBarStore) DeleteByInstrument(_ context.Context, instrumentID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.data[instrumentID]))
	delete(s.data, instrumentID)
	return n, nil
}

func (s *PriceBarStore) collect(instrumentID int64, keep func(*domain.PriceBar) bool) []*domain.PriceBar {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceBar
	for _, b := range s.data[instrumentID] {
		if keep(b) {
			result = append(result, copyBar(b))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})

	return result
}

// copyBar deep-copies a bar including its optional fields.
func copyBar(b *domain.PriceBar) *domain.PriceBar {
	c := *b
	if b.Open != nil {
		v := *b.Open
		c.Open = &v
	}
	if b.High != nil {
		v := *b.High
		c.High = &v
	}
	if b.Low != nil {
		v := *b.Low
		c.Low = &v
	}
	if b.Volume != nil {
		v := *b.Volume
		c.Volume = &v
	}
	return &c
}
