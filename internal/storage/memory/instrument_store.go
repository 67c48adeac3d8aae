package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/storage"
)

// InstrumentStore is an in-memory implementation of storage.InstrumentStore.
type InstrumentStore struct {
	mu       sync.RWMutex
	nextID   int64
	data     map[int64]*domain.Instrument // keyed by id
	bySymbol map[string]int64
}

// NewInstrumentStore creates a new in-memory instrument store.
func NewInstrumentStore() *InstrumentStore {
	return &InstrumentStore{
		nextID:   1,
		data:     make(map[int64]*domain.Instrument),
		bySymbol: make(map[string]int64),
	}
}

// Compile-time interface check.
var _ storage.InstrumentStore = (*InstrumentStore)(nil)

// Insert adds a new instrument and assigns its ID. Returns ErrDuplicateKey if symbol exists.
func (s *InstrumentStore) Insert(_ context.Context, inst *domain.Instrument) error {
	if inst == nil || strings.TrimSpace(inst.Symbol) == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bySymbol[inst.Symbol]; exists {
		return storage.ErrDuplicateKey
	}

	inst.ID = s.nextID
	s.nextID++

	copy := *inst
	s.data[copy.ID] = &copy
	s.bySymbol[copy.Symbol] = copy.ID
	return nil
}

// GetByID retrieves an instrument by its ID. Returns ErrNotFound if not exists.
func (s *InstrumentStore) GetByID(_ context.Context, id int64) (*domain.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *inst
	return &copy, nil
}

// GetBySymbol retrieves an instrument by its symbol. Returns ErrNotFound if not exists.
func (s *InstrumentStore) GetBySymbol(_ context.Context, symbol string) (*domain.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.bySymbol[symbol]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *s.data[id]
	return &copy, nil
}

// List retrieves all instruments, ordered by symbol ASC.
func (s *InstrumentStore) List(_ context.Context) ([]*domain.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Instrument, 0, len(s.data))
	for _, inst := range s.data {
		copy := *inst
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})

	return result, nil
}

// Delete removes an instrument. Returns ErrNotFound if not exists.
// Bars and runs live in their own stores and are not touched.
func (s *InstrumentStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}

	delete(s.bySymbol, inst.Symbol)
	delete(s.data, id)
	return nil
}
