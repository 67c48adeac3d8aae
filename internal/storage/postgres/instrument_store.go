package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/storage"
)

// InstrumentStore implements storage.InstrumentStore using PostgreSQL.
type InstrumentStore struct {
	pool *Pool
}

// NewInstrumentStore creates a new InstrumentStore.
func NewInstrumentStore(pool *Pool) *InstrumentStore {
	return &InstrumentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.InstrumentStore = (*InstrumentStore)(nil)

// Insert adds a new instrument and assigns its ID. Returns ErrDuplicateKey if symbol exists.
func (s *InstrumentStore) Insert(ctx context.Context, inst *domain.Instrument) error {
	if inst == nil || strings.TrimSpace(inst.Symbol) == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO instruments (symbol) VALUES ($1) RETURNING id`

	err := s.pool.QueryRow(ctx, query, inst.Symbol).Scan(&inst.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert instrument: %w", err)
	}
	return nil
}

// GetByID retrieves an instrument by its ID. Returns ErrNotFound if not exists.
func (s *InstrumentStore) GetByID(ctx context.Context, id int64) (*domain.Instrument, error) {
	query := `SELECT id, symbol FROM instruments WHERE id = $1`
	return s.getOne(ctx, query, id)
}

// GetBySymbol retrieves an instrument by its symbol. Returns ErrNotFound if not exists.
func (s *InstrumentStore) GetBySymbol(ctx context.Context, symbol string) (*domain.Instrument, error) {
	query := `SELECT id, symbol FROM instruments WHERE symbol = $1`
	return s.getOne(ctx, query, symbol)
}

// List retrieves all instruments, ordered by symbol ASC.
func (s *InstrumentStore) List(ctx context.Context) ([]*domain.Instrument, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, symbol FROM instruments ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("query instruments: %w", err)
	}
	defer rows.Close()

	var result []*domain.Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inst)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instruments: %w", err)
	}

	return result, nil
}

// Delete removes an instrument. Returns ErrNotFound if not exists.
// Its price bars and simulation runs are removed by ON DELETE CASCADE.
func (s *InstrumentStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM instruments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete instrument: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *InstrumentStore) getOne(ctx context.Context, query string, arg any) (*domain.Instrument, error) {
	inst, err := scanInstrument(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return inst, nil
}

func scanInstrument(row pgx.Row) (*domain.Instrument, error) {
	var inst domain.Instrument
	if err := row.Scan(&inst.ID, &inst.Symbol); err != nil {
		if isNotFoundError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan instrument: %w", err)
	}
	return &inst, nil
}
