package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/storage"
)

// PriceBarStore implements storage.PriceBarStore using PostgreSQL.
type PriceBarStore struct {
	pool *Pool
}

// NewPriceBarStore creates a new PriceBarStore.
func NewPriceBarStore(pool *Pool) *PriceBarStore {
	return &PriceBarStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PriceBarStore = (*PriceBarStore)(nil)

const priceBarColumns = `instrument_id, date, open, high, low, close, volume`

// Upsert inserts or replaces bars keyed by (instrument_id, date) in one transaction.
// A foreign key or check violation rolls back the batch and returns ErrInvalidInput.
func (s *PriceBarStore) Upsert(ctx context.Context, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	if err := storage.ValidateBars(bars); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO price_bars (` + priceBarColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (instrument_id, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(query,
			b.InstrumentID, domain.NormalizeDate(b.Date),
			b.Open, b.High, b.Low, b.Close, b.Volume,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range bars {
		if _, err := br.Exec(); err != nil {
			br.Close()
			if isConstraintError(err) {
				return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
			}
			return fmt.Errorf("upsert price bar: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByDateRange retrieves bars for an instrument within [start, end] (inclusive), ordered by date ASC.
// A zero start or end leaves that side open.
func (s *PriceBarStore) GetByDateRange(ctx context.Context, instrumentID int64, start, end time.Time) ([]*domain.PriceBar, error) {
	conds := []string{"instrument_id = $1"}
	args := []any{instrumentID}

	if !start.IsZero() {
		args = append(args, domain.NormalizeDate(start))
		conds = append(conds, fmt.Sprintf("date >= $%d", len(args)))
	}
	if !end.IsZero() {
		args = append(args, domain.NormalizeDate(end))
		conds = append(conds, fmt.Sprintf("date <= $%d", len(args)))
	}

	query := `SELECT ` + priceBarColumns + ` FROM price_bars WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY date ASC`

	return s.query(ctx, query, args...)
}

// GetAll retrieves all bars for an instrument, ordered by date ASC.
func (s *PriceBarStore) GetAll(ctx context.Context, instrumentID int64) ([]*domain.PriceBar, error) {
	query := `SELECT ` + priceBarColumns + ` FROM price_bars WHERE instrument_id = $1 ORDER BY date ASC`
	return s.query(ctx, query, instrumentID)
}

// DeleteByInstrument removes all bars of an instrument and returns how many were removed.
func (s *PriceBarStore) DeleteByInstrument(ctx context.Context, instrumentID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM price_bars WHERE instrument_id = $1`, instrumentID)
	if err != nil {
		return 0, fmt.Errorf("delete price bars: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PriceBarStore) query(ctx context.Context, query string, args ...any) ([]*domain.PriceBar, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query price bars: %w", err)
	}
	defer rows.Close()

	var bars []*domain.PriceBar
	for rows.Next() {
		var b domain.PriceBar
		err := rows.Scan(&b.InstrumentID, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume)
		if err != nil {
			return nil, fmt.Errorf("scan price bar: %w", err)
		}
		b.Date = domain.NormalizeDate(b.Date)
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price bars: %w", err)
	}

	return bars, nil
}
