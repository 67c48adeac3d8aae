package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/storage"
)

// PriceBarStore implements storage.PriceBarStore using ClickHouse.
// The table is a ReplacingMergeTree keyed by (instrument_id, date); reads use FINAL
// so a replaced bar is never returned twice.
type PriceBarStore struct {
	conn *Conn
	now  func() time.Time
}

// NewPriceBarStore creates a new PriceBarStore.
func NewPriceBarStore(conn *Conn) *PriceBarStore {
	return &PriceBarStore{conn: conn, now: time.Now}
}

// Compile-time interface check.
var _ storage.PriceBarStore = (*PriceBarStore)(nil)

// Upsert appends bars with a fresh version. Within one batch the last bar for a date wins.
func (s *PriceBarStore) Upsert(ctx context.Context, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	if err := storage.ValidateBars(bars); err != nil {
		return err
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_bars (
			instrument_id, date, open, high, low, close, volume, version
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	// Later rows in the batch get a higher version so they replace earlier ones.
	base := uint64(s.now().UnixNano())
	for i, b := range bars {
		err = batch.Append(
			b.InstrumentID, domain.NormalizeDate(b.Date),
			b.Open, b.High, b.Low, b.Close, b.Volume,
			base+uint64(i),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByDateRange retrieves bars for an instrument within [start, end] (inclusive), ordered by date ASC.
func (s *PriceBarStore) GetByDateRange(ctx context.Context, instrumentID int64, start, end time.Time) ([]*domain.PriceBar, error) {
	conds := []string{"instrument_id = ?"}
	args := []any{instrumentID}

	if !start.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, domain.NormalizeDate(start))
	}
	if !end.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, domain.NormalizeDate(end))
	}

	query := `
		SELECT instrument_id, date, open, high, low, close, volume
		FROM price_bars FINAL
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query by date range: %w", err)
	}
	defer rows.Close()

	return scanPriceBars(rows)
}

// GetAll retrieves all bars for an instrument, ordered by date ASC.
func (s *PriceBarStore) GetAll(ctx context.Context, instrumentID int64) ([]*domain.PriceBar, error) {
	return s.GetByDateRange(ctx, instrumentID, time.Time{}, time.Time{})
}

// DeleteByInstrument removes all bars of an instrument and returns how many distinct
// (instrument_id, date) rows were visible before the delete.
// The mutation runs with mutations_sync=1 so later reads do not see the bars.
func (s *PriceBarStore) DeleteByInstrument(ctx context.Context, instrumentID int64) (int64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count() FROM price_bars FINAL WHERE instrument_id = ?`, instrumentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count price bars: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	syncCtx := clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"mutations_sync": 1,
	}))
	if err := s.conn.Exec(syncCtx, `ALTER TABLE price_bars DELETE WHERE instrument_id = ?`, instrumentID); err != nil {
		return 0, fmt.Errorf("delete price bars: %w", err)
	}

	return int64(count), nil
}

// scanPriceBars scans multiple rows.
func scanPriceBars(rows chRows) ([]*domain.PriceBar, error) {
	var bars []*domain.PriceBar

	for rows.Next() {
		var b domain.PriceBar
		err := rows.Scan(
			&b.InstrumentID, &b.Date,
			&b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price bar row: %w", err)
		}

		b.Date = domain.NormalizeDate(b.Date)
		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price bar rows: %w", err)
	}

	return bars, nil
}
