package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
// A run spans three tables: simulation_runs, simulation_trades and simulation_history.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, instrument_id, symbol, start_date, end_date,
	initial_cash, buy_threshold_pct, sell_threshold_pct,
	buy_slippage_pct, sell_slippage_pct, trade_percent, monthly_investment,
	final_cash, final_shares, final_asset_value, created_at
`

// Insert persists a run with its trades and history atomically.
// Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, run *domain.SimulationRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	cfg := run.Config
	res := run.Result
	_, err = tx.Exec(ctx, `
		INSERT INTO simulation_runs (`+runColumns+`) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $16
		)`,
		run.RunID, run.InstrumentID, run.Symbol, nullableDate(cfg.StartDate), nullableDate(cfg.EndDate),
		cfg.InitialCash, cfg.BuyThresholdPct, cfg.SellThresholdPct,
		cfg.BuySlippagePct, cfg.SellSlippagePct, cfg.TradePercent, cfg.MonthlyInvestment,
		res.FinalCash, res.FinalShares, res.FinalAssetValue, run.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		if isConstraintError(err) {
			return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
		}
		return fmt.Errorf("insert simulation run: %w", err)
	}

	tradeRows := make([][]any, len(res.Trades))
	for i, t := range res.Trades {
		tradeRows[i] = []any{run.RunID, int32(i), t.Date, string(t.Action), t.Shares, t.Price, t.CashChange}
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"simulation_trades"},
		[]string{"run_id", "seq", "date", "action", "shares", "price", "cash_change"},
		pgx.CopyFromRows(tradeRows),
	)
	if err != nil {
		return fmt.Errorf("copy simulation trades: %w", err)
	}

	historyRows := make([][]any, len(res.History))
	for i, h := range res.History {
		historyRows[i] = []any{run.RunID, int32(i), h.Date, h.Cash, h.Shares, h.AssetValue, h.PortfolioValue, h.Price}
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"simulation_history"},
		[]string{"run_id", "seq", "date", "cash", "shares", "asset_value", "portfolio_value", "price"},
		pgx.CopyFromRows(historyRows),
	)
	if err != nil {
		return fmt.Errorf("copy simulation history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a run with its trades and history. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.SimulationRun, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM simulation_runs WHERE run_id = $1`, runID)
	run, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	if err := s.loadChildren(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// ListByInstrument retrieves all runs for an instrument, ordered by created_at ASC.
func (s *RunStore) ListByInstrument(ctx context.Context, instrumentID int64) ([]*domain.SimulationRun, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+runColumns+`
		FROM simulation_runs
		WHERE instrument_id = $1
		ORDER BY created_at ASC, run_id ASC
	`, instrumentID)
	if err != nil {
		return nil, fmt.Errorf("query simulation runs: %w", err)
	}

	var runs []*domain.SimulationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulation runs: %w", err)
	}

	for _, run := range runs {
		if err := s.loadChildren(ctx, run); err != nil {
			return nil, err
		}
	}

	return runs, nil
}

// loadChildren fills the ledger and history of a run in seq order.
// DeleteByInstrument removes all runs of an instrument and returns how many were removed.
// Trades and history rows follow through ON DELETE CASCADE.
func (s *RunStore) DeleteByInstrument(ctx context.Context, instrumentID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM simulation_runs WHERE instrument_id = $1`, instrumentID)
	if err != nil {
		return 0, fmt.Errorf("delete simulation runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *RunStore) loadChildren(ctx context.Context, run *domain.SimulationRun) error {
	rows, err := s.pool.Query(ctx, `
		SELECT date, action, shares, price, cash_change
		FROM simulation_trades
		WHERE run_id = $1
		ORDER BY seq ASC
	`, run.RunID)
	if err != nil {
		return fmt.Errorf("query simulation trades: %w", err)
	}
	trades, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Trade, error) {
		var t domain.Trade
		var action string
		err := row.Scan(&t.Date, &action, &t.Shares, &t.Price, &t.CashChange)
		t.Action = domain.Action(action)
		t.Date = domain.NormalizeDate(t.Date)
		return t, err
	})
	if err != nil {
		return fmt.Errorf("scan simulation trades: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
		SELECT date, cash, shares, asset_value, portfolio_value, price
		FROM simulation_history
		WHERE run_id = $1
		ORDER BY seq ASC
	`, run.RunID)
	if err != nil {
		return fmt.Errorf("query simulation history: %w", err)
	}
	history, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.HistoryRecord, error) {
		var h domain.HistoryRecord
		err := row.Scan(&h.Date, &h.Cash, &h.Shares, &h.AssetValue, &h.PortfolioValue, &h.Price)
		h.Date = domain.NormalizeDate(h.Date)
		return h, err
	})
	if err != nil {
		return fmt.Errorf("scan simulation history: %w", err)
	}

	run.Result.Trades = trades
	run.Result.History = history
	return nil
}

// scanRun scans a simulation_runs row without its children.
func scanRun(row pgx.Row) (*domain.SimulationRun, error) {
	var run domain.SimulationRun
	var startDate, endDate *time.Time

	err := row.Scan(
		&run.RunID, &run.InstrumentID, &run.Symbol, &startDate, &endDate,
		&run.Config.InitialCash, &run.Config.BuyThresholdPct, &run.Config.SellThresholdPct,
		&run.Config.BuySlippagePct, &run.Config.SellSlippagePct, &run.Config.TradePercent, &run.Config.MonthlyInvestment,
		&run.Result.FinalCash, &run.Result.FinalShares, &run.Result.FinalAssetValue, &run.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan simulation run: %w", err)
	}

	if startDate != nil {
		run.Config.StartDate = domain.NormalizeDate(*startDate)
	}
	if endDate != nil {
		run.Config.EndDate = domain.NormalizeDate(*endDate)
	}
	run.CreatedAt = run.CreatedAt.UTC()

	return &run, nil
}

// nullableDate maps an open (zero) bound to NULL.
func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	d := domain.NormalizeDate(t)
	return &d
}
