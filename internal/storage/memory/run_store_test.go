package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/storage"
)

func testRun(id string, instrumentID int64, created time.Time) *domain.SimulationRun {
	return &domain.SimulationRun{
		RunID:        id,
		InstrumentID: instrumentID,
		Symbol:       "SPY",
		Config:       domain.PresetConfigDefault,
		Result: domain.SimulationResult{
			History: []domain.HistoryRecord{
				{Date: date(2024, 1, 1), Cash: 10000, PortfolioValue: 10000, Price: 100},
			},
			Trades: []domain.Trade{
				{Date: date(2024, 1, 1), Action: domain.ActionDeposit, Price: 100, CashChange: 500},
			},
			FinalCash: 10000,
		},
		CreatedAt: created,
	}
}

func TestRunStore_InsertAndGet(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	run := testRun("run-1", 1, date(2024, 2, 1))
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Symbol != "SPY" {
		t.Errorf("Symbol mismatch: got %s", got.Symbol)
	}
	if len(got.Result.History) != 1 || len(got.Result.Trades) != 1 {
		t.Errorf("Expected 1 history and 1 trade, got %d and %d", len(got.Result.History), len(got.Result.Trades))
	}
}

func TestRunStore_DuplicateKey(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testRun("run-1", 1, date(2024, 2, 1))); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, testRun("run-1", 1, date(2024, 2, 2)))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestRunStore_NotFoundAndInvalid(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := store.Insert(ctx, &domain.SimulationRun{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestRunStore_ListByInstrument(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	runs := []*domain.SimulationRun{
		testRun("b", 1, date(2024, 2, 3)),
		testRun("a", 1, date(2024, 2, 1)),
		testRun("c", 2, date(2024, 2, 2)),
	}
	for _, r := range runs {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.ListByInstrument(ctx, 1)
	if err != nil {
		t.Fatalf("ListByInstrument failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(got))
	}
	if got[0].RunID != "a" || got[1].RunID != "b" {
		t.Errorf("Unexpected order: %s, %s", got[0].RunID, got[1].RunID)
	}
}

func TestRunStore_ReturnsCopies(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testRun("run-1", 1, date(2024, 2, 1))); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, _ := store.GetByID(ctx, "run-1")
	got.Result.Trades[0].CashChange = -1

	again, _ := store.GetByID(ctx, "run-1")
	if again.Result.Trades[0].CashChange != 500 {
		t.Errorf("Stored trade was mutated through returned copy")
	}
}

func TestRunStore_DeleteByInstrument(t *testing.T) {
	store := NewRunStore()
	ctx := context.Background()

	for _, run := range []*domain.SimulationRun{
		testRun("run-a", 1, date(2024, 2, 1)),
		testRun("run-b", 1, date(2024, 2, 2)),
		testRun("run-c", 2, date(2024, 2, 3)),
	} {
		if err := store.Insert(ctx, run); err != nil {
			t.Fatalf("Insert %s failed: %v", run.RunID, err)
		}
	}

	n, err := store.DeleteByInstrument(ctx, 1)
	if err != nil {
		t.Fatalf("DeleteByInstrument failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 runs removed, got %d", n)
	}

	if _, err := store.GetByID(ctx, "run-a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected run-a removed, got %v", err)
	}
	if _, err := store.GetByID(ctx, "run-c"); err != nil {
		t.Errorf("Expected run-c kept, got %v", err)
	}
}
