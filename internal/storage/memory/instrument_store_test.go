package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/storage"
)

func TestInstrumentStore_InsertAndGet(t *testing.T) {
	store := NewInstrumentStore()
	ctx := context.Background()

	inst := &domain.Instrument{Symbol: "AAPL"}

	// Insert
	if err := store.Insert(ctx, inst); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if inst.ID == 0 {
		t.Fatal("Insert did not assign an ID")
	}

	// Get by ID
	got, err := store.GetByID(ctx, inst.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Symbol != "AAPL" {
		t.Errorf("Symbol mismatch: got %s, want AAPL", got.Symbol)
	}

	// Get by symbol
	got, err = store.GetBySymbol(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetBySymbol failed: %v", err)
	}
	if got.ID != inst.ID {
		t.Errorf("ID mismatch: got %d, want %d", got.ID, inst.ID)
	}
}

func TestInstrumentStore_DuplicateKey(t *testing.T) {
	store := NewInstrumentStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.Instrument{Symbol: "SPY"}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, &domain.Instrument{Symbol: "SPY"})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestInstrumentStore_NotFound(t *testing.T) {
	store := NewInstrumentStore()
	ctx := context.Background()

	if _, err := store.GetByID(ctx, 42); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetBySymbol(ctx, "NOPE"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestInstrumentStore_InvalidInput(t *testing.T) {
	store := NewInstrumentStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.Instrument{Symbol: "  "}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for blank symbol, got %v", err)
	}
}

func TestInstrumentStore_ListOrdering(t *testing.T) {
	store := NewInstrumentStore()
	ctx := context.Background()

	for _, sym := range []string{"QQQ", "AAPL", "SPY"} {
		if err := store.Insert(ctx, &domain.Instrument{Symbol: sym}); err != nil {
			t.Fatalf("Insert %s failed: %v", sym, err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	want := []string{"AAPL", "QQQ", "SPY"}
	if len(list) != len(want) {
		t.Fatalf("Expected %d instruments, got %d", len(want), len(list))
	}
	for i, sym := range want {
		if list[i].Symbol != sym {
			t.Errorf("list[%d] = %s, want %s", i, list[i].Symbol, sym)
		}
	}
}

func TestInstrumentStore_ConcurrentInsert(t *testing.T) {
	store := NewInstrumentStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Insert(ctx, &domain.Instrument{Symbol: "BTC"})
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, storage.ErrDuplicateKey):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if ok != 1 || dup != 9 {
		t.Errorf("Expected 1 success and 9 duplicates, got %d and %d", ok, dup)
	}
}

func TestInstrumentStore_Delete(t *testing.T) {
	store := NewInstrumentStore()
	ctx := context.Background()

	inst := &domain.Instrument{Symbol: "AAPL"}
	if err := store.Insert(ctx, inst); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := store.Delete(ctx, inst.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(ctx, inst.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound by ID after delete, got %v", err)
	}
	if _, err := store.GetBySymbol(ctx, "AAPL"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound by symbol after delete, got %v", err)
	}

	if err := store.Delete(ctx, inst.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}

	// The symbol can be added again and gets a new ID.
	again := &domain.Instrument{Symbol: "AAPL"}
	if err := store.Insert(ctx, again); err != nil {
		t.Fatalf("re-Insert failed: %v", err)
	}
	if again.ID == inst.ID {
		t.Errorf("Expected a new ID, got %d again", again.ID)
	}
}
