package bootstrap

import (
	"context"
	"testing"

	"portfolio-sim/internal/config"
	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/events"
)

func TestOpenStores_Memory(t *testing.T) {
	ctx := context.Background()

	stores, cleanup, err := OpenStores(ctx, config.StorageConfig{}, nil)
	if err != nil {
		t.Fatalf("OpenStores failed: %v", err)
	}
	defer cleanup()

	if stores.Backend != BackendMemory {
		t.Errorf("expected %s backend, got %s", BackendMemory, stores.Backend)
	}
	if err := stores.Instruments.Insert(ctx, &domain.Instrument{Symbol: "SPY"}); err != nil {
		t.Errorf("Insert failed: %v", err)
	}
	if stores.Bars == nil || stores.Runs == nil {
		t.Error("expected all stores to be set")
	}
}

func TestNewPublisher_Disabled(t *testing.T) {
	pub, err := NewPublisher(config.NATSConfig{}, nil)
	if err != nil {
		t.Fatalf("NewPublisher failed: %v", err)
	}
	if _, ok := pub.(events.NopPublisher); !ok {
		t.Errorf("expected NopPublisher, got %T", pub)
	}
}
