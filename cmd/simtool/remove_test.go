package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/ingestion"
	"portfolio-sim/internal/observability"
	"portfolio-sim/internal/storage"
	"portfolio-sim/internal/storage/memory"
)

func TestRemoveSymbols(t *testing.T) {
	ctx := context.Background()
	instruments := memory.NewInstrumentStore()
	bars := memory.NewPriceBarStore()

	for _, symbol := range []string{"SPY", "QQQ"} {
		inst := &domain.Instrument{Symbol: symbol}
		if err := instruments.Insert(ctx, inst); err != nil {
			t.Fatalf("insert %s: %v", symbol, err)
		}
		err := bars.Upsert(ctx, []*domain.PriceBar{
			{InstrumentID: inst.ID, Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 100},
		})
		if err != nil {
			t.Fatalf("upsert %s: %v", symbol, err)
		}
	}

	rm := ingestion.NewRemover(ingestion.RemoverOptions{
		Instruments: instruments,
		Bars:        bars,
		Runs:        memory.NewRunStore(),
		Metrics:     observability.NewMetricsWith(prometheus.NewRegistry(), "test"),
	})

	var out bytes.Buffer
	if err := removeSymbols(ctx, rm, &out, []string{"spy", "qqq"}); err != nil {
		t.Fatalf("removeSymbols failed: %v", err)
	}

	want := "SPY: removed with 1 bars and 0 runs\nQQQ: removed with 1 bars and 0 runs\n"
	if out.String() != want {
		t.Errorf("unexpected output:\n%s", out.String())
	}

	list, _ := instruments.List(ctx)
	if len(list) != 0 {
		t.Errorf("expected no instruments left, got %d", len(list))
	}

	err := removeSymbols(ctx, rm, &out, []string{"SPY"})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a removed symbol, got %v", err)
	}
}
