package reporting

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/metrics"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func testRun() *domain.SimulationRun {
	return &domain.SimulationRun{
		RunID:  "3yQ",
		Symbol: "SPY",
		Config: domain.SimulationConfig{
			InitialCash:      1000,
			BuyThresholdPct:  1,
			SellThresholdPct: -1,
			TradePercent:     0.5,
		},
		Result: domain.SimulationResult{
			History: []domain.HistoryRecord{
				{Date: day(2), Cash: 1000, Price: 100, PortfolioValue: 1000},
				{Date: day(3), Cash: 500, Shares: 5, AssetValue: 550, PortfolioValue: 1050, Price: 110},
			},
			Trades: []domain.Trade{
				{Date: day(3), Action: domain.ActionBuy, Shares: 5, Price: 100, CashChange: -500},
			},
			FinalCash:       500,
			FinalShares:     5,
			FinalAssetValue: 550,
		},
		CreatedAt: time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRenderMarkdown(t *testing.T) {
	run := testRun()
	md := RenderMarkdown(run, metrics.Summarize(&run.Result, run.Config), "")

	for _, want := range []string{
		"# Simulation Report: SPY",
		"Run: `3yQ`",
		"Range: 2024-01-02 to 2024-01-03 | Days: 2",
		"| Initial Value | $1,000.00 |",
		"| Final Portfolio Value | $1,050.00 |",
		"| Final Stock Value | $550.00 |",
		"| Total Trades | 1 |",
		"| Buys / Sells / Deposits | 1 / 0 / 0 |",
		"| 2024-01-03 | BUY | 5.0000 | 100.00 | -500.00 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestRenderMarkdown_EmptyLedger(t *testing.T) {
	run := testRun()
	run.Result.Trades = nil
	run.Result.History = nil

	md := RenderMarkdown(run, metrics.Summarize(&run.Result, run.Config), "EUR")

	if !strings.Contains(md, "No ledger events.") {
		t.Errorf("expected empty ledger note\n%s", md)
	}
	if !strings.Contains(md, "Range: open to open | Days: 0") {
		t.Errorf("expected open range\n%s", md)
	}
}

func TestHistoryCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := HistoryCSV(&buf, testRun().Result.History); err != nil {
		t.Fatalf("HistoryCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "date,price,cash,shares,asset_value,portfolio_value" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[2] != "2024-01-03,110.000000,500.000000,5.000000,550.000000,1050.000000" {
		t.Errorf("unexpected row %q", lines[2])
	}
}

func TestTradesCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := TradesCSV(&buf, testRun().Result.Trades); err != nil {
		t.Fatalf("TradesCSV failed: %v", err)
	}

	want := "date,action,shares,price,cash_change\n2024-01-03,BUY,5.000000,100.000000,-500.000000\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}
