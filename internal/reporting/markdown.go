// Package reporting renders simulation runs for people and spreadsheets.
package reporting

import (
	"fmt"
	"strings"
	"time"

	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/metrics"
)

// RenderMarkdown renders a run and its summary as a Markdown document:
// header, summary table, configuration table and the full ledger.
// Money is rendered in currency; an empty currency uses metrics.DefaultCurrency.
func RenderMarkdown(run *domain.SimulationRun, summary metrics.Summary, currency string) string {
	var sb strings.Builder
	f := summary.Format(currency)
	cfg := run.Config

	// Header
	sb.WriteString(fmt.Sprintf("# Simulation Report: %s\n\n", run.Symbol))
	sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", run.RunID))
	if !run.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Generated: %s\n\n", run.CreatedAt.UTC().Format(time.RFC3339)))
	}
	sb.WriteString(fmt.Sprintf("Range: %s to %s | Days: %d\n\n",
		formatBound(firstDate(run.Result, cfg.StartDate)),
		formatBound(lastDate(run.Result, cfg.EndDate)),
		len(run.Result.History)))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Initial Value | %s |\n", f.InitialValue))
	sb.WriteString(fmt.Sprintf("| Final Portfolio Value | %s |\n", f.FinalValue))
	sb.WriteString(fmt.Sprintf("| Net Change | %s (%s) |\n", f.NetChange, f.ReturnPct))
	sb.WriteString(fmt.Sprintf("| Final Cash | %s |\n", f.FinalCash))
	sb.WriteString(fmt.Sprintf("| Final Stock Value | %s |\n", f.FinalAssetValue))
	sb.WriteString(fmt.Sprintf("| Final Shares | %.4f |\n", run.Result.FinalShares))
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", f.LedgerEntries))
	sb.WriteString(fmt.Sprintf("| Buys / Sells / Deposits | %d / %d / %d |\n", f.Buys, f.Sells, f.Deposits))
	sb.WriteString(fmt.Sprintf("| Total Deposited | %s |\n", f.TotalDeposited))
	sb.WriteString(fmt.Sprintf("| Total Invested | %s |\n", f.TotalInvested))
	sb.WriteString(fmt.Sprintf("| Gain Over Invested | %s (%s) |\n", f.GainOverInvested, f.GainPct))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %s |\n", f.MaxDrawdownPct))
	sb.WriteString("\n")

	// Configuration
	sb.WriteString("## Configuration\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Initial Cash | %.2f |\n", cfg.InitialCash))
	sb.WriteString(fmt.Sprintf("| Buy Threshold | %.2f%% |\n", cfg.BuyThresholdPct))
	sb.WriteString(fmt.Sprintf("| Sell Threshold | %.2f%% |\n", cfg.SellThresholdPct))
	sb.WriteString(fmt.Sprintf("| Buy Slippage | %.2f%% |\n", cfg.BuySlippagePct))
	sb.WriteString(fmt.Sprintf("| Sell Slippage | %.2f%% |\n", cfg.SellSlippagePct))
	sb.WriteString(fmt.Sprintf("| Trade Percent | %.2f |\n", cfg.TradePercent))
	sb.WriteString(fmt.Sprintf("| Monthly Investment | %.2f |\n", cfg.MonthlyInvestment))
	sb.WriteString("\n")

	// Ledger
	sb.WriteString("## Ledger\n\n")
	if len(run.Result.Trades) > 0 {
		sb.WriteString("| Date | Action | Shares | Price | Cash Change |\n")
		sb.WriteString("|------|--------|--------|-------|-------------|\n")
		for _, t := range run.Result.Trades {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.4f | %.2f | %+.2f |\n",
				t.Date.Format(domain.DateFormat), t.Action, t.Shares, t.Price, t.CashChange))
		}
	} else {
		sb.WriteString("No ledger events.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func firstDate(r domain.SimulationResult, fallback time.Time) time.Time {
	if len(r.History) > 0 {
		return r.History[0].Date
	}
	return fallback
}

func lastDate(r domain.SimulationResult, fallback time.Time) time.Time {
	if len(r.History) > 0 {
		return r.History[len(r.History)-1].Date
	}
	return fallback
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "open"
	}
	return t.Format(domain.DateFormat)
}
