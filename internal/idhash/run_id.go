package idhash

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strconv"

	"github.com/mr-tron/base58"

	"portfolio-sim/internal/domain"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(symbol|start|end|initial_cash|buy|sell|buy_slip|sell_slip|trade_pct|monthly
// followed by "|date:close" for every simulated bar in order)
// Floats are rendered with strconv 'g' formatting and full precision.
// Bars outside the configured range and nil bars are not hashed, so the ID
// changes exactly when the series the engine sees changes.
// Returns the base58-encoded hash (Bitcoin alphabet, 43-44 characters).
func ComputeRunID(symbol string, cfg domain.SimulationConfig, bars []*domain.PriceBar) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%s|%s|%s|%s",
		symbol,
		formatDate(cfg.StartDate.IsZero(), cfg.StartDate.Format(domain.DateFormat)),
		formatDate(cfg.EndDate.IsZero(), cfg.EndDate.Format(domain.DateFormat)),
		formatFloat(cfg.InitialCash),
		formatFloat(cfg.BuyThresholdPct),
		formatFloat(cfg.SellThresholdPct),
		formatFloat(cfg.BuySlippagePct),
		formatFloat(cfg.SellSlippagePct),
		formatFloat(cfg.TradePercent),
		formatFloat(cfg.MonthlyInvestment),
	)

	for _, b := range bars {
		if b == nil || !inRange(b, cfg) {
			continue
		}
		io.WriteString(h, "|"+b.Date.Format(domain.DateFormat)+":"+formatFloat(b.Close))
	}

	return base58.Encode(h.Sum(nil))
}

func inRange(b *domain.PriceBar, cfg domain.SimulationConfig) bool {
	if !cfg.StartDate.IsZero() && b.Date.Before(cfg.StartDate) {
		return false
	}
	if !cfg.EndDate.IsZero() && b.Date.After(cfg.EndDate) {
		return false
	}
	return true
}

func formatDate(open bool, s string) string {
	if open {
		return "-"
	}
	return s
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
