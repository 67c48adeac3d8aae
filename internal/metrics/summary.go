// Package metrics derives presentation-side aggregates from a simulation result.
package metrics

import (
	"github.com/shopspring/decimal"

	"portfolio-sim/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Summary aggregates one run for display. Money amounts are decimals summed exactly
// from the engine's float ledger; ratios are float64 percentages.
type Summary struct {
	InitialValue    decimal.Decimal `json:"initial_value"` // initial cash
	FinalValue      decimal.Decimal `json:"final_value"`   // final cash + shares at last close
	NetChange       decimal.Decimal `json:"net_change"`    // final value - initial value
	ReturnPct       float64         `json:"return_pct"`    // 0 when initial value is 0
	FinalCash       decimal.Decimal `json:"final_cash"`
	FinalAssetValue decimal.Decimal `json:"final_asset_value"` // final value - final cash

	LedgerEntries int `json:"ledger_entries"`
	Buys          int `json:"buys"`
	Sells         int `json:"sells"`
	Deposits      int `json:"deposits"`

	TotalDeposited   decimal.Decimal `json:"total_deposited"`    // sum of DEPOSIT cash changes
	TotalInvested    decimal.Decimal `json:"total_invested"`     // initial cash + deposits
	GainOverInvested decimal.Decimal `json:"gain_over_invested"` // final value - total invested
	GainPct          float64         `json:"gain_pct"`           // 0 when nothing was invested

	MaxDrawdownPct float64 `json:"max_drawdown_pct"` // worst peak-to-trough of the portfolio value, in percent
}

// Summarize computes the summary of result for a run started with cfg.
func Summarize(result *domain.SimulationResult, cfg domain.SimulationConfig) Summary {
	s := Summary{
		InitialValue: decimal.NewFromFloat(cfg.InitialCash),
		FinalCash:    decimal.NewFromFloat(result.FinalCash),
		FinalValue:   decimal.NewFromFloat(result.FinalPortfolioValue()),
	}

	s.NetChange = s.FinalValue.Sub(s.InitialValue)
	s.FinalAssetValue = s.FinalValue.Sub(s.FinalCash)
	s.ReturnPct = percentOf(s.NetChange, s.InitialValue)

	s.LedgerEntries = len(result.Trades)
	s.TotalDeposited = decimal.Zero
	for _, t := range result.Trades {
		switch t.Action {
		case domain.ActionBuy:
			s.Buys++
		case domain.ActionSell:
			s.Sells++
		case domain.ActionDeposit:
			s.Deposits++
			s.TotalDeposited = s.TotalDeposited.Add(decimal.NewFromFloat(t.CashChange))
		}
	}

	s.TotalInvested = s.InitialValue.Add(s.TotalDeposited)
	s.GainOverInvested = s.FinalValue.Sub(s.TotalInvested)
	s.GainPct = percentOf(s.GainOverInvested, s.TotalInvested)

	values := make([]float64, len(result.History))
	for i, h := range result.History {
		values[i] = h.PortfolioValue
	}
	s.MaxDrawdownPct = computeMaxDrawdown(values)

	return s
}

// percentOf returns part / whole * 100, or 0 when whole is zero.
func percentOf(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).InexactFloat64()
}

// computeMaxDrawdown calculates the worst peak-to-trough decline of values in percent.
// max_drawdown = MAX((peak - value) / peak) * 100
// Values must be in chronological order. Deposits raise the value like gains do.
func computeMaxDrawdown(values []float64) float64 {
	peak := 0.0
	maxDrawdown := 0.0

	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		drawdown := (peak - v) / peak * 100
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}
