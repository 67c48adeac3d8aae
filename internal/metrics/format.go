package metrics

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = money.USD

// FormatMoney renders amount in currency, e.g. "$1,234.56".
// Unknown currency codes fall back to a plain two-digit amount followed by the code.
func FormatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// FormatPct renders a percentage with two decimals and an explicit sign.
func FormatPct(pct float64) string {
	return fmt.Sprintf("%+.2f%%", pct)
}

// FormattedSummary is a Summary with money rendered in a currency.
type FormattedSummary struct {
	InitialValue     string `json:"initial_value"`
	FinalValue       string `json:"final_value"`
	NetChange        string `json:"net_change"`
	ReturnPct        string `json:"return_pct"`
	FinalCash        string `json:"final_cash"`
	FinalAssetValue  string `json:"final_asset_value"`
	TotalDeposited   string `json:"total_deposited"`
	TotalInvested    string `json:"total_invested"`
	GainOverInvested string `json:"gain_over_invested"`
	GainPct          string `json:"gain_pct"`
	MaxDrawdownPct   string `json:"max_drawdown_pct"`
	LedgerEntries    int    `json:"ledger_entries"`
	Buys             int    `json:"buys"`
	Sells            int    `json:"sells"`
	Deposits         int    `json:"deposits"`
}

// Format renders s in currency. An empty currency uses DefaultCurrency.
func (s Summary) Format(currency string) FormattedSummary {
	if currency == "" {
		currency = DefaultCurrency
	}
	m := func(d decimal.Decimal) string { return FormatMoney(d, currency) }

	return FormattedSummary{
		InitialValue:     m(s.InitialValue),
		FinalValue:       m(s.FinalValue),
		NetChange:        m(s.NetChange),
		ReturnPct:        FormatPct(s.ReturnPct),
		FinalCash:        m(s.FinalCash),
		FinalAssetValue:  m(s.FinalAssetValue),
		TotalDeposited:   m(s.TotalDeposited),
		TotalInvested:    m(s.TotalInvested),
		GainOverInvested: m(s.GainOverInvested),
		GainPct:          FormatPct(s.GainPct),
		MaxDrawdownPct:   fmt.Sprintf("%.2f%%", s.MaxDrawdownPct),
		LedgerEntries:    s.LedgerEntries,
		Buys:             s.Buys,
		Sells:            s.Sells,
		Deposits:         s.Deposits,
	}
}
