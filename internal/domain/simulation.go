package domain

import "time"

// SimulationConfig holds the parameters of one simulation run.
// Percentages are expressed in percent units (5 means 5%), except TradePercent
// which is a fraction in (0, 1] of available cash (BUY) or held shares (SELL).
// StartDate and EndDate bound the simulated range inclusively.
type SimulationConfig struct {
	StartDate         time.Time `json:"start_date" yaml:"-"`
	EndDate           time.Time `json:"end_date" yaml:"-"`
	InitialCash       float64   `json:"initial_cash" yaml:"initial_cash"`
	BuyThresholdPct   float64   `json:"buy_threshold_pct" yaml:"buy_threshold_pct"`
	SellThresholdPct  float64   `json:"sell_threshold_pct" yaml:"sell_threshold_pct"`
	BuySlippagePct    float64   `json:"buy_slippage_pct" yaml:"buy_slippage_pct"`
	SellSlippagePct   float64   `json:"sell_slippage_pct" yaml:"sell_slippage_pct"`
	TradePercent      float64   `json:"trade_percent" yaml:"trade_percent"`
	MonthlyInvestment float64   `json:"monthly_investment" yaml:"monthly_investment"`
}

// Action is the kind of a ledger event.
type Action string

// Ledger actions
const (
	ActionBuy     Action = "BUY"
	ActionSell    Action = "SELL"
	ActionDeposit Action = "DEPOSIT"
)

// Trade is an immutable ledger event emitted by the simulation.
type Trade struct {
	Date       time.Time `json:"date"`
	Action     Action    `json:"action"`
	Shares     float64   `json:"shares"`      // 0 for DEPOSIT
	Price      float64   `json:"price"`       // execution price incl. slippage, close for DEPOSIT
	CashChange float64   `json:"cash_change"` // negative for BUY, positive for SELL and DEPOSIT
}

// HistoryRecord is the portfolio snapshot for one simulated day.
type HistoryRecord struct {
	Date           time.Time `json:"date"`
	Cash           float64   `json:"cash"`
	Shares         float64   `json:"shares"`
	AssetValue     float64   `json:"asset_value"`     // shares * close
	PortfolioValue float64   `json:"portfolio_value"` // cash + asset value
	Price          float64   `json:"price"`           // close of the day
}

// SimulationResult is the output of one engine pass.
type SimulationResult struct {
	History         []HistoryRecord `json:"history"`
	Trades          []Trade         `json:"trades"`
	FinalCash       float64         `json:"final_cash"`
	FinalShares     float64         `json:"final_shares"`
	FinalAssetValue float64         `json:"final_asset_value"` // last close * final shares
}

// LastPrice returns the close of the last simulated day, or 0 for an empty history.
func (r *SimulationResult) LastPrice() float64 {
	if len(r.History) == 0 {
		return 0
	}
	return r.History[len(r.History)-1].Price
}

// FinalPortfolioValue returns final cash plus final shares valued at the last observed close.
func (r *SimulationResult) FinalPortfolioValue() float64 {
	if len(r.History) == 0 {
		return r.FinalCash
	}
	return r.FinalCash + r.FinalShares*r.LastPrice()
}

// SimulationRun is a persisted simulation: its inputs, identity and result.
// Corresponds to the simulation_runs table plus its ledger and history rows.
type SimulationRun struct {
	RunID        string           `json:"run_id"` // deterministic hash of inputs
	InstrumentID int64            `json:"instrument_id"`
	Symbol       string           `json:"symbol"`
	Config       SimulationConfig `json:"config"`
	Result       SimulationResult `json:"result"`
	CreatedAt    time.Time        `json:"created_at"`
}
