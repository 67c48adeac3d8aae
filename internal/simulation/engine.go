package simulation

import (
	"fmt"
	"math"
	"time"

	"portfolio-sim/internal/domain"
)

// portfolioState is the mutable cash and share position of a single run.
type portfolioState struct {
	cash   float64
	shares float64
}

// Run replays the threshold strategy over bars and returns the value history and ledger.
//
// Bars must be sorted ascending by date with one bar per day. Bars outside
// [cfg.StartDate, cfg.EndDate] are ignored; a zero bound is open.
// Steps per bar:
//  1. Deposit MonthlyInvestment on the first bar of each calendar month
//  2. Append a history snapshot
//  3. Skip trading on the first bar (no previous close)
//  4. BUY when the daily change exceeds BuyThresholdPct, else SELL when it is
//     below SellThresholdPct
//
// Returns a *ConfigError before touching the series, ErrNoData when no bar is in range.
func Run(bars []*domain.PriceBar, cfg domain.SimulationConfig) (*domain.SimulationResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	series := filterRange(bars, cfg.StartDate, cfg.EndDate)
	if len(series) == 0 {
		return nil, ErrNoData
	}
	if err := checkSeries(series); err != nil {
		return nil, err
	}

	state := portfolioState{cash: cfg.InitialCash}
	result := &domain.SimulationResult{
		History: make([]domain.HistoryRecord, 0, len(series)),
	}

	var lastDeposit *domain.MonthKey
	var prevClose *float64

	for _, bar := range series {
		price := bar.Close

		if cfg.MonthlyInvestment > 0 {
			month := domain.MonthOf(bar.Date)
			if lastDeposit == nil || *lastDeposit != month {
				state.cash += cfg.MonthlyInvestment
				lastDeposit = &month
				result.Trades = append(result.Trades, domain.Trade{
					Date:       bar.Date,
					Action:     domain.ActionDeposit,
					Shares:     0,
					Price:      price,
					CashChange: cfg.MonthlyInvestment,
				})
			}
		}

		assetValue := state.shares * price
		result.History = append(result.History, domain.HistoryRecord{
			Date:           bar.Date,
			Cash:           state.cash,
			Shares:         state.shares,
			AssetValue:     assetValue,
			PortfolioValue: state.cash + assetValue,
			Price:          price,
		})

		if prevClose == nil {
			p := price
			prevClose = &p
			continue
		}
		pctChange := (price/(*prevClose) - 1) * 100
		*prevClose = price

		if pctChange > cfg.BuyThresholdPct {
			if trade, ok := state.buy(bar.Date, price, cfg); ok {
				result.Trades = append(result.Trades, trade)
			}
		} else if pctChange < cfg.SellThresholdPct {
			if trade, ok := state.sell(bar.Date, price, cfg); ok {
				result.Trades = append(result.Trades, trade)
			}
		}
	}

	result.FinalCash = state.cash
	result.FinalShares = state.shares
	result.FinalAssetValue = series[len(series)-1].Close * state.shares

	return result, nil
}

// buy spends TradePercent of cash at close plus slippage.
// Skipped when rounding would make the cost exceed available cash.
func (s *portfolioState) buy(date time.Time, price float64, cfg domain.SimulationConfig) (domain.Trade, bool) {
	buyPrice := price * (1 + cfg.BuySlippagePct/100)
	spend := s.cash * cfg.TradePercent
	sharesToBuy := spend / buyPrice
	cost := sharesToBuy * buyPrice

	if cost > s.cash {
		return domain.Trade{}, false
	}

	s.cash -= cost
	s.shares += sharesToBuy
	return domain.Trade{
		Date:       date,
		Action:     domain.ActionBuy,
		Shares:     sharesToBuy,
		Price:      buyPrice,
		CashChange: -cost,
	}, true
}

// sell liquidates TradePercent of held shares at close minus slippage.
// With TradePercent <= 1 it cannot oversell, so only an empty position is guarded.
func (s *portfolioState) sell(date time.Time, price float64, cfg domain.SimulationConfig) (domain.Trade, bool) {
	sellPrice := price * (1 - cfg.SellSlippagePct/100)
	sharesToSell := s.shares * cfg.TradePercent

	if sharesToSell <= 0 {
		return domain.Trade{}, false
	}

	proceeds := sharesToSell * sellPrice
	s.cash += proceeds
	s.shares -= sharesToSell
	return domain.Trade{
		Date:       date,
		Action:     domain.ActionSell,
		Shares:     sharesToSell,
		Price:      sellPrice,
		CashChange: proceeds,
	}, true
}

// filterRange returns the bars within [start, end]. Zero bounds are open.
func filterRange(bars []*domain.PriceBar, start, end time.Time) []*domain.PriceBar {
	result := make([]*domain.PriceBar, 0, len(bars))
	for _, b := range bars {
		if b == nil {
			continue
		}
		if !start.IsZero() && b.Date.Before(start) {
			continue
		}
		if !end.IsZero() && b.Date.After(end) {
			continue
		}
		result = append(result, b)
	}
	return result
}

// checkSeries verifies strictly increasing dates and positive finite closes.
func checkSeries(series []*domain.PriceBar) error {
	for i, b := range series {
		if math.IsInf(b.Close, 1) {
			return fmt.Errorf("%w: infinite close on %s", ErrInvalidSeries, b.Date.Format(domain.DateFormat))
		}
		if !(b.Close > 0) {
			return fmt.Errorf("%w: non-positive close %v on %s", ErrInvalidSeries, b.Close, b.Date.Format(domain.DateFormat))
		}
		if i > 0 && !b.Date.After(series[i-1].Date) {
			return fmt.Errorf("%w: date %s does not follow %s", ErrInvalidSeries,
				b.Date.Format(domain.DateFormat), series[i-1].Date.Format(domain.DateFormat))
		}
	}
	return nil
}
