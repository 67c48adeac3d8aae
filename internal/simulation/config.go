package simulation

import (
	"portfolio-sim/internal/domain"
)

// ValidateConfig checks the parameters the engine itself rejects.
// Only a negative monthly investment is a configuration error at this level;
// everything else is arithmetic the engine can carry out.
func ValidateConfig(cfg domain.SimulationConfig) error {
	if cfg.MonthlyInvestment < 0 {
		return &ConfigError{Field: "monthly_investment", Reason: "must be non-negative"}
	}
	return nil
}

// ValidateBounds checks the caller-facing contract used by the CLI and HTTP API:
// non-negative cash and slippage, trade percent in (0, 1] and an ordered date range.
// It includes ValidateConfig.
func ValidateBounds(cfg domain.SimulationConfig) error {
	if err := ValidateConfig(cfg); err != nil {
		return err
	}
	if cfg.InitialCash < 0 {
		return &ConfigError{Field: "initial_cash", Reason: "must be non-negative"}
	}
	if cfg.BuySlippagePct < 0 {
		return &ConfigError{Field: "buy_slippage_pct", Reason: "must be non-negative"}
	}
	if cfg.SellSlippagePct < 0 {
		return &ConfigError{Field: "sell_slippage_pct", Reason: "must be non-negative"}
	}
	if cfg.TradePercent <= 0 || cfg.TradePercent > 1 {
		return &ConfigError{Field: "trade_percent", Reason: "must be in (0, 1]"}
	}
	if !cfg.StartDate.IsZero() && !cfg.EndDate.IsZero() && cfg.EndDate.Before(cfg.StartDate) {
		return &ConfigError{Field: "end_date", Reason: "must not be before start_date"}
	}
	return nil
}
