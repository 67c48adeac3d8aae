package domain

import "strings"

// Preset names for built-in strategy parameter sets.
const (
	PresetDefault    = "default"
	PresetMomentum   = "momentum"
	PresetCautious   = "cautious"
	PresetAccumulate = "accumulate"
)

// Built-in presets. Dates are left zero; callers set the simulated range.
var (
	// PresetConfigDefault mirrors the dashboard defaults.
	PresetConfigDefault = SimulationConfig{
		InitialCash:       10000,
		BuyThresholdPct:   5.0,
		SellThresholdPct:  -10.0,
		BuySlippagePct:    1.0,
		SellSlippagePct:   1.0,
		TradePercent:      0.5,
		MonthlyInvestment: 0,
	}

	PresetConfigMomentum = SimulationConfig{
		InitialCash:       10000,
		BuyThresholdPct:   2.0,
		SellThresholdPct:  -3.0,
		BuySlippagePct:    0.5,
		SellSlippagePct:   0.5,
		TradePercent:      0.25,
		MonthlyInvestment: 0,
	}

	PresetConfigCautious = SimulationConfig{
		InitialCash:       10000,
		BuyThresholdPct:   8.0,
		SellThresholdPct:  -4.0,
		BuySlippagePct:    1.0,
		SellSlippagePct:   1.0,
		TradePercent:      0.1,
		MonthlyInvestment: 0,
	}

	// PresetConfigAccumulate deposits monthly and buys on moderate up days.
	PresetConfigAccumulate = SimulationConfig{
		InitialCash:       1000,
		BuyThresholdPct:   1.0,
		SellThresholdPct:  -15.0,
		BuySlippagePct:    1.0,
		SellSlippagePct:   1.0,
		TradePercent:      0.5,
		MonthlyInvestment: 500,
	}
)

// PresetByName returns a copy of the built-in preset with the given name.
func PresetByName(name string) (SimulationConfig, bool) {
	switch strings.ToLower(name) {
	case PresetDefault, "":
		return PresetConfigDefault, true
	case PresetMomentum:
		return PresetConfigMomentum, true
	case PresetCautious:
		return PresetConfigCautious, true
	case PresetAccumulate:
		return PresetConfigAccumulate, true
	default:
		return SimulationConfig{}, false
	}
}

// PresetNames lists the built-in preset names.
func PresetNames() []string {
	return []string{PresetAccumulate, PresetCautious, PresetDefault, PresetMomentum}
}
