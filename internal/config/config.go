// Package config loads service and CLI settings from YAML, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"portfolio-sim/internal/domain"
	"portfolio-sim/internal/logging"
	"portfolio-sim/internal/tracing"
)

// Config is the full application configuration.
type Config struct {
	Storage StorageConfig  `yaml:"storage"`
	HTTP    HTTPConfig     `yaml:"http"`
	NATS    NATSConfig     `yaml:"nats"`
	Log     logging.Config `yaml:"log"`
	Tracing tracing.Config `yaml:"tracing"`
	Workers int            `yaml:"workers"`

	// Currency is the ISO 4217 code used to render money in reports.
	Currency string `yaml:"currency"`

	// Strategies are named simulation presets. Entries override the built-in
	// presets of the same name; missing fields fall back to the default preset.
	Strategies map[string]StrategyConfig `yaml:"strategies"`
}

// StorageConfig selects the storage backends. An empty PostgresDSN means in-memory
// stores; ClickhouseDSN, when set, moves price bars to ClickHouse.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	Migrate       bool   `yaml:"migrate"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// NATSConfig configures run-completed event publishing. Empty URL disables it.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// StrategyConfig is a preset as written in YAML, or a set of overrides in an API request. Nil fields inherit from the default preset.
type StrategyConfig struct {
	InitialCash       *float64 `json:"initial_cash,omitempty" yaml:"initial_cash"`
	BuyThresholdPct   *float64 `json:"buy_threshold_pct,omitempty" yaml:"buy_threshold_pct"`
	SellThresholdPct  *float64 `json:"sell_threshold_pct,omitempty" yaml:"sell_threshold_pct"`
	BuySlippagePct    *float64 `json:"buy_slippage_pct,omitempty" yaml:"buy_slippage_pct"`
	SellSlippagePct   *float64 `json:"sell_slippage_pct,omitempty" yaml:"sell_slippage_pct"`
	TradePercent      *float64 `json:"trade_percent,omitempty" yaml:"trade_percent"`
	MonthlyInvestment *float64 `json:"monthly_investment,omitempty" yaml:"monthly_investment"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		HTTP:     HTTPConfig{Addr: ":8080"},
		Log:      logging.Config{Level: "info", Format: "json"},
		Tracing:  tracing.Config{ServiceName: "portfolio-sim"},
		Workers:  4,
		Currency: "USD",
	}
}

// Load reads path (optional), then .env, then environment overrides, and validates.
// A missing .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("CURRENCY"); v != "" {
		c.Currency = strings.ToUpper(v)
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRACING_ENABLED: %w", err)
		}
		c.Tracing.Enabled = enabled
	}
	return nil
}

// Validate checks the configuration, including every strategy preset.
func (c *Config) Validate() error {
	var errs []error

	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1, got %d", c.Workers))
	}
	if c.Storage.ClickhouseDSN != "" && !strings.HasPrefix(c.Storage.ClickhouseDSN, "clickhouse://") {
		errs = append(errs, errors.New("storage.clickhouse_dsn must start with clickhouse://"))
	}
	if c.Storage.ClickhouseDSN != "" && c.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.clickhouse_dsn requires storage.postgres_dsn"))
	}

	for _, name := range c.strategyNames() {
		sc := c.Strategies[name]
		if v := sc.TradePercent; v != nil && (*v <= 0 || *v > 1) {
			errs = append(errs, fmt.Errorf("strategies.%s.trade_percent must be in (0, 1], got %g", name, *v))
		}
		if v := sc.InitialCash; v != nil && *v < 0 {
			errs = append(errs, fmt.Errorf("strategies.%s.initial_cash must be >= 0, got %g", name, *v))
		}
		if v := sc.MonthlyInvestment; v != nil && *v < 0 {
			errs = append(errs, fmt.Errorf("strategies.%s.monthly_investment must be >= 0, got %g", name, *v))
		}
	}

	return errors.Join(errs...)
}

// Strategy resolves a preset by name: configured strategies first, then built-in presets.
// An empty name resolves to the default preset.
func (c *Config) Strategy(name string) (domain.SimulationConfig, bool) {
	if sc, ok := c.Strategies[name]; ok {
		return sc.Apply(domain.PresetConfigDefault), true
	}
	return domain.PresetByName(name)
}

// StrategyNames lists configured and built-in preset names, sorted.
func (c *Config) StrategyNames() []string {
	seen := map[string]struct{}{}
	for _, n := range domain.PresetNames() {
		seen[n] = struct{}{}
	}
	for n := range c.Strategies {
		seen[n] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (c *Config) strategyNames() []string {
	names := make([]string, 0, len(c.Strategies))
	for n := range c.Strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Apply overrides base with the non-nil fields of s.
func (s StrategyConfig) Apply(base domain.SimulationConfig) domain.SimulationConfig {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&base.InitialCash, s.InitialCash)
	set(&base.BuyThresholdPct, s.BuyThresholdPct)
	set(&base.SellThresholdPct, s.SellThresholdPct)
	set(&base.BuySlippagePct, s.BuySlippagePct)
	set(&base.SellSlippagePct, s.SellSlippagePct)
	set(&base.TradePercent, s.TradePercent)
	set(&base.MonthlyInvestment, s.MonthlyInvestment)
	return base
}
