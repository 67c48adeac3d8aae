package simulation

import (
	"errors"
	"fmt"
)

// Simulation errors
var (
	// ErrNoData is returned when no price bars fall inside the configured date range.
	ErrNoData = errors.New("no price data available for the selected instrument and date range")

	// ErrInvalidConfig is wrapped by every ConfigError.
	ErrInvalidConfig = errors.New("invalid simulation config")

	// ErrInvalidSeries is returned when the input violates the series precondition:
	// strictly increasing dates and positive closes.
	ErrInvalidSeries = errors.New("invalid price series")
)

// ConfigError describes a rejected simulation parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfig, e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}
