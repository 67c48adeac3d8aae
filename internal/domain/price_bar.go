package domain

import (
	"fmt"
	"time"
)

// DateFormat is the ISO-8601 calendar date layout used for bars, configs and exports.
const DateFormat = "2006-01-02"

// Instrument is a tradable asset tracked by the data layer.
// Corresponds to the instruments table.
type Instrument struct {
	ID     int64  `json:"id"`     // surrogate key assigned by the store
	Symbol string `json:"symbol"` // unique ticker symbol, upper case
}

// PriceBar is one trading day of data for a single instrument.
// Corresponds to the price_bars table (one row per instrument and date).
// Only Close drives simulation decisions; the optional fields are carried for display.
type PriceBar struct {
	InstrumentID int64     `json:"instrument_id"`
	Date         time.Time `json:"date"`             // calendar day, UTC midnight
	Close        float64   `json:"close"`            // required, positive
	Open         *float64  `json:"open,omitempty"`   // nullable
	High         *float64  `json:"high,omitempty"`   // nullable
	Low          *float64  `json:"low,omitempty"`    // nullable
	Volume       *int64    `json:"volume,omitempty"` // nullable
}

// NormalizeDate truncates t to its calendar day at UTC midnight.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want %s: %w", s, DateFormat, err)
	}
	return t, nil
}

// MonthKey identifies a calendar month.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}
