// Package ingestion loads daily price bars from CSV exports into the price store
// and removes instruments with everything stored for them.
package ingestion

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"portfolio-sim/internal/domain"
)

// ErrInvalidCSV is returned when a CSV row cannot be converted into a price bar.
var ErrInvalidCSV = errors.New("invalid price csv")

// barRow is one CSV line of a daily price export.
// Columns not listed here (e.g. "Adj Close") are ignored.
type barRow struct {
	Date   string `csv:"Date"`
	Open   string `csv:"Open"`
	High   string `csv:"High"`
	Low    string `csv:"Low"`
	Close  string `csv:"Close"`
	Volume string `csv:"Volume"`
}

// ParseBarsCSV reads a daily price CSV with a Date,Open,High,Low,Close,Volume header.
// Date and Close are required; blank Open, High, Low and Volume become nil.
// NaN and infinite values are rejected in every column.
// InstrumentID is left zero for the caller to fill. Rows keep their file order.
func ParseBarsCSV(r io.Reader) ([]*domain.PriceBar, error) {
	var rows []*barRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	bars := make([]*domain.PriceBar, 0, len(rows))
	for i, row := range rows {
		bar, err := row.toBar()
		if err != nil {
			// +2: header line and 1-based numbering
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidCSV, i+2, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func (r *barRow) toBar() (*domain.PriceBar, error) {
	date, err := domain.ParseDate(strings.TrimSpace(r.Date))
	if err != nil {
		return nil, err
	}

	closeVal, err := parseOptionalFloat("Close", r.Close)
	if err != nil {
		return nil, err
	}
	if closeVal == nil {
		return nil, errors.New("missing Close")
	}
	if !(*closeVal > 0) {
		return nil, fmt.Errorf("non-positive Close %v", *closeVal)
	}

	bar := &domain.PriceBar{Date: date, Close: *closeVal}
	if bar.Open, err = parseOptionalFloat("Open", r.Open); err != nil {
		return nil, err
	}
	if bar.High, err = parseOptionalFloat("High", r.High); err != nil {
		return nil, err
	}
	if bar.Low, err = parseOptionalFloat("Low", r.Low); err != nil {
		return nil, err
	}
	if bar.Volume, err = parseOptionalInt("Volume", r.Volume); err != nil {
		return nil, err
	}
	return bar, nil
}

func parseOptionalFloat(field, s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(v) {
		return nil, fmt.Errorf("invalid %s %q", field, s)
	}
	return &v, nil
}

// parseOptionalInt also accepts float notation ("1.5e6"), which some exports use for volume.
func parseOptionalInt(field, s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v < 0 {
			return nil, fmt.Errorf("invalid %s %q", field, s)
		}
		return &v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f >= math.MaxInt64 || !isFinite(f) {
		return nil, fmt.Errorf("invalid %s %q", field, s)
	}
	v := int64(f)
	return &v, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
