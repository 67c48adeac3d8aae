package ingestion

import (
	"errors"
	"sort"

	"portfolio-sim/internal/domain"
)

// ErrInvalidOrdering is returned when bars are not strictly ascending by date.
var ErrInvalidOrdering = errors.New("bars are not in ascending date order")

// DedupeBars orders bars by date ASC and keeps one bar per date.
// For repeated dates the bar appearing last in the input wins.
func DedupeBars(bars []*domain.PriceBar) []*domain.PriceBar {
	latest := make(map[int64]int, len(bars))
	for i, b := range bars {
		latest[b.Date.Unix()] = i
	}

	result := make([]*domain.PriceBar, 0, len(latest))
	for i, b := range bars {
		if latest[b.Date.Unix()] == i {
			result = append(result, b)
		}
	}
	SortBars(result)
	return result
}

// SortBars orders bars by date ASC.
func SortBars(bars []*domain.PriceBar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
}

// ValidateBarOrdering checks that dates are strictly increasing.
// Returns ErrInvalidOrdering if not.
func ValidateBarOrdering(bars []*domain.PriceBar) error {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			return ErrInvalidOrdering
		}
	}
	return nil
}
