package utils

import (
	"fmt"
	"time"
)

// Aggregation windows accepted by the metrics endpoint.
const (
	RangeToday      = "today"
	RangeSevenDays  = "7d"
	RangeThirtyDays = "30d"

	DefaultRange = RangeSevenDays
)

func IsValidRange(r string) bool {
	switch r {
	case RangeToday, RangeSevenDays, RangeThirtyDays:
		return true
	default:
		return false
	}
}

// RangeStart returns the inclusive lower bound of the window named by r:
// the start of the current UTC day for "today", otherwise now minus the
// window length. An empty r selects DefaultRange.
func RangeStart(r string, now time.Time) (time.Time, error) {
	if r == "" {
		r = DefaultRange
	}
	now = now.UTC()
	switch r {
	case RangeToday:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	case RangeSevenDays:
		return now.Add(-7 * 24 * time.Hour), nil
	case RangeThirtyDays:
		return now.Add(-30 * 24 * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("invalid range %q: must be one of today, 7d, 30d", r)
	}
}
