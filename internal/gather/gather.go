// Package gather downloads historical bars from market-data providers into a
// bar store for later backtests.
package gather

import (
	"context"
	"fmt"
	"time"
)

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run fetches the configured range and writes it to the store. It
	// returns when done or when ctx is cancelled.
	Run(ctx context.Context) error
}

// DateRange represents a time range for data fetching.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses start and end dates in YYYY-MM-DD form. An empty end
// means today. End is inclusive: the returned End is the last instant of
// that day in UTC.
func ParseDateRange(start, end string, now time.Time) (DateRange, error) {
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return DateRange{}, fmt.Errorf("parsing start date %q: %w", start, err)
	}
	e := now.UTC().Truncate(24 * time.Hour)
	if end != "" {
		if e, err = time.Parse("2006-01-02", end); err != nil {
			return DateRange{}, fmt.Errorf("parsing end date %q: %w", end, err)
		}
	}
	e = e.Add(24*time.Hour - time.Nanosecond)
	if !e.After(s) {
		return DateRange{}, fmt.Errorf("end date %s before start date %s", e.Format("2006-01-02"), start)
	}
	return DateRange{Start: s, End: e}, nil
}
