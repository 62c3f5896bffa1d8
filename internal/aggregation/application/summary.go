package application

import (
	"sort"
	"time"
)

// RunSummary reports what a backfill run did, day by day.
type RunSummary struct {
	Start     time.Time
	End       time.Time
	StartedAt time.Time
	Duration  time.Duration
	// Planned is the number of days in the window; len(Days) may be lower
	// when the run stopped early.
	Planned int
	Days    []DayResult
}

// Totals aggregates counters across days.
type Totals struct {
	Days     int
	Failed   int
	Readings int
	Rows     int
	Inserted int
	Skipped  int
}

// Failed returns the days that ended with an error, in day order.
func (s *RunSummary) Failed() []DayResult {
	if s == nil {
		return nil
	}
	var failed []DayResult
	for _, day := range s.Days {
		if day.Failed() {
			failed = append(failed, day)
		}
	}
	return failed
}

// Totals sums per-day counters.
func (s *RunSummary) Totals() Totals {
	var totals Totals
	if s == nil {
		return totals
	}
	for _, day := range s.Days {
		totals.Days++
		if day.Failed() {
			totals.Failed++
		}
		totals.Readings += day.Readings
		totals.Rows += day.Rows
		totals.Inserted += day.Inserted
		totals.Skipped += day.Skipped
	}
	return totals
}

// Complete reports whether every planned day was processed without error.
func (s *RunSummary) Complete() bool {
	if s == nil {
		return false
	}
	return len(s.Days) == s.Planned && len(s.Failed()) == 0
}

func (s *RunSummary) sortDays() {
	sort.Slice(s.Days, func(i, j int) bool { return s.Days[i].Day.Before(s.Days[j].Day) })
}
