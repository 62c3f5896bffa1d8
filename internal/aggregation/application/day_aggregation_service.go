package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classroom-energy-aggregator/internal/aggregation/domain/summary"
	consumption "classroom-energy-aggregator/internal/consumption/domain"
)

// DayProcessor aggregates one [start, end) window.
type DayProcessor interface {
	AggregateDay(ctx context.Context, start, end time.Time) (DayResult, error)
}

// DayResult describes one processed day.
type DayResult struct {
	Day      time.Time
	Readings int
	Rows     int
	Inserted int
	Skipped  int
	Duration time.Duration
	Err      error
}

// Failed reports whether the day ended with an error.
func (r DayResult) Failed() bool { return r.Err != nil }

// DayAggregationService runs load -> aggregate -> save for one window.
type DayAggregationService struct {
	readings consumption.ReadingQuery
	repo     summary.Repository
}

// NewDayAggregationService builds a DayAggregationService.
func NewDayAggregationService(readings consumption.ReadingQuery, repo summary.Repository) (*DayAggregationService, error) {
	if readings == nil {
		return nil, errors.New("aggregation: nil reading query")
	}
	if repo == nil {
		return nil, errors.New("aggregation: nil summary repository")
	}
	return &DayAggregationService{readings: readings, repo: repo}, nil
}

// AggregateDay loads readings in [start, end), aggregates them per classroom hour
// and saves the rows. An empty window performs no aggregation and no write.
func (s *DayAggregationService) AggregateDay(ctx context.Context, start, end time.Time) (DayResult, error) {
	result := DayResult{Day: start}

	readings, err := s.readings.Load(ctx, start, end)
	if err != nil {
		return result, fmt.Errorf("load: %w", err)
	}
	result.Readings = len(readings)
	if len(readings) == 0 {
		return result, nil
	}

	rows := summary.Aggregate(readings)
	result.Rows = len(rows)

	saved, err := s.repo.Save(ctx, rows)
	if err != nil {
		return result, fmt.Errorf("save: %w", err)
	}
	result.Inserted = saved.Inserted
	result.Skipped = saved.Skipped
	return result, nil
}
