package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"classroom-energy-aggregator/internal/aggregation/domain/summary"
	"classroom-energy-aggregator/internal/observability/metrics"
)

// ErrInvalidWindow is returned when a backfill window has no whole day in it.
var ErrInvalidWindow = errors.New("aggregation: invalid backfill window")

// Window is a closed-open range of calendar days [Start, End) in Location.
type Window struct {
	Start    time.Time
	End      time.Time
	Location *time.Location
}

// Days returns the midnight of every day in the window.
// Days are stepped with AddDate, so DST transitions keep local midnights.
func (w Window) Days() ([]time.Time, error) {
	loc := w.Location
	if loc == nil {
		loc = time.UTC
	}
	if w.Start.IsZero() || w.End.IsZero() {
		return nil, ErrInvalidWindow
	}
	start := summary.DayStart(w.Start, loc)
	end := summary.DayStart(w.End, loc)
	if !start.Before(end) {
		return nil, ErrInvalidWindow
	}
	var days []time.Time
	for current := start; current.Before(end); current = current.AddDate(0, 0, 1) {
		days = append(days, current)
	}
	return days, nil
}

// Backfill drives a DayProcessor over every day of a window.
type Backfill struct {
	days       DayProcessor
	logger     *zap.SugaredLogger
	metrics    *metrics.Metrics
	failFast   bool
	dayTimeout time.Duration
	workers    int
	now        func() time.Time
}

// BackfillOption configures a Backfill.
type BackfillOption func(*Backfill)

// WithLogger sets the progress logger.
func WithLogger(logger *zap.SugaredLogger) BackfillOption {
	return func(b *Backfill) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) BackfillOption {
	return func(b *Backfill) {
		b.metrics = m
	}
}

// WithFailFast stops the run at the first failed day instead of continuing.
func WithFailFast(failFast bool) BackfillOption {
	return func(b *Backfill) {
		b.failFast = failFast
	}
}

// WithDayTimeout bounds each day's processing. Zero disables the timeout.
func WithDayTimeout(timeout time.Duration) BackfillOption {
	return func(b *Backfill) {
		if timeout >= 0 {
			b.dayTimeout = timeout
		}
	}
}

// WithWorkers processes up to n days concurrently. n <= 1 means sequential.
func WithWorkers(n int) BackfillOption {
	return func(b *Backfill) {
		if n > 0 {
			b.workers = n
		}
	}
}

// NewBackfill constructs a Backfill.
func NewBackfill(days DayProcessor, opts ...BackfillOption) (*Backfill, error) {
	if days == nil {
		return nil, errors.New("aggregation: nil day processor")
	}
	b := &Backfill{
		days:    days,
		logger:  zap.NewNop().Sugar(),
		workers: 1,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Run processes every day of the window and returns a summary of what happened.
//
// By default a failed day is recorded and the run moves on. With fail-fast the
// run stops at the first failure and returns its error; days not yet started are
// not processed. A cancelled ctx stops the run before the next day and Run
// returns ctx.Err() together with the partial summary.
func (b *Backfill) Run(ctx context.Context, window Window) (*RunSummary, error) {
	days, err := window.Days()
	if err != nil {
		return nil, err
	}

	run := &RunSummary{
		Start:     days[0],
		End:       days[len(days)-1].AddDate(0, 0, 1),
		StartedAt: b.now(),
		Planned:   len(days),
	}
	b.logger.Infow("backfill started",
		"start", run.Start.Format(time.DateOnly),
		"end", run.End.Format(time.DateOnly),
		"days", len(days),
		"workers", b.workers,
		"fail_fast", b.failFast,
	)

	if b.workers > 1 {
		err = b.runParallel(ctx, days, run)
	} else {
		err = b.runSequential(ctx, days, run)
	}

	finished := b.now()
	run.Duration = finished.Sub(run.StartedAt)
	run.sortDays()
	totals := run.Totals()
	b.metrics.ObserveRun(totals.Failed, run.Duration, finished)
	b.logger.Infow("backfill finished",
		"processed", totals.Days,
		"planned", run.Planned,
		"failed", totals.Failed,
		"readings", totals.Readings,
		"rows", totals.Rows,
		"inserted", totals.Inserted,
		"skipped", totals.Skipped,
		"duration", run.Duration,
	)
	return run, err
}

func (b *Backfill) runSequential(ctx context.Context, days []time.Time, run *RunSummary) error {
	for i, day := range days {
		if err := ctx.Err(); err != nil {
			return err
		}
		result := b.runDay(ctx, i, len(days), day)
		run.Days = append(run.Days, result)
		if result.Err != nil && b.failFast {
			return fmt.Errorf("aggregation: day %s: %w", day.Format(time.DateOnly), result.Err)
		}
	}
	return nil
}

func (b *Backfill) runParallel(ctx context.Context, days []time.Time, run *RunSummary) error {
	var mu sync.Mutex
	group, groupCtx := &errgroup.Group{}, ctx
	if b.failFast {
		group, groupCtx = errgroup.WithContext(ctx)
	}
	group.SetLimit(b.workers)

	for i, day := range days {
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}
			result := b.runDay(groupCtx, i, len(days), day)
			mu.Lock()
			run.Days = append(run.Days, result)
			mu.Unlock()
			if result.Err != nil && b.failFast {
				return fmt.Errorf("aggregation: day %s: %w", day.Format(time.DateOnly), result.Err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (b *Backfill) runDay(ctx context.Context, index, total int, day time.Time) DayResult {
	dayCtx := ctx
	if b.dayTimeout > 0 {
		var cancel context.CancelFunc
		dayCtx, cancel = context.WithTimeout(ctx, b.dayTimeout)
		defer cancel()
	}

	started := b.now()
	result, err := b.days.AggregateDay(dayCtx, day, day.AddDate(0, 0, 1))
	result.Day = day
	result.Err = err
	result.Duration = b.now().Sub(started)
	b.metrics.ObserveDay(err, result.Readings, result.Inserted, result.Skipped, result.Duration)

	if err != nil {
		b.logger.Errorw("day failed",
			"day", day.Format(time.DateOnly),
			"index", index+1,
			"total", total,
			"error", err,
		)
		return result
	}
	b.logger.Infow("day processed",
		"day", day.Format(time.DateOnly),
		"index", index+1,
		"total", total,
		"readings", result.Readings,
		"rows", result.Rows,
		"inserted", result.Inserted,
		"skipped", result.Skipped,
		"duration", result.Duration,
	)
	return result
}
