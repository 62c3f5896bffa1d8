package memory

import (
	"context"
	"sync"
	"time"

	consumption "classroom-energy-aggregator/internal/consumption/domain"
)

// ReadingQuery is an in-memory reading source for demo/testing.
type ReadingQuery struct {
	mu       sync.RWMutex
	readings []consumption.Reading
	calls    int
	err      error
	failures map[time.Time]error
}

// NewReadingQuery constructs a query over the given readings.
func NewReadingQuery(readings ...consumption.Reading) *ReadingQuery {
	return &ReadingQuery{readings: append([]consumption.Reading(nil), readings...)}
}

// Add appends readings.
func (q *ReadingQuery) Add(readings ...consumption.Reading) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.readings = append(q.readings, readings...)
}

// FailWith makes subsequent loads return err.
func (q *ReadingQuery) FailWith(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.err = err
}

// FailOn makes the load whose window starts at start return err.
func (q *ReadingQuery) FailOn(start time.Time, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failures == nil {
		q.failures = make(map[time.Time]error)
	}
	q.failures[start.UTC()] = err
}

// Load returns readings within [start, end).
func (q *ReadingQuery) Load(ctx context.Context, start, end time.Time) ([]consumption.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := consumption.ValidateInterval(start, end); err != nil {
		return nil, err
	}

	q.mu.Lock()
	q.calls++
	failure := q.err
	if dayFailure, ok := q.failures[start.UTC()]; ok {
		failure = dayFailure
	}
	q.mu.Unlock()
	if failure != nil {
		return nil, failure
	}

	q.mu.RLock()
	defer q.mu.RUnlock()
	var result []consumption.Reading
	for _, reading := range q.readings {
		if consumption.InInterval(reading.At, start, end) {
			result = append(result, reading)
		}
	}
	return result, nil
}

// Calls returns how many loads were attempted.
func (q *ReadingQuery) Calls() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.calls
}
