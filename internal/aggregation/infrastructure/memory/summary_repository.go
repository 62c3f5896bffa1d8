package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"classroom-energy-aggregator/internal/aggregation/domain/summary"
)

// SummaryRepository is an in-memory summary.Repository for dry runs and tests.
// It follows the same first-write-wins rule as the Postgres table.
type SummaryRepository struct {
	mu    sync.RWMutex
	data  map[keyID]summary.Row
	saves int
	err   error
}

type keyID struct {
	classroomID string
	hourUnix    int64
}

// NewSummaryRepository constructs a repository.
func NewSummaryRepository() *SummaryRepository {
	return &SummaryRepository{
		data: make(map[keyID]summary.Row),
	}
}

// FailWith makes subsequent saves return err without writing.
func (r *SummaryRepository) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Save stores rows whose key is not present yet.
func (r *SummaryRepository) Save(ctx context.Context, rows []summary.Row) (summary.SaveResult, error) {
	var result summary.SaveResult
	if err := ctx.Err(); err != nil {
		return result, err
	}
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			return result, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.err != nil {
		return result, r.err
	}
	for _, row := range rows {
		id := idOf(row.Key())
		if _, exists := r.data[id]; exists {
			result.Skipped++
			continue
		}
		r.data[id] = row
		result.Inserted++
	}
	return result, nil
}

// Get returns the stored row for a key.
func (r *SummaryRepository) Get(classroomID string, hour time.Time) (summary.Row, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.data[idOf(summary.Key{ClassroomID: classroomID, Hour: hour})]
	return row, ok
}

// Rows returns all stored rows ordered by classroom and hour.
func (r *SummaryRepository) Rows() []summary.Row {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := make([]summary.Row, 0, len(r.data))
	for _, row := range r.data {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ClassroomID != rows[j].ClassroomID {
			return rows[i].ClassroomID < rows[j].ClassroomID
		}
		return rows[i].AggregationDate.Before(rows[j].AggregationDate)
	})
	return rows
}

// Saves returns how many Save calls reached the store.
func (r *SummaryRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

func idOf(key summary.Key) keyID {
	return keyID{classroomID: key.ClassroomID, hourUnix: key.Hour.Unix()}
}
