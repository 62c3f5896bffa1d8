package summary

import (
	"math"
	"time"
)

// Key identifies one summary row: a classroom and an hour bucket.
type Key struct {
	ClassroomID string
	Hour        time.Time
}

// Stats are the float statistics of one hour group before storage rounding.
type Stats struct {
	Count int
	Avg   float64
	Min   float64
	Max   float64
	Std   float64
}

// Row is an hourly summary as persisted. Statistic columns are integers;
// AggregationDate equals the hour bucket.
type Row struct {
	ClassroomID     string
	AvgConsumption  int64
	MinConsumption  int64
	MaxConsumption  int64
	StdConsumption  int64
	AggregationDate time.Time
}

// Key returns the row's aggregation key.
func (r Row) Key() Key {
	return Key{ClassroomID: r.ClassroomID, Hour: r.AggregationDate}
}

// Validate checks the row can be persisted.
func (r Row) Validate() error {
	if r.ClassroomID == "" {
		return ErrEmptyClassroomID
	}
	if !IsHourAligned(r.AggregationDate) {
		return ErrInvalidHourBucket
	}
	return nil
}

// NewRow converts float statistics into a storable row using RoundHalfUp.
func NewRow(key Key, stats Stats) Row {
	return Row{
		ClassroomID:     key.ClassroomID,
		AvgConsumption:  RoundHalfUp(stats.Avg),
		MinConsumption:  RoundHalfUp(stats.Min),
		MaxConsumption:  RoundHalfUp(stats.Max),
		StdConsumption:  RoundHalfUp(stats.Std),
		AggregationDate: key.Hour,
	}
}

// RoundHalfUp rounds to the nearest integer, ties toward positive infinity.
// NaN and infinities map to 0.
func RoundHalfUp(value float64) int64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return int64(math.Floor(value + 0.5))
}
