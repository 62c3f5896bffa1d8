package consumption

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidInterval is returned when a load window is empty or unbounded.
var ErrInvalidInterval = errors.New("consumption: invalid interval")

// Reading is a raw classroom energy sample produced by ingestion.
// Readings are read-only for this service.
type Reading struct {
	ClassroomID string
	Consumption float64
	At          time.Time
}

// ReadingQuery loads raw readings for a time window.
// Time window uses [start, end) semantics.
type ReadingQuery interface {
	Load(ctx context.Context, start, end time.Time) ([]Reading, error)
}

// ValidateInterval checks the [start, end) window.
func ValidateInterval(start, end time.Time) error {
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return ErrInvalidInterval
	}
	return nil
}

// InInterval reports whether at falls within [start, end).
func InInterval(at, start, end time.Time) bool {
	return !at.Before(start) && at.Before(end)
}
