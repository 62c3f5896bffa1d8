package summary

import "errors"

var (
	// ErrEmptyClassroomID is returned when a row has no classroom id.
	ErrEmptyClassroomID = errors.New("summary: empty classroom id")
	// ErrInvalidHourBucket is returned when the aggregation date is zero or not hour-aligned.
	ErrInvalidHourBucket = errors.New("summary: invalid hour bucket")
)
