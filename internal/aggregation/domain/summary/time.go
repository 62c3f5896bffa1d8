package summary

import "time"

// HourBucket truncates at down to the start of its clock hour in at's location.
// Minutes, seconds and sub-second components are zeroed; the hour is kept.
func HourBucket(at time.Time) time.Time {
	_, offset := at.Zone()
	shift := time.Duration(offset) * time.Second
	return at.Add(shift).Truncate(time.Hour).Add(-shift)
}

// IsHourAligned reports whether at is the start of a clock hour.
func IsHourAligned(at time.Time) bool {
	return !at.IsZero() && HourBucket(at).Equal(at)
}

// DayStart returns midnight of at's calendar day in loc.
func DayStart(at time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	at = at.In(loc)
	return time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, loc)
}
