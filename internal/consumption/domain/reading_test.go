package consumption

import (
	"errors"
	"testing"
	"time"
)

func TestValidateInterval(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	if err := ValidateInterval(start, start.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("expected valid interval, got %v", err)
	}
	if err := ValidateInterval(start, start); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected empty interval to be rejected, got %v", err)
	}
	if err := ValidateInterval(start, start.Add(-time.Hour)); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected reversed interval to be rejected, got %v", err)
	}
	if err := ValidateInterval(time.Time{}, start); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected zero start to be rejected, got %v", err)
	}
}

func TestInInterval_HalfOpen(t *testing.T) {
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	if !InInterval(start, start, end) {
		t.Fatalf("expected start to be included")
	}
	if InInterval(end, start, end) {
		t.Fatalf("expected end to be excluded")
	}
	if !InInterval(end.Add(-time.Nanosecond), start, end) {
		t.Fatalf("expected last instant before end to be included")
	}
}
