package memory

import (
	"context"
	"testing"
	"time"

	"classroom-energy-aggregator/internal/aggregation/domain/summary"
)

func TestSummaryRepository_SaveTwiceIsIdempotent(t *testing.T) {
	repo := NewSummaryRepository()
	ctx := context.Background()
	hour := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	rows := []summary.Row{
		{ClassroomID: "A", AvgConsumption: 15, MinConsumption: 10, MaxConsumption: 20, StdConsumption: 7, AggregationDate: hour},
		{ClassroomID: "A", AvgConsumption: 30, MinConsumption: 30, MaxConsumption: 30, AggregationDate: hour.Add(time.Hour)},
	}

	first, err := repo.Save(ctx, rows)
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	if first.Inserted != 2 || first.Skipped != 0 {
		t.Fatalf("unexpected first result: %+v", first)
	}
	before := repo.Rows()

	second, err := repo.Save(ctx, rows)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if second.Inserted != 0 || second.Skipped != 2 {
		t.Fatalf("unexpected second result: %+v", second)
	}
	after := repo.Rows()
	if len(before) != len(after) {
		t.Fatalf("expected %d rows, got %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("row %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}
}

func TestSummaryRepository_FirstWriteWins(t *testing.T) {
	repo := NewSummaryRepository()
	ctx := context.Background()
	hour := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)

	if _, err := repo.Save(ctx, []summary.Row{{ClassroomID: "A", AvgConsumption: 1, AggregationDate: hour}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := repo.Save(ctx, []summary.Row{{ClassroomID: "A", AvgConsumption: 99, AggregationDate: hour}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	row, ok := repo.Get("A", hour)
	if !ok {
		t.Fatalf("expected row to exist")
	}
	if row.AvgConsumption != 1 {
		t.Fatalf("expected first write to win, got avg=%d", row.AvgConsumption)
	}
}
