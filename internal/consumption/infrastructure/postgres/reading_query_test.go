package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	consumption "classroom-energy-aggregator/internal/consumption/domain"
	"classroom-energy-aggregator/internal/storage"
)

func TestNewReadingQuery_Table(t *testing.T) {
	query, err := NewReadingQuery(&sql.DB{})
	if err != nil {
		t.Fatalf("default table: %v", err)
	}
	if query.table != defaultReadingTable {
		t.Fatalf("unexpected table %q", query.table)
	}
	if _, err := NewReadingQuery(&sql.DB{}, WithTable("readings WHERE 1=1")); !errors.Is(err, storage.ErrInvalidIdentifier) {
		t.Fatalf("expected invalid identifier, got %v", err)
	}
	if _, err := NewReadingQuery(nil); err == nil {
		t.Fatalf("expected nil db to be rejected")
	}
}

func TestLoad_RejectsEmptyInterval(t *testing.T) {
	query, err := NewReadingQuery(&sql.DB{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := query.Load(context.Background(), at, at); !errors.Is(err, consumption.ErrInvalidInterval) {
		t.Fatalf("expected invalid interval, got %v", err)
	}
}
