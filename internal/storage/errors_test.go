package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassify_SQLState(t *testing.T) {
	cases := map[string]error{
		"23503": ErrConstraintViolation,
		"23505": ErrConstraintViolation,
		"22P02": ErrData,
		"42703": ErrData,
		"08006": ErrConnectivity,
		"57P01": ErrConnectivity,
	}
	for code, want := range cases {
		err := Classify(fmt.Errorf("exec: %w", &pgconn.PgError{Code: code, Message: "boom"}))
		if !errors.Is(err, want) {
			t.Fatalf("code %s: expected %v, got %v", code, want, err)
		}
	}
}

func TestClassify_UnknownSQLStateUntouched(t *testing.T) {
	src := &pgconn.PgError{Code: "42601", Message: "syntax error"}
	err := Classify(src)
	if IsClassified(err) {
		t.Fatalf("expected unclassified error, got %v", err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected original pg error to be preserved")
	}
}

func TestClassify_NetworkErrors(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	if err := Classify(opErr); !errors.Is(err, ErrConnectivity) {
		t.Fatalf("expected connectivity error, got %v", err)
	}
	if err := Classify(context.DeadlineExceeded); !errors.Is(err, ErrConnectivity) {
		t.Fatalf("expected deadline to classify as connectivity, got %v", err)
	}
	if err := Classify(context.Canceled); IsClassified(err) {
		t.Fatalf("cancellation must not be classified, got %v", err)
	}
}

func TestClassify_Idempotent(t *testing.T) {
	once := Classify(&pgconn.PgError{Code: "23503"})
	twice := Classify(once)
	if once != twice {
		t.Fatalf("expected classified error to be returned unchanged")
	}
	if Classify(nil) != nil {
		t.Fatalf("expected nil for nil")
	}
}
