// Package storage holds the error taxonomy shared by the readers and writers
// that talk to the relational store.
package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrConnectivity is returned when the store cannot be reached or drops the connection.
	ErrConnectivity = errors.New("storage: store unreachable")
	// ErrConstraintViolation is returned when a write breaks an integrity constraint,
	// e.g. a summary row for an unknown classroom.
	ErrConstraintViolation = errors.New("storage: constraint violation")
	// ErrData is returned when stored rows are malformed or expected columns are missing.
	ErrData = errors.New("storage: malformed data")
)

// Classify wraps err with the matching sentinel so callers can use errors.Is.
// Errors that already carry a sentinel, and errors that match none, are returned as-is.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if IsClassified(err) {
		return err
	}
	if kind := kindOf(err); kind != nil {
		return fmt.Errorf("%w: %w", kind, err)
	}
	return err
}

// IsClassified reports whether err already wraps one of the storage sentinels.
func IsClassified(err error) bool {
	return errors.Is(err, ErrConnectivity) ||
		errors.Is(err, ErrConstraintViolation) ||
		errors.Is(err, ErrData)
}

func kindOf(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return kindOfSQLState(pgErr.Code)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return ErrConnectivity
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) {
		return ErrConnectivity
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrConnectivity
	}
	return nil
}

// kindOfSQLState maps a Postgres SQLSTATE onto the taxonomy.
func kindOfSQLState(code string) error {
	switch {
	case strings.HasPrefix(code, "23"):
		return ErrConstraintViolation
	case strings.HasPrefix(code, "22"):
		return ErrData
	case code == "42703", code == "42P01":
		// undefined column / undefined table
		return ErrData
	case strings.HasPrefix(code, "08"):
		return ErrConnectivity
	case code == "57P01", code == "57P02", code == "57P03", code == "53300":
		return ErrConnectivity
	default:
		return nil
	}
}
