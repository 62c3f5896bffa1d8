package storage

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ErrInvalidIdentifier is returned for table names that are not plain SQL identifiers.
var ErrInvalidIdentifier = errors.New("storage: invalid identifier")

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// SplitTable splits "schema.table" or "table" into validated identifier parts.
func SplitTable(name string) ([]string, error) {
	parts := strings.Split(strings.TrimSpace(name), ".")
	if len(parts) == 0 || len(parts) > 2 {
		return nil, ErrInvalidIdentifier
	}
	for _, part := range parts {
		if !identifierPattern.MatchString(part) {
			return nil, ErrInvalidIdentifier
		}
	}
	return parts, nil
}

// QuoteTable validates a table name and returns it quoted for interpolation into SQL text.
func QuoteTable(name string) (string, error) {
	parts, err := SplitTable(name)
	if err != nil {
		return "", err
	}
	return pgx.Identifier(parts).Sanitize(), nil
}

// BaseName returns the unqualified table name, used to derive constraint names.
func BaseName(name string) string {
	parts, err := SplitTable(name)
	if err != nil {
		return ""
	}
	return parts[len(parts)-1]
}
