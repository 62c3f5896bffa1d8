package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	consumption "classroom-energy-aggregator/internal/consumption/domain"
	"classroom-energy-aggregator/internal/storage"
)

const defaultReadingTable = "sensor_data.classroom_energy_consumption"

// ReadingQuery loads raw classroom readings from Postgres.
type ReadingQuery struct {
	db    *sql.DB
	table string
}

// QueryOption configures the reading query.
type QueryOption func(*ReadingQuery)

// WithTable overrides the default readings table ("schema.table" or "table").
func WithTable(table string) QueryOption {
	return func(query *ReadingQuery) {
		if query != nil && table != "" {
			query.table = table
		}
	}
}

// NewReadingQuery constructs a query bound to the readings table.
func NewReadingQuery(db *sql.DB, opts ...QueryOption) (*ReadingQuery, error) {
	if db == nil {
		return nil, errors.New("reading query: nil db")
	}
	query := &ReadingQuery{db: db, table: defaultReadingTable}
	for _, opt := range opts {
		opt(query)
	}
	if _, err := storage.QuoteTable(query.table); err != nil {
		return nil, err
	}
	return query, nil
}

// Load returns all readings with start <= date_time < end. The result is unordered.
func (q *ReadingQuery) Load(ctx context.Context, start, end time.Time) ([]consumption.Reading, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("reading query: nil db")
	}
	if err := consumption.ValidateInterval(start, end); err != nil {
		return nil, err
	}
	table, err := storage.QuoteTable(q.table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
SELECT classroom_id, consumption, date_time
FROM %s
WHERE date_time >= $1
	AND date_time < $2`, table)

	rows, err := q.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, storage.Classify(fmt.Errorf("reading query: %w", err))
	}
	defer rows.Close()

	var result []consumption.Reading
	for rows.Next() {
		var (
			classroomID sql.NullString
			value       sql.NullFloat64
			at          sql.NullTime
		)
		if err := rows.Scan(&classroomID, &value, &at); err != nil {
			return nil, fmt.Errorf("%w: reading query scan: %v", storage.ErrData, err)
		}
		if !classroomID.Valid || !value.Valid || !at.Valid {
			return nil, fmt.Errorf("%w: reading query: null column in row", storage.ErrData)
		}
		result = append(result, consumption.Reading{
			ClassroomID: classroomID.String,
			Consumption: value.Float64,
			At:          at.Time,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Classify(fmt.Errorf("reading query: %w", err))
	}
	return result, nil
}
