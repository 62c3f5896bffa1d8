package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"classroom-energy-aggregator/internal/aggregation/domain/summary"
	"classroom-energy-aggregator/internal/storage"
)

const (
	defaultSummaryTable    = "sensor_data.classroom_data_aggregation"
	defaultClassroomsTable = "ufpel_data.classrooms"
)

// SummaryRepository is a Postgres implementation of summary.Repository.
// Each Save call runs in one transaction; conflicting keys are skipped.
type SummaryRepository struct {
	db         *sql.DB
	table      string
	classrooms string
}

// RepositoryOption configures the repository.
type RepositoryOption func(*SummaryRepository)

// WithTable overrides the destination table.
func WithTable(table string) RepositoryOption {
	return func(repo *SummaryRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// WithClassroomsTable overrides the table referenced by the classroom foreign key.
func WithClassroomsTable(table string) RepositoryOption {
	return func(repo *SummaryRepository) {
		if table != "" {
			repo.classrooms = table
		}
	}
}

// NewSummaryRepository creates a repository using the default table names.
func NewSummaryRepository(db *sql.DB, opts ...RepositoryOption) (*SummaryRepository, error) {
	if db == nil {
		return nil, errors.New("summary repo: nil db")
	}
	repo := &SummaryRepository{
		db:         db,
		table:      defaultSummaryTable,
		classrooms: defaultClassroomsTable,
	}
	for _, opt := range opts {
		opt(repo)
	}
	if _, err := storage.QuoteTable(repo.table); err != nil {
		return nil, fmt.Errorf("summary repo: table %q: %w", repo.table, err)
	}
	if _, err := storage.QuoteTable(repo.classrooms); err != nil {
		return nil, fmt.Errorf("summary repo: classrooms table %q: %w", repo.classrooms, err)
	}
	return repo, nil
}

// Save inserts rows, leaving existing (classroom_id, aggregation_date) rows untouched.
// On error the whole batch is rolled back; reruns are safe because inserts are idempotent.
func (r *SummaryRepository) Save(ctx context.Context, rows []summary.Row) (summary.SaveResult, error) {
	var result summary.SaveResult
	if len(rows) == 0 {
		return result, nil
	}
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			return result, fmt.Errorf("%w: summary repo: %v", storage.ErrData, err)
		}
	}
	table, err := storage.QuoteTable(r.table)
	if err != nil {
		return result, err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	classroom_id,
	avg_consumption,
	min_consumption,
	max_consumption,
	std_consumption,
	aggregation_date
) VALUES (
	$1, $2, $3, $4, $5, $6
)
ON CONFLICT (classroom_id, aggregation_date) DO NOTHING`, table)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, storage.Classify(fmt.Errorf("summary repo: begin: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return result, storage.Classify(fmt.Errorf("summary repo: prepare: %w", err))
	}
	defer stmt.Close()

	var batch summary.SaveResult
	for _, row := range rows {
		res, err := stmt.ExecContext(
			ctx,
			row.ClassroomID,
			row.AvgConsumption,
			row.MinConsumption,
			row.MaxConsumption,
			row.StdConsumption,
			row.AggregationDate,
		)
		if err != nil {
			return result, storage.Classify(fmt.Errorf("summary repo: insert classroom=%s hour=%s: %w",
				row.ClassroomID, row.AggregationDate.Format("2006-01-02T15"), err))
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return result, storage.Classify(fmt.Errorf("summary repo: rows affected: %w", err))
		}
		if affected > 0 {
			batch.Inserted++
		} else {
			batch.Skipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return result, storage.Classify(fmt.Errorf("summary repo: commit: %w", err))
	}
	return batch, nil
}

// CountBetween returns the number of persisted rows with aggregation_date in [start, end).
func (r *SummaryRepository) CountBetween(ctx context.Context, start, end time.Time) (int, error) {
	table, err := storage.QuoteTable(r.table)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`
SELECT COUNT(*)
FROM %s
WHERE aggregation_date >= $1
	AND aggregation_date < $2`, table)

	var count int
	if err := r.db.QueryRowContext(ctx, query, start, end).Scan(&count); err != nil {
		return 0, storage.Classify(fmt.Errorf("summary repo: count: %w", err))
	}
	return count, nil
}
