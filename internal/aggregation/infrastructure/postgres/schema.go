package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"classroom-energy-aggregator/internal/storage"
)

// EnsureSchema creates the destination table if it does not exist.
// It is safe to run before every job.
func (r *SummaryRepository) EnsureSchema(ctx context.Context) error {
	ddl, err := r.schemaDDL()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return storage.Classify(fmt.Errorf("summary repo: ensure schema: %w", err))
	}
	return nil
}

func (r *SummaryRepository) schemaDDL() (string, error) {
	table, err := storage.QuoteTable(r.table)
	if err != nil {
		return "", err
	}
	classrooms, err := storage.QuoteTable(r.classrooms)
	if err != nil {
		return "", err
	}
	base := storage.BaseName(r.table)

	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	classroom_id varchar(3) NOT NULL,
	avg_consumption INT,
	min_consumption INT,
	max_consumption INT,
	std_consumption INT,
	aggregation_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP NOT NULL,
	CONSTRAINT %s PRIMARY KEY (classroom_id, aggregation_date),
	CONSTRAINT %s FOREIGN KEY (classroom_id) REFERENCES %s(id)
		ON DELETE CASCADE
		ON UPDATE CASCADE
)`,
		table,
		pgx.Identifier{base + "_pkey"}.Sanitize(),
		pgx.Identifier{base + "_classroom_id_fkey"}.Sanitize(),
		classrooms,
	), nil
}
