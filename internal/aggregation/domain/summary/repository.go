package summary

import "context"

// SaveResult counts the outcome of a Save call.
type SaveResult struct {
	Inserted int
	Skipped  int
}

// Add accumulates another result.
func (r SaveResult) Add(other SaveResult) SaveResult {
	return SaveResult{Inserted: r.Inserted + other.Inserted, Skipped: r.Skipped + other.Skipped}
}

// Repository persists summary rows with insert-or-skip semantics:
// a row whose key already exists is left untouched (first write wins).
type Repository interface {
	Save(ctx context.Context, rows []Row) (SaveResult, error)
}
