package store

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// CostEntry is one persisted per-call cost estimate.
type CostEntry struct {
	RunID      string
	Service    string
	Operation  string
	CostUSD    float64
	RecordedAt time.Time
}

// CostRepository handles database operations for the cost history.
type CostRepository struct {
	db *sql.DB
}

// NewCostRepository creates a cost repository over the store.
func NewCostRepository(s *Store) *CostRepository {
	return &CostRepository{db: s.db}
}

// Append stores one entry. The history is append-only: there are no
// update or delete paths.
func (r *CostRepository) Append(e CostEntry) error {
	query, args, err := sq.Insert("cost_entries").
		Columns("run_id", "service", "operation", "estimated_cost", "recorded_at").
		Values(e.RunID, e.Service, e.Operation, e.CostUSD, e.RecordedAt.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build cost insert: %w", err)
	}

	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("append cost entry: %w", err)
	}
	return nil
}

// RunTotal returns the summed estimated cost for one run.
func (r *CostRepository) RunTotal(runID string) (float64, error) {
	query, args, err := sq.Select("COALESCE(SUM(estimated_cost), 0)").
		From("cost_entries").
		Where(sq.Eq{"run_id": runID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build run total query: %w", err)
	}
	return r.total(query, args)
}

// CumulativeTotal returns the summed estimated cost across all runs.
func (r *CostRepository) CumulativeTotal() (float64, error) {
	query, args, err := sq.Select("COALESCE(SUM(estimated_cost), 0)").
		From("cost_entries").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build cumulative total query: %w", err)
	}
	return r.total(query, args)
}

func (r *CostRepository) total(query string, args []interface{}) (float64, error) {
	var total float64
	err := r.db.QueryRow(query, args...).Scan(&total)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("sum cost entries: %w", err)
	}
	return total, nil
}
