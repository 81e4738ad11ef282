package store

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// DedupRepository handles database operations for the dedup window.
type DedupRepository struct {
	db *sql.DB
}

// NewDedupRepository creates a dedup repository over the store.
func NewDedupRepository(s *Store) *DedupRepository {
	return &DedupRepository{db: s.db}
}

// Exists reports whether fingerprint was first seen at or after cutoff.
// Rows older than the cutoff are ignored, not deleted: expiry is lazy.
func (r *DedupRepository) Exists(fingerprint string, cutoff time.Time) (bool, error) {
	query, args, err := sq.Select("1").
		From("dedup_entries").
		Where(sq.Eq{"fingerprint": fingerprint}).
		Where(sq.GtOrEq{"first_seen": cutoff.UTC()}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build dedup query: %w", err)
	}

	var one int
	err = r.db.QueryRow(query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check fingerprint: %w", err)
	}
	return true, nil
}

// Record inserts a fingerprint with its first-seen timestamp. Re-recording
// an existing fingerprint keeps the original first-seen time.
func (r *DedupRepository) Record(fingerprint, source string, firstSeen time.Time) error {
	query, args, err := sq.Insert("dedup_entries").
		Columns("fingerprint", "source", "first_seen").
		Values(fingerprint, source, firstSeen.UTC()).
		Suffix("ON CONFLICT (fingerprint) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build dedup insert: %w", err)
	}

	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("record fingerprint: %w", err)
	}
	return nil
}

// DeleteOlderThan removes entries first seen before cutoff and returns how
// many rows went away. Compaction only bounds storage; correctness never
// depends on it.
func (r *DedupRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	query, args, err := sq.Delete("dedup_entries").
		Where(sq.Lt{"first_seen": cutoff.UTC()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build dedup delete: %w", err)
	}

	res, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("compact dedup window: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
