package dedup

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/okoshkin/trendscout/internal/model"
)

// DefaultWindow is the trailing period during which a fingerprint is
// suppressed from reappearing.
const DefaultWindow = 4 * 7 * 24 * time.Hour

// repository is the persistence surface the deduplicator needs.
type repository interface {
	Exists(fingerprint string, cutoff time.Time) (bool, error)
	Record(fingerprint, source string, firstSeen time.Time) error
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// Deduplicator answers "have we surfaced this before?" against a rolling
// window. Entries older than the window are excluded at query time (lazy
// expiry); Compact only bounds storage. A memory layer in front of the
// database keeps repeat lookups within a run cheap.
type Deduplicator struct {
	repo   repository
	window time.Duration
	hot    *gocache.Cache
	now    func() time.Time
}

// New creates a deduplicator over the given repository. A non-positive
// window falls back to the default four weeks.
func New(repo repository, window time.Duration) *Deduplicator {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Deduplicator{
		repo:   repo,
		window: window,
		hot:    gocache.New(window, 10*time.Minute),
		now:    time.Now,
	}
}

// Window returns the configured lookback.
func (d *Deduplicator) Window() time.Duration { return d.window }

// IsDuplicate reports whether the fingerprint was recorded within the
// lookback window.
func (d *Deduplicator) IsDuplicate(fingerprint string) (bool, error) {
	if _, found := d.hot.Get(fingerprint); found {
		return true, nil
	}

	cutoff := d.now().UTC().Add(-d.window)
	exists, err := d.repo.Exists(fingerprint, cutoff)
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	if exists {
		// Promote so the rest of the run skips the database.
		d.hot.Set(fingerprint, struct{}{}, gocache.DefaultExpiration)
	}
	return exists, nil
}

// Record marks a fingerprint as surfaced. The first-seen timestamp never
// moves on re-record, so a resurfaced item cannot extend its own window.
func (d *Deduplicator) Record(fingerprint string, source model.Source, seen time.Time) error {
	if err := d.repo.Record(fingerprint, string(source), seen.UTC()); err != nil {
		return fmt.Errorf("dedup record: %w", err)
	}
	d.hot.Set(fingerprint, struct{}{}, gocache.DefaultExpiration)
	return nil
}

// Compact removes entries that fell out of the window and returns the
// number of rows deleted.
func (d *Deduplicator) Compact() (int64, error) {
	cutoff := d.now().UTC().Add(-d.window)
	n, err := d.repo.DeleteOlderThan(cutoff)
	if err != nil {
		return 0, fmt.Errorf("dedup compact: %w", err)
	}
	return n, nil
}
