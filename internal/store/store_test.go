package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDedupRepository_RecordAndExists(t *testing.T) {
	s := openTestStore(t)
	repo := NewDedupRepository(s)

	now := time.Now().UTC()
	cutoff := now.Add(-28 * 24 * time.Hour)

	exists, err := repo.Exists("fp1", cutoff)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Error("expected fp1 to be unknown")
	}

	if err := repo.Record("fp1", "forum", now); err != nil {
		t.Fatalf("record: %v", err)
	}

	exists, err = repo.Exists("fp1", cutoff)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Error("expected fp1 to exist within window")
	}
}

func TestDedupRepository_LazyExpiry(t *testing.T) {
	s := openTestStore(t)
	repo := NewDedupRepository(s)

	now := time.Now().UTC()
	old := now.Add(-40 * 24 * time.Hour)
	cutoff := now.Add(-28 * 24 * time.Hour)

	if err := repo.Record("stale", "forum", old); err != nil {
		t.Fatalf("record: %v", err)
	}

	exists, err := repo.Exists("stale", cutoff)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Error("entry older than the window must not count as duplicate")
	}
}

func TestDedupRepository_RecordKeepsFirstSeen(t *testing.T) {
	s := openTestStore(t)
	repo := NewDedupRepository(s)

	first := time.Now().UTC().Add(-10 * 24 * time.Hour)
	if err := repo.Record("fp", "video", first); err != nil {
		t.Fatalf("record: %v", err)
	}
	// Second sighting must not refresh the window.
	if err := repo.Record("fp", "video", time.Now().UTC()); err != nil {
		t.Fatalf("re-record: %v", err)
	}

	exists, err := repo.Exists("fp", time.Now().UTC().Add(-5*24*time.Hour))
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Error("re-recording must keep the original first-seen timestamp")
	}
}

func TestDedupRepository_Compaction(t *testing.T) {
	s := openTestStore(t)
	repo := NewDedupRepository(s)

	now := time.Now().UTC()
	if err := repo.Record("old", "forum", now.Add(-60*24*time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := repo.Record("fresh", "forum", now); err != nil {
		t.Fatal(err)
	}

	n, err := repo.DeleteOlderThan(now.Add(-28 * 24 * time.Hour))
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row compacted, got %d", n)
	}

	exists, err := repo.Exists("fresh", now.Add(-28*24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("fresh entry must survive compaction")
	}
}

func TestCostRepository_Totals(t *testing.T) {
	s := openTestStore(t)
	repo := NewCostRepository(s)

	now := time.Now().UTC()
	entries := []CostEntry{
		{RunID: "run-a", Service: "video", Operation: "trending", CostUSD: 0.02, RecordedAt: now},
		{RunID: "run-a", Service: "research", Operation: "query", CostUSD: 0.10, RecordedAt: now},
		{RunID: "run-b", Service: "video", Operation: "trending", CostUSD: 0.05, RecordedAt: now},
	}
	for _, e := range entries {
		if err := repo.Append(e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	runTotal, err := repo.RunTotal("run-a")
	if err != nil {
		t.Fatalf("run total: %v", err)
	}
	if runTotal < 0.119 || runTotal > 0.121 {
		t.Errorf("expected run-a total ~0.12, got %v", runTotal)
	}

	cumulative, err := repo.CumulativeTotal()
	if err != nil {
		t.Fatalf("cumulative total: %v", err)
	}
	if cumulative < 0.169 || cumulative > 0.171 {
		t.Errorf("expected cumulative ~0.17, got %v", cumulative)
	}
}

func TestCostRepository_EmptyTotals(t *testing.T) {
	s := openTestStore(t)
	repo := NewCostRepository(s)

	total, err := repo.CumulativeTotal()
	if err != nil {
		t.Fatalf("cumulative total: %v", err)
	}
	if total != 0 {
		t.Errorf("expected 0 for empty history, got %v", total)
	}
}
