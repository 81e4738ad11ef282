package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestKey_PerSourcePerDay(t *testing.T) {
	day := time.Date(2025, 6, 15, 23, 50, 0, 0, time.UTC)

	k := Key("forum", "https://example.com/top.json", day)
	if !strings.HasPrefix(k, "forum/2025-06-15/") {
		t.Errorf("unexpected key layout: %s", k)
	}

	// Same URL on a different day is a different snapshot.
	other := Key("forum", "https://example.com/top.json", day.Add(24*time.Hour))
	if k == other {
		t.Error("keys for different days must differ")
	}

	// Deterministic for identical inputs.
	if k != Key("forum", "https://example.com/top.json", day) {
		t.Error("key must be deterministic")
	}
}

func TestDiskCache_RoundTripAndLayout(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	key := Key("video", "https://example.com/trending", time.Now())
	if err := c.Set(key, []byte(`{"items":[]}`), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, found := c.Get(key)
	if !found {
		t.Fatal("expected cache hit")
	}
	if string(got) != `{"items":[]}` {
		t.Errorf("unexpected payload %q", got)
	}

	// The layout must be browsable per source.
	entries, err := os.ReadDir(filepath.Join(dir, "video"))
	if err != nil || len(entries) != 1 {
		t.Errorf("expected a video/ subdirectory with one day: %v", err)
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)

	key := Key("forum", "u", time.Now())
	if err := c.Set(key, []byte("x"), -time.Second); err != nil {
		t.Fatal(err)
	}
	if _, found := c.Get(key); found {
		t.Error("expired entry must miss")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	c := NewLayeredCache(time.Hour, dir, time.Hour)

	key := Key("social", "https://example.com/api/v1/trends/statuses", time.Now())
	if err := c.Set(key, []byte("payload"), 0); err != nil {
		t.Fatal(err)
	}

	// A second layered cache over the same dir simulates a new process:
	// memory is cold, disk still has the entry.
	c2 := NewLayeredCache(time.Hour, dir, time.Hour)
	got, found := c2.Get(key)
	if !found || string(got) != "payload" {
		t.Fatalf("expected disk hit after restart, found=%v", found)
	}
}
