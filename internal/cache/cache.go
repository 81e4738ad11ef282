package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores raw provider responses so runs can be replayed and
// debugged without refetching.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a per-source, per-day cache key for a raw response. The day
// component keeps one snapshot per source per day, which is what replay
// needs for a periodic batch pipeline.
func Key(source, url string, day time.Time) string {
	hash := sha256.Sum256([]byte(url))
	return source + "/" + day.UTC().Format("2006-01-02") + "/" + hex.EncodeToString(hash[:8])
}
