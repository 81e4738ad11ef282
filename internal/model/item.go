package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Source identifies a provider family.
type Source string

const (
	SourceForum    Source = "forum"    // forum-style listing (upvote driven)
	SourceVideo    Source = "video"    // video platform (trending API with raw-stats fallback)
	SourceResearch Source = "research" // LLM-backed research query provider
	SourceSocial   Source = "social"   // short-form social trends
	SourceCommerce Source = "commerce" // commerce trending products
)

// Tier classifies how the pipeline treats a source.
type Tier string

const (
	TierCore    Tier = "core"    // required, fetched sequentially
	TierStretch Tier = "stretch" // best-effort, fetched in parallel
)

// Engagement is the shared metric shape all adapters normalize into.
// Primary is the counter the scorer compares against the source baseline
// (upvotes, views, reblogs+favourites, review velocity - whatever the
// provider's dominant signal is). Secondary counters ride along for export.
type Engagement struct {
	Primary   float64            `json:"primary"`
	Secondary map[string]float64 `json:"secondary,omitempty"`
}

// ContentItem is one piece of candidate content in its normalized form.
// Created by an adapter, annotated by the scorer, checked (never mutated)
// by the deduplicator. Once placed into a Manifest it is immutable.
type ContentItem struct {
	ID          string            `json:"id"`               // provider-native identifier or composite key
	Source      Source            `json:"source"`
	Title       string            `json:"title"`
	Excerpt     string            `json:"excerpt,omitempty"`
	URL         string            `json:"url,omitempty"`
	Engagement  Engagement        `json:"engagement"`
	PublishedAt *time.Time        `json:"published_at,omitempty"` // nil means unknown age
	Metadata    map[string]string `json:"metadata,omitempty"`     // provider-specific extras, opaque to the pipeline

	// OutlierScore is zero until the scorer annotates the item.
	OutlierScore float64 `json:"outlier_score"`
}

// Fingerprint returns the deterministic dedup identity of the item:
// sha256 over source plus the stable identifier. It depends only on
// immutable fields, never on the score or metadata.
func (c ContentItem) Fingerprint() string {
	return Fingerprint(c.Source, c.ID)
}

// Fingerprint hashes a source and a stable identifier into a dedup key.
func Fingerprint(source Source, id string) string {
	h := sha256.Sum256([]byte(string(source) + "\x00" + id))
	return hex.EncodeToString(h[:])
}

// CompositeID builds a stable identifier for providers that expose no
// native id: the topic slug plus the publication date (day precision).
// Items with the same topic on the same day collapse to one fingerprint.
func CompositeID(topic string, published *time.Time) string {
	day := "unknown"
	if published != nil {
		day = published.UTC().Format("2006-01-02")
	}
	return topic + "@" + day
}

// SourceBaseline is a per-source average of "normal" engagement, computed
// fresh each fetch cycle from the same sample the adapter returned. It is
// never persisted across cycles.
type SourceBaseline struct {
	Source     Source  `json:"source"`
	Average    float64 `json:"average"`
	SampleSize int     `json:"sample_size"`
}

// BaselineFromSample computes the mean primary engagement of a batch.
func BaselineFromSample(source Source, items []ContentItem) SourceBaseline {
	b := SourceBaseline{Source: source, SampleSize: len(items)}
	if len(items) == 0 {
		return b
	}
	var sum float64
	for _, it := range items {
		sum += it.Engagement.Primary
	}
	b.Average = sum / float64(len(items))
	return b
}
