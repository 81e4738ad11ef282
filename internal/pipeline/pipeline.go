package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/okoshkin/trendscout/internal/cost"
	"github.com/okoshkin/trendscout/internal/dedup"
	"github.com/okoshkin/trendscout/internal/model"
	"github.com/okoshkin/trendscout/internal/score"
	"github.com/okoshkin/trendscout/internal/sources"
)

// Stage names the coordinator's position in the run lifecycle. Transitions
// are strictly forward; a run that reaches StageFailed produced an empty
// manifest with Success=false rather than no manifest at all.
type Stage string

const (
	StageInit         Stage = "init"
	StageFetchCore    Stage = "fetch_core"
	StageFetchStretch Stage = "fetch_stretch"
	StageDedup        Stage = "dedup"
	StageScore        Stage = "score"
	StageMerge        Stage = "merge"
	StageEmit         Stage = "emit"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// Options bound one coordinator run.
type Options struct {
	MinScore       float64
	StretchWorkers int
	SourceTimeout  time.Duration // per-adapter budget, 0 means unbounded
}

// Coordinator drives one collection cycle: core sources sequentially,
// stretch sources in parallel, then dedup, score, merge and emit. Source
// failures are contained per source; the run as a whole fails only when
// every adapter does.
type Coordinator struct {
	registry *sources.Registry
	scorer   *score.Scorer
	deduper  *dedup.Deduplicator
	ledger   *cost.Ledger
	logger   *slog.Logger
	opts     Options

	stage Stage
}

// NewCoordinator wires a coordinator. The deduplicator and ledger may be
// nil, which disables those stages' side effects (dry runs, tests).
func NewCoordinator(registry *sources.Registry, scorer *score.Scorer, deduper *dedup.Deduplicator, ledger *cost.Ledger, logger *slog.Logger, opts Options) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.StretchWorkers <= 0 {
		opts.StretchWorkers = 3
	}
	return &Coordinator{
		registry: registry,
		scorer:   scorer,
		deduper:  deduper,
		ledger:   ledger,
		logger:   logger,
		opts:     opts,
		stage:    StageInit,
	}
}

// Stage returns the coordinator's current lifecycle position.
func (c *Coordinator) Stage() Stage { return c.stage }

func (c *Coordinator) transition(to Stage) {
	c.logger.Debug("pipeline stage", "from", string(c.stage), "to", string(to))
	c.stage = to
}

// Run executes one full cycle and always returns a manifest. The error is
// non-nil only for the all-sources-failed case; the manifest then carries
// Success=false, an empty item list and the per-source failure details, so
// downstream consumers see a complete (if empty) artifact either way.
func (c *Coordinator) Run(ctx context.Context, runID string) (*model.Manifest, error) {
	manifest := &model.Manifest{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Items:       []model.ContentItem{},
	}

	c.transition(StageFetchCore)
	results := c.fetchCore(ctx)

	c.transition(StageFetchStretch)
	results = append(results, c.fetchStretch(ctx)...)

	reports := make([]model.SourceReport, len(results))
	anySuccess := false
	for i, fr := range results {
		reports[i] = model.SourceReport{
			Source:     fr.result.Source,
			Tier:       fr.tier,
			Success:    fr.result.Success,
			Error:      fr.result.Error,
			RetryCount: fr.result.RetryCount,
		}
		if fr.result.Success {
			anySuccess = true
		} else {
			c.logger.Warn("source failed",
				"source", string(fr.result.Source),
				"tier", string(fr.tier),
				"error", fr.result.Error)
		}
	}

	c.transition(StageDedup)
	fresh := make([][]model.ContentItem, len(results))
	for i, fr := range results {
		if !fr.result.Success {
			continue
		}
		var duplicates int
		fresh[i], duplicates = c.dropDuplicates(fr.result.Items)
		reports[i].Duplicates = duplicates
	}

	c.transition(StageScore)
	var scored []model.ContentItem
	for i, fr := range results {
		if !fr.result.Success {
			continue
		}
		kept := c.scoreAndFilter(fresh[i], fr.result.Baseline)
		reports[i].ItemCount = len(kept)
		scored = append(scored, kept...)
	}

	c.transition(StageMerge)
	sortItems(scored)
	if scored != nil {
		manifest.Items = scored
	}
	manifest.Sources = reports
	if c.ledger != nil {
		manifest.TotalCost = c.ledger.RunTotal()
		if cumulative, err := c.ledger.CumulativeTotal(); err == nil {
			manifest.CumulativeCost = cumulative
		} else {
			c.logger.Warn("cost history unavailable", "error", err)
		}
	}

	c.transition(StageEmit)
	c.recordEmitted(manifest.Items)
	c.compactWindow()

	if !anySuccess {
		c.transition(StageFailed)
		return manifest, fmt.Errorf("all sources failed")
	}

	manifest.Success = true
	c.transition(StageDone)
	return manifest, nil
}

// dropDuplicates removes items already surfaced within the dedup window.
// A lookup failure counts the item as fresh: losing the dedup store must
// degrade to occasional repeats, never to dropped content.
func (c *Coordinator) dropDuplicates(items []model.ContentItem) ([]model.ContentItem, int) {
	if c.deduper == nil {
		return items, 0
	}
	fresh := make([]model.ContentItem, 0, len(items))
	duplicates := 0
	for _, item := range items {
		dup, err := c.deduper.IsDuplicate(item.Fingerprint())
		if err != nil {
			c.logger.Warn("dedup lookup failed, keeping item",
				"source", string(item.Source), "id", item.ID, "error", err)
			fresh = append(fresh, item)
			continue
		}
		if dup {
			duplicates++
			continue
		}
		fresh = append(fresh, item)
	}
	return fresh, duplicates
}

// scoreAndFilter annotates the batch against its same-cycle baseline and
// keeps only items that clear the outlier threshold.
func (c *Coordinator) scoreAndFilter(items []model.ContentItem, baseline model.SourceBaseline) []model.ContentItem {
	items = c.scorer.Annotate(items, baseline)
	kept := items[:0]
	for _, item := range items {
		if item.OutlierScore >= c.opts.MinScore {
			kept = append(kept, item)
		}
	}
	return kept
}

// recordEmitted fingerprints the items that actually reached the manifest.
// Sub-threshold items are deliberately not recorded: content that was never
// surfaced may still spike later and deserve a fresh look.
func (c *Coordinator) recordEmitted(items []model.ContentItem) {
	if c.deduper == nil {
		return
	}
	now := time.Now().UTC()
	for _, item := range items {
		if err := c.deduper.Record(item.Fingerprint(), item.Source, now); err != nil {
			c.logger.Warn("failed to record fingerprint",
				"source", string(item.Source), "id", item.ID, "error", err)
		}
	}
}

// compactWindow drops fingerprints that fell out of the lookback window.
// Lazy expiry already excludes them from lookups; this only bounds storage.
func (c *Coordinator) compactWindow() {
	if c.deduper == nil {
		return
	}
	deleted, err := c.deduper.Compact()
	if err != nil {
		c.logger.Warn("dedup compaction failed", "error", err)
		return
	}
	if deleted > 0 {
		c.logger.Info("dedup window compacted", "deleted", deleted)
	}
}

// sortItems orders the merged manifest: outlier score descending, then
// newest first, then ID so equal items have a stable order.
func sortItems(items []model.ContentItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.OutlierScore != b.OutlierScore {
			return a.OutlierScore > b.OutlierScore
		}
		at, bt := publishedOrZero(a), publishedOrZero(b)
		if !at.Equal(bt) {
			return at.After(bt)
		}
		return a.ID < b.ID
	})
}

func publishedOrZero(item model.ContentItem) time.Time {
	if item.PublishedAt == nil {
		return time.Time{}
	}
	return *item.PublishedAt
}

// NewRunID returns a unique run identifier: UTC timestamp plus a short
// random suffix, sortable by generation time.
func NewRunID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return time.Now().UTC().Format("20060102T150405Z") + "-" + hex.EncodeToString(b[:])
}
