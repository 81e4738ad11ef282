package pipeline

import (
	"context"
	"time"

	"github.com/okoshkin/trendscout/internal/model"
	"github.com/okoshkin/trendscout/internal/sources"
	"github.com/okoshkin/trendscout/internal/worker"
)

// fetchOutcome pairs an adapter's result with its tier for reporting.
type fetchOutcome struct {
	result *model.FetchResult
	tier   model.Tier
}

// fetchCore runs the required sources one after another. Core sources are
// few and rate-limited anyway; sequencing them keeps their failures easy to
// attribute.
func (c *Coordinator) fetchCore(ctx context.Context) []fetchOutcome {
	adapters := c.registry.Core()
	outcomes := make([]fetchOutcome, 0, len(adapters))
	for _, a := range adapters {
		outcomes = append(outcomes, fetchOutcome{
			result: c.fetchOne(ctx, a),
			tier:   model.TierCore,
		})
	}
	return outcomes
}

// fetchStretch fans the best-effort sources out over a bounded worker pool.
// Each adapter gets its own timeout slice; one slow source cannot starve
// the others past the pool's parallelism.
func (c *Coordinator) fetchStretch(ctx context.Context) []fetchOutcome {
	adapters := c.registry.Stretch()
	if len(adapters) == 0 {
		return nil
	}

	pool := worker.NewPool(ctx, c.opts.StretchWorkers)
	pool.Start()
	for _, a := range adapters {
		pool.Submit(&fetchJob{coordinator: c, adapter: a})
	}

	results := pool.Wait()
	outcomes := make([]fetchOutcome, 0, len(results))
	for _, r := range results {
		jr, ok := r.(*fetchJobResult)
		if !ok {
			continue
		}
		outcomes = append(outcomes, fetchOutcome{result: jr.result, tier: model.TierStretch})
	}
	return outcomes
}

// fetchOne invokes a single adapter under the per-source timeout.
func (c *Coordinator) fetchOne(ctx context.Context, a sources.Adapter) *model.FetchResult {
	if c.opts.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.SourceTimeout)
		defer cancel()
	}

	start := time.Now()
	result := a.Fetch(ctx)
	if result.Elapsed == 0 {
		result.Elapsed = time.Since(start)
	}

	c.logger.Info("source fetched",
		"source", string(result.Source),
		"tier", string(a.Tier()),
		"success", result.Success,
		"items", len(result.Items),
		"retries", result.RetryCount,
		"elapsed", result.Elapsed)
	return result
}

// fetchJob adapts one stretch fetch to the worker pool contract.
type fetchJob struct {
	coordinator *Coordinator
	adapter     sources.Adapter
}

func (j *fetchJob) Execute(ctx context.Context) worker.Result {
	return &fetchJobResult{result: j.coordinator.fetchOne(ctx, j.adapter)}
}

// fetchJobResult carries the fetch result through the pool. Err is always
// nil: source failures are data, not job failures.
type fetchJobResult struct {
	result *model.FetchResult
}

func (r *fetchJobResult) Err() error { return nil }
