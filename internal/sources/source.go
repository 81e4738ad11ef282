package sources

import (
	"context"

	"github.com/okoshkin/trendscout/internal/model"
)

// Adapter is the single capability every provider family implements.
// Fetch never panics and never returns a partially corrupt batch: the
// result either carries a complete normalized sample with its same-cycle
// baseline, or Success=false with the failure detail. Transient faults are
// retried internally before the result is produced.
type Adapter interface {
	Source() model.Source
	Tier() model.Tier
	Fetch(ctx context.Context) *model.FetchResult
}

// costRecorder is the slice of the cost ledger adapters need.
type costRecorder interface {
	Record(service, operation string, costUSD float64)
}

// nopRecorder lets adapters run without a ledger (tests, dry runs).
type nopRecorder struct{}

func (nopRecorder) Record(string, string, float64) {}

// Registry holds the constructed adapters for a run, split by tier.
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends an adapter.
func (r *Registry) Register(a Adapter) {
	r.adapters = append(r.adapters, a)
}

// All returns every registered adapter in registration order.
func (r *Registry) All() []Adapter {
	return r.adapters
}

// Core returns the required adapters, fetched sequentially.
func (r *Registry) Core() []Adapter {
	return r.byTier(model.TierCore)
}

// Stretch returns the best-effort adapters, fetched in parallel.
func (r *Registry) Stretch() []Adapter {
	return r.byTier(model.TierStretch)
}

func (r *Registry) byTier(tier model.Tier) []Adapter {
	var out []Adapter
	for _, a := range r.adapters {
		if a.Tier() == tier {
			out = append(out, a)
		}
	}
	return out
}

// Filter returns a registry restricted to the named sources. An empty
// selection keeps everything.
func (r *Registry) Filter(names []string) *Registry {
	if len(names) == 0 {
		return r
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	filtered := NewRegistry()
	for _, a := range r.adapters {
		if want[string(a.Source())] {
			filtered.Register(a)
		}
	}
	return filtered
}
