package model

import "time"

// FetchResult is the outcome of one adapter invocation. Adapters never
// return a partially corrupt batch: either Items is a complete normalized
// sample or Success is false with Error set.
type FetchResult struct {
	Source     Source         `json:"source"`
	Success    bool           `json:"success"`
	Items      []ContentItem  `json:"items,omitempty"`
	Baseline   SourceBaseline `json:"baseline"`
	Error      string         `json:"error,omitempty"`
	RetryCount int            `json:"retry_count"`
	Elapsed    time.Duration  `json:"elapsed"`
	CostUSD    float64        `json:"cost_usd"`
}

// SourceReport summarizes one source's contribution to a run.
type SourceReport struct {
	Source     Source `json:"source"`
	Tier       Tier   `json:"tier"`
	Success    bool   `json:"success"`
	ItemCount  int    `json:"item_count"`
	Duplicates int    `json:"duplicates"`
	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry_count"`
}

// Manifest is the final output of a pipeline run: a sorted, deduplicated,
// scored item list plus per-source outcome metadata. It is the sole
// interface surface for downstream consumers.
type Manifest struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Success     bool           `json:"success"` // false only when every source failed
	Items       []ContentItem  `json:"items"`
	Sources     []SourceReport `json:"sources"`
	TotalCost   float64        `json:"total_cost_usd"`

	// CumulativeCost is the persisted all-runs spend including this run;
	// zero when no cost history is available.
	CumulativeCost float64 `json:"cumulative_cost_usd,omitempty"`
}

// SucceededSources returns how many sources contributed items.
func (m *Manifest) SucceededSources() int {
	n := 0
	for _, s := range m.Sources {
		if s.Success {
			n++
		}
	}
	return n
}
