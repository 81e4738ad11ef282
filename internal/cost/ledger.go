package cost

import (
	"log/slog"
	"sync"
	"time"

	"github.com/okoshkin/trendscout/internal/store"
)

// Entry is one per-call cost estimate inside the current run.
type Entry struct {
	Service    string    `json:"service"`
	Operation  string    `json:"operation"`
	CostUSD    float64   `json:"cost_usd"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Thresholds configure the warning levels. Breaches warn and nothing
// else: cost is never a reason to halt an unattended run.
type Thresholds struct {
	PerCallUSD float64
	PerRunUSD  float64
}

// Ledger is the append-only record of per-call cost estimates for one run.
// Safe under concurrent writers (stretch adapters record from the worker
// pool). When a repository is attached, every entry is also persisted into
// the cumulative cross-run history.
type Ledger struct {
	mu         sync.Mutex
	runID      string
	entries    []Entry
	total      float64
	thresholds Thresholds
	warnedRun  bool
	repo       *store.CostRepository // nil disables persistence
	logger     *slog.Logger
}

// NewLedger creates a ledger for the given run. repo may be nil.
func NewLedger(runID string, thresholds Thresholds, repo *store.CostRepository, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		runID:      runID,
		thresholds: thresholds,
		repo:       repo,
		logger:     logger,
	}
}

// Record appends one cost estimate. Threshold breaches are warnings only.
// Persistence failures are also warnings: the in-memory run total stays
// authoritative for the manifest.
func (l *Ledger) Record(service, operation string, costUSD float64) {
	now := time.Now().UTC()
	entry := Entry{Service: service, Operation: operation, CostUSD: costUSD, RecordedAt: now}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.total += costUSD
	total := l.total
	warnRun := !l.warnedRun && l.thresholds.PerRunUSD > 0 && total > l.thresholds.PerRunUSD
	if warnRun {
		l.warnedRun = true
	}
	l.mu.Unlock()

	if l.thresholds.PerCallUSD > 0 && costUSD > l.thresholds.PerCallUSD {
		l.logger.Warn("single call exceeded cost threshold",
			"service", service, "operation", operation,
			"cost_usd", costUSD, "threshold_usd", l.thresholds.PerCallUSD)
	}
	if warnRun {
		l.logger.Warn("run total exceeded cost threshold",
			"run_id", l.runID, "total_usd", total, "threshold_usd", l.thresholds.PerRunUSD)
	}

	if l.repo != nil {
		err := l.repo.Append(store.CostEntry{
			RunID:      l.runID,
			Service:    service,
			Operation:  operation,
			CostUSD:    costUSD,
			RecordedAt: now,
		})
		if err != nil {
			l.logger.Warn("failed to persist cost entry", "error", err)
		}
	}
}

// RunTotal returns the running total for the current run.
func (l *Ledger) RunTotal() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Entries returns a copy of the run's entries in record order.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// CumulativeTotal returns the persisted all-runs total, including the
// current run's persisted entries. Without a repository it falls back to
// the run total.
func (l *Ledger) CumulativeTotal() (float64, error) {
	if l.repo == nil {
		return l.RunTotal(), nil
	}
	return l.repo.CumulativeTotal()
}
