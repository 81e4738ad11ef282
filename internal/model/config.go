package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds the full runtime configuration. Defaults are overridden by
// the config file, environment variables, then CLI flags.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Sources     SourcesConfig     `yaml:"sources"`
	Score       ScoreConfig       `yaml:"score"`
	Dedup       DedupConfig       `yaml:"dedup"`
	Cost        CostConfig        `yaml:"cost"`
	Cache       CacheConfig       `yaml:"cache"`
	Retry       RetryConfig       `yaml:"retry"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Output      OutputConfig      `yaml:"output"`
}

// HTTPConfig controls the shared HTTP behavior of all adapters.
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	UserAgent     string        `yaml:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes"`
	RatePerSecond float64       `yaml:"rate_per_second"` // per-host request rate
	RateBurst     int           `yaml:"rate_burst"`
}

// SourceConfig is the per-source slice of configuration.
type SourceConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint,omitempty"` // override for tests / self-hosted instances
	APIKey   string `yaml:"-"`                  // credentials come from env, never the file
	Extra    string `yaml:"extra,omitempty"`    // provider-specific knob (subreddit, tag, category)
	Limit    int    `yaml:"limit"`              // sample size per cycle
}

// SourcesConfig enables and parameterizes each provider family.
type SourcesConfig struct {
	// Only lists the sources to run when non-empty; otherwise every
	// enabled source runs.
	Select []string `yaml:"select,omitempty"`

	Forum    SourceConfig `yaml:"forum"`
	Video    SourceConfig `yaml:"video"`
	Research SourceConfig `yaml:"research"`
	Social   SourceConfig `yaml:"social"`
	Commerce SourceConfig `yaml:"commerce"`
}

// ScoreConfig controls the outlier scorer and manifest filtering.
type ScoreConfig struct {
	MinScore float64 `yaml:"min_score"` // items below this never reach the manifest
}

// DedupConfig controls the time-windowed fingerprint store.
type DedupConfig struct {
	WindowWeeks int    `yaml:"window_weeks"`
	DBPath      string `yaml:"db_path"`
}

// CostConfig controls ledger warning thresholds. Breaching a threshold
// only warns; it never halts a run.
type CostConfig struct {
	PerCallWarnUSD float64 `yaml:"per_call_warn_usd"`
	PerRunWarnUSD  float64 `yaml:"per_run_warn_usd"`
}

// CacheConfig controls the per-source raw-response cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl"`
}

// RetryConfig controls the backoff executor defaults.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// ConcurrencyConfig bounds the stretch-source fan-out.
type ConcurrencyConfig struct {
	StretchWorkers int           `yaml:"stretch_workers"`
	SourceTimeout  time.Duration `yaml:"source_timeout"` // per-adapter budget inside the run
}

// OutputConfig controls manifest rendering.
type OutputConfig struct {
	Dir     string `yaml:"dir"`
	Verbose bool   `yaml:"verbose"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	stateDir := filepath.Join(home, ".trendscout")

	return &Config{
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "trendscout/0.3 (+https://github.com/okoshkin/trendscout)",
			MaxBodyBytes:  4_000_000,
			RatePerSecond: 1,
			RateBurst:     3,
		},
		Sources: SourcesConfig{
			Forum:    SourceConfig{Enabled: true, Extra: "all", Limit: 50},
			Video:    SourceConfig{Enabled: true, Limit: 50},
			Research: SourceConfig{Enabled: false, Limit: 10},
			Social:   SourceConfig{Enabled: false, Extra: "", Limit: 40},
			Commerce: SourceConfig{Enabled: false, Limit: 30},
		},
		Score: ScoreConfig{
			MinScore: 3.0,
		},
		Dedup: DedupConfig{
			WindowWeeks: 4,
			DBPath:      filepath.Join(stateDir, "trendscout.db"),
		},
		Cost: CostConfig{
			PerCallWarnUSD: 0.50,
			PerRunWarnUSD:  5.00,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     filepath.Join(stateDir, "cache"),
			TTL:     24 * time.Hour,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    4 * time.Second,
		},
		Concurrency: ConcurrencyConfig{
			StretchWorkers: 3,
			SourceTimeout:  2 * time.Minute,
		},
		Output: OutputConfig{
			Dir: "./manifests",
		},
	}
}
