package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/okoshkin/trendscout/internal/cache"
	"github.com/okoshkin/trendscout/internal/cost"
	"github.com/okoshkin/trendscout/internal/dedup"
	"github.com/okoshkin/trendscout/internal/model"
	"github.com/okoshkin/trendscout/internal/pipeline"
	"github.com/okoshkin/trendscout/internal/retry"
	"github.com/okoshkin/trendscout/internal/score"
	"github.com/okoshkin/trendscout/internal/sources"
	"github.com/okoshkin/trendscout/internal/store"
	"github.com/okoshkin/trendscout/internal/util"
)

var (
	outputDir   string
	runTimeout  time.Duration
	minScore    float64
	selectNames []string
	noCache     bool
	noDedup     bool
	dbPath      string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one collection cycle and emit a ranked manifest",
	Long: `Run executes one full cycle:
- Fetch core sources sequentially, stretch sources in parallel
- Drop items already surfaced within the dedup window
- Score survivors against their source's same-cycle baseline
- Write the merged, ranked manifest as JSON and CSV

A source failure is contained to that source; the run fails only when
every source does, and even then an empty manifest is written.

Example:
  trendscout run
  trendscout run --sources forum,video --min-score 5
  trendscout run --output-dir ./out --timeout 5m --no-cache`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&outputDir, "output-dir", "", "manifest output directory (default from config)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 10*time.Minute, "overall run timeout")
	runCmd.Flags().Float64Var(&minScore, "min-score", 0, "override the outlier score threshold")
	runCmd.Flags().StringSliceVar(&selectNames, "sources", nil, "only run the named sources (comma separated)")
	runCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the raw-response cache (force fresh fetches)")
	runCmd.Flags().BoolVar(&noDedup, "no-dedup", false, "skip duplicate suppression and fingerprint recording")
	runCmd.Flags().StringVar(&dbPath, "db", "", "state database path (default from config)")
}

// applyRunFlags layers explicitly set run flags over the loaded config.
// min-score goes through Changed so an explicit --min-score 0 can disable
// the threshold entirely.
func applyRunFlags(cmd *cobra.Command, cfg *model.Config) {
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if cmd.Flags().Changed("min-score") {
		cfg.Score.MinScore = minScore
	}
	if len(selectNames) > 0 {
		cfg.Sources.Select = selectNames
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if dbPath != "" {
		cfg.Dedup.DBPath = dbPath
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)

	logger := newLogger()
	runID := pipeline.NewRunID()
	logger.Info("starting run", "run_id", runID)

	// State database: losing it degrades to a dedup-less run with an
	// unpersisted cost ledger, never to a failed run.
	var (
		deduper  *dedup.Deduplicator
		costRepo *store.CostRepository
	)
	if !noDedup {
		st, err := store.Open(cfg.Dedup.DBPath)
		if err != nil {
			logger.Warn("state database unavailable, continuing without dedup", "error", err)
		} else {
			defer func() { _ = st.Close() }()
			window := time.Duration(cfg.Dedup.WindowWeeks) * 7 * 24 * time.Hour
			deduper = dedup.New(store.NewDedupRepository(st), window)
			costRepo = store.NewCostRepository(st)
		}
	}

	ledger := cost.NewLedger(runID, cost.Thresholds{
		PerCallUSD: cfg.Cost.PerCallWarnUSD,
		PerRunUSD:  cfg.Cost.PerRunWarnUSD,
	}, costRepo, logger)

	var respCache cache.Cache
	if cfg.Cache.Enabled {
		respCache = cache.NewLayeredCache(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
	}

	registry := sources.Build(cfg.Sources, sources.Deps{
		Client: sources.NewClient(cfg.HTTP, respCache, cfg.Cache.TTL, logger),
		Exec: retry.NewExecutor(retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
		}),
		Ledger: ledger,
		Robots: util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout),
		Logger: logger,
	})
	if len(registry.All()) == 0 {
		return fmt.Errorf("no sources enabled (check config or --sources)")
	}

	coordinator := pipeline.NewCoordinator(registry, score.NewScorer(time.Now()),
		deduper, ledger, logger, pipeline.Options{
			MinScore:       cfg.Score.MinScore,
			StretchWorkers: cfg.Concurrency.StretchWorkers,
			SourceTimeout:  cfg.Concurrency.SourceTimeout,
		})

	manifest, runErr := coordinator.Run(ctx, runID)

	// The manifest is written whatever the outcome: an all-failed run
	// still leaves a complete (empty) artifact for downstream consumers.
	path, err := pipeline.NewRenderer(cfg.Output.Dir).Write(manifest)
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	logger.Info("manifest written", "path", path, "items", len(manifest.Items))

	pipeline.Summary(os.Stdout, manifest, cfg.Output.Verbose)

	if runErr != nil {
		return fmt.Errorf("run %s: %w", runID, runErr)
	}
	return nil
}
