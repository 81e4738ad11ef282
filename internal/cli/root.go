package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/okoshkin/trendscout/internal/model"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "trendscout",
	Short: "Trendscout - cross-source trending content radar",
	Long: `Trendscout collects trending content from heterogeneous providers
(forums, video platforms, research queries, social feeds, commerce sites),
scores each item against its source's own engagement baseline, suppresses
content already surfaced within the lookback window, and emits a single
ranked manifest per run.

An item's score measures how far it sits above what is normal for its
source, not how big its raw numbers are.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("trendscout v0.3.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.trendscout/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".trendscout"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match TRENDSCOUT_*
	viper.SetEnvPrefix("TRENDSCOUT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig builds the effective configuration: defaults, then the config
// file, then TRENDSCOUT_* environment overrides and credentials. Flags are
// applied by each command on top of this.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if path := viper.ConfigFileUsed(); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	// Credentials never live in the file.
	cfg.Sources.Video.APIKey = os.Getenv("VIDEO_API_KEY")
	cfg.Sources.Research.APIKey = os.Getenv("RESEARCH_API_KEY")

	// Forum listings expect a descriptive UA; honor the conventional
	// variable when it is set.
	if ua := os.Getenv("REDDIT_USER_AGENT"); ua != "" {
		cfg.HTTP.UserAgent = ua
	}

	cfg.Output.Verbose = verbose
	return cfg, nil
}

// applyEnvOverrides layers TRENDSCOUT_* environment variables over the file
// values via viper's automatic env lookup (TRENDSCOUT_MIN_SCORE,
// TRENDSCOUT_OUTPUT_DIR, and so on).
func applyEnvOverrides(cfg *model.Config) {
	if v := viper.GetString("user_agent"); v != "" {
		cfg.HTTP.UserAgent = v
	}
	if v := viper.GetFloat64("min_score"); v > 0 {
		cfg.Score.MinScore = v
	}
	if v := viper.GetInt("dedup_window_weeks"); v > 0 {
		cfg.Dedup.WindowWeeks = v
	}
	if v := viper.GetString("db_path"); v != "" {
		cfg.Dedup.DBPath = v
	}
	if v := viper.GetString("cache_dir"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := viper.GetString("output_dir"); v != "" {
		cfg.Output.Dir = v
	}
}

// newLogger builds the run logger. Verbose mode turns on debug records,
// including pipeline stage transitions.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
