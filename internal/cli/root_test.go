package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/okoshkin/trendscout/internal/model"
)

func writeTestConfig(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })
	initConfig()
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	writeTestConfig(t, "score:\n  min_score: 5.0\noutput:\n  dir: ./from-file\n")
	t.Setenv("TRENDSCOUT_MIN_SCORE", "7.5")
	t.Setenv("TRENDSCOUT_OUTPUT_DIR", "./from-env")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Score.MinScore != 7.5 {
		t.Errorf("env must beat the file value, got min_score=%v", cfg.Score.MinScore)
	}
	if cfg.Output.Dir != "./from-env" {
		t.Errorf("env must beat the file value, got output dir %q", cfg.Output.Dir)
	}
}

func TestLoadConfig_FileValueKeptWithoutEnv(t *testing.T) {
	writeTestConfig(t, "score:\n  min_score: 5.0\n")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Score.MinScore != 5.0 {
		t.Errorf("expected the file value 5.0, got %v", cfg.Score.MinScore)
	}
}

func TestLoadConfig_CredentialsFromEnv(t *testing.T) {
	writeTestConfig(t, "")
	t.Setenv("VIDEO_API_KEY", "vid-secret")
	t.Setenv("RESEARCH_API_KEY", "res-secret")
	t.Setenv("REDDIT_USER_AGENT", "trendscout-test-agent")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Sources.Video.APIKey != "vid-secret" || cfg.Sources.Research.APIKey != "res-secret" {
		t.Error("credentials must come from the environment")
	}
	if cfg.HTTP.UserAgent != "trendscout-test-agent" {
		t.Errorf("expected the forum user agent honored, got %q", cfg.HTTP.UserAgent)
	}
}

func TestApplyRunFlags_ExplicitZeroMinScore(t *testing.T) {
	cfg := model.DefaultConfig()

	// Untouched flag keeps the configured threshold.
	applyRunFlags(runCmd, cfg)
	if cfg.Score.MinScore != 3.0 {
		t.Fatalf("expected the default threshold kept, got %v", cfg.Score.MinScore)
	}

	// An explicit --min-score 0 disables filtering entirely.
	if err := runCmd.Flags().Set("min-score", "0"); err != nil {
		t.Fatal(err)
	}
	applyRunFlags(runCmd, cfg)
	if cfg.Score.MinScore != 0 {
		t.Errorf("explicit zero must lower the threshold, got %v", cfg.Score.MinScore)
	}
}
