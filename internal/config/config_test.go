package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MARKET_DIGEST_CONFIG", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg := Load()

	if cfg.Storage.MarketDBPath != "data/finance_data.db" {
		t.Fatalf("default market db path wrong: %s", cfg.Storage.MarketDBPath)
	}
	if cfg.Strategy.CEF.MinDiscount != -8.0 || cfg.Strategy.CEF.MaxZScore != -2.0 {
		t.Fatalf("default cef thresholds wrong: %+v", cfg.Strategy.CEF)
	}
	if cfg.Strategy.Cbond.MaxDoubleLow != 195.0 {
		t.Fatalf("default cbond threshold wrong: %+v", cfg.Strategy.Cbond)
	}
	if len(cfg.News.Feeds) == 0 || len(cfg.News.Categories) == 0 {
		t.Fatalf("default news config empty: %+v", cfg.News)
	}
	if cfg.Scheduler.Interval() != 24*time.Hour {
		t.Fatalf("default interval wrong: %s", cfg.Scheduler.Interval())
	}
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
storage:
  outputDir: reports
strategy:
  lof:
    minPremiumRate: 7.5
scheduler:
  intervalHours: 6
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("MARKET_DIGEST_CONFIG", path)
	t.Setenv("GEMINI_API_KEY", "from-env")
	t.Setenv("OUTPUT_DIR", "env-reports")

	cfg := Load()

	if cfg.Strategy.LOF.MinPremiumRate != 7.5 {
		t.Fatalf("yaml override lost: %+v", cfg.Strategy.LOF)
	}
	// Untouched yaml keys keep their defaults.
	if cfg.Strategy.QDII.MinPremiumRate != 5.0 {
		t.Fatalf("default qdii threshold lost: %+v", cfg.Strategy.QDII)
	}
	if cfg.Scheduler.Interval() != 6*time.Hour {
		t.Fatalf("interval override lost: %s", cfg.Scheduler.Interval())
	}
	if cfg.Gemini.APIKey != "from-env" {
		t.Fatalf("env override lost: %q", cfg.Gemini.APIKey)
	}
	// Env beats yaml for paths.
	if cfg.Storage.OutputDir != "env-reports" {
		t.Fatalf("env path override lost: %q", cfg.Storage.OutputDir)
	}
}

func TestFundConfigWanConversion(t *testing.T) {
	t.Parallel()

	f := FundConfig{MinFundShare: 20000000, MinTurnover: 1000000}
	if f.MinFundShareWan() != 2000 {
		t.Fatalf("share wan conversion wrong: %v", f.MinFundShareWan())
	}
	if f.MinTurnoverWan() != 100 {
		t.Fatalf("turnover wan conversion wrong: %v", f.MinTurnoverWan())
	}
}
