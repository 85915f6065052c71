package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_PassesValidation(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	if cfg.Arb.MinProfitRate != 0.005 || cfg.Arb.MinSpreadMultiplier != 0.5 {
		t.Errorf("unexpected arb defaults: %+v", cfg.Arb)
	}
	if cfg.Sniper.TargetPrice != 0.50 || cfg.Sniper.MinGap != 0.02 {
		t.Errorf("unexpected sniper defaults: %+v", cfg.Sniper)
	}
	if cfg.Decision.WindowSize != 5 || cfg.Decision.DeepDiscountThreshold != 0.42 {
		t.Errorf("unexpected decision defaults: %+v", cfg.Decision)
	}
	if cfg.Risk.MaxRunLoss != -100 || cfg.Risk.MaxPositionSize != 500 {
		t.Errorf("unexpected risk defaults: %+v", cfg.Risk)
	}
	if cfg.Backtest.InitialCash != 10000 {
		t.Errorf("unexpected initial cash: %f", cfg.Backtest.InitialCash)
	}
	if cfg.Feed.Seed != 42 {
		t.Errorf("unexpected feed seed: %d", cfg.Feed.Seed)
	}
	if cfg.OpenAI.Enabled {
		t.Errorf("openai should be disabled by default")
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
app:
  environment: test
sniper:
  target_price: 0.60
  min_gap: 0.05
openai:
  enabled: false
  timeout: 30s
database:
  in_memory: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.Environment != "test" {
		t.Errorf("environment: got %q", cfg.App.Environment)
	}
	if cfg.Sniper.TargetPrice != 0.60 || cfg.Sniper.MinGap != 0.05 {
		t.Errorf("file values should override defaults: %+v", cfg.Sniper)
	}
	// 未覆盖的键保持默认
	if cfg.Arb.MinProfitRate != 0.005 {
		t.Errorf("untouched keys should keep defaults: %+v", cfg.Arb)
	}
	if cfg.OpenAI.Timeout != 30*time.Second {
		t.Errorf("duration decode failed: %v", cfg.OpenAI.Timeout)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("missing config file should fail")
	}
}

func TestValidate_CatchesBadValues(t *testing.T) {
	mutations := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty environment", func(c *Config) { c.App.Environment = "" }},
		{"bad report port", func(c *Config) { c.App.ReportPort = 70000 }},
		{"arb rate out of range", func(c *Config) { c.Arb.MinProfitRate = 1.5 }},
		{"sniper target out of range", func(c *Config) { c.Sniper.TargetPrice = 0 }},
		{"zero window", func(c *Config) { c.Decision.WindowSize = 0 }},
		{"openai enabled without key", func(c *Config) { c.OpenAI.Enabled = true; c.OpenAI.APIKey = "" }},
		{"risk loss floor positive", func(c *Config) { c.Risk.Enabled = true; c.Risk.MaxRunLoss = 100 }},
		{"book replenish rate", func(c *Config) { c.Book.Enabled = true; c.Book.ReplenishRate = 1.5 }},
		{"zero initial cash", func(c *Config) { c.Backtest.InitialCash = 0 }},
		{"feed base price", func(c *Config) { c.Feed.BasePrice = 1.2 }},
		{"empty database path", func(c *Config) { c.Database.Path = ""; c.Database.InMemory = false }},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }},
	}

	for _, tc := range mutations {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation failure")
			}
		})
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := Default()
	cfg.App.Environment = ""
	cfg.Backtest.InitialCash = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation failure")
	}
	// multierr 聚合：两条错误都应出现在消息里
	msg := err.Error()
	if !strings.Contains(msg, "app.environment") || !strings.Contains(msg, "backtest.initial_cash") {
		t.Errorf("expected both errors reported, got %q", msg)
	}
}
