package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	cfg.Feed.WSURL = "wss://example.test/stream"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Fatalf("backend=%q want sqlite", cfg.Store.Backend)
	}
	if got := cfg.Alerts.Cooldown.Duration; got != 15*time.Minute {
		t.Fatalf("cooldown=%v", got)
	}
	if len(cfg.Engine.TargetDTEs) != 5 {
		t.Fatalf("targets=%v", cfg.Engine.TargetDTEs)
	}
}

func TestLoad_TOMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
mode = "evaluate"
log_level = "debug"

[engine]
target_dtes = [7, 14]
monte_carlo_paths = 1000
max_spot_age = "45s"

[alerts]
cooldown = "30m"
daily_cap = 3

[feed]
source = "replay"
replay_path = "fixtures/day.json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	if cfg.Mode != "evaluate" || cfg.LogLevel != "debug" {
		t.Fatalf("mode=%q level=%q", cfg.Mode, cfg.LogLevel)
	}
	if len(cfg.Engine.TargetDTEs) != 2 || cfg.Engine.TargetDTEs[0] != 7 {
		t.Fatalf("targets=%v", cfg.Engine.TargetDTEs)
	}
	if cfg.Engine.MaxSpotAge.Duration != 45*time.Second {
		t.Fatalf("max_spot_age=%v", cfg.Engine.MaxSpotAge.Duration)
	}
	if cfg.Alerts.Cooldown.Duration != 30*time.Minute {
		t.Fatalf("cooldown=%v", cfg.Alerts.Cooldown.Duration)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Port != 8080 {
		t.Fatalf("port=%d want default", cfg.Server.Port)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SPREADPILOT_STORE_SQLITE_PATH", "/tmp/override.db")
	t.Setenv("SPREADPILOT_ALERTS_DAILY_CAP", "9")
	t.Setenv("SPREADPILOT_ENGINE_STRICT_LIVE", "false")
	t.Setenv("SPREADPILOT_SERVER_CORS_ORIGINS", "https://a.test, https://b.test")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.SQLitePath != "/tmp/override.db" {
		t.Fatalf("sqlite path=%q", cfg.Store.SQLitePath)
	}
	if cfg.Alerts.DailyCap != 9 {
		t.Fatalf("daily cap=%d", cfg.Alerts.DailyCap)
	}
	if cfg.Engine.StrictLive {
		t.Fatal("strict_live should be overridden to false")
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.test" {
		t.Fatalf("cors=%v", cfg.Server.CORSOrigins)
	}
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "dynamo" }},
		{"sqlite without path", func(c *Config) { c.Store.SQLitePath = "" }},
		{"postgres without host", func(c *Config) { c.Store.Backend = "postgres" }},
		{"ws without url", func(c *Config) { c.Feed.WSURL = "" }},
		{"replay without path", func(c *Config) { c.Feed.Source = "replay" }},
		{"unknown feed", func(c *Config) { c.Feed.Source = "csv" }},
		{"s3 without bucket", func(c *Config) { c.S3.Enabled = true; c.S3.Region = "us-east-1" }},
		{"empty targets", func(c *Config) { c.Engine.TargetDTEs = nil }},
		{"target out of range", func(c *Config) { c.Engine.TargetDTEs = []int{60} }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Feed.WSURL = "wss://example.test/stream"
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestValidate_EvaluateModeAllowsMissingWSURL(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "evaluate"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("evaluate mode must not require a ws url: %v", err)
	}
}
