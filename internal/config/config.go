// Package config defines the top-level configuration for the decision
// engine and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SPREADPILOT_* environment
// variables.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Alerts   AlertsConfig   `toml:"alerts"`
	Exits    ExitsConfig    `toml:"exits"`
	Store    StoreConfig    `toml:"store"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Feed     FeedConfig     `toml:"feed"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// EngineConfig holds the evaluation pipeline tuning. Every threshold here
// is a tunable with a documented example default, not a contract.
type EngineConfig struct {
	// TargetDTEs are the expiry buckets evaluated each tick.
	TargetDTEs []int `toml:"target_dtes"`
	// DTETolerance is the max distance between a target and the chosen
	// actual expiry before the bucket yields no candidate.
	DTETolerance int `toml:"dte_tolerance"`
	// MonteCarloPaths is the simulated path count for EV estimation.
	MonteCarloPaths int `toml:"monte_carlo_paths"`
	// TickCron is the cron expression of the evaluation loop.
	TickCron string `toml:"tick_cron"`
	// MaxSpotAge, MaxChainAge, MaxGreeksAge and MaxVIXAge bound feed
	// freshness before the data contract degrades.
	MaxSpotAge   duration `toml:"max_spot_age"`
	MaxChainAge  duration `toml:"max_chain_age"`
	MaxGreeksAge duration `toml:"max_greeks_age"`
	MaxVIXAge    duration `toml:"max_vix_age"`
	// StrictLive blocks entries outright while the contract is degraded.
	StrictLive bool `toml:"strict_live"`
	// MaxSnapshotAge trips the stale-data circuit breaker.
	MaxSnapshotAge duration `toml:"max_snapshot_age"`
	// DesignatedSource, when set, trips the breaker on any other source.
	DesignatedSource string `toml:"designated_source"`
}

// AlertsConfig holds the alert throttle tuning.
type AlertsConfig struct {
	Cooldown           duration `toml:"cooldown"`
	DailyCap           int      `toml:"daily_cap"`
	EntryDebounceTicks int      `toml:"entry_debounce_ticks"`
}

// ExitsConfig holds the advisory exit thresholds for open trades.
type ExitsConfig struct {
	ProfitTargetPct  float64 `toml:"profit_target_pct"`
	StopLossMultiple float64 `toml:"stop_loss_multiple"`
	TimeStopET       string  `toml:"time_stop_et"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Backend is "sqlite" or "postgres".
	Backend string `toml:"backend"`
	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `toml:"sqlite_path"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. When disabled, alert state
// lives in the embedded store.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the decision
// archive. When disabled, nothing is archived.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// FeedConfig selects the snapshot source.
type FeedConfig struct {
	// Source is "ws" for the live stream or "replay" for a fixture file.
	Source string `toml:"source"`
	// WSURL is the live snapshot stream endpoint.
	WSURL string `toml:"ws_url"`
	// ReplayPath is the JSON fixture for replay mode.
	ReplayPath string `toml:"replay_path"`
}

// ServerConfig holds the HTTP API configuration.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials. Types filters which
// alert types are forwarded; empty means all.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Types             []string `toml:"types"`
}

// duration wraps time.Duration for TOML decoding of strings like "90s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Defaults returns the built-in configuration: sqlite persistence, in-memory
// alert state, live feed, server on 8080, documented example thresholds.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			TargetDTEs:      []int{2, 7, 14, 30, 45},
			DTETolerance:    3,
			MonteCarloPaths: 4000,
			TickCron:        "*/2 * * * *",
			MaxSpotAge:      duration{30 * time.Second},
			MaxChainAge:     duration{2 * time.Minute},
			MaxGreeksAge:    duration{2 * time.Minute},
			MaxVIXAge:       duration{5 * time.Minute},
			StrictLive:      true,
			MaxSnapshotAge:  duration{3 * time.Minute},
		},
		Alerts: AlertsConfig{
			Cooldown:           duration{15 * time.Minute},
			DailyCap:           6,
			EntryDebounceTicks: 2,
		},
		Exits: ExitsConfig{
			ProfitTargetPct:  0.5,
			StopLossMultiple: 2.0,
			TimeStopET:       "15:45",
		},
		Store: StoreConfig{
			Backend:    "sqlite",
			SQLitePath: "spreadpilot.db",
		},
		Postgres: PostgresConfig{
			SSLMode:       "disable",
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Feed: FeedConfig{
			Source: "ws",
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// Validate checks cross-field consistency. It is called once after Load.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	case "postgres":
		if c.Postgres.DSN == "" && c.Postgres.Host == "" {
			return fmt.Errorf("postgres.dsn or postgres.host is required for the postgres backend")
		}
	default:
		return fmt.Errorf("store.backend must be sqlite or postgres, got %q", c.Store.Backend)
	}

	switch c.Feed.Source {
	case "ws":
		if c.Feed.WSURL == "" && c.Mode != "evaluate" {
			return fmt.Errorf("feed.ws_url is required for the ws feed")
		}
	case "replay":
		if c.Feed.ReplayPath == "" {
			return fmt.Errorf("feed.replay_path is required for the replay feed")
		}
	default:
		return fmt.Errorf("feed.source must be ws or replay, got %q", c.Feed.Source)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" || c.S3.Region == "" {
			return fmt.Errorf("s3.bucket and s3.region are required when s3 is enabled")
		}
	}

	if len(c.Engine.TargetDTEs) == 0 {
		return fmt.Errorf("engine.target_dtes must not be empty")
	}
	for _, dte := range c.Engine.TargetDTEs {
		if dte < 0 || dte > 45 {
			return fmt.Errorf("engine.target_dtes entries must be within 0-45, got %d", dte)
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}
