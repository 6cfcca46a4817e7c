package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SPREADPILOT_* environment variable overrides,
// and returns the final Config. The caller should invoke Validate after
// Load. An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SPREADPILOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Store ──
	setStr(&cfg.Store.Backend, "SPREADPILOT_STORE_BACKEND")
	setStr(&cfg.Store.SQLitePath, "SPREADPILOT_STORE_SQLITE_PATH")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "SPREADPILOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "SPREADPILOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "SPREADPILOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "SPREADPILOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "SPREADPILOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "SPREADPILOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "SPREADPILOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "SPREADPILOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "SPREADPILOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "SPREADPILOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SPREADPILOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SPREADPILOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SPREADPILOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SPREADPILOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SPREADPILOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SPREADPILOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SPREADPILOT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "SPREADPILOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "SPREADPILOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SPREADPILOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "SPREADPILOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SPREADPILOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SPREADPILOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SPREADPILOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SPREADPILOT_S3_FORCE_PATH_STYLE")

	// ── Feed ──
	setStr(&cfg.Feed.Source, "SPREADPILOT_FEED_SOURCE")
	setStr(&cfg.Feed.WSURL, "SPREADPILOT_FEED_WS_URL")
	setStr(&cfg.Feed.ReplayPath, "SPREADPILOT_FEED_REPLAY_PATH")

	// ── Engine ──
	setStr(&cfg.Engine.TickCron, "SPREADPILOT_ENGINE_TICK_CRON")
	setInt(&cfg.Engine.MonteCarloPaths, "SPREADPILOT_ENGINE_MONTE_CARLO_PATHS")
	setBool(&cfg.Engine.StrictLive, "SPREADPILOT_ENGINE_STRICT_LIVE")
	setStr(&cfg.Engine.DesignatedSource, "SPREADPILOT_ENGINE_DESIGNATED_SOURCE")
	setDuration(&cfg.Engine.MaxSnapshotAge, "SPREADPILOT_ENGINE_MAX_SNAPSHOT_AGE")

	// ── Alerts ──
	setDuration(&cfg.Alerts.Cooldown, "SPREADPILOT_ALERTS_COOLDOWN")
	setInt(&cfg.Alerts.DailyCap, "SPREADPILOT_ALERTS_DAILY_CAP")
	setInt(&cfg.Alerts.EntryDebounceTicks, "SPREADPILOT_ALERTS_ENTRY_DEBOUNCE_TICKS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SPREADPILOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SPREADPILOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SPREADPILOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SPREADPILOT_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SPREADPILOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SPREADPILOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SPREADPILOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Types, "SPREADPILOT_NOTIFY_TYPES")

	// ── Top-level ──
	setStr(&cfg.Mode, "SPREADPILOT_MODE")
	setStr(&cfg.LogLevel, "SPREADPILOT_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
