package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "spreadpilot/internal/blob/s3"
	"spreadpilot/internal/cache/memory"
	"spreadpilot/internal/cache/redis"
	"spreadpilot/internal/config"
	"spreadpilot/internal/domain"
	"spreadpilot/internal/notify"
	"spreadpilot/internal/store/postgres"
	"spreadpilot/internal/store/sqlite"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Ledger stores
	CandidateStore domain.CandidateStore
	TradeStore     domain.TradeStore
	EventStore     domain.EventStore

	// Alert-policy state
	AlertState domain.AlertStateStore

	// Memoization cache for expensive per-tick computations
	Cache domain.TTLCache

	// Decision archive (nil when S3 is disabled)
	Archiver *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Cache: memory.NewTTLCache(),
	}

	// --- Ledger persistence ---
	switch cfg.Store.Backend {
	case "postgres":
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.CandidateStore = postgres.NewCandidateStore(pool)
		deps.TradeStore = postgres.NewTradeStore(pool)
		deps.EventStore = postgres.NewEventStore(pool)
		// Alert state stays out of postgres; redis or memory below.

	default: // sqlite
		db, err := sqlite.Open(ctx, cfg.Store.SQLitePath, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: sqlite: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })

		deps.CandidateStore = sqlite.NewCandidateStore(db)
		deps.TradeStore = sqlite.NewTradeStore(db)
		deps.EventStore = sqlite.NewEventStore(db)
		deps.AlertState = sqlite.NewAlertStateStore(db)
	}

	// --- Alert state: redis when enabled, else sqlite (set above) or memory ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.AlertState = redis.NewAlertStateStore(redisClient)
	}
	if deps.AlertState == nil {
		deps.AlertState = memory.NewAlertStateStore()
	}

	// --- S3 decision archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), deps.EventStore)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Types, logger)

	return deps, cleanup, nil
}
