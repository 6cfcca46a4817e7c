package domain

import (
	"context"
	"time"
)

// MarketDataProvider supplies the raw snapshot for an evaluation tick. A
// provider may return a stale or partial snapshot; the engine degrades the
// tick's status instead of failing hard.
type MarketDataProvider interface {
	Snapshot(ctx context.Context) (MarketSnapshot, error)
}

// NotificationChannel delivers a formatted alert. Implementations must be
// idempotent on id; a failed delivery is retried on the next tick only.
type NotificationChannel interface {
	Deliver(ctx context.Context, id, title, body string) error
}

// TTLCache is an injected memoization cache with per-entry expiry. It
// replaces process-wide memoized singletons; the orchestrator owns the
// instance and hands it to whoever needs one.
type TTLCache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
}
