// Package alertpolicy throttles outbound alerts: readiness debounce for
// entries, acknowledgement suppression, dispatch idempotency, per-strategy
// cooldown and a daily cap. State lives behind domain.AlertStateStore so the
// same policy runs against the embedded store, redis or memory.
package alertpolicy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spreadpilot/internal/domain"
)

// Config tunes the throttle. Defaults are documented examples.
type Config struct {
	Cooldown           time.Duration
	DailyCap           int
	EntryDebounceTicks int
}

// DefaultConfig returns the example tuning: two consecutive ready ticks
// before an entry alert, fifteen minute cooldown, six alerts per strategy
// per ET day.
func DefaultConfig() Config {
	return Config{
		Cooldown:           15 * time.Minute,
		DailyCap:           6,
		EntryDebounceTicks: 2,
	}
}

// Engine applies the policy. It tracks which entry debounce keys were seen
// on the current tick so counters for vanished setups reset to zero; that
// bookkeeping is process-local, the counters themselves are in the store.
type Engine struct {
	cfg    Config
	store  domain.AlertStateStore
	logger *slog.Logger
	seen   map[string]bool
}

// NewEngine creates a policy Engine over the given state store.
func NewEngine(cfg Config, store domain.AlertStateStore, logger *slog.Logger) *Engine {
	if cfg.EntryDebounceTicks < 1 {
		cfg.EntryDebounceTicks = 1
	}
	return &Engine{
		cfg:    cfg,
		store:  store,
		logger: logger.With(slog.String("component", "alert_policy")),
		seen:   make(map[string]bool),
	}
}

// debounceKey scopes entry debounce counters to the concrete setup.
func debounceKey(a domain.AlertItem) string {
	return string(a.Strategy) + "|" + domain.LegSignature(a.Legs)
}

// Filter runs the full policy over one tick's alerts and returns the ones
// approved for dispatch, in input order. Approval does not record the send;
// call Commit after the channel delivery succeeds so a failed delivery is
// naturally retried on the next tick.
func (e *Engine) Filter(ctx context.Context, alerts []domain.AlertItem, now time.Time, marketOpen bool) ([]domain.AlertItem, error) {
	date := domain.ETDate(now)
	present := make(map[string]bool)

	var approved []domain.AlertItem
	for _, a := range alerts {
		if a.Type == domain.AlertEntry {
			present[debounceKey(a)] = true
		}
		ok, reason, err := e.decide(ctx, a, date, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			e.logger.Debug("alert suppressed",
				slog.String("alert", a.ID),
				slog.String("type", string(a.Type)),
				slog.String("reason", reason),
			)
			continue
		}
		approved = append(approved, a)
	}

	if err := e.resetStaleDebounce(ctx, present, marketOpen); err != nil {
		return nil, err
	}
	return approved, nil
}

func (e *Engine) decide(ctx context.Context, a domain.AlertItem, date string, now time.Time) (bool, string, error) {
	if a.Type == domain.AlertEntry {
		key := debounceKey(a)
		n, err := e.store.DebounceCount(ctx, key)
		if err != nil {
			return false, "", fmt.Errorf("debounce count: %w", err)
		}
		n++
		if err := e.store.SetDebounceCount(ctx, key, n); err != nil {
			return false, "", fmt.Errorf("set debounce count: %w", err)
		}
		e.seen[key] = true
		if n < e.cfg.EntryDebounceTicks {
			return false, fmt.Sprintf("debounce %d/%d", n, e.cfg.EntryDebounceTicks), nil
		}
	}

	if hash, acked, err := e.store.Acked(ctx, a.ID); err != nil {
		return false, "", fmt.Errorf("ack lookup: %w", err)
	} else if acked && hash == domain.ReasonHash(a.Reason) {
		return false, "acknowledged", nil
	}

	sent, err := e.store.WasSent(ctx, a.ID)
	if err != nil {
		return false, "", fmt.Errorf("sent lookup: %w", err)
	}
	if sent {
		return false, "already dispatched", nil
	}

	// Critical alerts bypass the cooldown and the daily cap: a tripped
	// breaker must always reach the operator.
	if a.Severity == domain.SeverityCritical {
		return true, "", nil
	}

	st, err := e.store.PolicyState(ctx, date, a.Strategy)
	if err != nil {
		return false, "", fmt.Errorf("policy state: %w", err)
	}

	// A repeat of the strategy's last sent id is the same setup still
	// active, not a new alert; it skips the cooldown and the daily cap.
	if st.LastAlertID != "" && a.ID == st.LastAlertID {
		return true, "", nil
	}

	if st.LastSentISO != "" && e.cfg.Cooldown > 0 {
		if last, perr := time.Parse(time.RFC3339, st.LastSentISO); perr == nil {
			if elapsed := now.Sub(last); elapsed < e.cfg.Cooldown {
				return false, fmt.Sprintf("cooldown %s remaining", (e.cfg.Cooldown - elapsed).Round(time.Second)), nil
			}
		}
	}
	if e.cfg.DailyCap > 0 && st.SentToday >= e.cfg.DailyCap {
		return false, "daily cap reached", nil
	}
	return true, "", nil
}

// Commit records a successful dispatch: marks the id sent and advances the
// strategy's date-scoped throttle state.
func (e *Engine) Commit(ctx context.Context, a domain.AlertItem, now time.Time) error {
	if err := e.store.MarkSent(ctx, a.ID); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	date := domain.ETDate(now)
	st, err := e.store.PolicyState(ctx, date, a.Strategy)
	if err != nil {
		return fmt.Errorf("policy state: %w", err)
	}
	st.SentToday++
	st.LastSentISO = now.Format(time.RFC3339)
	st.LastAlertID = a.ID
	if err := e.store.SetPolicyState(ctx, date, a.Strategy, st); err != nil {
		return fmt.Errorf("set policy state: %w", err)
	}
	return nil
}

// Ack suppresses an alert fingerprint until its reason text changes.
func (e *Engine) Ack(ctx context.Context, fingerprint, reason string) error {
	return e.store.Ack(ctx, fingerprint, domain.ReasonHash(reason))
}

// resetStaleDebounce zeroes the counters of setups that stopped being ready
// this tick. A closed market resets everything: consecutive-tick streaks do
// not survive a session boundary.
func (e *Engine) resetStaleDebounce(ctx context.Context, present map[string]bool, marketOpen bool) error {
	for key := range e.seen {
		if marketOpen && present[key] {
			continue
		}
		if err := e.store.SetDebounceCount(ctx, key, 0); err != nil {
			return fmt.Errorf("reset debounce: %w", err)
		}
		delete(e.seen, key)
	}
	return nil
}
