package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"spreadpilot/internal/domain"
)

// maxSentRows bounds the dispatch idempotency table; oldest rows are pruned
// once the bound is exceeded.
const maxSentRows = 2048

// AlertStateStore persists alert-policy state in sqlite.
type AlertStateStore struct {
	db *DB
}

var _ domain.AlertStateStore = (*AlertStateStore)(nil)

// NewAlertStateStore creates the store over an opened DB.
func NewAlertStateStore(db *DB) *AlertStateStore {
	return &AlertStateStore{db: db}
}

func (s *AlertStateStore) PolicyState(ctx context.Context, date string, strategy domain.StrategyID) (domain.AlertPolicyState, error) {
	var st domain.AlertPolicyState
	err := s.db.db.QueryRowContext(ctx, `
		SELECT sent_today, last_sent_iso, last_alert_id
		FROM alert_policy WHERE date = ? AND strategy = ?`,
		date, string(strategy)).Scan(&st.SentToday, &st.LastSentISO, &st.LastAlertID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AlertPolicyState{}, nil
	}
	if err != nil {
		return domain.AlertPolicyState{}, fmt.Errorf("policy state: %w", err)
	}
	return st, nil
}

func (s *AlertStateStore) SetPolicyState(ctx context.Context, date string, strategy domain.StrategyID, st domain.AlertPolicyState) error {
	_, err := s.db.db.ExecContext(ctx, `
		INSERT INTO alert_policy (date, strategy, sent_today, last_sent_iso, last_alert_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date, strategy) DO UPDATE SET
			sent_today = excluded.sent_today,
			last_sent_iso = excluded.last_sent_iso,
			last_alert_id = excluded.last_alert_id`,
		date, string(strategy), st.SentToday, st.LastSentISO, st.LastAlertID)
	if err != nil {
		return fmt.Errorf("set policy state: %w", err)
	}
	return nil
}

func (s *AlertStateStore) DebounceCount(ctx context.Context, key string) (int, error) {
	var n int
	err := s.db.db.QueryRowContext(ctx,
		`SELECT n FROM alert_debounce WHERE key = ?`, key).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("debounce count: %w", err)
	}
	return n, nil
}

func (s *AlertStateStore) SetDebounceCount(ctx context.Context, key string, n int) error {
	if n == 0 {
		_, err := s.db.db.ExecContext(ctx, `DELETE FROM alert_debounce WHERE key = ?`, key)
		if err != nil {
			return fmt.Errorf("reset debounce: %w", err)
		}
		return nil
	}
	_, err := s.db.db.ExecContext(ctx, `
		INSERT INTO alert_debounce (key, n) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET n = excluded.n`, key, n)
	if err != nil {
		return fmt.Errorf("set debounce: %w", err)
	}
	return nil
}

func (s *AlertStateStore) Acked(ctx context.Context, fingerprint string) (string, bool, error) {
	var hash string
	err := s.db.db.QueryRowContext(ctx,
		`SELECT reason_hash FROM alert_acks WHERE fingerprint = ?`, fingerprint).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ack lookup: %w", err)
	}
	return hash, true, nil
}

func (s *AlertStateStore) Ack(ctx context.Context, fingerprint, reasonHash string) error {
	_, err := s.db.db.ExecContext(ctx, `
		INSERT INTO alert_acks (fingerprint, reason_hash) VALUES (?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET reason_hash = excluded.reason_hash`,
		fingerprint, reasonHash)
	if err != nil {
		return fmt.Errorf("ack: %w", err)
	}
	return nil
}

func (s *AlertStateStore) WasSent(ctx context.Context, alertID string) (bool, error) {
	var one int
	err := s.db.db.QueryRowContext(ctx,
		`SELECT 1 FROM alert_sent WHERE alert_id = ?`, alertID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sent lookup: %w", err)
	}
	return true, nil
}

func (s *AlertStateStore) MarkSent(ctx context.Context, alertID string) error {
	_, err := s.db.db.ExecContext(ctx, `
		INSERT INTO alert_sent (alert_id, sent_at) VALUES (?, ?)
		ON CONFLICT(alert_id) DO NOTHING`, alertID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	_, err = s.db.db.ExecContext(ctx, `
		DELETE FROM alert_sent WHERE alert_id NOT IN (
			SELECT alert_id FROM alert_sent ORDER BY sent_at DESC LIMIT ?
		)`, maxSentRows)
	if err != nil {
		return fmt.Errorf("prune sent: %w", err)
	}
	return nil
}
