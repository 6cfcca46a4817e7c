package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"spreadpilot/internal/domain"
)

// Key TTLs. Date-scoped policy keys expire two days after last write so
// yesterday's state is still inspectable; sent ids expire with the day.
const (
	policyTTL   = 48 * time.Hour
	debounceTTL = 2 * time.Hour
	sentTTL     = 26 * time.Hour
)

// AlertStateStore implements domain.AlertStateStore over Redis.
type AlertStateStore struct {
	rdb *redis.Client
}

var _ domain.AlertStateStore = (*AlertStateStore)(nil)

// NewAlertStateStore creates the store over a connected Client.
func NewAlertStateStore(c *Client) *AlertStateStore {
	return &AlertStateStore{rdb: c.Underlying()}
}

func policyKey(date string, strategy domain.StrategyID) string {
	return fmt.Sprintf("alerts:policy:%s:%s", date, strategy)
}

func (s *AlertStateStore) PolicyState(ctx context.Context, date string, strategy domain.StrategyID) (domain.AlertPolicyState, error) {
	raw, err := s.rdb.Get(ctx, policyKey(date, strategy)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.AlertPolicyState{}, nil
	}
	if err != nil {
		return domain.AlertPolicyState{}, fmt.Errorf("redis: policy state: %w", err)
	}
	var st domain.AlertPolicyState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return domain.AlertPolicyState{}, fmt.Errorf("redis: decode policy state: %w", err)
	}
	return st, nil
}

func (s *AlertStateStore) SetPolicyState(ctx context.Context, date string, strategy domain.StrategyID, st domain.AlertPolicyState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("redis: encode policy state: %w", err)
	}
	if err := s.rdb.Set(ctx, policyKey(date, strategy), raw, policyTTL).Err(); err != nil {
		return fmt.Errorf("redis: set policy state: %w", err)
	}
	return nil
}

func (s *AlertStateStore) DebounceCount(ctx context.Context, key string) (int, error) {
	n, err := s.rdb.Get(ctx, "alerts:debounce:"+key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis: debounce count: %w", err)
	}
	return n, nil
}

func (s *AlertStateStore) SetDebounceCount(ctx context.Context, key string, n int) error {
	k := "alerts:debounce:" + key
	if n == 0 {
		if err := s.rdb.Del(ctx, k).Err(); err != nil {
			return fmt.Errorf("redis: reset debounce: %w", err)
		}
		return nil
	}
	if err := s.rdb.Set(ctx, k, n, debounceTTL).Err(); err != nil {
		return fmt.Errorf("redis: set debounce: %w", err)
	}
	return nil
}

func (s *AlertStateStore) Acked(ctx context.Context, fingerprint string) (string, bool, error) {
	hash, err := s.rdb.Get(ctx, "alerts:ack:"+fingerprint).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis: ack lookup: %w", err)
	}
	return hash, true, nil
}

func (s *AlertStateStore) Ack(ctx context.Context, fingerprint, reasonHash string) error {
	if err := s.rdb.Set(ctx, "alerts:ack:"+fingerprint, reasonHash, 0).Err(); err != nil {
		return fmt.Errorf("redis: ack: %w", err)
	}
	return nil
}

func (s *AlertStateStore) WasSent(ctx context.Context, alertID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, "alerts:sent:"+alertID).Result()
	if err != nil {
		return false, fmt.Errorf("redis: sent lookup: %w", err)
	}
	return n > 0, nil
}

func (s *AlertStateStore) MarkSent(ctx context.Context, alertID string) error {
	if err := s.rdb.Set(ctx, "alerts:sent:"+alertID, 1, sentTTL).Err(); err != nil {
		return fmt.Errorf("redis: mark sent: %w", err)
	}
	return nil
}
