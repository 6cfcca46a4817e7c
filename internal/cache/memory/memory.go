// Package memory holds in-process implementations of the alert state store
// and the TTL cache. They back single-node deployments and tests; redis
// provides the shared-state equivalents.
package memory

import (
	"context"
	"sync"
	"time"

	"spreadpilot/internal/domain"
)

// maxSentIDs bounds the dispatch idempotency set. Oldest ids are evicted
// first once the bound is hit.
const maxSentIDs = 512

// AlertStateStore is the mutex-guarded in-memory domain.AlertStateStore.
type AlertStateStore struct {
	mu       sync.Mutex
	policy   map[string]domain.AlertPolicyState
	debounce map[string]int
	acks     map[string]string
	sent     map[string]bool
	sentRing []string
}

var _ domain.AlertStateStore = (*AlertStateStore)(nil)

// NewAlertStateStore creates an empty store.
func NewAlertStateStore() *AlertStateStore {
	return &AlertStateStore{
		policy:   make(map[string]domain.AlertPolicyState),
		debounce: make(map[string]int),
		acks:     make(map[string]string),
		sent:     make(map[string]bool),
	}
}

func policyKey(date string, strategy domain.StrategyID) string {
	return date + "|" + string(strategy)
}

func (s *AlertStateStore) PolicyState(_ context.Context, date string, strategy domain.StrategyID) (domain.AlertPolicyState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy[policyKey(date, strategy)], nil
}

func (s *AlertStateStore) SetPolicyState(_ context.Context, date string, strategy domain.StrategyID, st domain.AlertPolicyState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy[policyKey(date, strategy)] = st
	return nil
}

func (s *AlertStateStore) DebounceCount(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debounce[key], nil
}

func (s *AlertStateStore) SetDebounceCount(_ context.Context, key string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n == 0 {
		delete(s.debounce, key)
		return nil
	}
	s.debounce[key] = n
	return nil
}

func (s *AlertStateStore) Acked(_ context.Context, fingerprint string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.acks[fingerprint]
	return hash, ok, nil
}

func (s *AlertStateStore) Ack(_ context.Context, fingerprint, reasonHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acks[fingerprint] = reasonHash
	return nil
}

func (s *AlertStateStore) WasSent(_ context.Context, alertID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent[alertID], nil
}

func (s *AlertStateStore) MarkSent(_ context.Context, alertID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sent[alertID] {
		return nil
	}
	s.sent[alertID] = true
	s.sentRing = append(s.sentRing, alertID)
	if len(s.sentRing) > maxSentIDs {
		evict := s.sentRing[0]
		s.sentRing = s.sentRing[1:]
		delete(s.sent, evict)
	}
	return nil
}

// entry is one cached value with its expiry deadline.
type entry struct {
	value     any
	expiresAt time.Time
}

// TTLCache is a mutex-guarded domain.TTLCache. Expired entries are dropped
// lazily on read.
type TTLCache struct {
	mu    sync.Mutex
	items map[string]entry
	nowFn func() time.Time
}

var _ domain.TTLCache = (*TTLCache)(nil)

// NewTTLCache creates an empty cache.
func NewTTLCache() *TTLCache {
	return &TTLCache{items: make(map[string]entry), nowFn: time.Now}
}

func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if c.nowFn().After(e.expiresAt) {
		delete(c.items, key)
		return nil, false
	}
	return e.value, true
}

func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry{value: value, expiresAt: c.nowFn().Add(ttl)}
}
