package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"spreadpilot/internal/cache/memory"
	"spreadpilot/internal/domain"
)

type stubProvider struct {
	snap  domain.MarketSnapshot
	err   error
	calls int
}

func (s *stubProvider) Snapshot(context.Context) (domain.MarketSnapshot, error) {
	s.calls++
	return s.snap, s.err
}

func TestAvailabilityCheck_FreshSnapshot(t *testing.T) {
	p := &stubProvider{snap: domain.MarketSnapshot{Source: "primary", TakenAt: time.Now()}}
	c := NewAvailabilityCheck(p, memory.NewTTLCache(), 3*time.Minute)

	res := c.Check(context.Background())
	if !res.Available {
		t.Fatalf("fresh snapshot must be available: %+v", res)
	}
	if res.Source != "primary" {
		t.Fatalf("source=%q", res.Source)
	}
}

func TestAvailabilityCheck_MemoizesThroughCache(t *testing.T) {
	p := &stubProvider{snap: domain.MarketSnapshot{Source: "primary", TakenAt: time.Now()}}
	c := NewAvailabilityCheck(p, memory.NewTTLCache(), 3*time.Minute)
	ctx := context.Background()

	first := c.Check(ctx)
	if !first.Available {
		t.Fatalf("first check: %+v", first)
	}

	// The provider starts failing, but the memoized result is still served.
	p.err = errors.New("stream down")
	second := c.Check(ctx)
	if !second.Available {
		t.Fatal("cached result must be served while its TTL holds")
	}
	if p.calls != 1 {
		t.Fatalf("provider probed %d times, want 1", p.calls)
	}
}

func TestAvailabilityCheck_ProviderError(t *testing.T) {
	p := &stubProvider{err: domain.ErrDataUnavailable}
	c := NewAvailabilityCheck(p, memory.NewTTLCache(), 3*time.Minute)

	res := c.Check(context.Background())
	if res.Available {
		t.Fatal("failing provider must be unavailable")
	}
	if res.Detail == "" {
		t.Fatal("want the provider error as detail")
	}
}

func TestAvailabilityCheck_StaleSnapshot(t *testing.T) {
	now := time.Now()
	p := &stubProvider{snap: domain.MarketSnapshot{Source: "primary", TakenAt: now.Add(-10 * time.Minute)}}
	c := NewAvailabilityCheck(p, memory.NewTTLCache(), 3*time.Minute)
	c.nowFn = func() time.Time { return now }

	res := c.Check(context.Background())
	if res.Available {
		t.Fatal("snapshot past max age must be unavailable")
	}
	if res.Detail == "" {
		t.Fatal("want the age as detail")
	}
}
