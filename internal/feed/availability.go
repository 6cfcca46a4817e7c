package feed

import (
	"context"
	"fmt"
	"time"

	"spreadpilot/internal/domain"
)

const (
	availabilityKey = "feed:availability"
	availabilityTTL = 15 * time.Second
)

// Availability is the result of one provider probe.
type Availability struct {
	Available bool   `json:"available"`
	Source    string `json:"source,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// AvailabilityCheck reports whether the snapshot source is currently serving
// usable data. Results are memoized through the injected cache so frequent
// health polls do not turn into provider probes.
type AvailabilityCheck struct {
	provider domain.MarketDataProvider
	cache    domain.TTLCache
	maxAge   time.Duration
	nowFn    func() time.Time
}

// NewAvailabilityCheck wraps a provider with a cached availability probe.
// maxAge bounds how old the latest snapshot may be before the feed counts
// as unavailable; zero disables the age check.
func NewAvailabilityCheck(provider domain.MarketDataProvider, cache domain.TTLCache, maxAge time.Duration) *AvailabilityCheck {
	return &AvailabilityCheck{
		provider: provider,
		cache:    cache,
		maxAge:   maxAge,
		nowFn:    time.Now,
	}
}

// Check probes the provider, serving a memoized result while it is fresh.
func (c *AvailabilityCheck) Check(ctx context.Context) Availability {
	if v, ok := c.cache.Get(availabilityKey); ok {
		if res, ok := v.(Availability); ok {
			return res
		}
	}

	res := c.probe(ctx)
	c.cache.Set(availabilityKey, res, availabilityTTL)
	return res
}

func (c *AvailabilityCheck) probe(ctx context.Context) Availability {
	snap, err := c.provider.Snapshot(ctx)
	if err != nil {
		return Availability{Detail: err.Error()}
	}
	if c.maxAge > 0 && !snap.TakenAt.IsZero() {
		if age := c.nowFn().Sub(snap.TakenAt); age > c.maxAge {
			return Availability{
				Source: snap.Source,
				Detail: fmt.Sprintf("last snapshot is %s old", age.Round(time.Second)),
			}
		}
	}
	return Availability{Available: true, Source: snap.Source}
}
