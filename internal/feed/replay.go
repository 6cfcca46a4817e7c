package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"spreadpilot/internal/domain"
)

// ReplayProvider serves snapshots from a JSON file: either one snapshot
// object or an array replayed in order, one frame per Snapshot call. It
// backs simulation mode; replayed snapshots carry SimOverride so the
// freshness evaluator treats the closed market as active.
type ReplayProvider struct {
	mu     sync.Mutex
	frames []domain.MarketSnapshot
	idx    int
}

var _ domain.MarketDataProvider = (*ReplayProvider)(nil)

// NewReplayProvider loads the file up front so a malformed fixture fails at
// startup, not mid-session.
func NewReplayProvider(path string) (*ReplayProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replay file: %w", err)
	}

	var frames []domain.MarketSnapshot
	if err := json.Unmarshal(data, &frames); err != nil {
		var single domain.MarketSnapshot
		if err2 := json.Unmarshal(data, &single); err2 != nil {
			return nil, fmt.Errorf("decode replay file %s: %w", path, err)
		}
		frames = []domain.MarketSnapshot{single}
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("replay file %s holds no snapshots: %w", path, domain.ErrInvalidInput)
	}
	return &ReplayProvider{frames: frames}, nil
}

// Snapshot returns the next frame, sticking on the last one once the file
// is exhausted. TakenAt is rebased to now so replayed data does not trip
// the staleness checks.
func (p *ReplayProvider) Snapshot(_ context.Context) (domain.MarketSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := p.frames[p.idx]
	if p.idx < len(p.frames)-1 {
		p.idx++
	}
	snap.SimOverride = true
	snap.TakenAt = time.Now()
	return snap, nil
}
