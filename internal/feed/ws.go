// Package feed supplies market snapshots: a live WebSocket stream for
// production and a file replay provider for simulation.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"spreadpilot/internal/domain"
)

// WSProvider consumes full snapshot frames from an upstream WebSocket and
// serves the latest one to the evaluation loop. It reconnects with backoff
// on disconnect; staleness handling is the freshness evaluator's job, the
// provider only reports what it last saw.
type WSProvider struct {
	url    string
	logger *slog.Logger

	mu     sync.RWMutex
	latest *domain.MarketSnapshot

	closeOnce sync.Once
	done      chan struct{}
}

var _ domain.MarketDataProvider = (*WSProvider)(nil)

// NewWSProvider creates a provider for the given stream URL.
func NewWSProvider(url string, logger *slog.Logger) *WSProvider {
	return &WSProvider{
		url:    url,
		logger: logger.With(slog.String("component", "ws_feed")),
		done:   make(chan struct{}),
	}
}

// Snapshot returns the most recent snapshot frame. Before the first frame
// arrives it returns ErrDataUnavailable.
func (p *WSProvider) Snapshot(ctx context.Context) (domain.MarketSnapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return domain.MarketSnapshot{}, fmt.Errorf("no snapshot received yet: %w", domain.ErrDataUnavailable)
	}
	return *p.latest, nil
}

// Run connects and consumes frames until ctx is cancelled, reconnecting
// with a fixed backoff on disconnect.
func (p *WSProvider) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.done:
			return nil
		default:
		}

		if err := p.runConnection(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Warn("feed disconnected, reconnecting", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.done:
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

func (p *WSProvider) runConnection(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, p.url, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.url, err)
	}
	defer conn.Close()
	p.logger.Info("feed connected", slog.String("url", p.url))

	go func() {
		select {
		case <-ctx.Done():
		case <-p.done:
		}
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}
		var snap domain.MarketSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			p.logger.Warn("malformed snapshot frame dropped", slog.String("error", err.Error()))
			continue
		}
		if snap.TakenAt.IsZero() {
			snap.TakenAt = time.Now()
		}
		p.mu.Lock()
		p.latest = &snap
		p.mu.Unlock()
	}
}

// Close stops the provider.
func (p *WSProvider) Close() {
	p.closeOnce.Do(func() { close(p.done) })
}
