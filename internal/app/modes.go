package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"spreadpilot/internal/alertpolicy"
	"spreadpilot/internal/domain"
	"spreadpilot/internal/engine"
	"spreadpilot/internal/engine/freshness"
	"spreadpilot/internal/engine/gate"
	"spreadpilot/internal/feed"
	"spreadpilot/internal/server"
	"spreadpilot/internal/server/handler"
	"spreadpilot/internal/trademem"
)

// buildTicker assembles the evaluation pipeline from config and deps. It
// also returns the feed's Run function when the provider needs a goroutine.
func (a *App) buildTicker(deps *Dependencies) (*Ticker, func(context.Context) error, error) {
	provider, runFeed, err := a.buildProvider()
	if err != nil {
		return nil, nil, err
	}

	engCfg := engine.DefaultConfig()
	engCfg.Targets = a.cfg.Engine.TargetDTEs
	if a.cfg.Engine.DTETolerance > 0 {
		engCfg.DTETolerance = a.cfg.Engine.DTETolerance
	}
	if a.cfg.Engine.MonteCarloPaths > 0 {
		engCfg.Prob.Paths = a.cfg.Engine.MonteCarloPaths
	}
	engCfg.Freshness = a.freshnessPolicy()
	engCfg.KillSwitch = gate.KillSwitchConfig{
		MaxSnapshotAge:   a.cfg.Engine.MaxSnapshotAge.Duration,
		DesignatedSource: a.cfg.Engine.DesignatedSource,
	}

	evaluator := engine.NewEvaluator(engCfg, a.logger)
	memory := trademem.NewService(deps.CandidateStore, deps.TradeStore, deps.EventStore, a.logger)
	policy := alertpolicy.NewEngine(alertpolicy.Config{
		Cooldown:           a.cfg.Alerts.Cooldown.Duration,
		DailyCap:           a.cfg.Alerts.DailyCap,
		EntryDebounceTicks: a.cfg.Alerts.EntryDebounceTicks,
	}, deps.AlertState, a.logger)

	exits := trademem.DefaultExitConfig()
	if a.cfg.Exits.ProfitTargetPct > 0 {
		exits.ProfitTargetPct = a.cfg.Exits.ProfitTargetPct
	}
	if a.cfg.Exits.StopLossMultiple > 0 {
		exits.StopLossMultiple = a.cfg.Exits.StopLossMultiple
	}
	if a.cfg.Exits.TimeStopET != "" {
		exits.TimeStopET = a.cfg.Exits.TimeStopET
	}

	ticker := NewTicker(provider, evaluator, memory, policy, deps.Notifier, deps.Archiver, exits, a.logger)
	a.policy = policy
	a.memory = memory
	return ticker, runFeed, nil
}

func (a *App) buildProvider() (domain.MarketDataProvider, func(context.Context) error, error) {
	switch a.cfg.Feed.Source {
	case "replay":
		p, err := feed.NewReplayProvider(a.cfg.Feed.ReplayPath)
		if err != nil {
			return nil, nil, fmt.Errorf("app: replay feed: %w", err)
		}
		return p, nil, nil
	default:
		p := feed.NewWSProvider(a.cfg.Feed.WSURL, a.logger)
		return p, func(ctx context.Context) error {
			defer p.Close()
			return p.Run(ctx)
		}, nil
	}
}

func (a *App) freshnessPolicy() freshness.Policy {
	p := freshness.DefaultPolicy()
	if d := a.cfg.Engine.MaxSpotAge.Duration; d > 0 {
		p.MaxAge[domain.FeedSpot] = d
	}
	if d := a.cfg.Engine.MaxChainAge.Duration; d > 0 {
		p.MaxAge[domain.FeedChain] = d
	}
	if d := a.cfg.Engine.MaxGreeksAge.Duration; d > 0 {
		p.MaxAge[domain.FeedGreeks] = d
	}
	if d := a.cfg.Engine.MaxVIXAge.Duration; d > 0 {
		p.MaxAge[domain.FeedVIX] = d
	}
	p.StrictLiveBlocks = a.cfg.Engine.StrictLive
	return p
}

// ServeMode runs the full loop: feed, cron-driven evaluation ticks, the
// ET-midnight rollover job and the HTTP API.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	ticker, runFeed, err := a.buildTicker(deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if runFeed != nil {
		g.Go(func() error { return runFeed(ctx) })
	}

	// Cron scheduler pinned to ET so the rollover fires at the session
	// boundary, not UTC midnight.
	sched := cron.New(cron.WithLocation(domain.ET()))

	if _, err := sched.AddFunc(a.cfg.Engine.TickCron, func() {
		tickCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if _, err := ticker.RunTick(tickCtx); err != nil {
			a.logger.Error("tick failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("app: schedule tick: %w", err)
	}

	if _, err := sched.AddFunc("1 0 * * *", func() {
		rollCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		now := time.Now()
		if err := a.memory.Rollover(rollCtx, now); err != nil {
			a.logger.Error("rollover failed", slog.String("error", err.Error()))
		}
		if deps.Archiver != nil {
			if n, err := deps.Archiver.ArchiveEvents(rollCtx, now); err != nil {
				a.logger.Error("event archive failed", slog.String("error", err.Error()))
			} else if n > 0 {
				a.logger.Info("event log archived", slog.Int64("events", n))
			}
		}
	}); err != nil {
		return fmt.Errorf("app: schedule rollover: %w", err)
	}

	sched.Start()
	g.Go(func() error {
		<-ctx.Done()
		<-sched.Stop().Done()
		return ctx.Err()
	})

	if a.cfg.Server.Enabled {
		srv := a.buildServer(ticker, deps)
		g.Go(func() error { return srv.Start() })
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// EvaluateMode runs exactly one tick and prints the decision output as JSON
// to stdout. It pairs with the replay feed for offline what-if runs.
func (a *App) EvaluateMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting evaluate mode")

	ticker, runFeed, err := a.buildTicker(deps)
	if err != nil {
		return err
	}
	if runFeed != nil {
		return fmt.Errorf("app: evaluate mode requires the replay feed")
	}

	out, err := ticker.RunTick(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (a *App) buildServer(ticker *Ticker, deps *Dependencies) *server.Server {
	feedCheck := feed.NewAvailabilityCheck(ticker.provider, deps.Cache, a.cfg.Engine.MaxSnapshotAge.Duration)
	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(feedCheck, a.logger),
		Decision:   handler.NewDecisionHandler(ticker, ticker, a.logger),
		Candidates: handler.NewCandidatesHandler(a.memory, a.logger),
		Trades:     handler.NewTradesHandler(a.memory, a.logger),
		Events:     handler.NewEventsHandler(a.memory, a.logger),
		Alerts:     handler.NewAlertsHandler(a.policy, a.logger),
	}
	return server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, a.logger)
}
