package app

import (
	"context"
	"fmt"
	"log/slog"

	"spreadpilot/internal/alertpolicy"
	s3blob "spreadpilot/internal/blob/s3"
	"spreadpilot/internal/domain"
	"spreadpilot/internal/engine"
	"spreadpilot/internal/notify"
	"spreadpilot/internal/trademem"
)

// Ticker runs one complete evaluation tick: snapshot, engine pipeline,
// ledger reconciliation, exit checks, alert policy and dispatch, archive.
// It backs both the cron loop and the POST /api/evaluate endpoint.
type Ticker struct {
	provider  domain.MarketDataProvider
	evaluator *engine.Evaluator
	memory    *trademem.Service
	policy    *alertpolicy.Engine
	notifier  *notify.Notifier
	archiver  *s3blob.Archiver
	exits     trademem.ExitConfig
	logger    *slog.Logger
}

// NewTicker assembles the tick function. archiver may be nil.
func NewTicker(
	provider domain.MarketDataProvider,
	evaluator *engine.Evaluator,
	memory *trademem.Service,
	policy *alertpolicy.Engine,
	notifier *notify.Notifier,
	archiver *s3blob.Archiver,
	exits trademem.ExitConfig,
	logger *slog.Logger,
) *Ticker {
	return &Ticker{
		provider:  provider,
		evaluator: evaluator,
		memory:    memory,
		policy:    policy,
		notifier:  notifier,
		archiver:  archiver,
		exits:     exits,
		logger:    logger.With(slog.String("component", "ticker")),
	}
}

// Last exposes the most recent decision output for the HTTP layer.
func (t *Ticker) Last() (domain.DecisionOutput, bool) {
	return t.evaluator.Last()
}

// RunTick executes one tick. The engine stage never fails; errors come from
// the snapshot source, the ledgers or the alert state store. Archive and
// delivery failures are logged and absorbed so one flaky sink cannot stall
// the loop.
func (t *Ticker) RunTick(ctx context.Context) (domain.DecisionOutput, error) {
	snap, err := t.provider.Snapshot(ctx)
	if err != nil {
		return domain.DecisionOutput{}, fmt.Errorf("tick: snapshot: %w", err)
	}

	out := t.evaluator.Evaluate(ctx, snap)

	if out.Status != domain.DecisionInactive {
		res, err := t.memory.UpsertCandidates(ctx, out.Candidates, snap, out.TickAt)
		if err != nil {
			return out, fmt.Errorf("tick: reconcile candidates: %w", err)
		}
		if res.Inserted > 0 || res.Expired > 0 {
			t.logger.InfoContext(ctx, "candidate ledger reconciled",
				slog.Int("inserted", res.Inserted),
				slog.Int("updated", res.Updated),
				slog.Int("expired", res.Expired),
			)
		}
		exitAlerts, err := t.memory.EvaluateExits(ctx, t.exits, out.TickAt)
		if err != nil {
			return out, fmt.Errorf("tick: evaluate exits: %w", err)
		}
		out.Alerts = append(out.Alerts, exitAlerts...)
	}

	if err := t.dispatchAlerts(ctx, out, snap.MarketOpen); err != nil {
		return out, err
	}

	if t.archiver != nil {
		if err := t.archiver.ArchiveDecision(ctx, out); err != nil {
			t.logger.WarnContext(ctx, "decision archive failed", slog.String("error", err.Error()))
		}
	}
	return out, nil
}

func (t *Ticker) dispatchAlerts(ctx context.Context, out domain.DecisionOutput, marketOpen bool) error {
	approved, err := t.policy.Filter(ctx, out.Alerts, out.TickAt, marketOpen)
	if err != nil {
		return fmt.Errorf("tick: alert policy: %w", err)
	}

	for _, a := range approved {
		if !t.notifier.Allowed(a.Type) {
			continue
		}
		title, body := notify.FormatAlert(a)
		if err := t.notifier.Deliver(ctx, a.ID, title, body); err != nil {
			// Not committed: the same alert is retried on the next tick.
			t.logger.WarnContext(ctx, "alert delivery failed",
				slog.String("alert", a.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := t.policy.Commit(ctx, a, out.TickAt); err != nil {
			return fmt.Errorf("tick: commit alert %s: %w", a.ID, err)
		}
	}
	return nil
}
