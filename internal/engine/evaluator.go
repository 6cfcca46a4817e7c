// Package engine wires the decision pipeline: Freshness → DteResolve →
// Build → Probability → Gate → Rank. Each stage has an explicit typed
// contract; one Evaluate call is a complete, deterministic tick.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spreadpilot/internal/domain"
	"spreadpilot/internal/engine/candidate"
	"spreadpilot/internal/engine/expiry"
	"spreadpilot/internal/engine/freshness"
	"spreadpilot/internal/engine/gate"
	"spreadpilot/internal/engine/prob"
	"spreadpilot/internal/engine/rank"
)

// Config assembles the per-stage configuration of the pipeline.
type Config struct {
	Targets      []int
	DTETolerance int
	Freshness    freshness.Policy
	Slippage     candidate.SlippageConfig
	Prob         prob.Config
	Guards       gate.GuardConfig
	KillSwitch   gate.KillSwitchConfig
	Rank         rank.Config
}

// DefaultConfig returns the documented example tuning.
func DefaultConfig() Config {
	return Config{
		Targets:      expiry.DefaultTargets,
		DTETolerance: 3,
		Freshness:    freshness.DefaultPolicy(),
		Slippage:     candidate.DefaultSlippage(),
		Prob:         prob.Config{Paths: 4000},
		Guards:       gate.DefaultGuards(),
		KillSwitch:   gate.DefaultKillSwitch(),
		Rank:         rank.DefaultConfig(),
	}
}

// Evaluator is the synchronous decision engine. Evaluate is the only entry
// point; everything after snapshot acquisition is deterministic given the
// snapshot and the clock.
type Evaluator struct {
	freshness *freshness.Evaluator
	resolver  *expiry.Resolver
	builder   *candidate.Builder
	prob      *prob.Engine
	gate      *gate.Engine
	kill      *gate.KillSwitch
	ranker    *rank.Ranker
	targets   []int
	logger    *slog.Logger
	nowFn     func() time.Time

	mu   sync.Mutex
	last *domain.DecisionOutput
}

// NewEvaluator assembles the pipeline from config.
func NewEvaluator(cfg Config, logger *slog.Logger) *Evaluator {
	if len(cfg.Targets) == 0 {
		cfg.Targets = expiry.DefaultTargets
	}
	return &Evaluator{
		freshness: freshness.NewEvaluator(cfg.Freshness, logger),
		resolver:  expiry.NewResolver(cfg.DTETolerance),
		builder:   candidate.NewBuilder(cfg.Slippage, logger),
		prob:      prob.NewEngine(cfg.Prob, logger),
		gate:      gate.NewEngine(cfg.Guards, logger),
		kill:      gate.NewKillSwitch(cfg.KillSwitch),
		ranker:    rank.NewRanker(cfg.Rank),
		targets:   cfg.Targets,
		logger:    logger.With(slog.String("component", "evaluator")),
		nowFn:     time.Now,
	}
}

// Last returns the most recent DecisionOutput, if any tick has run.
func (e *Evaluator) Last() (domain.DecisionOutput, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return domain.DecisionOutput{}, false
	}
	return *e.last, true
}

// Evaluate runs one full tick over the snapshot. It never returns an error:
// data problems degrade the tick's status and every blocked candidate
// carries a human-readable reason.
func (e *Evaluator) Evaluate(ctx context.Context, snap domain.MarketSnapshot) domain.DecisionOutput {
	now := e.nowFn()
	out := domain.DecisionOutput{TickAt: now, Debug: map[string]any{}}

	out.Contract = e.freshness.Evaluate(snap, now)
	if out.Contract.Status == domain.ContractInactive {
		out.Status = domain.DecisionInactive
		out.Warnings = append(out.Warnings, "market closed and simulation not overriding")
		e.remember(out)
		return out
	}

	killReason := e.kill.Evaluate(snap, now)
	if killReason != "" {
		e.logger.Warn("kill switch tripped", slog.String("reason", killReason))
		out.Debug["kill_switch"] = killReason
	}

	resolutions := e.resolver.ResolveAll(e.targets, snap.Chain)
	out.Debug["resolutions"] = resolutions

	cards, warnings := e.builder.Build(snap, resolutions, now)
	out.Warnings = append(out.Warnings, warnings...)

	for i := range cards {
		seedKey := cards[i].ID + "|" + domain.ETDate(now)
		m := e.prob.Evaluate(cards[i], snap.Spot, snap.IVATM, seedKey)
		if m.Pop != nil {
			cards[i].PopPct = m.Pop
		}
		cards[i].TouchPct = m.Touch
		cards[i].EV = m.EV
		cards[i].RoR = m.RoR
		cards[i].MetricTier = string(m.Tier)
		out.Warnings = append(out.Warnings, m.Warnings...)
	}

	var healthRow *domain.ChecklistRow
	if row, inject := e.freshness.SystemHealthRow(out.Contract); inject {
		healthRow = &row
	} else if out.Contract.Status == domain.ContractDegraded {
		out.Warnings = append(out.Warnings,
			fmt.Sprintf("data contract degraded: %s", out.Contract.Issues[0]))
	}

	cards, blocks := e.gate.Apply(cards, snap, healthRow, killReason)
	out.Candidates = cards
	out.Blocks = blocks

	out.Ranked, out.PrimaryCandidateID = e.ranker.Rank(cards)
	out.Alerts = e.buildAlerts(cards, killReason, healthRow != nil)
	out.Status = e.status(out)

	e.logger.Info("tick evaluated",
		slog.String("status", string(out.Status)),
		slog.Int("candidates", len(out.Candidates)),
		slog.Int("ready", len(out.Ranked)),
		slog.String("primary", out.PrimaryCandidateID),
	)
	e.remember(out)
	return out
}

// buildAlerts emits pre-policy alerts for the tick: one ENTRY alert per
// ready candidate plus a SYSTEM alert when the circuit breaker tripped.
// Entry alerts are dropped wholesale under the kill switch and under a
// strict degraded contract; the policy engine throttles what remains.
func (e *Evaluator) buildAlerts(cards []domain.CandidateCard, killReason string, strictBlocked bool) []domain.AlertItem {
	var alerts []domain.AlertItem

	if killReason != "" {
		alerts = append(alerts, domain.AlertItem{
			ID:       domain.AlertFingerprint(domain.AlertSystem, "", nil),
			Type:     domain.AlertSystem,
			Reason:   killReason,
			Severity: domain.SeverityCritical,
		})
		return alerts
	}
	if strictBlocked {
		return alerts
	}

	for _, card := range cards {
		if !card.Ready {
			continue
		}
		alerts = append(alerts, domain.AlertItem{
			ID:       domain.AlertFingerprint(domain.AlertEntry, card.Strategy, card.Legs),
			Type:     domain.AlertEntry,
			Strategy: card.Strategy,
			Reason:   fmt.Sprintf("Entry criteria met for %s %d DTE; all required strategy checks passed.", card.Strategy, card.DaysToExpiry),
			Severity: domain.SeverityInfo,
			Legs:     card.Legs,
			Credit:   card.Credit,
		})
	}
	return alerts
}

func (e *Evaluator) status(out domain.DecisionOutput) domain.DecisionStatus {
	switch {
	case len(out.Ranked) > 0:
		return domain.DecisionReady
	case out.Contract.Status == domain.ContractDegraded:
		return domain.DecisionDegraded
	default:
		return domain.DecisionNoCandidate
	}
}

func (e *Evaluator) remember(out domain.DecisionOutput) {
	e.mu.Lock()
	e.last = &out
	e.mu.Unlock()
}
