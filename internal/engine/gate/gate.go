// Package gate applies the strict required-row gating, post-hoc integrity
// guards and the stale-data circuit breaker to built candidates.
package gate

import (
	"fmt"
	"log/slog"

	"spreadpilot/internal/domain"
)

// Engine runs the gating stage. Global and regime checklist sections stay
// advisory for the DTE credit-spread sleeves; only strategy rows bind.
type Engine struct {
	guards GuardConfig
	logger *slog.Logger
}

// NewEngine creates a gate Engine with the given guard thresholds.
func NewEngine(guards GuardConfig, logger *slog.Logger) *Engine {
	return &Engine{
		guards: guards,
		logger: logger.With(slog.String("component", "gate_engine")),
	}
}

// Apply gates every candidate in place and returns the gated copies plus the
// block reasons collected across candidates. healthRow, when non-nil, is the
// synthetic System Health row injected into every strategy checklist before
// strict enforcement. killReason, when non-empty, is the tripped circuit
// breaker: it forces every candidate not-ready regardless of per-row
// results.
func (e *Engine) Apply(cards []domain.CandidateCard, snap domain.MarketSnapshot, healthRow *domain.ChecklistRow, killReason string) ([]domain.CandidateCard, []string) {
	out := make([]domain.CandidateCard, 0, len(cards))
	var blocks []string

	for _, card := range cards {
		if healthRow != nil {
			rows := make([]domain.ChecklistRow, 0, len(card.Checklist.Strategy)+1)
			rows = append(rows, card.Checklist.Strategy...)
			rows = append(rows, *healthRow)
			card.Checklist.Strategy = rows
		}

		enforceStrict(&card)

		if card.Ready {
			if reason, blocked := e.integrityGuards(card, snap); blocked {
				card.Ready = false
				card.BlockedReason = reason
				blocks = append(blocks, fmt.Sprintf("%s: %s", card.ID, reason))
				e.logger.Warn("integrity guard blocked candidate",
					slog.String("candidate", card.ID),
					slog.String("reason", reason),
				)
			}
		} else if card.BlockedReason != "" {
			blocks = append(blocks, fmt.Sprintf("%s: %s", card.ID, card.BlockedReason))
		}

		if killReason != "" {
			card.Ready = false
			if card.BlockedReason == "" {
				card.BlockedReason = killReason
			}
		}

		out = append(out, card)
	}

	if killReason != "" {
		blocks = append(blocks, killReason)
	}
	return out, blocks
}

// enforceStrict finalizes readiness: raw ready AND every required strategy
// row passing. The blocked reason is the first failing required row in
// declared order, so operators always see a human-readable cause.
func enforceStrict(card *domain.CandidateCard) {
	row, failing := domain.FirstFailingRequired(card.Checklist.Strategy)
	if !failing {
		return
	}
	card.Ready = false
	card.BlockedReason = fmt.Sprintf("%s: %s", row.Name, row.Detail)
}
