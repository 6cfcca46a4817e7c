package prob

import (
	"fmt"
	"log/slog"

	"spreadpilot/internal/domain"
)

// Config tunes the probability engine.
type Config struct {
	Paths int
}

// Engine computes the metric set for candidates. It is stateless; all
// randomness is derived from the per-candidate seed key.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// NewEngine creates an Engine. Paths outside [MinPaths, MaxPaths] are
// clamped at simulation time.
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if cfg.Paths == 0 {
		cfg.Paths = 4000
	}
	return &Engine{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "prob_engine")),
	}
}

// Evaluate computes PoP, touch, EV and RoR for a candidate. spot and iv may
// be nil; dte comes from the card. seedKey should be stable per candidate
// per day (candidate id + ET date). Missing preconditions yield nil metrics
// and explicit warnings, never a guess.
func (e *Engine) Evaluate(card domain.CandidateCard, spot, iv *float64, seedKey string) Metrics {
	m := Metrics{Tier: TierLow}

	if spot == nil || *spot <= 0 {
		m.Warnings = append(m.Warnings, fmt.Sprintf("%s: spot unavailable, probability metrics skipped", card.ID))
		return m
	}
	if iv == nil || *iv <= 0 {
		m.Warnings = append(m.Warnings, fmt.Sprintf("%s: IV unavailable, probability metrics skipped", card.ID))
		return m
	}
	sig, err := sigma(*iv, card.DaysToExpiry)
	if err != nil {
		m.Warnings = append(m.Warnings, fmt.Sprintf("%s: %v", card.ID, err))
		return m
	}

	m.Tier = confidenceTier(*iv, card.DaysToExpiry)

	beLow, beHigh := breakevens(card.Legs, card.Credit)
	switch {
	case beLow != nil && beHigh != nil:
		pop := popTwoSided(*spot, *beLow, *beHigh, sig)
		m.Pop = &pop
	case beLow != nil:
		pop := popVertical(*spot, *beLow, sig, domain.TypePut)
		m.Pop = &pop
	case beHigh != nil:
		pop := popVertical(*spot, *beHigh, sig, domain.TypeCall)
		m.Pop = &pop
	default:
		m.Warnings = append(m.Warnings, fmt.Sprintf("%s: no short leg, PoP skipped", card.ID))
	}

	if touch := e.touch(card, *spot, sig); touch != nil {
		m.Touch = touch
	}

	ev := monteCarloEV(card.Legs, *spot, sig, card.Credit, e.cfg.Paths, seedKey)
	m.EV = &ev
	if card.MaxRisk > 0 {
		ror := ev / card.MaxRisk
		m.RoR = &ror
	} else {
		m.Warnings = append(m.Warnings, fmt.Sprintf("%s: non-positive max risk, RoR skipped", card.ID))
	}
	return m
}

// touch aggregates per-side touch probabilities; two-sided structures sum
// both sides under the same min(1, ·) clamp.
func (e *Engine) touch(card domain.CandidateCard, spot, sig float64) *float64 {
	var total float64
	var found bool
	for _, l := range card.Legs {
		if l.Action != domain.ActionSell {
			continue
		}
		total += touchProbability(spot, l.Strike, sig, l.Type)
		found = true
	}
	if !found {
		return nil
	}
	if total > 1 {
		total = 1
	}
	return &total
}
