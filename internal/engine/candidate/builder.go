// Package candidate normalizes heterogeneous per-strategy raw
// recommendations into canonical CandidateCards and applies the
// execution/slippage model.
package candidate

import (
	"fmt"
	"log/slog"
	"time"

	"spreadpilot/internal/domain"
	"spreadpilot/internal/engine/expiry"
)

// Builder turns raw recommendations into CandidateCards. One malformed
// recommendation is dropped with a warning and never aborts the tick.
type Builder struct {
	slippage SlippageConfig
	logger   *slog.Logger
}

// NewBuilder creates a Builder with the given slippage model.
func NewBuilder(slippage SlippageConfig, logger *slog.Logger) *Builder {
	return &Builder{
		slippage: slippage,
		logger:   logger.With(slog.String("component", "candidate_builder")),
	}
}

// Build normalizes every recommendation in the snapshot against the resolved
// DTE buckets. Recommendations whose bucket did not resolve are skipped (the
// bucket is NO_CANDIDATE, not an error). Returns the cards plus accumulated
// per-candidate warnings.
func (b *Builder) Build(snap domain.MarketSnapshot, resolutions []expiry.Resolution, now time.Time) ([]domain.CandidateCard, []string) {
	byTarget := make(map[int]expiry.Resolution, len(resolutions))
	for _, res := range resolutions {
		byTarget[res.TargetDTE] = res
	}

	cards := make([]domain.CandidateCard, 0, len(snap.Recommendations))
	var warnings []string

	for _, raw := range snap.Recommendations {
		common := raw.Common()
		res, ok := byTarget[common.TargetDTE]
		if !ok || !res.Found {
			warnings = append(warnings, fmt.Sprintf("%s: no expiration within tolerance of %d DTE",
				raw.StrategyID(), common.TargetDTE))
			continue
		}

		card, cardWarnings, err := b.buildOne(raw, res, now)
		warnings = append(warnings, cardWarnings...)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: rejected: %v", raw.StrategyID(), err))
			b.logger.Warn("candidate rejected",
				slog.String("strategy", string(raw.StrategyID())),
				slog.String("error", err.Error()),
			)
			continue
		}
		cards = append(cards, card)
	}
	return cards, warnings
}

func (b *Builder) buildOne(raw domain.RawRecommendation, res expiry.Resolution, now time.Time) (domain.CandidateCard, []string, error) {
	common := raw.Common()

	st, warnings, err := adapt(raw)
	if err != nil {
		return domain.CandidateCard{}, warnings, err
	}
	if st.maxRisk <= 0 {
		return domain.CandidateCard{}, warnings,
			fmt.Errorf("%w: non-positive max risk %.2f", domain.ErrInvalidInput, st.maxRisk)
	}

	id := common.RefID
	if id == "" {
		id = domain.CandidateID(raw.StrategyID(), res.Expiration, st.legs)
	}

	adjusted, execMeta := b.slippage.apply(st.width, common.Credit, common.LiveSource, common.LiquidityRatio, now)

	card := domain.CandidateCard{
		ID:              id,
		Strategy:        raw.StrategyID(),
		Legs:            st.legs,
		Width:           st.width,
		Credit:          common.Credit,
		MaxRisk:         st.maxRisk,
		Ready:           common.Ready,
		Checklist:       common.Checklist,
		Greeks:          common.Greeks,
		DaysToExpiry:    res.ActualDTE,
		Expiration:      res.Expiration,
		AdjustedPremium: adjusted,
		Execution:       execMeta,
	}

	// Delta-approximation PoP: the fallback probability when the full model
	// is not run for this candidate.
	if short, ok := domain.ShortLeg(st.legs); ok {
		pop := clamp(1-abs(short.Delta), 0, 1)
		card.PopPct = &pop
	}
	return card, warnings, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
