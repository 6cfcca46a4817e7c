// Package rank scores ready candidates deterministically and selects the
// tick's primary candidate.
package rank

import (
	"math"
	"sort"

	"spreadpilot/internal/domain"
)

// Weights are the score component weights. Pop/RoR/EVRoR contribute only
// when the probability engine produced the underlying metric.
type Weights struct {
	DeltaFit     float64
	CreditWidth  float64
	GammaPenalty float64
	Pop          float64
	RoR          float64
	EVRoR        float64
}

// DefaultWeights mirror the sleeve tuning: delta fit dominates, gamma risk
// subtracts.
func DefaultWeights() Weights {
	return Weights{
		DeltaFit:     0.35,
		CreditWidth:  0.25,
		GammaPenalty: 0.15,
		Pop:          0.15,
		RoR:          0.05,
		EVRoR:        0.05,
	}
}

// Config tunes the ranker: weights plus the target short-delta band.
type Config struct {
	Weights         Weights
	TargetDeltaLow  float64
	TargetDeltaHigh float64
}

// DefaultConfig targets the 0.12-0.30 absolute short-delta band.
func DefaultConfig() Config {
	return Config{Weights: DefaultWeights(), TargetDeltaLow: 0.12, TargetDeltaHigh: 0.30}
}

// Ranker scores and orders ready candidates.
type Ranker struct {
	cfg      Config
	priority map[domain.StrategyID]int
}

// NewRanker creates a Ranker with the fixed strategy tie-break order.
func NewRanker(cfg Config) *Ranker {
	priority := make(map[domain.StrategyID]int, len(domain.StrategyPriority))
	for i, s := range domain.StrategyPriority {
		priority[s] = i
	}
	return &Ranker{cfg: cfg, priority: priority}
}

// Rank scores the ready candidates and returns them ordered best first,
// plus the primary candidate id (empty when nothing is ready). Ordering is
// fully deterministic: score desc, then strategy priority, then lexical id.
func (r *Ranker) Rank(cards []domain.CandidateCard) ([]domain.RankedCandidate, string) {
	ranked := make([]domain.RankedCandidate, 0, len(cards))
	strategies := make(map[string]domain.StrategyID, len(cards))

	for _, card := range cards {
		if !card.Ready {
			continue
		}
		score, components := r.score(card)
		ranked = append(ranked, domain.RankedCandidate{
			CandidateID: card.ID,
			Score:       score,
			Components:  components,
		})
		strategies[card.ID] = card.Strategy
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		pi, pj := r.priorityOf(strategies[ranked[i].CandidateID]), r.priorityOf(strategies[ranked[j].CandidateID])
		if pi != pj {
			return pi < pj
		}
		return ranked[i].CandidateID < ranked[j].CandidateID
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	if len(ranked) == 0 {
		return ranked, ""
	}
	return ranked, ranked[0].CandidateID
}

func (r *Ranker) priorityOf(s domain.StrategyID) int {
	if p, ok := r.priority[s]; ok {
		return p
	}
	return len(r.priority)
}

// score computes the weighted combination for one ready candidate.
func (r *Ranker) score(card domain.CandidateCard) (float64, domain.ScoreComponents) {
	w := r.cfg.Weights
	comp := domain.ScoreComponents{}

	// Delta fit: distance of the short-leg absolute delta from the target
	// band midpoint, normalized to [0,1] where 1 is dead center.
	center := (r.cfg.TargetDeltaLow + r.cfg.TargetDeltaHigh) / 2
	halfBand := (r.cfg.TargetDeltaHigh - r.cfg.TargetDeltaLow) / 2
	if short, ok := domain.ShortLeg(card.Legs); ok && halfBand > 0 {
		dist := math.Abs(math.Abs(short.Delta)-center) / halfBand
		comp.DeltaFit = math.Max(0, 1-dist)
	}

	if card.Width > 0 {
		comp.CreditWidth = card.Credit / card.Width
	}

	// Gamma penalty grows with position gamma magnitude; scaled so typical
	// index-spread gammas land in [0,1].
	comp.GammaPenalty = math.Min(1, math.Abs(card.Greeks.Gamma)*100)

	score := w.DeltaFit*comp.DeltaFit + w.CreditWidth*comp.CreditWidth - w.GammaPenalty*comp.GammaPenalty

	if card.PopPct != nil {
		comp.Pop = card.PopPct
		score += w.Pop * *card.PopPct
	}
	if card.RoR != nil {
		comp.RoR = card.RoR
		score += w.RoR * *card.RoR
	}
	if card.EV != nil && card.MaxRisk > 0 {
		evRoR := *card.EV / card.MaxRisk
		comp.EVRoR = &evRoR
		score += w.EVRoR * evRoR
	}
	return score, comp
}
