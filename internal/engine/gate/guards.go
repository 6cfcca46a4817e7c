package gate

import (
	"fmt"
	"math"
	"time"

	"spreadpilot/internal/domain"
)

// GuardConfig tunes the post-hoc integrity guards. A short strike is only
// rejected when it exceeds BOTH the relative and the absolute distance
// threshold, so neither a calm tape nor a high-priced underlying trips the
// guard alone. Documented defaults are examples, not contracts.
type GuardConfig struct {
	MaxStrikeDistancePct float64
	MaxStrikeDistanceAbs float64
	MaxGreeksSkew        time.Duration
}

// DefaultGuards returns the documented example thresholds.
func DefaultGuards() GuardConfig {
	return GuardConfig{
		MaxStrikeDistancePct: 0.10,
		MaxStrikeDistanceAbs: 400,
		MaxGreeksSkew:        5 * time.Minute,
	}
}

// integrityGuards runs the strike/feed cross-checks against an otherwise
// ready candidate. Each failure produces its own distinct, loggable reason;
// the first failing guard wins. Guards only ever flip ready to false.
func (e *Engine) integrityGuards(card domain.CandidateCard, snap domain.MarketSnapshot) (string, bool) {
	if reason, blocked := e.strikeSanity(card, snap); blocked {
		return reason, true
	}

	chain, found := snap.ChainFor(card.Expiration)
	if !found {
		return fmt.Sprintf("expiration %s missing from chain", card.Expiration), true
	}
	if reason, blocked := legSymbolsPresent(card, chain); blocked {
		return reason, true
	}
	if reason, blocked := e.greeksConsistent(card, snap); blocked {
		return reason, true
	}
	return "", false
}

// strikeSanity blocks a candidate whose short strike sits implausibly far
// from spot, which almost always means the chain and spot feeds disagree.
func (e *Engine) strikeSanity(card domain.CandidateCard, snap domain.MarketSnapshot) (string, bool) {
	short, ok := domain.ShortLeg(card.Legs)
	if !ok || snap.Spot == nil || *snap.Spot <= 0 {
		return "", false
	}
	dist := math.Abs(short.Strike - *snap.Spot)
	rel := dist / *snap.Spot
	if rel > e.guards.MaxStrikeDistancePct && dist > e.guards.MaxStrikeDistanceAbs {
		return fmt.Sprintf("short strike %.0f is %.1f%% (%.0f pts) from spot %.0f",
			short.Strike, rel*100, dist, *snap.Spot), true
	}
	return "", false
}

// legSymbolsPresent verifies that every leg carrying a symbol is quoted
// under the selected expiration. Legs without symbols are skipped; symbol
// presence is only checkable when the chain reports its symbol set.
func legSymbolsPresent(card domain.CandidateCard, chain domain.ChainExpiration) (string, bool) {
	if len(chain.Symbols) == 0 {
		return "", false
	}
	known := make(map[string]bool, len(chain.Symbols))
	for _, s := range chain.Symbols {
		known[s] = true
	}
	for _, leg := range card.Legs {
		if leg.Symbol != "" && !known[leg.Symbol] {
			return fmt.Sprintf("leg symbol %s missing from chain %s", leg.Symbol, chain.Expiration), true
		}
	}
	return "", false
}

// greeksConsistent blocks when greeks are absent or their timestamp has
// diverged from the chain's beyond the allowed skew.
func (e *Engine) greeksConsistent(card domain.CandidateCard, snap domain.MarketSnapshot) (string, bool) {
	if card.Greeks == (domain.Greeks{}) {
		return "greeks missing for selected legs", true
	}
	chainTS, chainOK := snap.FeedTimestamps[domain.FeedChain]
	if snap.GreeksAt.IsZero() {
		return "greeks timestamp missing", true
	}
	if chainOK && !chainTS.IsZero() {
		skew := chainTS.Sub(snap.GreeksAt)
		if skew < 0 {
			skew = -skew
		}
		if skew > e.guards.MaxGreeksSkew {
			return fmt.Sprintf("greeks age diverges from chain by %s", skew.Round(time.Second)), true
		}
	}
	return "", false
}
