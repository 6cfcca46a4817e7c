package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// StrategyID identifies a strategy sleeve.
type StrategyID string

const (
	StrategyCreditSpread        StrategyID = "CREDIT_SPREAD"
	StrategyIronCondor          StrategyID = "IRON_CONDOR"
	StrategyIronFly             StrategyID = "IRON_FLY"
	StrategyBrokenWingButterfly StrategyID = "BWB_CREDIT_PUT"
)

// StrategyPriority is the fixed tie-break order used by the ranker: lower
// index wins. Strategies not listed rank after all listed ones.
var StrategyPriority = []StrategyID{
	StrategyCreditSpread,
	StrategyIronCondor,
	StrategyIronFly,
	StrategyBrokenWingButterfly,
}

// LegCount returns the canonical leg count the strategy's structure must
// have after malformed legs are dropped.
func (s StrategyID) LegCount() int {
	switch s {
	case StrategyCreditSpread:
		return 2
	case StrategyBrokenWingButterfly:
		return 3
	case StrategyIronCondor, StrategyIronFly:
		return 4
	default:
		return 0
	}
}

// Greeks holds position-level greeks at signal time.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// ConfidenceTier grades execution-model confidence.
type ConfidenceTier string

const (
	ConfidenceHigh   ConfidenceTier = "high"
	ConfidenceMedium ConfidenceTier = "medium"
	ConfidenceLow    ConfidenceTier = "low"
)

// ExecutionMeta carries the slippage model's output for a candidate.
type ExecutionMeta struct {
	Offset         float64        `json:"offset"`
	Confidence     ConfidenceTier `json:"confidence"`
	LiquidityRatio *float64       `json:"liquidity_ratio,omitempty"`
	LiveSource     bool           `json:"live_source"`
	TimeBucket     string         `json:"time_bucket"`
}

// CandidateCard is the canonical normalized candidate produced by the
// builder and threaded through probability, gating and ranking.
type CandidateCard struct {
	ID              string        `json:"id"`
	Strategy        StrategyID    `json:"strategy"`
	Legs            []OptionLeg   `json:"legs"`
	Width           float64       `json:"width"`
	Credit          float64       `json:"credit"`
	MaxRisk         float64       `json:"max_risk"`
	PopPct          *float64      `json:"pop_pct,omitempty"`
	TouchPct        *float64      `json:"touch_pct,omitempty"`
	EV              *float64      `json:"ev,omitempty"`
	RoR             *float64      `json:"ror,omitempty"`
	MetricTier      string        `json:"metric_tier,omitempty"`
	Ready           bool          `json:"ready"`
	BlockedReason   string        `json:"blocked_reason,omitempty"`
	Checklist       Checklist     `json:"checklist"`
	Greeks          Greeks        `json:"greeks"`
	DaysToExpiry    int           `json:"days_to_expiry"`
	Expiration      string        `json:"expiration"`
	AdjustedPremium float64       `json:"adjusted_premium"`
	Execution       ExecutionMeta `json:"execution"`
}

// CandidateID derives the stable content key of a real-world setup:
// strategy + expiration + leg signature, hashed to a short hex suffix.
// Repeated observation of the same setup always yields the same id, which is
// what makes the trade-memory upsert idempotent.
func CandidateID(strategy StrategyID, expiration string, legs []OptionLeg) string {
	sum := sha256.Sum256([]byte(string(strategy) + "|" + expiration + "|" + LegSignature(legs)))
	return fmt.Sprintf("cand_%s_%s", strategy.shortName(), hex.EncodeToString(sum[:6]))
}

func (s StrategyID) shortName() string {
	switch s {
	case StrategyCreditSpread:
		return "cs"
	case StrategyIronCondor:
		return "ic"
	case StrategyIronFly:
		return "if"
	case StrategyBrokenWingButterfly:
		return "bwb"
	default:
		return "x"
	}
}
