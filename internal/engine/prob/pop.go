// Package prob computes probability-of-profit, probability-of-touch and
// seeded Monte-Carlo expected value for credit structures. Every metric
// short-circuits to nil with an explicit warning when its preconditions are
// unmet; the engine never substitutes a default guess.
package prob

import (
	"fmt"
	"math"

	"spreadpilot/internal/domain"
)

// Tier grades the model-confidence of a metric set.
type Tier string

const (
	TierHigh Tier = "HIGH"
	TierMed  Tier = "MED"
	TierLow  Tier = "LOW"
)

// Metrics is the probability engine's output for one candidate. Nil fields
// mean the corresponding computation's preconditions were unmet.
type Metrics struct {
	Pop      *float64
	Touch    *float64
	EV       *float64
	RoR      *float64
	Tier     Tier
	Warnings []string
}

// sigma returns IV·√T with T in years, or an error when inputs are unusable.
func sigma(iv float64, dte int) (float64, error) {
	if iv <= 0 {
		return 0, fmt.Errorf("%w: non-positive IV %.4f", domain.ErrComputationInvalid, iv)
	}
	if dte <= 0 {
		return 0, fmt.Errorf("%w: non-positive DTE %d", domain.ErrComputationInvalid, dte)
	}
	return iv * math.Sqrt(float64(dte)/365.0), nil
}

// zScore is ln(strike/spot) / sigma under the lognormal terminal model.
func zScore(strike, spot, sig float64) float64 {
	return math.Log(strike/spot) / sig
}

// normCDF is the standard normal CDF Φ.
func normCDF(x float64) float64 {
	return 0.5 * (1.0 + math.Erf(x/math.Sqrt2))
}

// popVertical computes PoP for a single-sided credit vertical from its
// breakeven. Put-credit profits above the breakeven, call-credit below it.
func popVertical(spot, breakeven, sig float64, side domain.LegType) float64 {
	z := zScore(breakeven, spot, sig)
	if side == domain.TypePut {
		return clamp01(1 - normCDF(z))
	}
	return clamp01(normCDF(z))
}

// popTwoSided computes PoP for an iron fly/condor from both breakevens.
func popTwoSided(spot, beLow, beHigh, sig float64) float64 {
	zLow := zScore(beLow, spot, sig)
	zHigh := zScore(beHigh, spot, sig)
	return clamp01(normCDF(zHigh) - normCDF(zLow))
}

// touchProbability approximates the probability of touching the short
// strike before expiry via the reflection principle: min(1, 2·P(ITM)).
func touchProbability(spot, shortStrike, sig float64, side domain.LegType) float64 {
	z := zScore(shortStrike, spot, sig)
	var itm float64
	if side == domain.TypePut {
		itm = normCDF(z)
	} else {
		itm = 1 - normCDF(z)
	}
	return math.Min(1, 2*itm)
}

// confidenceTier grades inputs: HIGH only inside the calibrated envelope
// DTE in [7,60] and IV in [0.05,1.5] decimal.
func confidenceTier(iv float64, dte int) Tier {
	if dte >= 7 && dte <= 60 && iv >= 0.05 && iv <= 1.5 {
		return TierHigh
	}
	if dte < 2 || dte > 120 || iv < 0.02 || iv > 2.0 {
		return TierLow
	}
	return TierMed
}

// breakevens derives the profit boundaries of a credit structure from its
// short legs and the collected credit.
func breakevens(legs []domain.OptionLeg, credit float64) (low, high *float64) {
	for _, l := range legs {
		if l.Action != domain.ActionSell {
			continue
		}
		if l.Type == domain.TypePut {
			be := l.Strike - credit
			if low == nil || be < *low {
				low = &be
			}
		} else {
			be := l.Strike + credit
			if high == nil || be > *high {
				high = &be
			}
		}
	}
	return low, high
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
