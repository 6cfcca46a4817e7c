package candidate

import (
	"time"

	"spreadpilot/internal/domain"
)

// SlippageConfig tunes the execution model. Offsets are premium points per
// spread; time-of-day multipliers scale the width-bucket base offset.
type SlippageConfig struct {
	WideWidthCutoff float64
	NarrowOffset    float64
	WideOffset      float64
	OpenMult        float64
	MiddayMult      float64
	LateMult        float64
	CloseMult       float64
	HighLiquidity   float64
	MedLiquidity    float64
}

// DefaultSlippage returns documented example values; operators tune these
// per instrument.
func DefaultSlippage() SlippageConfig {
	return SlippageConfig{
		WideWidthCutoff: 20,
		NarrowOffset:    0.05,
		WideOffset:      0.10,
		OpenMult:        1.5,
		MiddayMult:      1.0,
		LateMult:        1.2,
		CloseMult:       1.8,
		HighLiquidity:   0.10,
		MedLiquidity:    0.18,
	}
}

// timeBucket classifies the ET session clock into the four execution
// windows the offset multipliers are keyed by.
func timeBucket(now time.Time) string {
	et := now.In(domain.ET())
	minutes := et.Hour()*60 + et.Minute()
	switch {
	case minutes < 10*60+30:
		return "open"
	case minutes < 14*60:
		return "midday"
	case minutes < 15*60+30:
		return "late"
	default:
		return "close"
	}
}

// apply computes the execution offset for a candidate and returns the
// adjusted premium plus metadata. The offset magnitude depends on the
// spread-width bucket and the time-of-day bucket; confidence comes from the
// live-source flag and the estimated liquidity ratio.
func (c SlippageConfig) apply(width, credit float64, liveSource bool, liquidityRatio *float64, now time.Time) (float64, domain.ExecutionMeta) {
	base := c.NarrowOffset
	if width >= c.WideWidthCutoff {
		base = c.WideOffset
	}

	bucket := timeBucket(now)
	mult := c.MiddayMult
	switch bucket {
	case "open":
		mult = c.OpenMult
	case "late":
		mult = c.LateMult
	case "close":
		mult = c.CloseMult
	}

	offset := base * mult
	adjusted := credit - offset
	if adjusted < 0 {
		adjusted = 0
	}

	meta := domain.ExecutionMeta{
		Offset:         offset,
		Confidence:     c.confidence(liveSource, liquidityRatio),
		LiquidityRatio: liquidityRatio,
		LiveSource:     liveSource,
		TimeBucket:     bucket,
	}
	return adjusted, meta
}

func (c SlippageConfig) confidence(liveSource bool, liquidityRatio *float64) domain.ConfidenceTier {
	if liveSource && liquidityRatio != nil && *liquidityRatio <= c.HighLiquidity {
		return domain.ConfidenceHigh
	}
	if liveSource || (liquidityRatio != nil && *liquidityRatio <= c.MedLiquidity) {
		return domain.ConfidenceMedium
	}
	return domain.ConfidenceLow
}
