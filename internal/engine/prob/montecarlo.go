package prob

import (
	"hash/fnv"
	"math"
	"math/rand"

	"spreadpilot/internal/domain"
)

// Path-count bounds: the cap keeps per-tick latency bounded, the floor keeps
// the estimate usable.
const (
	MinPaths = 500
	MaxPaths = 20000
)

// mcSeed derives a deterministic seed from a stable string key, typically
// candidate id + ET date. The same candidate re-evaluated on the same day
// always simulates the same paths, so EV does not jitter between ticks.
func mcSeed(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}

// expiryValue is the intrinsic value of the whole position at terminal
// price, signed from the holder's perspective (BUY +, SELL −).
func expiryValue(legs []domain.OptionLeg, terminal float64) float64 {
	var total float64
	for _, l := range legs {
		var intrinsic float64
		if l.Type == domain.TypePut {
			intrinsic = math.Max(l.Strike-terminal, 0)
		} else {
			intrinsic = math.Max(terminal-l.Strike, 0)
		}
		dir := 1.0
		if l.Action == domain.ActionSell {
			dir = -1.0
		}
		total += dir * float64(l.Quantity()) * intrinsic
	}
	return total
}

// monteCarloEV simulates lognormal terminal prices (mu = ln(spot) − σ²/2)
// and returns the mean per-path P&L of credit + position intrinsic.
func monteCarloEV(legs []domain.OptionLeg, spot, sig, credit float64, paths int, seedKey string) float64 {
	if paths < MinPaths {
		paths = MinPaths
	}
	if paths > MaxPaths {
		paths = MaxPaths
	}

	rng := rand.New(rand.NewSource(mcSeed(seedKey)))
	mu := math.Log(spot) - 0.5*sig*sig

	var sum float64
	for i := 0; i < paths; i++ {
		terminal := math.Exp(mu + sig*rng.NormFloat64())
		sum += credit + expiryValue(legs, terminal)
	}
	return sum / float64(paths)
}
