// Package expiry maps target DTE buckets onto the expirations actually
// available in the option chain.
package expiry

import (
	"sort"

	"spreadpilot/internal/domain"
)

// DefaultTargets are the standard 0-45 DTE sleeve targets.
var DefaultTargets = []int{2, 7, 14, 30, 45}

// Resolution is the outcome of resolving one target DTE bucket.
type Resolution struct {
	TargetDTE  int
	ActualDTE  int
	Expiration string
	Distance   int
	Found      bool
}

// Resolver selects, for each target DTE, the closest available expiration
// within tolerance.
type Resolver struct {
	tolerance int
}

// NewResolver creates a Resolver. A non-positive tolerance defaults to 3
// days.
func NewResolver(tolerance int) *Resolver {
	if tolerance <= 0 {
		tolerance = 3
	}
	return &Resolver{tolerance: tolerance}
}

// Resolve picks the chain expiration closest to targetDTE. When two
// expirations are equidistant, the nearer-but-not-exceeding one wins. If no
// expiration lies within tolerance the bucket yields Found=false, which the
// caller treats as NO_CANDIDATE for that bucket only, never as a gate
// failure.
func (r *Resolver) Resolve(targetDTE int, chain []domain.ChainExpiration) Resolution {
	res := Resolution{TargetDTE: targetDTE}

	sorted := make([]domain.ChainExpiration, len(chain))
	copy(sorted, chain)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].DTE < sorted[j].DTE })

	best := -1
	bestDist := 0
	for i, exp := range sorted {
		if exp.DTE < 0 {
			continue
		}
		dist := abs(exp.DTE - targetDTE)
		if best == -1 || dist < bestDist {
			best, bestDist = i, dist
			continue
		}
		// Equidistant: prefer the expiration at or before the target.
		if dist == bestDist && exp.DTE <= targetDTE && sorted[best].DTE > targetDTE {
			best = i
		}
	}

	if best == -1 || bestDist > r.tolerance {
		return res
	}

	res.ActualDTE = sorted[best].DTE
	res.Expiration = sorted[best].Expiration
	res.Distance = bestDist
	res.Found = true
	return res
}

// ResolveAll resolves every target against the chain, preserving target
// order. Buckets that resolve to the same expiration are kept; downstream
// candidate ids disambiguate by structure.
func (r *Resolver) ResolveAll(targets []int, chain []domain.ChainExpiration) []Resolution {
	out := make([]Resolution, 0, len(targets))
	for _, t := range targets {
		out = append(out, r.Resolve(t, chain))
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
