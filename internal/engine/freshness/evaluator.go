// Package freshness validates per-feed ages against policy and arbitrates
// the tick's aggregate data-contract status.
package freshness

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"spreadpilot/internal/domain"
)

// Policy configures the evaluator: per-feed maximum ages and the set of
// feeds that must be present and fresh for the contract to be healthy.
type Policy struct {
	MaxAge           map[string]time.Duration
	Required         []string
	StrictLiveBlocks bool
}

// DefaultPolicy covers the four standard feeds with conservative ages.
func DefaultPolicy() Policy {
	return Policy{
		MaxAge: map[string]time.Duration{
			domain.FeedSpot:   30 * time.Second,
			domain.FeedChain:  2 * time.Minute,
			domain.FeedGreeks: 2 * time.Minute,
			domain.FeedVIX:    5 * time.Minute,
		},
		Required: []string{domain.FeedSpot, domain.FeedChain, domain.FeedGreeks},
	}
}

// Evaluator emits the per-tick data-contract verdict.
type Evaluator struct {
	policy Policy
	logger *slog.Logger
}

// NewEvaluator creates an Evaluator with the given policy.
func NewEvaluator(policy Policy, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		policy: policy,
		logger: logger.With(slog.String("component", "freshness")),
	}
}

// StrictLiveBlocks reports whether a degraded contract must block entries.
func (e *Evaluator) StrictLiveBlocks() bool { return e.policy.StrictLiveBlocks }

// Evaluate derives per-feed states and the aggregate status. The status is
// inactive when the market is closed and simulation is not overriding,
// degraded when the market is open and at least one required feed is missing
// or stale, healthy otherwise. Issues are ordered most severe first: missing
// feeds before stale ones, required feeds before optional ones.
func (e *Evaluator) Evaluate(snap domain.MarketSnapshot, now time.Time) domain.DataContractResult {
	feeds := make(map[string]domain.FeedState, len(e.policy.MaxAge))

	keys := make([]string, 0, len(e.policy.MaxAge))
	for key := range e.policy.MaxAge {
		keys = append(keys, key)
	}
	for key := range snap.FeedTimestamps {
		if _, known := e.policy.MaxAge[key]; !known {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var missing, stale []string
	required := make(map[string]bool, len(e.policy.Required))
	for _, key := range e.policy.Required {
		required[key] = true
	}

	for _, key := range keys {
		state := domain.FeedState{Key: key, Source: snap.FeedSources[key]}
		ts, ok := snap.FeedTimestamps[key]
		switch {
		case !ok || ts.IsZero():
			state.Err = "no timestamp reported"
			if required[key] {
				missing = append(missing, fmt.Sprintf("%s feed missing", key))
			}
		default:
			state.Timestamp = ts
			state.Age = now.Sub(ts)
			maxAge, bounded := e.policy.MaxAge[key]
			if bounded && state.Age > maxAge {
				state.Err = fmt.Sprintf("age %s exceeds max %s", state.Age.Round(time.Millisecond), maxAge)
				if required[key] {
					stale = append(stale, fmt.Sprintf("%s feed stale (%s)", key, state.Age.Round(time.Second)))
				}
			} else {
				state.Valid = true
			}
		}
		feeds[key] = state
	}

	result := domain.DataContractResult{Feeds: feeds}
	result.Issues = append(result.Issues, missing...)
	result.Issues = append(result.Issues, stale...)

	switch {
	case !snap.MarketOpen && !snap.SimOverride:
		result.Status = domain.ContractInactive
	case len(result.Issues) > 0:
		result.Status = domain.ContractDegraded
		e.logger.Warn("data contract degraded",
			slog.Int("issues", len(result.Issues)),
			slog.String("first", result.Issues[0]),
		)
	default:
		result.Status = domain.ContractHealthy
	}
	return result
}

// SystemHealthRow returns the synthetic strategy-checklist row injected
// under strict-live-blocks when the contract is degraded: a required blocked
// row whose detail is the most severe issue. The second return is false when
// no row is needed.
func (e *Evaluator) SystemHealthRow(result domain.DataContractResult) (domain.ChecklistRow, bool) {
	if !e.policy.StrictLiveBlocks || result.Status != domain.ContractDegraded || len(result.Issues) == 0 {
		return domain.ChecklistRow{}, false
	}
	return domain.RequiredRow("System Health gate", domain.RowBlocked, result.Issues[0]), true
}
