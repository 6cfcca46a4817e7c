package engine

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"spreadpilot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func fp(v float64) *float64 { return &v }

// fixtureSnapshot is a healthy open-market tick carrying one ready 7 DTE
// bull put recommendation.
func fixtureSnapshot(now time.Time) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		TakenAt:    now,
		Spot:       fp(5000),
		IVATM:      fp(0.18),
		MarketOpen: true,
		LiveBars:   30,
		Source:     "primary",
		GreeksAt:   now.Add(-time.Minute),
		FeedTimestamps: map[string]time.Time{
			domain.FeedSpot:   now.Add(-5 * time.Second),
			domain.FeedChain:  now.Add(-30 * time.Second),
			domain.FeedGreeks: now.Add(-time.Minute),
			domain.FeedVIX:    now.Add(-2 * time.Minute),
		},
		Chain: []domain.ChainExpiration{
			{Expiration: "2026-08-26", DTE: 2},
			{Expiration: "2026-08-31", DTE: 7},
			{Expiration: "2026-09-07", DTE: 14},
		},
		Recommendations: []domain.RawRecommendation{
			domain.RawVertical{
				RawCommon: domain.RawCommon{
					RefID:     "cand_fixture_7d",
					TargetDTE: 7,
					Credit:    1.2,
					Ready:     true,
					Checklist: domain.Checklist{
						Strategy: []domain.ChecklistRow{
							domain.RequiredRow("delta band", domain.RowPass, "short delta 0.18"),
						},
					},
					Greeks:     domain.Greeks{Delta: 0.04, Gamma: -0.001, Theta: 0.9},
					LiveSource: true,
				},
				Side:  domain.SideBullPut,
				Short: domain.RawLeg{Action: "SELL", Type: "PUT", Strike: 4920, Delta: -0.18},
				Long:  domain.RawLeg{Action: "BUY", Type: "PUT", Strike: 4910, Delta: -0.12},
			},
		},
	}
}

func newTestEvaluator(now time.Time) *Evaluator {
	e := NewEvaluator(DefaultConfig(), testLogger())
	e.nowFn = func() time.Time { return now }
	return e
}

func TestEvaluate_ReadyTick(t *testing.T) {
	now := time.Date(2026, 8, 24, 11, 0, 0, 0, domain.ET())
	e := newTestEvaluator(now)

	out := e.Evaluate(context.Background(), fixtureSnapshot(now))
	if out.Status != domain.DecisionReady {
		t.Fatalf("status=%s blocks=%v warnings=%v", out.Status, out.Blocks, out.Warnings)
	}
	if out.PrimaryCandidateID != "cand_fixture_7d" {
		t.Fatalf("primary=%q", out.PrimaryCandidateID)
	}
	if len(out.Candidates) != 1 || !out.Candidates[0].Ready {
		t.Fatalf("candidates=%+v", out.Candidates)
	}
	card := out.Candidates[0]
	if card.PopPct == nil || card.EV == nil {
		t.Fatal("probability metrics missing on the card")
	}
	if len(out.Alerts) != 1 || out.Alerts[0].Type != domain.AlertEntry {
		t.Fatalf("alerts=%+v want one entry alert", out.Alerts)
	}
	if out.Alerts[0].Credit != 1.2 {
		t.Fatalf("alert credit=%v", out.Alerts[0].Credit)
	}

	last, ok := e.Last()
	if !ok || last.PrimaryCandidateID != out.PrimaryCandidateID {
		t.Fatal("Last() should return the tick just evaluated")
	}
}

func TestEvaluate_DeterministicAcrossTicksSameDay(t *testing.T) {
	now := time.Date(2026, 8, 24, 11, 0, 0, 0, domain.ET())
	e := newTestEvaluator(now)
	snap := fixtureSnapshot(now)

	first := e.Evaluate(context.Background(), snap)

	e.nowFn = func() time.Time { return now.Add(2 * time.Minute) }
	snap.TakenAt = now.Add(2 * time.Minute)
	second := e.Evaluate(context.Background(), snap)

	// Same candidate, same ET date: the seeded simulation must not jitter.
	if *first.Candidates[0].EV != *second.Candidates[0].EV {
		t.Fatalf("EV jittered between ticks: %v vs %v",
			*first.Candidates[0].EV, *second.Candidates[0].EV)
	}
}

func TestEvaluate_MarketClosedInactive(t *testing.T) {
	now := time.Date(2026, 8, 24, 3, 0, 0, 0, domain.ET())
	e := newTestEvaluator(now)
	snap := fixtureSnapshot(now)
	snap.MarketOpen = false

	out := e.Evaluate(context.Background(), snap)
	if out.Status != domain.DecisionInactive {
		t.Fatalf("status=%s want INACTIVE", out.Status)
	}
	if len(out.Candidates) != 0 || len(out.Alerts) != 0 {
		t.Fatal("inactive tick must not evaluate candidates")
	}
}

func TestEvaluate_KillSwitchEmitsSystemAlert(t *testing.T) {
	now := time.Date(2026, 8, 24, 11, 0, 0, 0, domain.ET())
	e := newTestEvaluator(now)
	snap := fixtureSnapshot(now)
	snap.LiveBars = 0

	out := e.Evaluate(context.Background(), snap)
	if out.Status == domain.DecisionReady {
		t.Fatal("tripped breaker must not yield READY")
	}
	if len(out.Candidates) != 1 || out.Candidates[0].Ready {
		t.Fatalf("candidates=%+v want the card forced not-ready", out.Candidates)
	}
	if len(out.Alerts) != 1 || out.Alerts[0].Type != domain.AlertSystem {
		t.Fatalf("alerts=%+v want a single SYSTEM alert", out.Alerts)
	}
	if out.Alerts[0].Severity != domain.SeverityCritical {
		t.Fatalf("severity=%s want critical", out.Alerts[0].Severity)
	}
}

func TestEvaluate_StrictDegradedSuppressesEntryAlerts(t *testing.T) {
	now := time.Date(2026, 8, 24, 11, 0, 0, 0, domain.ET())
	cfg := DefaultConfig()
	cfg.Freshness.StrictLiveBlocks = true

	e := NewEvaluator(cfg, testLogger())
	e.nowFn = func() time.Time { return now }

	snap := fixtureSnapshot(now)
	snap.FeedTimestamps[domain.FeedSpot] = now.Add(-10 * time.Minute)

	out := e.Evaluate(context.Background(), snap)
	if out.Status != domain.DecisionDegraded {
		t.Fatalf("status=%s want DEGRADED", out.Status)
	}
	if len(out.Alerts) != 0 {
		t.Fatalf("alerts=%+v want none under strict degraded", out.Alerts)
	}
	if out.Candidates[0].Ready {
		t.Fatal("candidate should be blocked by the health row")
	}
}

func TestEvaluate_NoCandidateWhenChainEmpty(t *testing.T) {
	now := time.Date(2026, 8, 24, 11, 0, 0, 0, domain.ET())
	e := newTestEvaluator(now)
	snap := fixtureSnapshot(now)
	snap.Chain = nil

	out := e.Evaluate(context.Background(), snap)
	if out.Status != domain.DecisionNoCandidate {
		t.Fatalf("status=%s want NO_CANDIDATE", out.Status)
	}
	if len(out.Warnings) == 0 {
		t.Fatal("expected a bucket resolution warning")
	}
}
