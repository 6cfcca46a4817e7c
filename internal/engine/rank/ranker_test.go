package rank

import (
	"testing"

	"spreadpilot/internal/domain"
)

func fp(v float64) *float64 { return &v }

func card(id string, strategy domain.StrategyID, shortDelta, credit, width float64, ready bool) domain.CandidateCard {
	return domain.CandidateCard{
		ID:       id,
		Strategy: strategy,
		Ready:    ready,
		Credit:   credit,
		Width:    width,
		MaxRisk:  width - credit,
		Legs: []domain.OptionLeg{
			{Action: domain.ActionSell, Type: domain.TypePut, Strike: 4920, Delta: -shortDelta},
			{Action: domain.ActionBuy, Type: domain.TypePut, Strike: 4920 - width, Delta: -shortDelta / 2},
		},
	}
}

func TestRank_NotReadyExcluded(t *testing.T) {
	r := NewRanker(DefaultConfig())
	ranked, primary := r.Rank([]domain.CandidateCard{
		card("cand_a", domain.StrategyCreditSpread, 0.21, 1.2, 10, false),
	})
	if len(ranked) != 0 || primary != "" {
		t.Fatalf("blocked candidate ranked: %v primary=%q", ranked, primary)
	}
}

func TestRank_BestScoreWins(t *testing.T) {
	r := NewRanker(DefaultConfig())
	// Dead-center delta and richer credit/width vs off-band delta.
	good := card("cand_good", domain.StrategyCreditSpread, 0.21, 1.5, 10, true)
	poor := card("cand_poor", domain.StrategyCreditSpread, 0.05, 0.8, 10, true)

	ranked, primary := r.Rank([]domain.CandidateCard{poor, good})
	if len(ranked) != 2 {
		t.Fatalf("ranked=%d want 2", len(ranked))
	}
	if primary != "cand_good" || ranked[0].CandidateID != "cand_good" {
		t.Fatalf("primary=%q ranked[0]=%s", primary, ranked[0].CandidateID)
	}
	if ranked[0].Rank != 1 || ranked[1].Rank != 2 {
		t.Fatalf("ranks not sequential: %d %d", ranked[0].Rank, ranked[1].Rank)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Fatalf("ordering inconsistent with scores: %v <= %v", ranked[0].Score, ranked[1].Score)
	}
}

func TestRank_TieBreakByStrategyPriority(t *testing.T) {
	r := NewRanker(DefaultConfig())
	vertical := card("cand_z_vertical", domain.StrategyCreditSpread, 0.21, 1.2, 10, true)
	condor := card("cand_a_condor", domain.StrategyIronCondor, 0.21, 1.2, 10, true)

	ranked, primary := r.Rank([]domain.CandidateCard{condor, vertical})
	// Identical inputs give identical scores; the vertical outranks the
	// condor despite sorting after it lexically.
	if ranked[0].Score != ranked[1].Score {
		t.Fatalf("expected a score tie, got %v vs %v", ranked[0].Score, ranked[1].Score)
	}
	if primary != "cand_z_vertical" {
		t.Fatalf("primary=%q want the credit spread on priority tie-break", primary)
	}
}

func TestRank_TieBreakLexicalID(t *testing.T) {
	r := NewRanker(DefaultConfig())
	a := card("cand_aa", domain.StrategyCreditSpread, 0.21, 1.2, 10, true)
	b := card("cand_bb", domain.StrategyCreditSpread, 0.21, 1.2, 10, true)

	_, primary := r.Rank([]domain.CandidateCard{b, a})
	if primary != "cand_aa" {
		t.Fatalf("primary=%q want lexical winner", primary)
	}
}

func TestRank_Deterministic(t *testing.T) {
	r := NewRanker(DefaultConfig())
	cards := []domain.CandidateCard{
		card("cand_a", domain.StrategyCreditSpread, 0.18, 1.1, 10, true),
		card("cand_b", domain.StrategyIronCondor, 0.22, 2.2, 20, true),
		card("cand_c", domain.StrategyIronFly, 0.25, 3.0, 25, true),
	}

	first, firstPrimary := r.Rank(cards)
	for i := 0; i < 10; i++ {
		again, againPrimary := r.Rank(cards)
		if againPrimary != firstPrimary {
			t.Fatalf("primary flapped: %q vs %q", againPrimary, firstPrimary)
		}
		for j := range first {
			if again[j].CandidateID != first[j].CandidateID {
				t.Fatalf("order flapped at %d: %s vs %s", j, again[j].CandidateID, first[j].CandidateID)
			}
		}
	}
}

func TestScore_ProbabilityComponentsOptional(t *testing.T) {
	r := NewRanker(DefaultConfig())
	with := card("cand_with", domain.StrategyCreditSpread, 0.21, 1.2, 10, true)
	with.PopPct = fp(0.85)
	with.RoR = fp(0.1)
	with.EV = fp(0.4)
	without := card("cand_without", domain.StrategyCreditSpread, 0.21, 1.2, 10, true)

	ranked, _ := r.Rank([]domain.CandidateCard{with, without})
	if ranked[0].CandidateID != "cand_with" {
		t.Fatal("probability metrics should add to the score")
	}
	if ranked[0].Components.Pop == nil || ranked[1].Components.Pop != nil {
		t.Fatal("components must mirror metric availability")
	}
}
