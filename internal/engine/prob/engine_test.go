package prob

import (
	"log/slog"
	"testing"

	"spreadpilot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func bullPutCard() domain.CandidateCard {
	return domain.CandidateCard{
		ID:           "cand_cs_test",
		Strategy:     domain.StrategyCreditSpread,
		DaysToExpiry: 14,
		Credit:       1.2,
		MaxRisk:      8.8,
		Legs: []domain.OptionLeg{
			{Action: domain.ActionSell, Type: domain.TypePut, Strike: 4920, Delta: -0.18},
			{Action: domain.ActionBuy, Type: domain.TypePut, Strike: 4910, Delta: -0.12},
		},
	}
}

func fp(v float64) *float64 { return &v }

func TestEvaluate_MissingSpotSkipsAll(t *testing.T) {
	e := NewEngine(Config{Paths: 1000}, testLogger())
	m := e.Evaluate(bullPutCard(), nil, fp(0.18), "k")
	if m.Pop != nil || m.EV != nil || m.Touch != nil || m.RoR != nil {
		t.Fatalf("metrics computed without spot: %+v", m)
	}
	if m.Tier != TierLow || len(m.Warnings) == 0 {
		t.Fatalf("want low tier plus warning, got %+v", m)
	}
}

func TestEvaluate_MissingIVSkipsAll(t *testing.T) {
	e := NewEngine(Config{Paths: 1000}, testLogger())
	m := e.Evaluate(bullPutCard(), fp(5000), nil, "k")
	if m.Pop != nil || m.EV != nil {
		t.Fatalf("metrics computed without IV: %+v", m)
	}
}

func TestEvaluate_BullPutMetrics(t *testing.T) {
	e := NewEngine(Config{Paths: 2000}, testLogger())
	m := e.Evaluate(bullPutCard(), fp(5000), fp(0.18), "k")

	if m.Pop == nil || m.Touch == nil || m.EV == nil || m.RoR == nil {
		t.Fatalf("incomplete metrics: %+v", m)
	}
	// Short strike well below spot: comfortably better than a coin flip.
	if *m.Pop <= 0.5 || *m.Pop > 1 {
		t.Fatalf("pop=%v out of plausible range", *m.Pop)
	}
	// Touch is at least the ITM probability, at most 1.
	if *m.Touch < 0 || *m.Touch > 1 {
		t.Fatalf("touch=%v out of [0,1]", *m.Touch)
	}
	if m.Tier != TierHigh {
		t.Fatalf("tier=%s want HIGH for 14 DTE / 18%% IV", m.Tier)
	}
	if *m.RoR != *m.EV/8.8 {
		t.Fatalf("ror=%v inconsistent with ev=%v", *m.RoR, *m.EV)
	}
}

func TestEvaluate_PopDecreasesWithIV(t *testing.T) {
	e := NewEngine(Config{Paths: 1000}, testLogger())
	card := bullPutCard()

	prev := 2.0
	for _, iv := range []float64{0.10, 0.20, 0.40, 0.80} {
		m := e.Evaluate(card, fp(5000), fp(iv), "k")
		if m.Pop == nil {
			t.Fatalf("pop missing at iv=%v", iv)
		}
		if *m.Pop >= prev {
			t.Fatalf("pop not monotonically decreasing in IV: %v at iv=%v, prev %v", *m.Pop, iv, prev)
		}
		prev = *m.Pop
	}
}

func TestEvaluate_PopDecreasesWithDTE(t *testing.T) {
	e := NewEngine(Config{Paths: 1000}, testLogger())
	card := bullPutCard()

	prev := 2.0
	for _, dte := range []int{7, 14, 30, 45} {
		card.DaysToExpiry = dte
		m := e.Evaluate(card, fp(5000), fp(0.18), "k")
		if m.Pop == nil {
			t.Fatalf("pop missing at dte=%d", dte)
		}
		if *m.Pop >= prev {
			t.Fatalf("pop not decreasing in DTE: %v at %d, prev %v", *m.Pop, dte, prev)
		}
		prev = *m.Pop
	}
}

func TestEvaluate_EVDeterministicPerSeedKey(t *testing.T) {
	e := NewEngine(Config{Paths: 2000}, testLogger())
	card := bullPutCard()

	a := e.Evaluate(card, fp(5000), fp(0.18), "cand_cs_test|2026-08-24")
	b := e.Evaluate(card, fp(5000), fp(0.18), "cand_cs_test|2026-08-24")
	if *a.EV != *b.EV {
		t.Fatalf("same seed key must give identical EV: %v vs %v", *a.EV, *b.EV)
	}

	c := e.Evaluate(card, fp(5000), fp(0.18), "cand_cs_test|2026-08-25")
	if *a.EV == *c.EV {
		t.Fatal("different seed key should simulate different paths")
	}
}

func TestEvaluate_ZeroDTEYieldsWarning(t *testing.T) {
	e := NewEngine(Config{Paths: 1000}, testLogger())
	card := bullPutCard()
	card.DaysToExpiry = 0

	m := e.Evaluate(card, fp(5000), fp(0.18), "k")
	if m.Pop != nil {
		t.Fatal("pop computed with zero DTE")
	}
	if len(m.Warnings) == 0 {
		t.Fatal("expected an explicit warning")
	}
}

func TestConfidenceTier(t *testing.T) {
	cases := []struct {
		iv   float64
		dte  int
		want Tier
	}{
		{0.18, 14, TierHigh},
		{0.18, 5, TierMed},
		{0.18, 90, TierMed},
		{0.18, 1, TierLow},
		{0.01, 14, TierLow},
		{2.5, 14, TierLow},
	}
	for _, tc := range cases {
		if got := confidenceTier(tc.iv, tc.dte); got != tc.want {
			t.Errorf("iv=%v dte=%d: tier=%s want %s", tc.iv, tc.dte, got, tc.want)
		}
	}
}

func TestBreakevens_TwoSided(t *testing.T) {
	legs := []domain.OptionLeg{
		{Action: domain.ActionSell, Type: domain.TypePut, Strike: 4900},
		{Action: domain.ActionBuy, Type: domain.TypePut, Strike: 4880},
		{Action: domain.ActionSell, Type: domain.TypeCall, Strike: 5100},
		{Action: domain.ActionBuy, Type: domain.TypeCall, Strike: 5120},
	}
	low, high := breakevens(legs, 2.5)
	if low == nil || *low != 4897.5 {
		t.Fatalf("low=%v want 4897.5", low)
	}
	if high == nil || *high != 5102.5 {
		t.Fatalf("high=%v want 5102.5", high)
	}
}

func TestExpiryValue_ShortPutSpread(t *testing.T) {
	legs := bullPutCard().Legs
	// Terminal far above both strikes: worthless, keep full credit.
	if v := expiryValue(legs, 5200); v != 0 {
		t.Fatalf("otm value=%v want 0", v)
	}
	// Terminal below both strikes: full width loss on the structure.
	if v := expiryValue(legs, 4800); v != -10 {
		t.Fatalf("itm value=%v want -10", v)
	}
}
