package candidate

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"spreadpilot/internal/domain"
	"spreadpilot/internal/engine/expiry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func passingChecklist() domain.Checklist {
	return domain.Checklist{
		Strategy: []domain.ChecklistRow{
			domain.RequiredRow("delta band", domain.RowPass, "short delta 0.18"),
		},
	}
}

func bullPut(targetDTE int, credit float64) domain.RawVertical {
	return domain.RawVertical{
		RawCommon: domain.RawCommon{
			TargetDTE: targetDTE,
			Credit:    credit,
			Ready:     true,
			Checklist: passingChecklist(),
			Greeks:    domain.Greeks{Delta: 0.04, Gamma: -0.001, Theta: 0.9},
		},
		Side:  domain.SideBullPut,
		Short: domain.RawLeg{Action: "sell", Type: "put", Strike: 4920, Delta: -0.18},
		Long:  domain.RawLeg{Action: "buy", Type: "put", Strike: 4910, Delta: -0.12},
	}
}

func resolutions() []expiry.Resolution {
	return []expiry.Resolution{
		{TargetDTE: 7, ActualDTE: 7, Expiration: "2026-08-31", Found: true},
		{TargetDTE: 14, Found: false},
	}
}

func TestBuild_Vertical(t *testing.T) {
	b := NewBuilder(DefaultSlippage(), testLogger())
	snap := domain.MarketSnapshot{Recommendations: []domain.RawRecommendation{bullPut(7, 1.2)}}

	cards, warnings := b.Build(snap, resolutions(), time.Date(2026, 8, 24, 12, 0, 0, 0, domain.ET()))
	if len(cards) != 1 {
		t.Fatalf("got %d cards (warnings %v), want 1", len(cards), warnings)
	}
	card := cards[0]
	if card.Width != 10 {
		t.Fatalf("width=%v want 10", card.Width)
	}
	if card.MaxRisk != 8.8 {
		t.Fatalf("maxRisk=%v want width-credit=8.8", card.MaxRisk)
	}
	if card.DaysToExpiry != 7 || card.Expiration != "2026-08-31" {
		t.Fatalf("expiry binding wrong: %d %s", card.DaysToExpiry, card.Expiration)
	}
	// Loose action/type casing is normalized.
	if card.Legs[0].Action != domain.ActionSell || card.Legs[0].Type != domain.TypePut {
		t.Fatalf("legs not normalized: %+v", card.Legs[0])
	}
	// Fallback PoP from the short delta.
	if card.PopPct == nil {
		t.Fatal("expected delta-approximation PoP")
	}
	if got, want := *card.PopPct, 1-0.18; got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("pop=%v want %v", got, want)
	}
	// Midday bucket: narrow offset at 1.0 multiplier.
	if card.Execution.TimeBucket != "midday" {
		t.Fatalf("bucket=%s want midday", card.Execution.TimeBucket)
	}
	if got, want := card.AdjustedPremium, 1.2-0.05; got < want-1e-9 || got > want+1e-9 {
		t.Fatalf("adjusted=%v want %v", got, want)
	}
}

func TestBuild_ContentIDStableAcrossTicks(t *testing.T) {
	b := NewBuilder(DefaultSlippage(), testLogger())
	snap := domain.MarketSnapshot{Recommendations: []domain.RawRecommendation{bullPut(7, 1.2)}}
	now := time.Now()

	first, _ := b.Build(snap, resolutions(), now)
	second, _ := b.Build(snap, resolutions(), now.Add(2*time.Minute))
	if first[0].ID != second[0].ID {
		t.Fatalf("id changed between ticks: %s vs %s", first[0].ID, second[0].ID)
	}
	if !strings.HasPrefix(first[0].ID, "cand_cs_") {
		t.Fatalf("id %s missing strategy prefix", first[0].ID)
	}
}

func TestBuild_RefIDPreserved(t *testing.T) {
	raw := bullPut(7, 1.2)
	raw.RefID = "cand_fixture_7d"
	b := NewBuilder(DefaultSlippage(), testLogger())
	snap := domain.MarketSnapshot{Recommendations: []domain.RawRecommendation{raw}}

	cards, _ := b.Build(snap, resolutions(), time.Now())
	if len(cards) != 1 || cards[0].ID != "cand_fixture_7d" {
		t.Fatalf("upstream ref id not preserved: %+v", cards)
	}
}

func TestBuild_UnresolvedBucketSkipsWithWarning(t *testing.T) {
	b := NewBuilder(DefaultSlippage(), testLogger())
	snap := domain.MarketSnapshot{Recommendations: []domain.RawRecommendation{bullPut(14, 1.0)}}

	cards, warnings := b.Build(snap, resolutions(), time.Now())
	if len(cards) != 0 {
		t.Fatalf("got %d cards, want none for the unresolved bucket", len(cards))
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "no expiration within tolerance") {
		t.Fatalf("warnings=%v", warnings)
	}
}

func TestBuild_MalformedLegRejectsCandidate(t *testing.T) {
	raw := bullPut(7, 1.2)
	raw.Long.Strike = -10
	b := NewBuilder(DefaultSlippage(), testLogger())
	snap := domain.MarketSnapshot{Recommendations: []domain.RawRecommendation{raw}}

	cards, warnings := b.Build(snap, resolutions(), time.Now())
	if len(cards) != 0 {
		t.Fatalf("one-legged vertical must be rejected, got %d cards", len(cards))
	}
	if len(warnings) < 2 {
		t.Fatalf("expected a drop warning plus a rejection, got %v", warnings)
	}
}

func TestBuild_IronCondorWidthIsWiderWing(t *testing.T) {
	raw := domain.RawIronCondor{
		RawCommon: domain.RawCommon{TargetDTE: 7, Credit: 2.4, Ready: true, Checklist: passingChecklist()},
		PutShort:  domain.RawLeg{Action: "SELL", Type: "PUT", Strike: 4900, Delta: -0.15},
		PutLong:   domain.RawLeg{Action: "BUY", Type: "PUT", Strike: 4880, Delta: -0.10},
		CallShort: domain.RawLeg{Action: "SELL", Type: "CALL", Strike: 5100, Delta: 0.15},
		CallLong:  domain.RawLeg{Action: "BUY", Type: "CALL", Strike: 5130, Delta: 0.10},
	}
	b := NewBuilder(DefaultSlippage(), testLogger())
	snap := domain.MarketSnapshot{Recommendations: []domain.RawRecommendation{raw}}

	cards, warnings := b.Build(snap, resolutions(), time.Now())
	if len(cards) != 1 {
		t.Fatalf("cards=%d warnings=%v", len(cards), warnings)
	}
	if cards[0].Width != 30 {
		t.Fatalf("width=%v want the wider call wing 30", cards[0].Width)
	}
}

func TestTimeBucket(t *testing.T) {
	cases := []struct {
		hour, min int
		want      string
	}{
		{9, 45, "open"},
		{10, 29, "open"},
		{10, 30, "midday"},
		{13, 59, "midday"},
		{14, 0, "late"},
		{15, 29, "late"},
		{15, 30, "close"},
		{16, 0, "close"},
	}
	for _, tc := range cases {
		at := time.Date(2026, 8, 24, tc.hour, tc.min, 0, 0, domain.ET())
		if got := timeBucket(at); got != tc.want {
			t.Errorf("%02d:%02d ET: bucket=%s want %s", tc.hour, tc.min, got, tc.want)
		}
	}
}

func TestSlippageConfidence(t *testing.T) {
	cfg := DefaultSlippage()
	low := 0.05
	med := 0.15

	if got := cfg.confidence(true, &low); got != domain.ConfidenceHigh {
		t.Fatalf("live+tight=%s want high", got)
	}
	if got := cfg.confidence(true, nil); got != domain.ConfidenceMedium {
		t.Fatalf("live only=%s want medium", got)
	}
	if got := cfg.confidence(false, &med); got != domain.ConfidenceMedium {
		t.Fatalf("indicative+ok ratio=%s want medium", got)
	}
	if got := cfg.confidence(false, nil); got != domain.ConfidenceLow {
		t.Fatalf("indicative no ratio=%s want low", got)
	}
}
