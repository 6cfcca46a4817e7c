package trademem

import (
	"testing"
	"time"

	"spreadpilot/internal/domain"
)

func openTrade(mark *float64, rollover domain.RolloverPolicy) domain.TradeRecord {
	return domain.TradeRecord{
		TradeID:      "T00001",
		Strategy:     domain.StrategyCreditSpread,
		Status:       domain.TradeOpen,
		Rollover:     rollover,
		FilledCredit: 1.20,
		Quantity:     1,
		CurrentMark:  mark,
		Legs: []domain.OptionLeg{
			{Action: domain.ActionSell, Type: domain.TypePut, Strike: 4920, Delta: -0.18},
			{Action: domain.ActionBuy, Type: domain.TypePut, Strike: 4910, Delta: -0.12},
		},
	}
}

func morningET() time.Time {
	return time.Date(2026, 8, 24, 11, 0, 0, 0, domain.ET())
}

func TestEvaluateExit_ProfitTarget(t *testing.T) {
	mark := 0.55 // below 1.20 * (1 - 0.5)
	reason, severity, hit := evaluateExit(openTrade(&mark, domain.RolloverPersistUntilExit), DefaultExitConfig(), morningET())
	if !hit {
		t.Fatal("profit target should trigger")
	}
	if severity != domain.SeverityInfo {
		t.Fatalf("severity=%s want info", severity)
	}
	if reason == "" {
		t.Fatal("want a human-readable reason")
	}
}

func TestEvaluateExit_StopLoss(t *testing.T) {
	mark := 2.50 // above 1.20 * 2.0
	_, severity, hit := evaluateExit(openTrade(&mark, domain.RolloverPersistUntilExit), DefaultExitConfig(), morningET())
	if !hit {
		t.Fatal("stop loss should trigger")
	}
	if severity != domain.SeverityWarning {
		t.Fatalf("severity=%s want warning", severity)
	}
}

func TestEvaluateExit_MarkInsideBandNoAlert(t *testing.T) {
	mark := 1.00
	if _, _, hit := evaluateExit(openTrade(&mark, domain.RolloverPersistUntilExit), DefaultExitConfig(), morningET()); hit {
		t.Fatal("mark inside the band must not alert")
	}
}

func TestEvaluateExit_TimeStopIntradayOnly(t *testing.T) {
	late := time.Date(2026, 8, 24, 15, 50, 0, 0, domain.ET())

	if _, _, hit := evaluateExit(openTrade(nil, domain.RolloverIntradayAutoClose), DefaultExitConfig(), late); !hit {
		t.Fatal("intraday trade past the time stop should alert")
	}
	if _, _, hit := evaluateExit(openTrade(nil, domain.RolloverPersistUntilExit), DefaultExitConfig(), late); hit {
		t.Fatal("persistent trade is exempt from the time stop")
	}
	if _, _, hit := evaluateExit(openTrade(nil, domain.RolloverIntradayAutoClose), DefaultExitConfig(), morningET()); hit {
		t.Fatal("time stop must not fire before the cutoff")
	}
}

func TestEvaluateExit_NoMarkSkipsPnLChecks(t *testing.T) {
	if _, _, hit := evaluateExit(openTrade(nil, domain.RolloverPersistUntilExit), DefaultExitConfig(), morningET()); hit {
		t.Fatal("no mark, no PnL-based exit")
	}
}

func TestPastTimeOfDay(t *testing.T) {
	at := time.Date(2026, 8, 24, 15, 45, 0, 0, domain.ET())
	if !pastTimeOfDay(at, "15:45") {
		t.Fatal("boundary minute counts as past")
	}
	if pastTimeOfDay(at, "15:46") {
		t.Fatal("one minute ahead is not past")
	}
	if pastTimeOfDay(at, "not-a-time") {
		t.Fatal("malformed cutoff must disable the check")
	}
}
