package trademem

import (
	"context"
	"fmt"
	"time"

	"spreadpilot/internal/domain"
)

// ExitConfig tunes the advisory exit checks on open trades. Thresholds are
// tunable; the values in DefaultExitConfig are documented examples.
type ExitConfig struct {
	// ProfitTargetPct closes a winner once the mark has decayed to this
	// fraction of the filled credit (0.5 means half the credit captured).
	ProfitTargetPct float64
	// StopLossMultiple flags a loser once the mark reaches this multiple of
	// the filled credit.
	StopLossMultiple float64
	// TimeStopET is the wall-clock ET time (HH:MM) after which intraday
	// trades should be flattened regardless of mark.
	TimeStopET string
}

// DefaultExitConfig returns the example tuning.
func DefaultExitConfig() ExitConfig {
	return ExitConfig{
		ProfitTargetPct:  0.5,
		StopLossMultiple: 2.0,
		TimeStopET:       "15:45",
	}
}

// EvaluateExits inspects every open trade and returns EXIT alerts for the
// ones that hit an exit condition. It never closes trades itself; closing
// stays an operator decision reported through CloseTrade.
func (s *Service) EvaluateExits(ctx context.Context, cfg ExitConfig, now time.Time) ([]domain.AlertItem, error) {
	open, err := s.trades.List(ctx, domain.TradeFilter{Status: domain.TradeOpen})
	if err != nil {
		return nil, fmt.Errorf("list open trades: %w", err)
	}

	var alerts []domain.AlertItem
	for _, trade := range open {
		reason, severity, hit := evaluateExit(trade, cfg, now)
		if !hit {
			continue
		}
		alerts = append(alerts, domain.AlertItem{
			ID:       domain.AlertFingerprint(domain.AlertExit, trade.Strategy, trade.Legs),
			Type:     domain.AlertExit,
			Strategy: trade.Strategy,
			Reason:   reason,
			Severity: severity,
			Legs:     trade.Legs,
			Credit:   trade.FilledCredit,
			TradeID:  trade.TradeID,
		})
	}
	return alerts, nil
}

func evaluateExit(trade domain.TradeRecord, cfg ExitConfig, now time.Time) (string, domain.AlertSeverity, bool) {
	if trade.CurrentMark != nil && trade.FilledCredit > 0 {
		mark := *trade.CurrentMark
		if cfg.ProfitTargetPct > 0 && mark <= trade.FilledCredit*(1-cfg.ProfitTargetPct) {
			return fmt.Sprintf("profit target hit: mark %.2f vs filled credit %.2f", mark, trade.FilledCredit),
				domain.SeverityInfo, true
		}
		if cfg.StopLossMultiple > 0 && mark >= trade.FilledCredit*cfg.StopLossMultiple {
			return fmt.Sprintf("stop loss hit: mark %.2f is %.1fx filled credit %.2f",
				mark, mark/trade.FilledCredit, trade.FilledCredit), domain.SeverityWarning, true
		}
	}

	if trade.Rollover == domain.RolloverIntradayAutoClose && cfg.TimeStopET != "" {
		if pastTimeOfDay(now.In(domain.ET()), cfg.TimeStopET) {
			return fmt.Sprintf("time stop: past %s ET with intraday position open", cfg.TimeStopET),
				domain.SeverityWarning, true
		}
	}
	return "", "", false
}

// pastTimeOfDay reports whether t's wall clock is at or past an HH:MM mark.
func pastTimeOfDay(t time.Time, hhmm string) bool {
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		return false
	}
	return t.Hour()*60+t.Minute() >= h*60+m
}
