// Package trademem is the trade-lifecycle state machine: the candidate
// ledger, the trade ledger and the append-only event log. All writes go
// through this service; the stores underneath are dumb row persistence.
package trademem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"spreadpilot/internal/domain"
)

// Service owns the ledgers. It assumes a single logical writer, which is
// the evaluation loop plus the HTTP decision endpoints of one node.
type Service struct {
	candidates domain.CandidateStore
	trades     domain.TradeStore
	events     domain.EventStore
	logger     *slog.Logger
}

// NewService wires the ledgers over their stores.
func NewService(c domain.CandidateStore, t domain.TradeStore, e domain.EventStore, logger *slog.Logger) *Service {
	return &Service{
		candidates: c,
		trades:     t,
		events:     e,
		logger:     logger.With(slog.String("component", "trade_memory")),
	}
}

// AcceptRequest is the operator's fill report for a candidate.
type AcceptRequest struct {
	FilledCredit float64 `json:"filled_credit"`
	Quantity     int     `json:"quantity"`
	FeesEstimate float64 `json:"fees_estimate"`
	Note         string  `json:"note,omitempty"`
}

// UpsertResult reports what one tick's reconciliation changed.
type UpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Expired  int `json:"expired"`
}

// UpsertCandidates reconciles one tick's cards against the candidate
// ledger. New setups are created GENERATED with signal-time fields frozen
// from the snapshot; re-observed GENERATED setups get their mutable fields
// refreshed; GENERATED rows absent from the tick are expired. ACCEPTED and
// terminal rows are never touched. The whole operation is idempotent per
// tick because candidate ids are content-derived.
func (s *Service) UpsertCandidates(ctx context.Context, cards []domain.CandidateCard, snap domain.MarketSnapshot, now time.Time) (UpsertResult, error) {
	var res UpsertResult
	present := make(map[string]bool, len(cards))

	for _, card := range cards {
		present[card.ID] = true
		rec, err := s.candidates.Get(ctx, card.ID)
		switch {
		case err == nil:
			if rec.Status != domain.CandidateGenerated {
				continue
			}
			refreshObservation(&rec, card, now)
			if err := s.candidates.Put(ctx, rec); err != nil {
				return res, fmt.Errorf("refresh candidate %s: %w", card.ID, err)
			}
			res.Updated++
		case errors.Is(err, domain.ErrNotFound):
			rec = newCandidateRecord(card, snap, now)
			if err := s.candidates.Put(ctx, rec); err != nil {
				return res, fmt.Errorf("create candidate %s: %w", card.ID, err)
			}
			if err := s.appendEvent(ctx, domain.EventCandidateCreated, card.ID, "", string(card.Strategy), now); err != nil {
				return res, err
			}
			res.Inserted++
		default:
			return res, fmt.Errorf("lookup candidate %s: %w", card.ID, err)
		}
	}

	open, err := s.candidates.List(ctx, domain.CandidateFilter{Status: domain.CandidateGenerated})
	if err != nil {
		return res, fmt.Errorf("list generated candidates: %w", err)
	}
	for _, rec := range open {
		if present[rec.CandidateID] {
			continue
		}
		rec.Status = domain.CandidateExpired
		rec.UpdatedAt = now
		if err := s.candidates.Put(ctx, rec); err != nil {
			return res, fmt.Errorf("expire candidate %s: %w", rec.CandidateID, err)
		}
		if err := s.appendEvent(ctx, domain.EventCandidateExpired, rec.CandidateID, "", "setup no longer observed", now); err != nil {
			return res, err
		}
		res.Expired++
	}
	return res, nil
}

// AcceptCandidateAsTrade converts a GENERATED candidate into an OPEN trade
// at the operator's reported fill. The candidate moves to ACCEPTED; the
// ledger refuses to accept twice or to accept a terminal row.
func (s *Service) AcceptCandidateAsTrade(ctx context.Context, candidateID string, req AcceptRequest, now time.Time) (domain.TradeRecord, error) {
	rec, err := s.candidates.Get(ctx, candidateID)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("candidate %s: %w", candidateID, err)
	}
	if rec.Status != domain.CandidateGenerated {
		return domain.TradeRecord{}, fmt.Errorf("candidate %s is %s: %w", candidateID, rec.Status, domain.ErrConflict)
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}
	if req.FilledCredit <= 0 {
		req.FilledCredit = rec.Credit
	}

	tradeID, err := s.trades.NextTradeID(ctx)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("next trade id: %w", err)
	}

	qty := float64(req.Quantity)
	trade := domain.TradeRecord{
		TradeID:      tradeID,
		CandidateID:  candidateID,
		Strategy:     rec.Strategy,
		Legs:         rec.Legs,
		Status:       domain.TradeOpen,
		Rollover:     domain.DefaultRolloverPolicy(rec.Strategy),
		FilledCredit: req.FilledCredit,
		Quantity:     req.Quantity,
		FeesEstimate: req.FeesEstimate,
		MaxProfit:    req.FilledCredit*domain.IndexMultiplier*qty - req.FeesEstimate,
		MaxLoss:      (rec.Width-req.FilledCredit)*domain.IndexMultiplier*qty + req.FeesEstimate,
		BreakEven:    breakEven(rec.Legs, req.FilledCredit),
		OpenedAt:     now,
	}
	if err := s.trades.Put(ctx, trade); err != nil {
		return domain.TradeRecord{}, fmt.Errorf("create trade %s: %w", tradeID, err)
	}

	rec.Status = domain.CandidateAccepted
	rec.UserDecision = req.Note
	rec.UpdatedAt = now
	if err := s.candidates.Put(ctx, rec); err != nil {
		return domain.TradeRecord{}, fmt.Errorf("accept candidate %s: %w", candidateID, err)
	}

	if err := s.appendEvent(ctx, domain.EventTradeTaken, candidateID, tradeID, req.Note, now); err != nil {
		return domain.TradeRecord{}, err
	}
	if err := s.appendEvent(ctx, domain.EventPositionOpened, candidateID, tradeID,
		fmt.Sprintf("filled %.2f x%d", req.FilledCredit, req.Quantity), now); err != nil {
		return domain.TradeRecord{}, err
	}

	s.logger.Info("trade opened",
		slog.String("trade", tradeID),
		slog.String("candidate", candidateID),
		slog.Float64("credit", req.FilledCredit),
		slog.Int("qty", req.Quantity),
	)
	return trade, nil
}

// RejectCandidate marks a GENERATED candidate rejected by the operator.
func (s *Service) RejectCandidate(ctx context.Context, candidateID, note string, now time.Time) error {
	rec, err := s.candidates.Get(ctx, candidateID)
	if err != nil {
		return fmt.Errorf("candidate %s: %w", candidateID, err)
	}
	if rec.Status != domain.CandidateGenerated {
		return fmt.Errorf("candidate %s is %s: %w", candidateID, rec.Status, domain.ErrConflict)
	}
	rec.Status = domain.CandidateRejected
	rec.UserDecision = note
	rec.UpdatedAt = now
	if err := s.candidates.Put(ctx, rec); err != nil {
		return fmt.Errorf("reject candidate %s: %w", candidateID, err)
	}
	return s.appendEvent(ctx, domain.EventCandidateRejected, candidateID, "", note, now)
}

// CloseTrade settles an OPEN trade at the reported closing debit.
// Realized P&L is (filled credit - close price) * multiplier * quantity,
// minus the fee estimate.
func (s *Service) CloseTrade(ctx context.Context, tradeID string, closePrice float64, reason string, now time.Time) (domain.TradeRecord, error) {
	trade, err := s.trades.Get(ctx, tradeID)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("trade %s: %w", tradeID, err)
	}
	if trade.Status != domain.TradeOpen {
		return domain.TradeRecord{}, fmt.Errorf("trade %s is %s: %w", tradeID, trade.Status, domain.ErrConflict)
	}

	pnl := (trade.FilledCredit-closePrice)*domain.IndexMultiplier*float64(trade.Quantity) - trade.FeesEstimate
	trade.Status = domain.TradeClosed
	trade.RealizedPnL = &pnl
	trade.ClosedAt = &now
	trade.ClosedReason = reason
	trade.CurrentMark = nil
	trade.UnrealizedPnL = nil
	if err := s.trades.Put(ctx, trade); err != nil {
		return domain.TradeRecord{}, fmt.Errorf("close trade %s: %w", tradeID, err)
	}

	if err := s.appendEvent(ctx, domain.EventPositionClosed, trade.CandidateID, tradeID,
		fmt.Sprintf("%s, pnl %.2f", reason, pnl), now); err != nil {
		return domain.TradeRecord{}, err
	}
	s.logger.Info("trade closed",
		slog.String("trade", tradeID),
		slog.Float64("pnl", pnl),
		slog.String("reason", reason),
	)
	return trade, nil
}

// UpdateOpenTradeMarks refreshes current marks and unrealized P&L on open
// trades. Unknown trade ids in the map are skipped.
func (s *Service) UpdateOpenTradeMarks(ctx context.Context, marks map[string]float64, now time.Time) error {
	open, err := s.trades.List(ctx, domain.TradeFilter{Status: domain.TradeOpen})
	if err != nil {
		return fmt.Errorf("list open trades: %w", err)
	}
	for _, trade := range open {
		mark, ok := marks[trade.TradeID]
		if !ok {
			continue
		}
		upnl := (trade.FilledCredit-mark)*domain.IndexMultiplier*float64(trade.Quantity) - trade.FeesEstimate
		trade.CurrentMark = &mark
		trade.UnrealizedPnL = &upnl
		if err := s.trades.Put(ctx, trade); err != nil {
			return fmt.Errorf("mark trade %s: %w", trade.TradeID, err)
		}
	}
	return nil
}

// Rollover runs the ET-midnight housekeeping: GENERATED candidates expire
// and open intraday trades expire, while persist-until-exit trades carry
// over untouched.
func (s *Service) Rollover(ctx context.Context, now time.Time) error {
	generated, err := s.candidates.List(ctx, domain.CandidateFilter{Status: domain.CandidateGenerated})
	if err != nil {
		return fmt.Errorf("list generated candidates: %w", err)
	}
	for _, rec := range generated {
		rec.Status = domain.CandidateExpired
		rec.UpdatedAt = now
		if err := s.candidates.Put(ctx, rec); err != nil {
			return fmt.Errorf("expire candidate %s: %w", rec.CandidateID, err)
		}
		if err := s.appendEvent(ctx, domain.EventCandidateExpired, rec.CandidateID, "", "day rollover", now); err != nil {
			return err
		}
	}

	open, err := s.trades.List(ctx, domain.TradeFilter{Status: domain.TradeOpen})
	if err != nil {
		return fmt.Errorf("list open trades: %w", err)
	}
	for _, trade := range open {
		if trade.Rollover != domain.RolloverIntradayAutoClose {
			continue
		}
		trade.Status = domain.TradeExpired
		trade.ClosedAt = &now
		trade.ClosedReason = "day rollover"
		if err := s.trades.Put(ctx, trade); err != nil {
			return fmt.Errorf("expire trade %s: %w", trade.TradeID, err)
		}
		if err := s.appendEvent(ctx, domain.EventPositionExpired, trade.CandidateID, trade.TradeID, "day rollover", now); err != nil {
			return err
		}
	}
	return nil
}

// ListCandidates, ListTrades and ListTradeEvents expose the ledgers
// read-only to the HTTP layer.
func (s *Service) ListCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.TradeCandidateRecord, error) {
	return s.candidates.List(ctx, f)
}

func (s *Service) ListTrades(ctx context.Context, f domain.TradeFilter) ([]domain.TradeRecord, error) {
	return s.trades.List(ctx, f)
}

func (s *Service) ListTradeEvents(ctx context.Context, limit int, types ...domain.EventType) ([]domain.TradeEvent, error) {
	return s.events.List(ctx, limit, types...)
}

// GetTrade returns one trade row.
func (s *Service) GetTrade(ctx context.Context, tradeID string) (domain.TradeRecord, error) {
	return s.trades.Get(ctx, tradeID)
}

func (s *Service) appendEvent(ctx context.Context, t domain.EventType, candidateID, tradeID, note string, now time.Time) error {
	ev := domain.TradeEvent{
		ID:          uuid.NewString(),
		Type:        t,
		At:          now,
		CandidateID: candidateID,
		TradeID:     tradeID,
		Note:        note,
	}
	if err := s.events.Append(ctx, ev); err != nil {
		return fmt.Errorf("append %s event: %w", t, err)
	}
	return nil
}

func newCandidateRecord(card domain.CandidateCard, snap domain.MarketSnapshot, now time.Time) domain.TradeCandidateRecord {
	rec := domain.TradeCandidateRecord{
		CandidateID:  card.ID,
		Strategy:     card.Strategy,
		Status:       domain.CandidateGenerated,
		CreatedAt:    now,
		UpdatedAt:    now,
		SignalSpot:   snap.Spot,
		SignalIVATM:  snap.IVATM,
		SignalEM1SD:  snap.EM1SD,
		SignalZScore: snap.ZScore,
	}
	refreshObservation(&rec, card, now)
	return rec
}

// refreshObservation copies the mutable per-tick fields. Signal-time fields
// stay frozen.
func refreshObservation(rec *domain.TradeCandidateRecord, card domain.CandidateCard, now time.Time) {
	rec.Legs = card.Legs
	rec.Width = card.Width
	rec.Credit = card.Credit
	rec.MaxRisk = card.MaxRisk
	rec.PopPct = card.PopPct
	rec.EV = card.EV
	rec.RoR = card.RoR
	rec.Greeks = card.Greeks
	rec.Expiration = card.Expiration
	rec.UpdatedAt = now
}

// breakEven derives the break-even from the short leg: short put strike
// minus credit, short call strike plus credit.
func breakEven(legs []domain.OptionLeg, credit float64) float64 {
	short, ok := domain.ShortLeg(legs)
	if !ok {
		return 0
	}
	if short.Type == domain.TypePut {
		return short.Strike - credit
	}
	return short.Strike + credit
}
