package trademem

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"spreadpilot/internal/domain"
	"spreadpilot/internal/store/sqlite"
)

func fp(v float64) *float64 { return &v }

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	db, err := sqlite.Open(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewService(
		sqlite.NewCandidateStore(db),
		sqlite.NewTradeStore(db),
		sqlite.NewEventStore(db),
		logger,
	)
}

func fixtureCard() domain.CandidateCard {
	return domain.CandidateCard{
		ID:       "cand_cs_fixture",
		Strategy: domain.StrategyCreditSpread,
		Legs: []domain.OptionLeg{
			{Action: domain.ActionSell, Type: domain.TypePut, Strike: 4920, Delta: -0.18},
			{Action: domain.ActionBuy, Type: domain.TypePut, Strike: 4910, Delta: -0.12},
		},
		Width:      10,
		Credit:     1.2,
		MaxRisk:    8.8,
		PopPct:     fp(0.82),
		Expiration: "2026-08-31",
		Greeks:     domain.Greeks{Delta: 0.04},
	}
}

func fixtureSnap() domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Spot:   fp(5000),
		IVATM:  fp(0.18),
		EM1SD:  fp(62.5),
		ZScore: fp(-0.4),
	}
}

func mustUpsert(t *testing.T, svc *Service, cards []domain.CandidateCard, now time.Time) UpsertResult {
	t.Helper()
	res, err := svc.UpsertCandidates(context.Background(), cards, fixtureSnap(), now)
	require.NoError(t, err)
	return res
}

func TestUpsertCandidates_CreateRefreshIdempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	card := fixtureCard()
	res := mustUpsert(t, svc, []domain.CandidateCard{card}, now)
	require.Equal(t, UpsertResult{Inserted: 1}, res)

	recs, err := svc.ListCandidates(ctx, domain.CandidateFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, domain.CandidateGenerated, recs[0].Status)
	require.NotNil(t, recs[0].SignalSpot)
	require.Equal(t, 5000.0, *recs[0].SignalSpot)

	// Re-observation with a tighter credit refreshes mutable fields but
	// freezes the signal snapshot.
	later := now.Add(2 * time.Minute)
	card.Credit = 1.1
	staleSnap := fixtureSnap()
	staleSnap.Spot = fp(4980)
	res, err = svc.UpsertCandidates(ctx, []domain.CandidateCard{card}, staleSnap, later)
	require.NoError(t, err)
	require.Equal(t, UpsertResult{Updated: 1}, res)

	recs, err = svc.ListCandidates(ctx, domain.CandidateFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 1, "same content id must not create a second row")
	require.Equal(t, 1.1, recs[0].Credit)
	require.Equal(t, 5000.0, *recs[0].SignalSpot, "signal fields are frozen at first observation")

	events, err := svc.ListTradeEvents(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 1, "only the first observation emits CANDIDATE_CREATED")
	require.Equal(t, domain.EventCandidateCreated, events[0].Type)
}

func TestUpsertCandidates_AbsentGeneratedExpires(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mustUpsert(t, svc, []domain.CandidateCard{fixtureCard()}, now)
	res := mustUpsert(t, svc, nil, now.Add(2*time.Minute))
	require.Equal(t, 1, res.Expired)

	recs, err := svc.ListCandidates(ctx, domain.CandidateFilter{Status: domain.CandidateExpired})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	events, err := svc.ListTradeEvents(ctx, 0, domain.EventCandidateExpired)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestAcceptCandidateAsTrade(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mustUpsert(t, svc, []domain.CandidateCard{fixtureCard()}, now)

	trade, err := svc.AcceptCandidateAsTrade(ctx, "cand_cs_fixture", AcceptRequest{
		FilledCredit: 1.15,
		Quantity:     2,
		FeesEstimate: 5.2,
		Note:         "filled at mid",
	}, now)
	require.NoError(t, err)

	require.Equal(t, "T00001", trade.TradeID)
	require.Equal(t, domain.TradeOpen, trade.Status)
	require.Equal(t, domain.RolloverPersistUntilExit, trade.Rollover)
	require.InDelta(t, 1.15*100*2-5.2, trade.MaxProfit, 1e-9)
	require.InDelta(t, (10-1.15)*100*2+5.2, trade.MaxLoss, 1e-9)
	require.InDelta(t, 4920-1.15, trade.BreakEven, 1e-9)

	recs, err := svc.ListCandidates(ctx, domain.CandidateFilter{Status: domain.CandidateAccepted})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "filled at mid", recs[0].UserDecision)

	events, err := svc.ListTradeEvents(ctx, 0, domain.EventTradeTaken, domain.EventPositionOpened)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// Second accept on the same candidate conflicts.
	_, err = svc.AcceptCandidateAsTrade(ctx, "cand_cs_fixture", AcceptRequest{}, now)
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestAcceptCandidate_DefaultsFillFromObservation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mustUpsert(t, svc, []domain.CandidateCard{fixtureCard()}, now)
	trade, err := svc.AcceptCandidateAsTrade(ctx, "cand_cs_fixture", AcceptRequest{}, now)
	require.NoError(t, err)
	require.Equal(t, 1.2, trade.FilledCredit)
	require.Equal(t, 1, trade.Quantity)
}

func TestCloseTrade_RealizedPnL(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mustUpsert(t, svc, []domain.CandidateCard{fixtureCard()}, now)
	trade, err := svc.AcceptCandidateAsTrade(ctx, "cand_cs_fixture", AcceptRequest{
		FilledCredit: 1.20, Quantity: 1, FeesEstimate: 2,
	}, now)
	require.NoError(t, err)

	closed, err := svc.CloseTrade(ctx, trade.TradeID, 0.40, "profit target", now.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, domain.TradeClosed, closed.Status)
	require.NotNil(t, closed.RealizedPnL)
	// (1.20 - 0.40) * 100 * 1 - 2
	require.InDelta(t, 78.00, *closed.RealizedPnL, 1e-9)
	require.Nil(t, closed.CurrentMark)
	require.Nil(t, closed.UnrealizedPnL)

	// Closing twice conflicts.
	_, err = svc.CloseTrade(ctx, trade.TradeID, 0.30, "again", now.Add(2*time.Hour))
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestRejectCandidate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mustUpsert(t, svc, []domain.CandidateCard{fixtureCard()}, now)
	require.NoError(t, svc.RejectCandidate(ctx, "cand_cs_fixture", "spread too tight", now))

	recs, err := svc.ListCandidates(ctx, domain.CandidateFilter{Status: domain.CandidateRejected})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	// Terminal: cannot accept afterwards.
	_, err = svc.AcceptCandidateAsTrade(ctx, "cand_cs_fixture", AcceptRequest{}, now)
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestUpdateOpenTradeMarks(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mustUpsert(t, svc, []domain.CandidateCard{fixtureCard()}, now)
	trade, err := svc.AcceptCandidateAsTrade(ctx, "cand_cs_fixture", AcceptRequest{
		FilledCredit: 1.15, Quantity: 1, FeesEstimate: 2.6,
	}, now)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateOpenTradeMarks(ctx, map[string]float64{trade.TradeID: 0.60}, now))

	got, err := svc.GetTrade(ctx, trade.TradeID)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentMark)
	require.Equal(t, 0.60, *got.CurrentMark)
	require.NotNil(t, got.UnrealizedPnL)
	require.InDelta(t, (1.15-0.60)*100-2.6, *got.UnrealizedPnL, 1e-9)
}

func TestRollover(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// One generated candidate, one persistent open trade, one intraday open
	// trade.
	mustUpsert(t, svc, []domain.CandidateCard{fixtureCard()}, now)
	persist, err := svc.AcceptCandidateAsTrade(ctx, "cand_cs_fixture", AcceptRequest{}, now)
	require.NoError(t, err)

	flyCard := fixtureCard()
	flyCard.ID = "cand_if_fixture"
	flyCard.Strategy = domain.StrategyIronFly
	mustUpsert(t, svc, []domain.CandidateCard{flyCard}, now)
	intraday, err := svc.AcceptCandidateAsTrade(ctx, "cand_if_fixture", AcceptRequest{}, now)
	require.NoError(t, err)
	require.Equal(t, domain.RolloverIntradayAutoClose, intraday.Rollover)

	leftover := fixtureCard()
	leftover.ID = "cand_cs_leftover"
	leftover.Legs[0].Strike = 4890
	mustUpsert(t, svc, []domain.CandidateCard{leftover}, now)

	require.NoError(t, svc.Rollover(ctx, now.Add(12*time.Hour)))

	expired, err := svc.ListCandidates(ctx, domain.CandidateFilter{Status: domain.CandidateExpired})
	require.NoError(t, err)
	require.Len(t, expired, 1)
	require.Equal(t, "cand_cs_leftover", expired[0].CandidateID)

	got, err := svc.GetTrade(ctx, persist.TradeID)
	require.NoError(t, err)
	require.Equal(t, domain.TradeOpen, got.Status, "persist-until-exit trade carries over")

	got, err = svc.GetTrade(ctx, intraday.TradeID)
	require.NoError(t, err)
	require.Equal(t, domain.TradeExpired, got.Status)
	require.Equal(t, "day rollover", got.ClosedReason)

	events, err := svc.ListTradeEvents(ctx, 0, domain.EventPositionExpired)
	require.NoError(t, err)
	require.Len(t, events, 1)
}
