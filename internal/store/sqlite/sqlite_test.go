package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"spreadpilot/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func fp(v float64) *float64 { return &v }

func sampleCandidate(id string, status domain.CandidateStatus) domain.TradeCandidateRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return domain.TradeCandidateRecord{
		CandidateID: id,
		Strategy:    domain.StrategyCreditSpread,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
		SignalSpot:  fp(5000),
		Legs: []domain.OptionLeg{
			{Action: domain.ActionSell, Type: domain.TypePut, Strike: 4920, Delta: -0.18},
			{Action: domain.ActionBuy, Type: domain.TypePut, Strike: 4910, Delta: -0.12},
		},
		Width:      10,
		Credit:     1.2,
		MaxRisk:    8.8,
		PopPct:     fp(0.82),
		Greeks:     domain.Greeks{Delta: 0.04, Gamma: -0.001},
		Expiration: "2026-08-31",
	}
}

func TestCandidateStore_RoundTrip(t *testing.T) {
	store := NewCandidateStore(openTestDB(t))
	ctx := context.Background()

	_, err := store.Get(ctx, "cand_missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	rec := sampleCandidate("cand_cs_a", domain.CandidateGenerated)
	require.NoError(t, store.Put(ctx, rec))

	got, err := store.Get(ctx, "cand_cs_a")
	require.NoError(t, err)
	require.Equal(t, rec.Strategy, got.Strategy)
	require.Equal(t, rec.Legs, got.Legs)
	require.Equal(t, rec.Greeks, got.Greeks)
	require.NotNil(t, got.SignalSpot)
	require.Equal(t, 5000.0, *got.SignalSpot)
	require.NotNil(t, got.PopPct)

	// Put again is an update, not a duplicate.
	rec.Status = domain.CandidateExpired
	require.NoError(t, store.Put(ctx, rec))
	all, err := store.List(ctx, domain.CandidateFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, domain.CandidateExpired, all[0].Status)
}

func TestCandidateStore_ListFilters(t *testing.T) {
	store := NewCandidateStore(openTestDB(t))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, sampleCandidate("cand_a", domain.CandidateGenerated)))
	require.NoError(t, store.Put(ctx, sampleCandidate("cand_b", domain.CandidateExpired)))
	rec := sampleCandidate("cand_c", domain.CandidateGenerated)
	rec.Strategy = domain.StrategyIronCondor
	require.NoError(t, store.Put(ctx, rec))

	generated, err := store.List(ctx, domain.CandidateFilter{Status: domain.CandidateGenerated})
	require.NoError(t, err)
	require.Len(t, generated, 2)

	condors, err := store.List(ctx, domain.CandidateFilter{Strategy: domain.StrategyIronCondor})
	require.NoError(t, err)
	require.Len(t, condors, 1)
	require.Equal(t, "cand_c", condors[0].CandidateID)

	limited, err := store.List(ctx, domain.CandidateFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestTradeStore_SequentialIDs(t *testing.T) {
	store := NewTradeStore(openTestDB(t))
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		id, err := store.NextTradeID(ctx)
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("T%05d", i), id)
	}
}

func TestTradeStore_RoundTrip(t *testing.T) {
	store := NewTradeStore(openTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	trade := domain.TradeRecord{
		TradeID:      "T00001",
		CandidateID:  "cand_cs_a",
		Strategy:     domain.StrategyCreditSpread,
		Status:       domain.TradeOpen,
		Rollover:     domain.RolloverPersistUntilExit,
		FilledCredit: 1.15,
		Quantity:     2,
		FeesEstimate: 5.2,
		MaxProfit:    224.8,
		MaxLoss:      1775.2,
		BreakEven:    4918.85,
		OpenedAt:     now,
		Legs: []domain.OptionLeg{
			{Action: domain.ActionSell, Type: domain.TypePut, Strike: 4920, Delta: -0.18},
		},
	}
	require.NoError(t, store.Put(ctx, trade))

	got, err := store.Get(ctx, "T00001")
	require.NoError(t, err)
	require.Equal(t, trade.Rollover, got.Rollover)
	require.Equal(t, trade.Legs, got.Legs)
	require.Nil(t, got.ClosedAt)

	closedAt := now.Add(time.Hour)
	pnl := 78.4
	trade.Status = domain.TradeClosed
	trade.RealizedPnL = &pnl
	trade.ClosedAt = &closedAt
	trade.ClosedReason = "profit target"
	require.NoError(t, store.Put(ctx, trade))

	got, err = store.Get(ctx, "T00001")
	require.NoError(t, err)
	require.Equal(t, domain.TradeClosed, got.Status)
	require.NotNil(t, got.RealizedPnL)
	require.InDelta(t, 78.4, *got.RealizedPnL, 1e-9)
	require.NotNil(t, got.ClosedAt)
	require.Equal(t, "profit target", got.ClosedReason)

	open, err := store.List(ctx, domain.TradeFilter{Status: domain.TradeOpen})
	require.NoError(t, err)
	require.Empty(t, open)
}

func TestEventStore_AppendAndFilter(t *testing.T) {
	store := NewEventStore(openTestDB(t))
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	events := []domain.TradeEvent{
		{ID: "ev-1", Type: domain.EventCandidateCreated, At: base, CandidateID: "cand_a"},
		{ID: "ev-2", Type: domain.EventTradeTaken, At: base.Add(time.Minute), CandidateID: "cand_a", TradeID: "T00001"},
		{ID: "ev-3", Type: domain.EventPositionClosed, At: base.Add(2 * time.Minute), TradeID: "T00001"},
	}
	for _, ev := range events {
		require.NoError(t, store.Append(ctx, ev))
	}

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "ev-3", all[0].ID, "newest first")

	taken, err := store.List(ctx, 0, domain.EventTradeTaken, domain.EventPositionClosed)
	require.NoError(t, err)
	require.Len(t, taken, 2)

	limited, err := store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestAlertStateStore(t *testing.T) {
	store := NewAlertStateStore(openTestDB(t))
	ctx := context.Background()

	// Missing policy state is the zero value.
	st, err := store.PolicyState(ctx, "2026-08-24", domain.StrategyCreditSpread)
	require.NoError(t, err)
	require.Zero(t, st.SentToday)

	st.SentToday = 2
	st.LastSentISO = "2026-08-24T11:00:00-04:00"
	st.LastAlertID = "al_abc"
	require.NoError(t, store.SetPolicyState(ctx, "2026-08-24", domain.StrategyCreditSpread, st))

	got, err := store.PolicyState(ctx, "2026-08-24", domain.StrategyCreditSpread)
	require.NoError(t, err)
	require.Equal(t, st, got)

	// Debounce counters, including the zero-deletes path.
	n, err := store.DebounceCount(ctx, "CREDIT_SPREAD|sig")
	require.NoError(t, err)
	require.Zero(t, n)
	require.NoError(t, store.SetDebounceCount(ctx, "CREDIT_SPREAD|sig", 2))
	n, err = store.DebounceCount(ctx, "CREDIT_SPREAD|sig")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NoError(t, store.SetDebounceCount(ctx, "CREDIT_SPREAD|sig", 0))
	n, err = store.DebounceCount(ctx, "CREDIT_SPREAD|sig")
	require.NoError(t, err)
	require.Zero(t, n)

	// Ack upsert overwrites the reason hash.
	_, acked, err := store.Acked(ctx, "al_x")
	require.NoError(t, err)
	require.False(t, acked)
	require.NoError(t, store.Ack(ctx, "al_x", "hash1"))
	require.NoError(t, store.Ack(ctx, "al_x", "hash2"))
	hash, acked, err := store.Acked(ctx, "al_x")
	require.NoError(t, err)
	require.True(t, acked)
	require.Equal(t, "hash2", hash)

	// Sent set is idempotent.
	sent, err := store.WasSent(ctx, "al_y")
	require.NoError(t, err)
	require.False(t, sent)
	require.NoError(t, store.MarkSent(ctx, "al_y"))
	require.NoError(t, store.MarkSent(ctx, "al_y"))
	sent, err = store.WasSent(ctx, "al_y")
	require.NoError(t, err)
	require.True(t, sent)
}
