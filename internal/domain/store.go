package domain

import "context"

// CandidateFilter narrows ListCandidates results. Zero values mean "any".
type CandidateFilter struct {
	Status   CandidateStatus
	Strategy StrategyID
	Limit    int
}

// TradeFilter narrows ListTrades results. Zero values mean "any".
type TradeFilter struct {
	Status   TradeStatus
	Strategy StrategyID
	Limit    int
}

// CandidateStore persists the candidate ledger. Put is a whole-row rewrite;
// rows are only ever written through the trade-memory state machine, which
// assumes a single logical writer per store.
type CandidateStore interface {
	Get(ctx context.Context, candidateID string) (TradeCandidateRecord, error)
	Put(ctx context.Context, rec TradeCandidateRecord) error
	List(ctx context.Context, f CandidateFilter) ([]TradeCandidateRecord, error)
}

// TradeStore persists the trade ledger. NextTradeID hands out sequential
// T00001-style ids.
type TradeStore interface {
	Get(ctx context.Context, tradeID string) (TradeRecord, error)
	Put(ctx context.Context, rec TradeRecord) error
	List(ctx context.Context, f TradeFilter) ([]TradeRecord, error)
	NextTradeID(ctx context.Context) (string, error)
}

// EventStore is the append-only trade event log. There is deliberately no
// update or delete operation.
type EventStore interface {
	Append(ctx context.Context, ev TradeEvent) error
	List(ctx context.Context, limit int, types ...EventType) ([]TradeEvent, error)
}

// AlertStateStore persists the alert-policy state: per-strategy date-scoped
// throttles, entry debounce counters, acknowledgement suppression and the
// bounded set of already-dispatched alert ids.
type AlertStateStore interface {
	// PolicyState returns the throttle state for a strategy on an ET date
	// (YYYY-MM-DD). Missing state returns the zero value, not an error.
	PolicyState(ctx context.Context, date string, strategy StrategyID) (AlertPolicyState, error)
	SetPolicyState(ctx context.Context, date string, strategy StrategyID, st AlertPolicyState) error

	// Debounce counters are keyed by strategy + leg signature.
	DebounceCount(ctx context.Context, key string) (int, error)
	SetDebounceCount(ctx context.Context, key string, n int) error

	// Ack suppression is keyed by alert fingerprint; the stored value is the
	// reason hash at acknowledgement time.
	Acked(ctx context.Context, fingerprint string) (reasonHash string, ok bool, err error)
	Ack(ctx context.Context, fingerprint, reasonHash string) error

	// Dispatch idempotency over a bounded sent-id set.
	WasSent(ctx context.Context, alertID string) (bool, error)
	MarkSent(ctx context.Context, alertID string) error
}
