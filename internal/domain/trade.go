package domain

import "time"

// IndexMultiplier is the contract multiplier for SPX-style index options.
const IndexMultiplier = 100.0

// CandidateStatus is the state of a trade-candidate row. Every target of
// GENERATED except ACCEPTED is terminal.
type CandidateStatus string

const (
	CandidateGenerated   CandidateStatus = "GENERATED"
	CandidateAccepted    CandidateStatus = "ACCEPTED"
	CandidateRejected    CandidateStatus = "REJECTED"
	CandidateExpired     CandidateStatus = "EXPIRED"
	CandidateInvalidated CandidateStatus = "INVALIDATED"
)

// Terminal reports whether the candidate can no longer transition.
func (s CandidateStatus) Terminal() bool {
	switch s {
	case CandidateRejected, CandidateExpired, CandidateInvalidated:
		return true
	default:
		return false
	}
}

// TradeStatus is the state of a trade row. CLOSED and EXPIRED are terminal.
type TradeStatus string

const (
	TradeOpen    TradeStatus = "OPEN"
	TradeClosed  TradeStatus = "CLOSED"
	TradeExpired TradeStatus = "EXPIRED"
)

// RolloverPolicy controls what happens to an open trade at ET day rollover.
type RolloverPolicy string

const (
	RolloverIntradayAutoClose RolloverPolicy = "INTRADAY_AUTO_CLOSE"
	RolloverPersistUntilExit  RolloverPolicy = "PERSIST_UNTIL_EXIT"
)

// DefaultRolloverPolicy returns the rollover behavior of a strategy sleeve:
// multi-day sleeves persist, intraday sleeves auto-expire at rollover.
func DefaultRolloverPolicy(s StrategyID) RolloverPolicy {
	switch s {
	case StrategyBrokenWingButterfly, StrategyCreditSpread:
		return RolloverPersistUntilExit
	default:
		return RolloverIntradayAutoClose
	}
}

// TradeCandidateRecord is one row of the candidate ledger, keyed by the
// content-derived candidate id.
type TradeCandidateRecord struct {
	CandidateID  string          `json:"candidate_id"`
	Strategy     StrategyID      `json:"strategy"`
	Status       CandidateStatus `json:"status"`
	UserDecision string          `json:"user_decision,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`

	// Signal-time snapshot fields, frozen at first observation.
	SignalSpot   *float64 `json:"signal_spot,omitempty"`
	SignalIVATM  *float64 `json:"signal_iv_atm,omitempty"`
	SignalEM1SD  *float64 `json:"signal_em_1sd,omitempty"`
	SignalZScore *float64 `json:"signal_zscore,omitempty"`

	// Mutable observation fields, refreshed on every upsert.
	Legs       []OptionLeg `json:"legs"`
	Width      float64     `json:"width"`
	Credit     float64     `json:"credit"`
	MaxRisk    float64     `json:"max_risk"`
	PopPct     *float64    `json:"pop_pct,omitempty"`
	EV         *float64    `json:"ev,omitempty"`
	RoR        *float64    `json:"ror,omitempty"`
	Greeks     Greeks      `json:"greeks"`
	Expiration string      `json:"expiration"`
}

// TradeRecord is one row of the trade ledger.
type TradeRecord struct {
	TradeID       string         `json:"trade_id"`
	CandidateID   string         `json:"candidate_id"`
	Strategy      StrategyID     `json:"strategy"`
	Legs          []OptionLeg    `json:"legs"`
	Status        TradeStatus    `json:"status"`
	Rollover      RolloverPolicy `json:"rollover_policy"`
	FilledCredit  float64        `json:"filled_credit"`
	Quantity      int            `json:"quantity"`
	FeesEstimate  float64        `json:"fees_estimate"`
	MaxProfit     float64        `json:"max_profit"`
	MaxLoss       float64        `json:"max_loss"`
	BreakEven     float64        `json:"break_even"`
	RealizedPnL   *float64       `json:"realized_pnl,omitempty"`
	CurrentMark   *float64       `json:"current_mark,omitempty"`
	UnrealizedPnL *float64       `json:"unrealized_pnl,omitempty"`
	OpenedAt      time.Time      `json:"opened_at"`
	ClosedAt      *time.Time     `json:"closed_at,omitempty"`
	ClosedReason  string         `json:"closed_reason,omitempty"`
}

// EventType enumerates the append-only trade event log.
type EventType string

const (
	EventCandidateCreated     EventType = "CANDIDATE_CREATED"
	EventCandidateExpired     EventType = "CANDIDATE_EXPIRED"
	EventCandidateRejected    EventType = "CANDIDATE_REJECTED"
	EventCandidateInvalidated EventType = "CANDIDATE_INVALIDATED"
	EventTradeTaken           EventType = "TRADE_TAKEN"
	EventPositionOpened       EventType = "POSITION_OPENED"
	EventPositionClosed       EventType = "POSITION_CLOSED"
	EventPositionExpired      EventType = "POSITION_EXPIRED"
)

// TradeEvent is one append-only event row. Events are never mutated or
// deleted; the log is the sole historical record of ledger changes.
type TradeEvent struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	At          time.Time `json:"at"`
	CandidateID string    `json:"candidate_id,omitempty"`
	TradeID     string    `json:"trade_id,omitempty"`
	Note        string    `json:"note,omitempty"`
}
