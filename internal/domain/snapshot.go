package domain

import "time"

// Feed keys used by the freshness evaluator. The set is open: providers may
// report additional feeds, but these four are the required ones.
const (
	FeedSpot   = "spot"
	FeedChain  = "chain"
	FeedGreeks = "greeks"
	FeedVIX    = "vix"
)

// FeedState is the freshness verdict for one upstream feed.
type FeedState struct {
	Key       string        `json:"key"`
	Timestamp time.Time     `json:"timestamp"`
	Age       time.Duration `json:"age_ms"`
	Valid     bool          `json:"valid"`
	Source    string        `json:"source,omitempty"`
	Err       string        `json:"error,omitempty"`
}

// ContractStatus is the aggregate data-contract verdict for a tick.
type ContractStatus string

const (
	ContractHealthy  ContractStatus = "healthy"
	ContractDegraded ContractStatus = "degraded"
	ContractInactive ContractStatus = "inactive"
)

// DataContractResult is the freshness evaluator's output: aggregate status
// plus per-feed states and an ordered issue list, most severe first.
type DataContractResult struct {
	Status ContractStatus       `json:"status"`
	Feeds  map[string]FeedState `json:"feeds"`
	Issues []string             `json:"issues,omitempty"`
}

// ChainExpiration is one expiration present in the option chain, with the
// leg symbols quoted under it.
type ChainExpiration struct {
	Expiration string   `json:"expiration"` // YYYY-MM-DD
	DTE        int      `json:"dte"`
	Symbols    []string `json:"symbols,omitempty"`
}

// MarketSnapshot is the raw per-tick input produced by a MarketDataProvider.
// Any field may be missing or stale; the engine degrades instead of failing.
type MarketSnapshot struct {
	TakenAt         time.Time            `json:"taken_at"`
	Spot            *float64             `json:"spot,omitempty"`
	VIX             *float64             `json:"vix,omitempty"`
	IVATM           *float64             `json:"iv_atm,omitempty"`
	EM1SD           *float64             `json:"em_1sd,omitempty"`
	ZScore          *float64             `json:"zscore,omitempty"`
	MarketOpen      bool                 `json:"market_open"`
	SimOverride     bool                 `json:"sim_override"`
	Source          string               `json:"source"`
	LiveBars        int                  `json:"live_bars"`
	FeedTimestamps  map[string]time.Time `json:"feed_timestamps"`
	FeedSources     map[string]string    `json:"feed_sources,omitempty"`
	Chain           []ChainExpiration    `json:"chain"`
	GreeksAt        time.Time            `json:"greeks_at"`
	Recommendations []RawRecommendation  `json:"-"`
}

// ChainFor returns the chain entry for an expiration date, if present.
func (s MarketSnapshot) ChainFor(expiration string) (ChainExpiration, bool) {
	for _, c := range s.Chain {
		if c.Expiration == expiration {
			return c, true
		}
	}
	return ChainExpiration{}, false
}

// RawLeg is a loosely-typed leg as reported by a strategy sleeve, before
// normalization. Action and Type are free-form strings on purpose.
type RawLeg struct {
	Action     string   `json:"action"`
	Type       string   `json:"type"`
	Strike     float64  `json:"strike"`
	Delta      float64  `json:"delta"`
	Premium    *float64 `json:"premium,omitempty"`
	ImpliedVol *float64 `json:"implied_vol,omitempty"`
	Qty        int      `json:"qty,omitempty"`
	Symbol     string   `json:"symbol,omitempty"`
}

// RawCommon carries the fields every sleeve reports alongside its legs.
type RawCommon struct {
	RefID          string    `json:"ref_id,omitempty"` // optional stable id supplied upstream
	TargetDTE      int       `json:"target_dte"`
	Credit         float64   `json:"credit"`
	Ready          bool      `json:"ready"`
	Checklist      Checklist `json:"checklist"`
	Greeks         Greeks    `json:"greeks"`
	LiveSource     bool      `json:"live_source"`
	LiquidityRatio *float64  `json:"liquidity_ratio,omitempty"`
}

// RawRecommendation is the tagged union of per-strategy raw shapes. Each
// variant is normalized into a CandidateCard by its own adapter.
type RawRecommendation interface {
	StrategyID() StrategyID
	Common() RawCommon
}

// VerticalSide distinguishes the two directional credit verticals.
type VerticalSide string

const (
	SideBullPut  VerticalSide = "BULL_PUT"
	SideBearCall VerticalSide = "BEAR_CALL"
)

// RawVertical is a two-leg directional credit spread proposal.
type RawVertical struct {
	RawCommon
	Side  VerticalSide `json:"side"`
	Short RawLeg       `json:"short"`
	Long  RawLeg       `json:"long"`
}

func (r RawVertical) StrategyID() StrategyID { return StrategyCreditSpread }
func (r RawVertical) Common() RawCommon      { return r.RawCommon }

// RawIronCondor is a four-leg two-sided credit structure proposal.
type RawIronCondor struct {
	RawCommon
	PutShort  RawLeg `json:"put_short"`
	PutLong   RawLeg `json:"put_long"`
	CallShort RawLeg `json:"call_short"`
	CallLong  RawLeg `json:"call_long"`
}

func (r RawIronCondor) StrategyID() StrategyID { return StrategyIronCondor }
func (r RawIronCondor) Common() RawCommon      { return r.RawCommon }

// RawIronFly is an iron butterfly proposal: short straddle body plus wings.
type RawIronFly struct {
	RawCommon
	BodyPut  RawLeg `json:"body_put"`
	BodyCall RawLeg `json:"body_call"`
	WingPut  RawLeg `json:"wing_put"`
	WingCall RawLeg `json:"wing_call"`
}

func (r RawIronFly) StrategyID() StrategyID { return StrategyIronFly }
func (r RawIronFly) Common() RawCommon      { return r.RawCommon }

// RawBrokenWingButterfly is a three-leg put butterfly with an asymmetric
// wing; the body leg carries qty 2.
type RawBrokenWingButterfly struct {
	RawCommon
	Upper RawLeg `json:"upper"`
	Body  RawLeg `json:"body"`
	Lower RawLeg `json:"lower"`
}

func (r RawBrokenWingButterfly) StrategyID() StrategyID { return StrategyBrokenWingButterfly }
func (r RawBrokenWingButterfly) Common() RawCommon      { return r.RawCommon }
