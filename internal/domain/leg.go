package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// LegAction is the order side of a single option leg.
type LegAction string

const (
	ActionBuy  LegAction = "BUY"
	ActionSell LegAction = "SELL"
)

// LegType is the option right of a single leg.
type LegType string

const (
	TypePut  LegType = "PUT"
	TypeCall LegType = "CALL"
)

// OptionLeg is one leg of a defined-risk options structure. Premium,
// ImpliedVol, Qty and Symbol are optional; a zero Qty means 1.
type OptionLeg struct {
	Action     LegAction `json:"action"`
	Type       LegType   `json:"type"`
	Strike     float64   `json:"strike"`
	Delta      float64   `json:"delta"`
	Premium    *float64  `json:"premium,omitempty"`
	ImpliedVol *float64  `json:"implied_vol,omitempty"`
	Qty        int       `json:"qty,omitempty"`
	Symbol     string    `json:"symbol,omitempty"`
}

// Validate reports whether the leg is structurally usable: finite positive
// strike and a known action/type. Invalid legs are dropped individually.
func (l OptionLeg) Validate() error {
	if math.IsNaN(l.Strike) || math.IsInf(l.Strike, 0) || l.Strike <= 0 {
		return fmt.Errorf("%w: leg strike %v", ErrInvalidInput, l.Strike)
	}
	if l.Action != ActionBuy && l.Action != ActionSell {
		return fmt.Errorf("%w: leg action %q", ErrInvalidInput, l.Action)
	}
	if l.Type != TypePut && l.Type != TypeCall {
		return fmt.Errorf("%w: leg type %q", ErrInvalidInput, l.Type)
	}
	return nil
}

// Quantity returns the effective contract count of the leg (zero means 1).
func (l OptionLeg) Quantity() int {
	if l.Qty <= 0 {
		return 1
	}
	return l.Qty
}

// LegSignature produces a stable, order-independent signature for a leg set,
// e.g. "SELL.PUT.4920x1|BUY.PUT.4910x1". It is the leg component of candidate
// ids, alert fingerprints and debounce keys.
func LegSignature(legs []OptionLeg) string {
	parts := make([]string, 0, len(legs))
	for _, l := range legs {
		parts = append(parts, fmt.Sprintf("%s.%s.%sx%d", l.Action, l.Type, trimStrike(l.Strike), l.Quantity()))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// ShortLeg returns the first SELL leg, preferring puts over calls so that
// single-sided verticals resolve to their short strike deterministically.
// The second return is false when the structure has no short leg.
func ShortLeg(legs []OptionLeg) (OptionLeg, bool) {
	var call OptionLeg
	var haveCall bool
	for _, l := range legs {
		if l.Action != ActionSell {
			continue
		}
		if l.Type == TypePut {
			return l, true
		}
		if !haveCall {
			call, haveCall = l, true
		}
	}
	return call, haveCall
}

func trimStrike(strike float64) string {
	if strike == math.Trunc(strike) {
		return fmt.Sprintf("%d", int64(strike))
	}
	return fmt.Sprintf("%.2f", strike)
}
