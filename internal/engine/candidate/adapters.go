package candidate

import (
	"fmt"
	"math"
	"strings"

	"spreadpilot/internal/domain"
)

// normalizeLeg converts a loose RawLeg into a validated OptionLeg. Malformed
// legs are reported individually and dropped by the caller.
func normalizeLeg(raw domain.RawLeg) (domain.OptionLeg, error) {
	leg := domain.OptionLeg{
		Action:     domain.LegAction(strings.ToUpper(strings.TrimSpace(raw.Action))),
		Type:       domain.LegType(strings.ToUpper(strings.TrimSpace(raw.Type))),
		Strike:     raw.Strike,
		Delta:      raw.Delta,
		Premium:    raw.Premium,
		ImpliedVol: raw.ImpliedVol,
		Qty:        raw.Qty,
		Symbol:     raw.Symbol,
	}
	if err := leg.Validate(); err != nil {
		return domain.OptionLeg{}, err
	}
	return leg, nil
}

// normalizeLegs validates every raw leg, dropping malformed ones and
// collecting a warning per drop.
func normalizeLegs(raws []domain.RawLeg) ([]domain.OptionLeg, []string) {
	legs := make([]domain.OptionLeg, 0, len(raws))
	var warnings []string
	for i, raw := range raws {
		leg, err := normalizeLeg(raw)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("dropped leg %d: %v", i, err))
			continue
		}
		legs = append(legs, leg)
	}
	return legs, warnings
}

// structure is the per-strategy shape extracted by an adapter before the
// builder attaches slippage, checklist and id.
type structure struct {
	legs    []domain.OptionLeg
	width   float64
	maxRisk float64
}

// adapt normalizes one raw recommendation variant into its canonical
// structure. It returns an error when the surviving legs no longer match
// the strategy's required shape; the whole candidate is rejected then.
func adapt(raw domain.RawRecommendation) (structure, []string, error) {
	switch r := raw.(type) {
	case domain.RawVertical:
		return adaptVertical(r)
	case domain.RawIronCondor:
		return adaptIronCondor(r)
	case domain.RawIronFly:
		return adaptIronFly(r)
	case domain.RawBrokenWingButterfly:
		return adaptBWB(r)
	default:
		return structure{}, nil, fmt.Errorf("%w: unknown recommendation type %T", domain.ErrInvalidInput, raw)
	}
}

func adaptVertical(r domain.RawVertical) (structure, []string, error) {
	legs, warnings := normalizeLegs([]domain.RawLeg{r.Short, r.Long})
	if err := requireShape(domain.StrategyCreditSpread, legs); err != nil {
		return structure{}, warnings, err
	}
	width := math.Abs(legs[0].Strike - legs[1].Strike)
	return structure{
		legs:    legs,
		width:   width,
		maxRisk: width - r.Credit,
	}, warnings, nil
}

func adaptIronCondor(r domain.RawIronCondor) (structure, []string, error) {
	legs, warnings := normalizeLegs([]domain.RawLeg{r.PutShort, r.PutLong, r.CallShort, r.CallLong})
	if err := requireShape(domain.StrategyIronCondor, legs); err != nil {
		return structure{}, warnings, err
	}
	putWidth := math.Abs(legs[0].Strike - legs[1].Strike)
	callWidth := math.Abs(legs[2].Strike - legs[3].Strike)
	width := math.Max(putWidth, callWidth)
	return structure{
		legs:    legs,
		width:   width,
		maxRisk: width - r.Credit,
	}, warnings, nil
}

func adaptIronFly(r domain.RawIronFly) (structure, []string, error) {
	legs, warnings := normalizeLegs([]domain.RawLeg{r.BodyPut, r.BodyCall, r.WingPut, r.WingCall})
	if err := requireShape(domain.StrategyIronFly, legs); err != nil {
		return structure{}, warnings, err
	}
	putWidth := math.Abs(legs[0].Strike - legs[2].Strike)
	callWidth := math.Abs(legs[1].Strike - legs[3].Strike)
	width := math.Max(putWidth, callWidth)
	return structure{
		legs:    legs,
		width:   width,
		maxRisk: width - r.Credit,
	}, warnings, nil
}

func adaptBWB(r domain.RawBrokenWingButterfly) (structure, []string, error) {
	legs, warnings := normalizeLegs([]domain.RawLeg{r.Upper, r.Body, r.Lower})
	if err := requireShape(domain.StrategyBrokenWingButterfly, legs); err != nil {
		return structure{}, warnings, err
	}
	// Put BWB: upper long, double-short body, lower long with the skipped
	// strike. Risk concentrates on the wide wing.
	narrow := math.Abs(legs[0].Strike - legs[1].Strike)
	wide := math.Abs(legs[1].Strike - legs[2].Strike)
	if wide < narrow {
		narrow, wide = wide, narrow
	}
	return structure{
		legs:    legs,
		width:   wide,
		maxRisk: wide - narrow - r.Credit,
	}, warnings, nil
}

func requireShape(strategy domain.StrategyID, legs []domain.OptionLeg) error {
	want := strategy.LegCount()
	if len(legs) != want {
		return fmt.Errorf("%w: %s needs %d legs, have %d after validation",
			domain.ErrInvalidInput, strategy, want, len(legs))
	}
	return nil
}
