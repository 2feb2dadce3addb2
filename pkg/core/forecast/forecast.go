// Package forecast projects canonical line items forward under a named
// scenario's assumption set. The projection is a deterministic driver-based
// rollforward: no fitted model, no randomness, no clock access.
package forecast

import (
	"fmt"
	"time"

	"hfmemo/pkg/core/drivers"
)

// Anchor is the jumping-off point for a projection: the last historical
// revenue and the period it was reported for.
type Anchor struct {
	Revenue   float64
	PeriodEnd time.Time
}

// Period is one projected year. Produced here, consumed by the valuation
// engine, never mutated afterward.
type Period struct {
	Index           int // 1..horizon
	Year            int // calendar year, anchor year + Index
	Revenue         float64
	OperatingIncome float64
	Capex           float64 // non-positive, cash outflow convention
	NWCDelta        float64 // cash use, subtracts from FCFF
	FCFF            float64
}

// marginFallbackWindow is how many trailing historical margins feed the
// fallback when a scenario supplies no operating margin assumption.
const marginFallbackWindow = 3

// Build projects horizon periods from the anchor under one scenario.
//
// Per period t (1-indexed):
//
//	revenue[t]          = revenue[t-1] * (1 + growth[t])
//	operating_income[t] = revenue[t] * margin[t]
//	capex[t]            = -revenue[t] * capex_pct[t]
//	nwc_delta[t]        = revenue[t] * nwc_pct[t]
//	fcff[t]             = operating_income[t]*(1-tax) + dep_proxy[t] + capex[t] - nwc_delta[t]
//
// Depreciation is not separately modeled unless the scenario supplies a
// DepreciationPct sequence: the engine computes an approximate unlevered
// FCFF directly from operating income. This is a documented simplification
// of the reference design, not a missing feature.
func Build(hist []drivers.PeriodDrivers, anchor Anchor, sc Scenario, horizon int) ([]Period, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("forecast horizon must be positive, got %d", horizon)
	}
	if anchor.Revenue == 0 {
		return nil, fmt.Errorf("scenario %q: anchor revenue is zero, nothing to project", sc.Name)
	}

	growth, err := periodSlice("revenue_growth", sc.RevenueGrowth, horizon)
	if err != nil {
		return nil, err
	}
	capexPct, err := periodSlice("capex_pct_revenue", sc.CapexPctRevenue, horizon)
	if err != nil {
		return nil, err
	}
	nwcPct, err := periodSlice("nwc_pct_revenue", sc.NWCPctRevenue, horizon)
	if err != nil {
		return nil, err
	}
	depPct, err := periodSlice("depreciation_pct_revenue", sc.DepreciationPct, horizon)
	if err != nil {
		return nil, err
	}

	margin := sc.OperatingMargin
	if margin == nil {
		// No margin assumption supplied: hold the trailing historical
		// average flat across the horizon.
		avg := drivers.TrailingAverageMargin(hist, marginFallbackWindow)
		margin = make([]float64, horizon)
		for i := range margin {
			margin[i] = avg
		}
	} else if len(margin) != horizon {
		return nil, &ShapeMismatchError{Field: "operating_margin", Len: len(margin), Horizon: horizon}
	}

	periods := make([]Period, 0, horizon)
	revenue := anchor.Revenue

	for t := 1; t <= horizon; t++ {
		i := t - 1
		revenue = revenue * (1 + growth[i])

		opInc := revenue * margin[i]
		capex := -revenue * capexPct[i]
		nwcDelta := revenue * nwcPct[i]
		depProxy := revenue * depPct[i]

		fcff := opInc*(1-sc.TaxRate) + depProxy + capex - nwcDelta

		periods = append(periods, Period{
			Index:           t,
			Year:            anchor.PeriodEnd.Year() + t,
			Revenue:         revenue,
			OperatingIncome: opInc,
			Capex:           capex,
			NWCDelta:        nwcDelta,
			FCFF:            fcff,
		})
	}

	return periods, nil
}

// periodSlice re-asserts that a pre-broadcast slice matches the horizon.
// A nil slice stands for an unset assumption and broadcasts zeros.
func periodSlice(field string, vs []float64, horizon int) ([]float64, error) {
	if vs == nil {
		return make([]float64, horizon), nil
	}
	if len(vs) != horizon {
		return nil, &ShapeMismatchError{Field: field, Len: len(vs), Horizon: horizon}
	}
	return vs, nil
}
