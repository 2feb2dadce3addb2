// Package valuation converts a scenario forecast into a discounted-cash-flow
// valuation: present value of explicit FCFF, Gordon-growth terminal value,
// enterprise value, and the bridge to equity value.
package valuation

import (
	"fmt"
	"math"
	"time"

	"hfmemo/pkg/core/forecast"
)

// BalanceSnapshot carries the most recent historical balance-sheet figures
// used for the equity bridge. No balance-sheet forecast is modeled.
type BalanceSnapshot struct {
	PeriodEnd          time.Time
	CashAndEquivalents float64
	TotalDebt          float64
}

// Result holds the valuation outputs for one scenario, all as of the
// valuation date. PerShareValue is nil when shares outstanding were not
// supplied: absence is distinguishable from a computed zero.
type Result struct {
	PVExplicit      float64
	TerminalValue   float64 // undiscounted Gordon-growth perpetuity value
	PVTerminal      float64
	EnterpriseValue float64
	EquityValue     float64
	PerShareValue   *float64
}

// Value runs a standard 2-stage DCF over the forecast periods.
//
// Year-end discounting convention: period t is discounted by (1+r)^t.
// The terminal growth invariant is checked upstream at assumption-set
// construction and re-asserted here.
func Value(periods []forecast.Period, sc forecast.Scenario, balance BalanceSnapshot, sharesOutstanding *float64) (Result, error) {
	if len(periods) == 0 {
		return Result{}, fmt.Errorf("scenario %q: no forecast periods to value", sc.Name)
	}
	if err := sc.Validate(); err != nil {
		return Result{}, err
	}

	// 1. Discount the explicit forecast
	var pvExplicit float64
	for _, p := range periods {
		pvExplicit += p.FCFF / math.Pow(1+sc.DiscountRate, float64(p.Index))
	}

	// 2. Terminal value (Gordon growth), discounted back over the horizon
	horizon := periods[len(periods)-1].Index
	terminalFCFF := periods[len(periods)-1].FCFF
	terminalValue := terminalFCFF * (1 + sc.TerminalGrowth) / (sc.DiscountRate - sc.TerminalGrowth)
	pvTerminal := terminalValue / math.Pow(1+sc.DiscountRate, float64(horizon))

	// 3. Aggregation and equity bridge
	enterpriseValue := pvExplicit + pvTerminal
	equityValue := enterpriseValue - balance.TotalDebt + balance.CashAndEquivalents

	result := Result{
		PVExplicit:      pvExplicit,
		TerminalValue:   terminalValue,
		PVTerminal:      pvTerminal,
		EnterpriseValue: enterpriseValue,
		EquityValue:     equityValue,
	}

	if sharesOutstanding != nil && *sharesOutstanding > 0 {
		perShare := equityValue / *sharesOutstanding
		result.PerShareValue = &perShare
	}

	return result, nil
}
