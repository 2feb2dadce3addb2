// Package scenario orchestrates the forecast and valuation engines across
// the Base/Bull/Bear assumption sets and assembles a comparative result.
package scenario

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hfmemo/pkg/core/drivers"
	"hfmemo/pkg/core/forecast"
	"hfmemo/pkg/core/schema"
	"hfmemo/pkg/core/valuation"
)

// Result bundles everything one scenario produced. The report layer can
// render tables from it without re-deriving any number.
type Result struct {
	Scenario  forecast.Scenario
	Periods   []forecast.Period
	Valuation valuation.Result
}

// Comparison is the atomic output of a run: either all three scenarios
// succeeded or the run failed as a whole. Partial results are never
// returned, so the generated report is reproducible.
type Comparison struct {
	RunID    string
	Ticker   string
	Currency string
	Drivers  []drivers.PeriodDrivers
	Anchor   forecast.Anchor
	Balance  valuation.BalanceSnapshot
	Results  []Result // fixed order: base, bull, bear
}

// Result returns the named scenario's result.
func (c *Comparison) Result(name string) (Result, bool) {
	for _, r := range c.Results {
		if r.Scenario.Name == name {
			return r, true
		}
	}
	return Result{}, false
}

// Run extracts drivers once (they are scenario-independent), then forecasts
// and values each assumption set in the fixed order base, bull, bear. It
// fails fast on the first scenario whose assumptions violate an invariant,
// reporting which scenario failed and why.
func Run(ds *schema.Dataset, base, bull, bear forecast.Scenario, horizon int, sharesOutstanding *float64) (*Comparison, error) {
	hist := drivers.Extract(ds)

	anchorRec, ok := ds.Latest(schema.Revenue)
	if !ok {
		return nil, fmt.Errorf("dataset for %s has no revenue to anchor the forecast", ds.Ticker)
	}
	anchor := forecast.Anchor{Revenue: anchorRec.Value, PeriodEnd: anchorRec.PeriodEnd}

	balance := latestBalance(ds)

	cmp := &Comparison{
		RunID:    uuid.NewString(),
		Ticker:   ds.Ticker,
		Currency: anchorRec.Currency,
		Drivers:  hist,
		Anchor:   anchor,
		Balance:  balance,
	}

	for _, sc := range []forecast.Scenario{base, bull, bear} {
		if err := sc.Validate(); err != nil {
			return nil, fmt.Errorf("scenario comparison aborted: %w", err)
		}

		periods, err := forecast.Build(hist, anchor, sc, horizon)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}

		val, err := valuation.Value(periods, sc, balance, sharesOutstanding)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}

		log.Info().
			Str("ticker", ds.Ticker).
			Str("scenario", sc.Name).
			Float64("enterprise_value", val.EnterpriseValue).
			Float64("equity_value", val.EquityValue).
			Msg("Scenario valued")

		cmp.Results = append(cmp.Results, Result{
			Scenario:  sc,
			Periods:   periods,
			Valuation: val,
		})
	}

	return cmp, nil
}

// latestBalance pulls the most recent cash and debt figures. Missing items
// default to zero with a warning: the equity bridge still holds, it just
// degenerates to enterprise value.
func latestBalance(ds *schema.Dataset) valuation.BalanceSnapshot {
	var bal valuation.BalanceSnapshot

	if cash, ok := ds.Latest(schema.CashAndEquivalents); ok {
		bal.CashAndEquivalents = cash.Value
		bal.PeriodEnd = cash.PeriodEnd
	} else {
		log.Warn().Str("ticker", ds.Ticker).Msg("No cash_and_equivalents in dataset, using 0")
	}

	if debt, ok := ds.Latest(schema.TotalDebt); ok {
		bal.TotalDebt = debt.Value
		if debt.PeriodEnd.After(bal.PeriodEnd) {
			bal.PeriodEnd = debt.PeriodEnd
		}
	} else {
		log.Warn().Str("ticker", ds.Ticker).Msg("No total_debt in dataset, using 0")
	}

	return bal
}
