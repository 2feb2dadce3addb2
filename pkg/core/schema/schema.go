// Package schema defines the canonical vocabulary of financial line items
// and the long-format standardized record every source mapper produces.
// The line-item set is closed for the MVP: adding an item requires updating
// every mapper plus the driver and forecast logic that consumes it.
package schema

import (
	"fmt"
	"sort"
	"time"
)

// StatementType identifies which financial statement a record belongs to.
type StatementType string

const (
	StatementIncome   StatementType = "income"
	StatementBalance  StatementType = "balance"
	StatementCashflow StatementType = "cashflow"
)

// LineItem is a canonical financial concept all source data is mapped into.
type LineItem string

const (
	Revenue            LineItem = "revenue"
	OperatingIncome    LineItem = "operating_income"
	NetIncome          LineItem = "net_income"
	CFO                LineItem = "cfo"
	Capex              LineItem = "capex"
	CashAndEquivalents LineItem = "cash_and_equivalents"
	TotalDebt          LineItem = "total_debt"
)

var lineItemStatements = map[LineItem]StatementType{
	Revenue:            StatementIncome,
	OperatingIncome:    StatementIncome,
	NetIncome:          StatementIncome,
	CFO:                StatementCashflow,
	Capex:              StatementCashflow,
	CashAndEquivalents: StatementBalance,
	TotalDebt:          StatementBalance,
}

// Statement returns the statement a canonical line item lives on.
func (li LineItem) Statement() StatementType {
	return lineItemStatements[li]
}

// Known reports whether li belongs to the canonical set.
func (li LineItem) Known() bool {
	_, ok := lineItemStatements[li]
	return ok
}

// Record is one standardized fact keyed by (ticker, period_end, line_item).
type Record struct {
	Ticker    string        `json:"ticker"`
	PeriodEnd time.Time     `json:"period_end"`
	Statement StatementType `json:"statement"`
	LineItem  LineItem      `json:"line_item"`
	Value     float64       `json:"value"`
	Currency  string        `json:"currency"`
	Source    string        `json:"source"`
}

// MinPeriods is the hard validation gate on usable annual history.
const MinPeriods = 2

// InsufficientHistoryError reports fewer usable historical periods than the
// MinPeriods gate requires.
type InsufficientHistoryError struct {
	Ticker  string
	Periods int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history for %s: found %d periods, need at least %d",
		e.Ticker, e.Periods, MinPeriods)
}

// Dataset is an ordered collection of standardized records for one ticker,
// sorted by ascending period end. It is immutable after construction: every
// downstream stage reads it and produces a new structure.
type Dataset struct {
	Ticker  string
	Records []Record
}

// NewDataset validates and assembles a dataset from mapper output.
//
// Enforced invariants:
//   - every record carries the dataset's ticker and a known line item
//   - capex values are non-positive (cash outflow sign convention)
//   - at most one record per (period_end, line_item)
//   - at least MinPeriods distinct period ends
func NewDataset(ticker string, records []Record) (*Dataset, error) {
	if ticker == "" {
		return nil, fmt.Errorf("dataset ticker cannot be empty")
	}

	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].PeriodEnd.Equal(sorted[j].PeriodEnd) {
			return sorted[i].PeriodEnd.Before(sorted[j].PeriodEnd)
		}
		if sorted[i].Statement != sorted[j].Statement {
			return sorted[i].Statement < sorted[j].Statement
		}
		return sorted[i].LineItem < sorted[j].LineItem
	})

	seen := make(map[string]bool, len(sorted))
	periods := make(map[string]bool)
	for _, r := range sorted {
		if r.Ticker != ticker {
			return nil, fmt.Errorf("record ticker %q does not match dataset ticker %q", r.Ticker, ticker)
		}
		if !r.LineItem.Known() {
			return nil, fmt.Errorf("unknown line item %q", r.LineItem)
		}
		if r.Statement != r.LineItem.Statement() {
			return nil, fmt.Errorf("line item %q belongs on the %s statement, got %s",
				r.LineItem, r.LineItem.Statement(), r.Statement)
		}
		if r.LineItem == Capex && r.Value > 0 {
			return nil, fmt.Errorf("capex must be non-positive, got %v for period %s",
				r.Value, r.PeriodEnd.Format("2006-01-02"))
		}
		key := r.PeriodEnd.Format("2006-01-02") + "|" + string(r.LineItem)
		if seen[key] {
			return nil, fmt.Errorf("duplicate fact for (%s, %s)", r.PeriodEnd.Format("2006-01-02"), r.LineItem)
		}
		seen[key] = true
		periods[r.PeriodEnd.Format("2006-01-02")] = true
	}

	if len(periods) < MinPeriods {
		return nil, &InsufficientHistoryError{Ticker: ticker, Periods: len(periods)}
	}

	return &Dataset{Ticker: ticker, Records: sorted}, nil
}

// Periods returns the distinct period ends in ascending order.
func (d *Dataset) Periods() []time.Time {
	seen := make(map[string]bool)
	var out []time.Time
	for _, r := range d.Records {
		key := r.PeriodEnd.Format("2006-01-02")
		if !seen[key] {
			seen[key] = true
			out = append(out, r.PeriodEnd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Value looks up the fact for a (period_end, line_item) pair.
func (d *Dataset) Value(periodEnd time.Time, item LineItem) (float64, bool) {
	for _, r := range d.Records {
		if r.LineItem == item && r.PeriodEnd.Equal(periodEnd) {
			return r.Value, true
		}
	}
	return 0, false
}

// Series returns the ordered (period_end, value) series for a line item.
func (d *Dataset) Series(item LineItem) []Record {
	var out []Record
	for _, r := range d.Records {
		if r.LineItem == item {
			out = append(out, r)
		}
	}
	return out
}

// Latest returns the most recent fact for a line item.
func (d *Dataset) Latest(item LineItem) (Record, bool) {
	series := d.Series(item)
	if len(series) == 0 {
		return Record{}, false
	}
	return series[len(series)-1], true
}
