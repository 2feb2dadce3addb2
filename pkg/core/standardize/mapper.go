package standardize

import (
	"fmt"

	"hfmemo/pkg/core/schema"
)

// sourceMapper implements the shared mapping algorithm. Concrete mappers
// differ only in their source tag and candidate field chains.
type sourceMapper struct {
	source string

	income []fieldChain // revenue, operating_income, net_income
	cash   []fieldChain // cfo, capex

	cashAndEquivalents []string
	totalDebt          []string
	longTermDebt       []string
	shortTermDebt      []string
}

// Map converts the raw bundle into a canonical dataset.
//
// Resolution rules:
//   - first present, non-zero candidate wins per period
//   - capex is sign-corrected to non-positive regardless of source convention
//   - total_debt falls back to long-term + current debt components, and is
//     omitted entirely when neither path resolves
//   - a required item unresolved for a majority of its statement's periods
//     fails the whole standardization with *MissingFieldError
func (m sourceMapper) Map(raw RawStatements) (*schema.Dataset, error) {
	if len(raw.Income) == 0 || len(raw.Balance) == 0 || len(raw.Cash) == 0 {
		return nil, fmt.Errorf("one or more financial statements are empty for %s", raw.Ticker)
	}
	if n := distinctPeriods(raw.Income); n < schema.MinPeriods {
		return nil, &schema.InsufficientHistoryError{Ticker: raw.Ticker, Periods: n}
	}

	currency := raw.Currency
	if currency == "" {
		currency = "USD"
	}

	var records []schema.Record
	seen := make(map[string]bool)
	resolved := make(map[schema.LineItem]int)

	appendRecord := func(row RawRow, item schema.LineItem, value float64) {
		key := row.PeriodEnd.Format("2006-01-02") + "|" + string(item)
		if seen[key] {
			return
		}
		seen[key] = true
		resolved[item]++
		records = append(records, schema.Record{
			Ticker:    raw.Ticker,
			PeriodEnd: row.PeriodEnd,
			Statement: item.Statement(),
			LineItem:  item,
			Value:     value,
			Currency:  currency,
			Source:    m.source,
		})
	}

	// Income statement
	for _, row := range raw.Income {
		for _, chain := range m.income {
			if v, ok := resolve(row, chain.candidates); ok {
				appendRecord(row, chain.item, v)
			}
		}
	}

	// Cash flow statement; capex is stored as a cash outflow
	for _, row := range raw.Cash {
		for _, chain := range m.cash {
			v, ok := resolve(row, chain.candidates)
			if !ok {
				continue
			}
			if chain.item == schema.Capex && v > 0 {
				v = -v
			}
			appendRecord(row, chain.item, v)
		}
	}

	// Balance sheet
	for _, row := range raw.Balance {
		if v, ok := resolve(row, m.cashAndEquivalents); ok {
			appendRecord(row, schema.CashAndEquivalents, v)
		}
		if debt, ok := m.resolveTotalDebt(row); ok {
			appendRecord(row, schema.TotalDebt, debt)
		}
	}

	// Coverage gate: required items must resolve for a majority of periods.
	for _, chain := range append(append([]fieldChain{}, m.income...), m.cash...) {
		if !chain.required {
			continue
		}
		periods := distinctPeriods(statementRows(raw, chain.item))
		if resolved[chain.item]*2 <= periods {
			return nil, &MissingFieldError{
				Ticker:   raw.Ticker,
				Item:     chain.item,
				Resolved: resolved[chain.item],
				Periods:  periods,
			}
		}
	}

	return schema.NewDataset(raw.Ticker, records)
}

// resolveTotalDebt tries the direct field first, then the sum of long-term
// and current components; a single resolvable component stands on its own.
func (m sourceMapper) resolveTotalDebt(row RawRow) (float64, bool) {
	if v, ok := resolve(row, m.totalDebt); ok {
		return v, true
	}
	long, hasLong := resolve(row, m.longTermDebt)
	short, hasShort := resolve(row, m.shortTermDebt)
	switch {
	case hasLong && hasShort:
		return long + short, true
	case hasLong:
		return long, true
	case hasShort:
		return short, true
	}
	return 0, false
}

func statementRows(raw RawStatements, item schema.LineItem) []RawRow {
	switch item.Statement() {
	case schema.StatementIncome:
		return raw.Income
	case schema.StatementCashflow:
		return raw.Cash
	default:
		return raw.Balance
	}
}

func distinctPeriods(rows []RawRow) int {
	seen := make(map[string]bool)
	for _, row := range rows {
		seen[row.PeriodEnd.Format("2006-01-02")] = true
	}
	return len(seen)
}
