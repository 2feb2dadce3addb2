// Package standardize converts source-specific raw statement tables into the
// canonical long-format dataset. One mapper exists per upstream data source;
// each resolves canonical line items through an explicit ordered list of
// candidate field names rather than probing the source dynamically.
package standardize

import (
	"fmt"
	"time"

	"hfmemo/pkg/core/schema"
)

// RawRow is one reporting period of a source statement: period end plus the
// source's own field names and values.
type RawRow struct {
	PeriodEnd time.Time
	Fields    map[string]float64
}

// RawStatements is the raw tabular bundle the fetch layer produces for one
// ticker: rows are periods, columns are source-specific field names.
type RawStatements struct {
	Ticker   string
	Currency string
	Income   []RawRow
	Balance  []RawRow
	Cash     []RawRow
}

// Mapper is the capability a data source must provide: turn its raw bundle
// into a validated canonical dataset. Pure transformation, no I/O.
type Mapper interface {
	Map(raw RawStatements) (*schema.Dataset, error)
}

// MissingFieldError reports a required canonical line item that could not be
// resolved from any candidate field for a majority of periods.
type MissingFieldError struct {
	Ticker   string
	Item     schema.LineItem
	Resolved int
	Periods  int
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field %q for %s resolved in %d of %d periods",
		e.Item, e.Ticker, e.Resolved, e.Periods)
}

// fieldChain is the ordered candidate list for one canonical line item.
// The first present, non-zero candidate wins per period. Zero is treated as
// unresolved: sources emit 0 for facts they did not report.
type fieldChain struct {
	item       schema.LineItem
	candidates []string
	required   bool
}

// resolve walks the candidate list against one raw row.
func resolve(row RawRow, candidates []string) (float64, bool) {
	for _, name := range candidates {
		if v, ok := row.Fields[name]; ok && v != 0 {
			return v, true
		}
	}
	return 0, false
}
