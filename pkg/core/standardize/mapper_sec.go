package standardize

import "hfmemo/pkg/core/schema"

// NewSECMapper maps the SEC EDGAR provider's normalized companyfacts fields.
// The provider has already collapsed the XBRL tag fallback chains into one
// snake_case field per canonical concept, so each chain is short.
func NewSECMapper() Mapper {
	return sourceMapper{
		source: "sec",
		income: []fieldChain{
			{item: schema.Revenue, candidates: []string{"revenue"}, required: true},
			{item: schema.OperatingIncome, candidates: []string{"operating_income"}, required: true},
			{item: schema.NetIncome, candidates: []string{"net_income"}},
		},
		cash: []fieldChain{
			{item: schema.CFO, candidates: []string{"operating_cash_flow"}, required: true},
			{item: schema.Capex, candidates: []string{"capital_expenditure"}, required: true},
		},
		cashAndEquivalents: []string{"cash_and_equivalents"},
		totalDebt:          []string{"total_debt"},
		longTermDebt:       []string{"long_term_debt"},
		shortTermDebt:      []string{"short_term_debt"},
	}
}
