package standardize

import "hfmemo/pkg/core/schema"

// NewFMPMapper maps Financial Modeling Prep statement fields. FMP has
// renamed several fields across API revisions, hence the longer chains.
func NewFMPMapper() Mapper {
	return sourceMapper{
		source: "fmp",
		income: []fieldChain{
			{item: schema.Revenue, candidates: []string{"revenue", "total_revenue"}, required: true},
			{item: schema.OperatingIncome, candidates: []string{"operating_income", "ebit"}, required: true},
			{item: schema.NetIncome, candidates: []string{"net_income", "net_income_loss"}},
		},
		cash: []fieldChain{
			{item: schema.CFO, candidates: []string{
				"operating_cash_flow",
				"cash_flow_from_operating_activities",
				"net_cash_flow_from_operating_activities",
			}, required: true},
			{item: schema.Capex, candidates: []string{
				"capital_expenditure",
				"capital_expenditures",
				"purchases_of_property_plant_and_equipment",
			}, required: true},
		},
		cashAndEquivalents: []string{
			"cash_and_cash_equivalents",
			"cash_and_short_term_investments",
			"cash",
		},
		totalDebt: []string{"total_debt"},
		longTermDebt: []string{
			"long_term_debt",
			"long_term_debt_and_capital_lease_obligation",
		},
		shortTermDebt: []string{
			"short_term_debt",
			"short_term_debt_and_capital_lease_obligation",
		},
	}
}
