package standardize

import (
	"errors"
	"testing"
	"time"

	"hfmemo/pkg/core/schema"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func row(end time.Time, fields map[string]float64) RawRow {
	return RawRow{PeriodEnd: end, Fields: fields}
}

// secBundle builds a minimal two-period SEC-shaped bundle that every
// happy-path test starts from.
func secBundle() RawStatements {
	return RawStatements{
		Ticker:   "ACME",
		Currency: "USD",
		Income: []RawRow{
			row(date(2022, 12, 31), map[string]float64{
				"revenue": 1000, "operating_income": 150, "net_income": 100,
			}),
			row(date(2023, 12, 31), map[string]float64{
				"revenue": 1100, "operating_income": 170, "net_income": 115,
			}),
		},
		Balance: []RawRow{
			row(date(2022, 12, 31), map[string]float64{
				"cash_and_equivalents": 200, "long_term_debt": 300, "short_term_debt": 50,
			}),
			row(date(2023, 12, 31), map[string]float64{
				"cash_and_equivalents": 230, "long_term_debt": 280, "short_term_debt": 40,
			}),
		},
		Cash: []RawRow{
			row(date(2022, 12, 31), map[string]float64{
				"operating_cash_flow": 180, "capital_expenditure": 60,
			}),
			row(date(2023, 12, 31), map[string]float64{
				"operating_cash_flow": 200, "capital_expenditure": 70,
			}),
		},
	}
}

func TestSECMapperHappyPath(t *testing.T) {
	ds, err := NewSECMapper().Map(secBundle())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Capex arrives positive from the source and must be stored as outflow.
	capex, ok := ds.Value(date(2023, 12, 31), schema.Capex)
	if !ok || capex != -70 {
		t.Errorf("capex = %v, %v; want -70, true", capex, ok)
	}

	// Total debt falls back to long-term + current components.
	debt, ok := ds.Value(date(2023, 12, 31), schema.TotalDebt)
	if !ok || debt != 320 {
		t.Errorf("total_debt = %v, %v; want 320, true", debt, ok)
	}

	if got := len(ds.Periods()); got != 2 {
		t.Errorf("periods = %d, want 2", got)
	}
}

func TestMapperDirectTotalDebtWins(t *testing.T) {
	raw := secBundle()
	raw.Balance[1].Fields["total_debt"] = 999
	ds, err := NewSECMapper().Map(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	debt, _ := ds.Value(date(2023, 12, 31), schema.TotalDebt)
	if debt != 999 {
		t.Errorf("total_debt = %v, want direct field 999 over component sum", debt)
	}
}

func TestMapperOmitsUnresolvableDebt(t *testing.T) {
	raw := secBundle()
	for i := range raw.Balance {
		delete(raw.Balance[i].Fields, "long_term_debt")
		delete(raw.Balance[i].Fields, "short_term_debt")
	}
	ds, err := NewSECMapper().Map(raw)
	if err != nil {
		t.Fatalf("optional debt must not fail the mapping: %v", err)
	}
	if _, ok := ds.Value(date(2023, 12, 31), schema.TotalDebt); ok {
		t.Error("expected total_debt to be omitted, not defaulted")
	}
}

func TestMapperZeroTreatedAsUnresolved(t *testing.T) {
	raw := secBundle()
	// A literal 0 revenue means the source did not report it; the next
	// candidate in the chain must not be consulted here since there is
	// none, so the period contributes no revenue fact.
	raw.Income[1].Fields["revenue"] = 0

	_, err := NewSECMapper().Map(raw)
	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *MissingFieldError, got %v", err)
	}
	if missing.Item != schema.Revenue {
		t.Errorf("missing item = %s, want revenue", missing.Item)
	}
	// 1 resolved of 2 periods is not a majority.
	if missing.Resolved != 1 || missing.Periods != 2 {
		t.Errorf("coverage = %d/%d, want 1/2", missing.Resolved, missing.Periods)
	}
}

func TestMapperMajorityCoveragePasses(t *testing.T) {
	raw := secBundle()
	raw.Income = append(raw.Income, row(date(2024, 12, 31), map[string]float64{
		"revenue": 1200, "operating_income": 190,
	}))
	raw.Cash = append(raw.Cash, row(date(2024, 12, 31), map[string]float64{
		"operating_cash_flow": 210, "capital_expenditure": 75,
	}))
	raw.Balance = append(raw.Balance, row(date(2024, 12, 31), map[string]float64{
		"cash_and_equivalents": 250,
	}))
	// Drop operating income from one of three periods: 2 of 3 is still a
	// majority, so the mapping must succeed with a gap in the series.
	delete(raw.Income[0].Fields, "operating_income")

	ds, err := NewSECMapper().Map(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(ds.Series(schema.OperatingIncome)); got != 2 {
		t.Errorf("operating_income series length = %d, want 2", got)
	}
}

func TestMapperInsufficientHistory(t *testing.T) {
	raw := secBundle()
	raw.Income = raw.Income[:1]
	raw.Balance = raw.Balance[:1]
	raw.Cash = raw.Cash[:1]

	_, err := NewSECMapper().Map(raw)
	var histErr *schema.InsufficientHistoryError
	if !errors.As(err, &histErr) {
		t.Fatalf("expected *InsufficientHistoryError, got %v", err)
	}
}

func TestMapperEmptyStatement(t *testing.T) {
	raw := secBundle()
	raw.Cash = nil
	if _, err := NewSECMapper().Map(raw); err == nil {
		t.Fatal("expected error for empty cash flow statement")
	}
}

func TestFMPMapperFallbackChains(t *testing.T) {
	raw := RawStatements{
		Ticker:   "ACME",
		Currency: "USD",
		Income: []RawRow{
			// Primary names missing; each secondary candidate must resolve.
			row(date(2022, 12, 31), map[string]float64{
				"total_revenue": 1000, "ebit": 150, "net_income_loss": 100,
			}),
			row(date(2023, 12, 31), map[string]float64{
				"total_revenue": 1100, "ebit": 170, "net_income_loss": 115,
			}),
		},
		Balance: []RawRow{
			row(date(2022, 12, 31), map[string]float64{"cash_and_cash_equivalents": 200}),
			row(date(2023, 12, 31), map[string]float64{"cash_and_cash_equivalents": 230}),
		},
		Cash: []RawRow{
			row(date(2022, 12, 31), map[string]float64{
				"cash_flow_from_operating_activities":       180,
				"purchases_of_property_plant_and_equipment": -60,
			}),
			row(date(2023, 12, 31), map[string]float64{
				"cash_flow_from_operating_activities":       200,
				"purchases_of_property_plant_and_equipment": -70,
			}),
		},
	}

	ds, err := NewFMPMapper().Map(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v, _ := ds.Value(date(2023, 12, 31), schema.Revenue); v != 1100 {
		t.Errorf("revenue via total_revenue = %v, want 1100", v)
	}
	if v, _ := ds.Value(date(2023, 12, 31), schema.OperatingIncome); v != 170 {
		t.Errorf("operating_income via ebit = %v, want 170", v)
	}
	// Already-negative capex keeps its sign.
	if v, _ := ds.Value(date(2023, 12, 31), schema.Capex); v != -70 {
		t.Errorf("capex = %v, want -70", v)
	}
}
