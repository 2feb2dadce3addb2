package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hfmemo/pkg/core/forecast"
	"hfmemo/pkg/core/scenario"
	"hfmemo/pkg/core/schema"
)

func date(y int) time.Time {
	return time.Date(y, 12, 31, 0, 0, 0, 0, time.UTC)
}

func rec(end time.Time, item schema.LineItem, v float64) schema.Record {
	return schema.Record{
		Ticker:    "ACME",
		PeriodEnd: end,
		Statement: item.Statement(),
		LineItem:  item,
		Value:     v,
		Currency:  "USD",
		Source:    "test",
	}
}

func flat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func sc(name string, r, g, growth float64, horizon int) forecast.Scenario {
	return forecast.Scenario{
		Name:            name,
		DiscountRate:    r,
		TerminalGrowth:  g,
		TaxRate:         0.21,
		RevenueGrowth:   flat(growth, horizon),
		OperatingMargin: flat(0.15, horizon),
		CapexPctRevenue: flat(0.04, horizon),
	}
}

func fixture(t *testing.T) (*scenario.Comparison, *schema.Dataset) {
	t.Helper()
	ds, err := schema.NewDataset("ACME", []schema.Record{
		rec(date(2021), schema.Revenue, 900e6),
		rec(date(2022), schema.Revenue, 950e6),
		rec(date(2023), schema.Revenue, 1000e6),
		rec(date(2023), schema.OperatingIncome, 150e6),
		rec(date(2023), schema.Capex, -40e6),
		rec(date(2023), schema.CashAndEquivalents, 200e6),
		rec(date(2023), schema.TotalDebt, 300e6),
	})
	require.NoError(t, err)

	shares := 100e6
	cmp, err := scenario.Run(ds,
		sc(forecast.ScenarioBase, 0.10, 0.025, 0.05, 5),
		sc(forecast.ScenarioBull, 0.09, 0.03, 0.08, 5),
		sc(forecast.ScenarioBear, 0.11, 0.02, 0.02, 5),
		5, &shares)
	require.NoError(t, err)
	return cmp, ds
}

func TestRenderSections(t *testing.T) {
	cmp, ds := fixture(t)
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	memo, err := Render(cmp, ds, asOf)
	require.NoError(t, err)

	assert.Contains(t, memo, "# Investment Memo: ACME")
	assert.Contains(t, memo, "**Date:** 2024-03-15")
	assert.Contains(t, memo, cmp.RunID)
	for _, section := range []string{
		"## Executive Summary",
		"## Historical Analysis",
		"## Forecast Assumptions",
		"## Forecast Summary",
		"## Valuation Summary",
		"### Valuation Range",
	} {
		assert.Contains(t, memo, section, "missing section %q", section)
	}

	// All three scenario assumption tables present.
	assert.Contains(t, memo, "### Base Case")
	assert.Contains(t, memo, "### Bull Case")
	assert.Contains(t, memo, "### Bear Case")

	// Per-share value rendered since shares were supplied.
	assert.Contains(t, memo, "/share")

	// Five forecast rows: 2024 through 2028.
	assert.Contains(t, memo, "| 2024 |")
	assert.Contains(t, memo, "| 2028 |")
}

func TestRenderRequiresBaseScenario(t *testing.T) {
	cmp, ds := fixture(t)
	cmp.Results = cmp.Results[1:] // drop base

	_, err := Render(cmp, ds, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base")
}

func TestWriteArtifactLayout(t *testing.T) {
	cmp, ds := fixture(t)
	outDir := t.TempDir()
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	path, err := Write(cmp, ds, outDir, asOf, true)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outDir, "ACME", "2024-03-15", "memo.md"), path)

	md, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(md), "# Investment Memo: ACME"))

	html, err := os.ReadFile(filepath.Join(outDir, "ACME", "2024-03-15", "memo.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<h1")
	assert.Contains(t, string(html), "Investment Memo: ACME")
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML("# Title\n\nSome **bold** text.\n")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "<strong>bold</strong>")
}

func TestFmtMoneyUnits(t *testing.T) {
	assert.Equal(t, "$1.50B", fmtMoney(1.5e9))
	assert.Equal(t, "$-42.0M", fmtMoney(-42e6))
	assert.Equal(t, "$999.0", fmtMoney(999))
}

func TestFmtRates(t *testing.T) {
	assert.Equal(t, "5.0%", fmtRates([]float64{0.05, 0.05, 0.05}))
	assert.Equal(t, "8.0%, 6.0%, 4.0%", fmtRates([]float64{0.08, 0.06, 0.04}))
	assert.Equal(t, "0.0%", fmtRates(nil))
}
