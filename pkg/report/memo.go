// Package report renders a scenario comparison into a Markdown investment
// memo and writes the run artifact under reports/<TICKER>/<date>/.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"

	"hfmemo/pkg/core/forecast"
	"hfmemo/pkg/core/scenario"
	"hfmemo/pkg/core/schema"
)

// Render builds the Markdown memo for one run. Every number comes straight
// from the comparison; nothing is re-derived here.
func Render(cmp *scenario.Comparison, ds *schema.Dataset, asOf time.Time) (string, error) {
	base, ok := cmp.Result(forecast.ScenarioBase)
	if !ok {
		return "", fmt.Errorf("comparison is missing the base scenario")
	}
	bull, _ := cmp.Result(forecast.ScenarioBull)
	bear, _ := cmp.Result(forecast.ScenarioBear)

	var b strings.Builder

	fmt.Fprintf(&b, "# Investment Memo: %s\n\n", cmp.Ticker)
	fmt.Fprintf(&b, "**Date:** %s\n\n", asOf.Format("2006-01-02"))
	fmt.Fprintf(&b, "**Run:** %s\n\n", cmp.RunID)
	b.WriteString("---\n\n## Executive Summary\n\n")
	b.WriteString("**Valuation Range (DCF):**\n")
	writeEquityLine(&b, "Base", base)
	writeEquityLine(&b, "Bull", bull)
	writeEquityLine(&b, "Bear", bear)
	b.WriteString("\n**Key Assumptions:**\n")
	fmt.Fprintf(&b, "- Forecast Horizon: %d years\n", len(base.Periods))
	fmt.Fprintf(&b, "- Base Case WACC: %.1f%%\n", base.Scenario.DiscountRate*100)
	fmt.Fprintf(&b, "- Base Case Terminal Growth: %.1f%%\n", base.Scenario.TerminalGrowth*100)
	fmt.Fprintf(&b, "- Tax Rate: %.1f%%\n\n", base.Scenario.TaxRate*100)

	b.WriteString("---\n\n## Historical Analysis\n\n### Revenue Trend\n\n")
	b.WriteString("| Period | Revenue | YoY Growth |\n|--------|---------|------------|\n")
	growthByPeriod := make(map[string]float64, len(cmp.Drivers))
	for _, d := range cmp.Drivers {
		growthByPeriod[d.PeriodEnd.Format("2006-01-02")] = d.RevenueGrowth
	}
	for _, rec := range ds.Series(schema.Revenue) {
		key := rec.PeriodEnd.Format("2006-01-02")
		if g, ok := growthByPeriod[key]; ok {
			fmt.Fprintf(&b, "| %s | %s | %+.1f%% |\n", key, fmtMoney(rec.Value), g*100)
		} else {
			fmt.Fprintf(&b, "| %s | %s | - |\n", key, fmtMoney(rec.Value))
		}
	}

	b.WriteString("\n### Operating Margin Trend\n\n| Period | Operating Margin | Capex % Revenue |\n|--------|------------------|-----------------|\n")
	for _, d := range cmp.Drivers {
		fmt.Fprintf(&b, "| %s | %.1f%% | %.1f%% |\n",
			d.PeriodEnd.Format("2006-01-02"), d.OperatingMargin*100, d.CapexPctRevenue*100)
	}

	b.WriteString("\n---\n\n## Forecast Assumptions\n")
	for _, res := range cmp.Results {
		writeAssumptions(&b, res)
	}

	b.WriteString("\n---\n\n## Forecast Summary\n\n### Base Case Forecast\n\n")
	b.WriteString("| Year | Revenue | Operating Income | Capex | NWC Delta | FCFF |\n")
	b.WriteString("|------|---------|------------------|-------|-----------|------|\n")
	for _, p := range base.Periods {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
			p.Year, fmtMoney(p.Revenue), fmtMoney(p.OperatingIncome),
			fmtMoney(p.Capex), fmtMoney(p.NWCDelta), fmtMoney(p.FCFF))
	}

	b.WriteString("\n---\n\n## Valuation Summary\n\n### Base Case DCF\n\n| Component | Value |\n|-----------|-------|\n")
	fmt.Fprintf(&b, "| PV of Explicit Forecast | %s |\n", fmtMoney(base.Valuation.PVExplicit))
	fmt.Fprintf(&b, "| Terminal Value | %s |\n", fmtMoney(base.Valuation.TerminalValue))
	fmt.Fprintf(&b, "| PV of Terminal Value | %s |\n", fmtMoney(base.Valuation.PVTerminal))
	fmt.Fprintf(&b, "| Enterprise Value | %s |\n", fmtMoney(base.Valuation.EnterpriseValue))
	fmt.Fprintf(&b, "| Less: Debt | %s |\n", fmtMoney(cmp.Balance.TotalDebt))
	fmt.Fprintf(&b, "| Plus: Cash | %s |\n", fmtMoney(cmp.Balance.CashAndEquivalents))
	fmt.Fprintf(&b, "| **Equity Value** | **%s** |\n", fmtMoney(base.Valuation.EquityValue))
	if base.Valuation.PerShareValue != nil {
		fmt.Fprintf(&b, "| **Value per Share** | **$%.2f** |\n", *base.Valuation.PerShareValue)
	}

	b.WriteString("\n### Valuation Range\n\n| Scenario | Enterprise Value | Equity Value |\n|----------|------------------|--------------|\n")
	for _, name := range []string{forecast.ScenarioBull, forecast.ScenarioBase, forecast.ScenarioBear} {
		if res, ok := cmp.Result(name); ok {
			fmt.Fprintf(&b, "| %s | %s | %s |\n",
				titleCase(name), fmtMoney(res.Valuation.EnterpriseValue), fmtMoney(res.Valuation.EquityValue))
		}
	}

	b.WriteString("\n---\n\n*This memo is for research and educational purposes only. It does not constitute investment advice.*\n")

	memo := b.String()
	if !validMarkdown(memo) {
		return "", fmt.Errorf("rendered memo failed markdown validation")
	}
	return memo, nil
}

// RenderHTML converts the memo Markdown to a standalone HTML fragment.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("converting memo to HTML: %w", err)
	}
	return buf.String(), nil
}

// Write renders the memo and writes it under outDir/<TICKER>/<date>/memo.md,
// plus memo.html when html is set. Returns the markdown artifact path.
func Write(cmp *scenario.Comparison, ds *schema.Dataset, outDir string, asOf time.Time, html bool) (string, error) {
	memo, err := Render(cmp, ds, asOf)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(outDir, strings.ToUpper(cmp.Ticker), asOf.Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, "memo.md")
	if err := os.WriteFile(path, []byte(memo), 0o644); err != nil {
		return "", fmt.Errorf("writing memo %s: %w", path, err)
	}

	if html {
		rendered, err := RenderHTML(memo)
		if err != nil {
			return "", err
		}
		htmlPath := filepath.Join(dir, "memo.html")
		if err := os.WriteFile(htmlPath, []byte(rendered), 0o644); err != nil {
			return "", fmt.Errorf("writing memo %s: %w", htmlPath, err)
		}
	}

	log.Info().Str("ticker", cmp.Ticker).Str("path", path).Msg("Wrote investment memo")
	return path, nil
}

func writeEquityLine(b *strings.Builder, label string, res scenario.Result) {
	if res.Valuation.PerShareValue != nil {
		fmt.Fprintf(b, "- %s Case: %s ($%.2f/share)\n", label, fmtMoney(res.Valuation.EquityValue), *res.Valuation.PerShareValue)
		return
	}
	fmt.Fprintf(b, "- %s Case: %s\n", label, fmtMoney(res.Valuation.EquityValue))
}

func writeAssumptions(b *strings.Builder, res scenario.Result) {
	fmt.Fprintf(b, "\n### %s Case\n\n| Assumption | Value |\n|------------|-------|\n", titleCase(res.Scenario.Name))
	fmt.Fprintf(b, "| Discount Rate (WACC) | %.1f%% |\n", res.Scenario.DiscountRate*100)
	fmt.Fprintf(b, "| Terminal Growth | %.1f%% |\n", res.Scenario.TerminalGrowth*100)
	fmt.Fprintf(b, "| Revenue Growth | %s |\n", fmtRates(res.Scenario.RevenueGrowth))
	if res.Scenario.OperatingMargin != nil {
		fmt.Fprintf(b, "| Operating Margin | %s |\n", fmtRates(res.Scenario.OperatingMargin))
	} else {
		b.WriteString("| Operating Margin | historical average |\n")
	}
	fmt.Fprintf(b, "| Capex %% Revenue | %s |\n", fmtRates(res.Scenario.CapexPctRevenue))
	fmt.Fprintf(b, "| NWC %% Revenue | %s |\n", fmtRates(res.Scenario.NWCPctRevenue))
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// fmtRates collapses a constant sequence to one percentage, else lists all.
func fmtRates(vs []float64) string {
	if len(vs) == 0 {
		return "0.0%"
	}
	constant := true
	for _, v := range vs[1:] {
		if v != vs[0] {
			constant = false
			break
		}
	}
	if constant {
		return fmt.Sprintf("%.1f%%", vs[0]*100)
	}
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("%.1f%%", v*100)
	}
	return strings.Join(parts, ", ")
}

// fmtMoney picks a readable unit for statement-scale values.
func fmtMoney(v float64) string {
	abs := v
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("$%.1fM", v/1e6)
	default:
		return fmt.Sprintf("$%.1f", v)
	}
}

// validMarkdown checks the memo parses (goldmark is permissive, so this is
// a basic sanity gate).
func validMarkdown(input string) bool {
	parser := goldmark.DefaultParser()
	return parser.Parse(text.NewReader([]byte(input))) != nil
}
