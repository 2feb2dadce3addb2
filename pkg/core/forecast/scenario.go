package forecast

import "fmt"

// Scenario names in the fixed order the runner executes them.
const (
	ScenarioBase = "base"
	ScenarioBull = "bull"
	ScenarioBear = "bear"
)

// InvariantError reports terminal_growth >= discount_rate, which makes the
// perpetuity terminal value mathematically undefined. Violating inputs are
// rejected, never clamped.
type InvariantError struct {
	Scenario       string
	DiscountRate   float64
	TerminalGrowth float64
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("scenario %q: terminal growth %.4f must be strictly less than discount rate %.4f",
		e.Scenario, e.TerminalGrowth, e.DiscountRate)
}

// Scenario is a fully-broadcast assumption set: every per-period slice has
// length == horizon. Construction happens in the config layer; the forecast
// and valuation engines only re-assert the invariants defensively.
type Scenario struct {
	Name           string
	DiscountRate   float64 // WACC, fractional
	TerminalGrowth float64 // fractional, strictly less than DiscountRate
	TaxRate        float64 // fractional, applied to operating income

	RevenueGrowth   []float64
	OperatingMargin []float64 // nil: fall back to the trailing historical average
	CapexPctRevenue []float64
	NWCPctRevenue   []float64
	DepreciationPct []float64 // optional explicit D&A proxy, % of revenue
}

// Validate re-asserts the terminal value invariant.
func (s Scenario) Validate() error {
	if s.TerminalGrowth >= s.DiscountRate {
		return &InvariantError{
			Scenario:       s.Name,
			DiscountRate:   s.DiscountRate,
			TerminalGrowth: s.TerminalGrowth,
		}
	}
	return nil
}
