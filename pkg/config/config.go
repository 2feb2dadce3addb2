// Package config loads and validates forecast assumptions for the three
// named scenarios. Files may be YAML, JSON, or HJSON; a missing path means
// built-in defaults. All invariants are enforced at construction so the
// core engines downstream consume only well-shaped assumption sets.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	hjson "github.com/hjson/hjson-go/v4"
	yaml "gopkg.in/yaml.v2"

	"hfmemo/pkg/core/forecast"
)

// ScenarioConfig holds the assumption set for a single named scenario.
// Assumption fields accept a single number (broadcast to every period) or a
// list with one value per forecast period.
type ScenarioConfig struct {
	DiscountRate    float64             `yaml:"discount_rate" json:"discount_rate" validate:"gt=0,lte=1"`
	TerminalGrowth  float64             `yaml:"terminal_growth" json:"terminal_growth" validate:"gte=0,lte=0.1"`
	RevenueGrowth   forecast.Assumption `yaml:"revenue_growth" json:"revenue_growth"`
	OperatingMargin forecast.Assumption `yaml:"operating_margin" json:"operating_margin"`
	CapexPctRevenue forecast.Assumption `yaml:"capex_pct_revenue" json:"capex_pct_revenue"`
	NWCPctRevenue   forecast.Assumption `yaml:"nwc_pct_revenue" json:"nwc_pct_revenue"`
	DepreciationPct forecast.Assumption `yaml:"depreciation_pct_revenue" json:"depreciation_pct_revenue"`
}

// Config is the full forecast configuration: horizon, tax rate, and the
// three scenario assumption sets.
type Config struct {
	HorizonYears int            `yaml:"horizon_years" json:"horizon_years" validate:"min=1,max=10"`
	TaxRate      float64        `yaml:"tax_rate" json:"tax_rate" validate:"gte=0,lt=1"`
	Base         ScenarioConfig `yaml:"base" json:"base"`
	Bull         ScenarioConfig `yaml:"bull" json:"bull"`
	Bear         ScenarioConfig `yaml:"bear" json:"bear"`
}

// Default returns the built-in assumption sets used when no config file is
// supplied: a moderate base case bracketed by bull and bear variants.
func Default() *Config {
	return &Config{
		HorizonYears: 5,
		TaxRate:      0.21,
		Base: ScenarioConfig{
			DiscountRate:    0.10,
			TerminalGrowth:  0.025,
			RevenueGrowth:   forecast.Scalar(0.05),
			OperatingMargin: forecast.Scalar(0.15),
			CapexPctRevenue: forecast.Scalar(0.05),
		},
		Bull: ScenarioConfig{
			DiscountRate:    0.09,
			TerminalGrowth:  0.03,
			RevenueGrowth:   forecast.Scalar(0.08),
			OperatingMargin: forecast.Scalar(0.18),
			CapexPctRevenue: forecast.Scalar(0.05),
		},
		Bear: ScenarioConfig{
			DiscountRate:    0.11,
			TerminalGrowth:  0.02,
			RevenueGrowth:   forecast.Scalar(0.02),
			OperatingMargin: forecast.Scalar(0.12),
			CapexPctRevenue: forecast.Scalar(0.05),
		},
	}
}

// Load reads a config file by extension (.yaml/.yml, .json, .hjson) and
// validates it. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config %s: %w", path, err)
		}
	case ".hjson":
		// HJSON round-trips through canonical JSON so the Assumption
		// scalar-or-list decoding applies uniformly.
		var loose interface{}
		if err := hjson.Unmarshal(data, &loose); err != nil {
			return nil, fmt.Errorf("parsing HJSON config %s: %w", path, err)
		}
		canonical, err := json.Marshal(loose)
		if err != nil {
			return nil, fmt.Errorf("normalizing HJSON config %s: %w", path, err)
		}
		if err := json.Unmarshal(canonical, cfg); err != nil {
			return nil, fmt.Errorf("parsing HJSON config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format %q", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and constructs every scenario once, so shape
// and terminal-growth violations surface at load time rather than mid-run.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, _, _, err := c.Scenarios(); err != nil {
		return err
	}
	return nil
}

// Scenarios builds the three fully-broadcast assumption sets in the fixed
// execution order.
func (c *Config) Scenarios() (base, bull, bear forecast.Scenario, err error) {
	if base, err = c.Base.Scenario(forecast.ScenarioBase, c.HorizonYears, c.TaxRate); err != nil {
		return
	}
	if bull, err = c.Bull.Scenario(forecast.ScenarioBull, c.HorizonYears, c.TaxRate); err != nil {
		return
	}
	bear, err = c.Bear.Scenario(forecast.ScenarioBear, c.HorizonYears, c.TaxRate)
	return
}

// Scenario broadcasts every assumption to the horizon and enforces the
// terminal growth invariant. This is the single normalization point: the
// forecast engine downstream always consumes fixed-length sequences.
func (s ScenarioConfig) Scenario(name string, horizon int, taxRate float64) (forecast.Scenario, error) {
	sc := forecast.Scenario{
		Name:           name,
		DiscountRate:   s.DiscountRate,
		TerminalGrowth: s.TerminalGrowth,
		TaxRate:        taxRate,
	}
	if err := sc.Validate(); err != nil {
		return forecast.Scenario{}, err
	}

	var err error
	if sc.RevenueGrowth, err = s.RevenueGrowth.Broadcast("revenue_growth", horizon); err != nil {
		return forecast.Scenario{}, fmt.Errorf("scenario %q: %w", name, err)
	}
	if !s.OperatingMargin.IsZero() {
		if sc.OperatingMargin, err = s.OperatingMargin.Broadcast("operating_margin", horizon); err != nil {
			return forecast.Scenario{}, fmt.Errorf("scenario %q: %w", name, err)
		}
	}
	if sc.CapexPctRevenue, err = s.CapexPctRevenue.Broadcast("capex_pct_revenue", horizon); err != nil {
		return forecast.Scenario{}, fmt.Errorf("scenario %q: %w", name, err)
	}
	if sc.NWCPctRevenue, err = s.NWCPctRevenue.Broadcast("nwc_pct_revenue", horizon); err != nil {
		return forecast.Scenario{}, fmt.Errorf("scenario %q: %w", name, err)
	}
	if sc.DepreciationPct, err = s.DepreciationPct.Broadcast("depreciation_pct_revenue", horizon); err != nil {
		return forecast.Scenario{}, fmt.Errorf("scenario %q: %w", name, err)
	}

	return sc, nil
}
