// Package fmp fetches annual financial statements from the Financial
// Modeling Prep API and shapes them into the raw tabular bundle the
// standardization layer consumes. Requires an API key (FMP_API_KEY).
package fmp

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"hfmemo/pkg/core/standardize"
)

const (
	defaultBaseURL = "https://financialmodelingprep.com/api/v3"

	// Annual periods fetched per statement.
	periodLimit = 5
)

// Client wraps the FMP REST API.
type Client struct {
	rest   *resty.Client
	apiKey string
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at an alternate endpoint (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.rest.SetBaseURL(u) }
}

// NewClient creates an FMP client.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("FMP API key not configured: set FMP_API_KEY")
	}

	rest := resty.New()
	rest.SetBaseURL(defaultBaseURL)
	rest.SetTimeout(30 * time.Second)

	c := &Client{rest: rest, apiKey: apiKey}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fetch retrieves the last five annual statement periods for a ticker.
func (c *Client) Fetch(ctx context.Context, ticker string) (standardize.RawStatements, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	income, currency, err := c.statement(ctx, "/income-statement/"+ticker)
	if err != nil {
		return standardize.RawStatements{}, fmt.Errorf("income statement for %s: %w", ticker, err)
	}
	balance, _, err := c.statement(ctx, "/balance-sheet-statement/"+ticker)
	if err != nil {
		return standardize.RawStatements{}, fmt.Errorf("balance sheet for %s: %w", ticker, err)
	}
	cash, _, err := c.statement(ctx, "/cash-flow-statement/"+ticker)
	if err != nil {
		return standardize.RawStatements{}, fmt.Errorf("cash flow statement for %s: %w", ticker, err)
	}

	log.Info().
		Str("ticker", ticker).
		Int("income_periods", len(income)).
		Int("balance_periods", len(balance)).
		Int("cashflow_periods", len(cash)).
		Msg("Fetched FMP statements")

	return standardize.RawStatements{
		Ticker:   ticker,
		Currency: currency,
		Income:   income,
		Balance:  balance,
		Cash:     cash,
	}, nil
}

// statement fetches one endpoint and normalizes its rows. Returns the rows
// in ascending period order plus the reported currency of the newest row.
func (c *Client) statement(ctx context.Context, endpoint string) ([]standardize.RawRow, string, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey": c.apiKey,
			"period": "annual",
			"limit":  fmt.Sprintf("%d", periodLimit),
		}).
		Get(endpoint)
	if err != nil {
		return nil, "", fmt.Errorf("FMP API request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, "", fmt.Errorf("FMP API returned status %d: %s", resp.StatusCode(), resp.String())
	}

	// Error responses come back as an object rather than a list.
	var apiErr struct {
		ErrorMessage string `json:"Error Message"`
	}
	if json.Unmarshal(resp.Body(), &apiErr) == nil && apiErr.ErrorMessage != "" {
		return nil, "", fmt.Errorf("FMP API error: %s", apiErr.ErrorMessage)
	}

	var entries []map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &entries); err != nil {
		return nil, "", fmt.Errorf("unexpected FMP response format: %w", err)
	}
	if len(entries) == 0 {
		return nil, "", fmt.Errorf("no data returned")
	}

	rows := make([]standardize.RawRow, 0, len(entries))
	currency := "USD"
	for i, entry := range entries {
		row, rowCurrency, err := normalizeRow(entry)
		if err != nil {
			return nil, "", err
		}
		// FMP returns newest first; take the newest row's currency.
		if i == 0 && rowCurrency != "" {
			currency = rowCurrency
		}
		rows = append(rows, row)
	}

	// Ascending period order for the mapper.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, currency, nil
}

// normalizeRow converts one FMP JSON object into a RawRow: camelCase field
// names become snake_case, numeric fields are kept, and the date field
// becomes the period end.
func normalizeRow(entry map[string]interface{}) (standardize.RawRow, string, error) {
	row := standardize.RawRow{Fields: make(map[string]float64, len(entry))}
	currency := ""

	for key, value := range entry {
		switch key {
		case "date":
			s, _ := value.(string)
			ts, err := time.Parse("2006-01-02", s)
			if err != nil {
				return standardize.RawRow{}, "", fmt.Errorf("FMP row has invalid date %q", s)
			}
			row.PeriodEnd = ts
		case "reportedCurrency":
			currency, _ = value.(string)
		default:
			if v, ok := value.(float64); ok {
				row.Fields[camelToSnake(key)] = v
			}
		}
	}

	if row.PeriodEnd.IsZero() {
		return standardize.RawRow{}, "", fmt.Errorf("FMP row missing date field")
	}
	return row, currency, nil
}

var (
	camelBoundary1 = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	camelBoundary2 = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

func camelToSnake(name string) string {
	s := camelBoundary1.ReplaceAllString(name, "${1}_${2}")
	s = camelBoundary2.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(s)
}
