// Package sec fetches annual financial statements from the SEC EDGAR
// companyfacts API (public XBRL data, no API key required) and shapes them
// into the raw tabular bundle the standardization layer consumes.
// API documentation: https://www.sec.gov/developer
package sec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"hfmemo/pkg/core/standardize"
)

const (
	defaultBaseURL   = "https://data.sec.gov"
	defaultTickerURL = "https://www.sec.gov/files/company_tickers.json"

	// SEC requires a descriptive User-Agent on every request.
	defaultUserAgent = "hfmemo research tool (contact@example.com)"

	// SEC fair-access guideline is 10 requests/second.
	requestsPerSecond = 10

	// Ticker-to-CIK map cache lifetime.
	tickerCacheTTL = 24 * time.Hour

	// Annual periods fetched per statement.
	maxPeriods = 5
)

// xbrlTags maps each provider field to its ordered XBRL tag fallback chain.
// The first tag with any annual facts wins.
var xbrlTags = map[string][]string{
	"revenue": {
		"Revenues",
		"SalesRevenueNet",
		"RevenueFromContractWithCustomerExcludingAssessedTax",
		"RevenueFromContractWithCustomerIncludingAssessedTax",
	},
	"operating_income": {
		"OperatingIncomeLoss",
		"IncomeLossFromContinuingOperationsBeforeIncomeTaxesExtraordinaryItemsNoncontrollingInterest",
	},
	"net_income": {
		"NetIncomeLoss",
		"ProfitLoss",
		"IncomeLossFromContinuingOperations",
	},
	"operating_cash_flow": {
		"NetCashProvidedByUsedInOperatingActivities",
		"CashFlowFromOperatingActivities",
	},
	"capital_expenditure": {
		"PaymentsToAcquirePropertyPlantAndEquipment",
		"CapitalExpenditures",
		"PaymentsToAcquireProductiveAssets",
	},
	"cash_and_equivalents": {
		"CashAndCashEquivalentsAtCarryingValue",
		"CashCashEquivalentsAndShortTermInvestments",
	},
	"total_debt": {
		"Debt",
		"LongTermDebtAndCapitalLeaseObligations",
	},
	"long_term_debt": {
		"LongTermDebt",
		"LongTermDebtAndCapitalLeaseObligations",
	},
	"short_term_debt": {
		"DebtCurrent",
		"ShortTermBorrowings",
	},
}

var statementFields = map[string][]string{
	"income":  {"revenue", "operating_income", "net_income"},
	"balance": {"cash_and_equivalents", "total_debt", "long_term_debt", "short_term_debt"},
	"cash":    {"operating_cash_flow", "capital_expenditure"},
}

// Client talks to SEC EDGAR with rate limiting and a local ticker-map cache.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	cacheDir   string
	baseURL    string
	tickerURL  string
}

// Option customizes a Client.
type Option func(*Client)

// WithUserAgent overrides the SEC User-Agent string.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithBaseURLs points the client at alternate endpoints (tests).
func WithBaseURLs(base, ticker string) Option {
	return func(c *Client) {
		c.baseURL = base
		c.tickerURL = ticker
	}
}

// NewClient creates an EDGAR client. cacheDir holds the ticker-to-CIK map;
// an empty cacheDir disables caching.
func NewClient(cacheDir string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		userAgent:  defaultUserAgent,
		cacheDir:   cacheDir,
		baseURL:    defaultBaseURL,
		tickerURL:  defaultTickerURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves the last five annual statement periods for a ticker.
func (c *Client) Fetch(ctx context.Context, ticker string) (standardize.RawStatements, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))

	cik, err := c.LookupCIK(ctx, ticker)
	if err != nil {
		return standardize.RawStatements{}, err
	}

	facts, err := c.companyFacts(ctx, cik)
	if err != nil {
		return standardize.RawStatements{}, err
	}

	raw := standardize.RawStatements{
		Ticker:   ticker,
		Currency: "USD", // companyfacts USD unit preference below
		Income:   assembleRows(facts, statementFields["income"]),
		Balance:  assembleRows(facts, statementFields["balance"]),
		Cash:     assembleRows(facts, statementFields["cash"]),
	}

	if len(raw.Income) == 0 {
		return standardize.RawStatements{}, fmt.Errorf("no annual income statement facts found for %s", ticker)
	}

	log.Info().
		Str("ticker", ticker).
		Str("cik", cik).
		Int("income_periods", len(raw.Income)).
		Int("balance_periods", len(raw.Balance)).
		Int("cashflow_periods", len(raw.Cash)).
		Msg("Fetched SEC companyfacts")

	return raw, nil
}

// LookupCIK resolves a ticker to its 10-digit zero-padded CIK using the SEC
// company_tickers.json file, cached on disk for 24 hours. A stale cache is
// used as a fallback when the download fails.
func (c *Client) LookupCIK(ctx context.Context, ticker string) (string, error) {
	tickerMap, err := c.tickerMap(ctx)
	if err != nil {
		return "", err
	}
	cik, ok := tickerMap[strings.ToUpper(ticker)]
	if !ok {
		return "", fmt.Errorf("ticker %q not found in SEC database", ticker)
	}
	return cik, nil
}

type tickerCache struct {
	Map         map[string]string `json:"map"`
	LastUpdated int64             `json:"last_updated"`
}

func (c *Client) cachePath() string {
	if c.cacheDir == "" {
		return ""
	}
	return filepath.Join(c.cacheDir, "ticker_cik_map.json")
}

func (c *Client) tickerMap(ctx context.Context) (map[string]string, error) {
	// Fresh cache wins.
	if cached, ok := c.readTickerCache(tickerCacheTTL); ok {
		return cached, nil
	}

	fetched, err := c.downloadTickerMap(ctx)
	if err != nil {
		// Stale cache beats no data.
		if cached, ok := c.readTickerCache(0); ok {
			log.Warn().Err(err).Msg("Ticker map download failed, using stale cache")
			return cached, nil
		}
		return nil, fmt.Errorf("fetching ticker-to-CIK mapping: %w", err)
	}

	c.writeTickerCache(fetched)
	return fetched, nil
}

// readTickerCache returns the cached map when present and, for a non-zero
// ttl, fresh enough.
func (c *Client) readTickerCache(ttl time.Duration) (map[string]string, bool) {
	path := c.cachePath()
	if path == "" {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var cached tickerCache
	if err := json.Unmarshal(data, &cached); err != nil || len(cached.Map) == 0 {
		return nil, false
	}
	if ttl > 0 && time.Since(time.Unix(cached.LastUpdated, 0)) > ttl {
		return nil, false
	}
	return cached.Map, true
}

func (c *Client) writeTickerCache(m map[string]string) {
	path := c.cachePath()
	if path == "" {
		return
	}
	data, err := json.Marshal(tickerCache{Map: m, LastUpdated: time.Now().Unix()})
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to write ticker cache")
	}
}

func (c *Client) downloadTickerMap(ctx context.Context) (map[string]string, error) {
	body, err := c.get(ctx, c.tickerURL)
	if err != nil {
		return nil, err
	}

	// SEC returns an object keyed by row index: {"0": {"cik_str":..., "ticker":..., "title":...}, ...}
	var entries map[string]struct {
		CIK    json.Number `json:"cik_str"`
		Ticker string      `json:"ticker"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("parsing company_tickers.json: %w", err)
	}

	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Ticker == "" || e.CIK.String() == "" {
			continue
		}
		out[strings.ToUpper(e.Ticker)] = padCIK(e.CIK.String())
	}
	return out, nil
}

// padCIK zero-pads a CIK to the 10 digits EDGAR URLs require.
func padCIK(cik string) string {
	return fmt.Sprintf("%010s", strings.TrimLeft(cik, "0"))
}

func (c *Client) companyFacts(ctx context.Context, cik string) (map[string][]annualFact, error) {
	url := fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", c.baseURL, cik)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var doc companyFactsDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parsing companyfacts response: %w", err)
	}

	usGAAP := doc.Facts["us-gaap"]
	out := make(map[string][]annualFact, len(xbrlTags))
	for field, tags := range xbrlTags {
		for _, tag := range tags {
			facts := annualFacts(usGAAP[tag])
			if len(facts) > 0 {
				out[field] = facts
				break
			}
		}
	}
	return out, nil
}

type companyFactsDoc struct {
	CIK   json.Number               `json:"cik"`
	Facts map[string]map[string]tag `json:"facts"`
}

type tag struct {
	Units map[string][]factEntry `json:"units"`
}

type factEntry struct {
	Val  float64 `json:"val"`
	End  string  `json:"end"`
	FP   string  `json:"fp"`
	Form string  `json:"form"`
}

type annualFact struct {
	End time.Time
	Val float64
}

// annualFacts extracts fiscal-year facts from a tag, preferring USD units
// and keeping the last reported value per period end.
func annualFacts(t tag) []annualFact {
	var entries []factEntry
	for _, unit := range []string{"USD", "usd"} {
		if es, ok := t.Units[unit]; ok {
			entries = es
			break
		}
	}
	if entries == nil {
		for _, es := range t.Units {
			entries = es
			break
		}
	}

	byEnd := make(map[string]float64)
	for _, e := range entries {
		if e.FP != "FY" {
			continue
		}
		byEnd[e.End] = e.Val // later filings restate earlier ones
	}

	out := make([]annualFact, 0, len(byEnd))
	for end, val := range byEnd {
		ts, err := time.Parse("2006-01-02", end)
		if err != nil {
			continue
		}
		out = append(out, annualFact{End: ts, Val: val})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].End.Before(out[j].End) })
	return out
}

// assembleRows pivots per-field fact series into period rows, keeping the
// most recent maxPeriods period ends that carry at least one field.
func assembleRows(facts map[string][]annualFact, fields []string) []standardize.RawRow {
	byEnd := make(map[time.Time]map[string]float64)
	for _, field := range fields {
		for _, f := range facts[field] {
			if byEnd[f.End] == nil {
				byEnd[f.End] = make(map[string]float64)
			}
			byEnd[f.End][field] = f.Val
		}
	}

	ends := make([]time.Time, 0, len(byEnd))
	for end := range byEnd {
		ends = append(ends, end)
	}
	sort.Slice(ends, func(i, j int) bool { return ends[i].After(ends[j]) })
	if len(ends) > maxPeriods {
		ends = ends[:maxPeriods]
	}

	rows := make([]standardize.RawRow, 0, len(ends))
	for _, end := range ends {
		rows = append(rows, standardize.RawRow{PeriodEnd: end, Fields: byEnd[end]})
	}
	// Ascending period order for the mapper.
	sort.Slice(rows, func(i, j int) bool { return rows[i].PeriodEnd.Before(rows[j].PeriodEnd) })
	return rows
}

// get performs a rate-limited GET with the required SEC headers.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("SEC API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("SEC API returned 404 for %s", url)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SEC API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
