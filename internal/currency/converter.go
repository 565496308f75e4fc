// Package currency converts amounts between currencies using an external
// exchange-rate API. Rates are fetched per base currency and cached, so a
// burst of conversions costs one upstream call.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/cache"
	"tally/internal/core"
)

type ratesResponse struct {
	Success bool               `json:"success"`
	Base    string             `json:"base"`
	Rates   map[string]float64 `json:"rates"`
}

type rateTable map[string]decimal.Decimal

// Converter fetches EUR-based rate tables and derives any pair from them.
type Converter struct {
	baseURL string
	apiKey  string
	client  *http.Client
	rates   *cache.LRUCache[rateTable]
}

func NewConverter(baseURL, apiKey string, cacheTTL time.Duration) *Converter {
	return &Converter{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		rates:   cache.NewLRUCache[rateTable](4, cacheTTL),
	}
}

// Convert converts amount from one currency to another. Same-currency
// conversions short-circuit without an upstream call.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to core.Currency) (decimal.Decimal, error) {
	if err := from.Validate(); err != nil {
		return decimal.Zero, err
	}
	if err := to.Validate(); err != nil {
		return decimal.Zero, err
	}
	if from == to {
		return amount, nil
	}

	table, err := c.ratesFor(ctx, core.EUR)
	if err != nil {
		return decimal.Zero, err
	}

	fromRate, ok := table[string(from)]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for %s: %w", from, core.ErrUpstream)
	}
	if fromRate.IsZero() {
		return decimal.Zero, fmt.Errorf("zero rate for %s: %w", from, core.ErrUpstream)
	}
	toRate, ok := table[string(to)]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for %s: %w", to, core.ErrUpstream)
	}

	// Cross rate through the base: amount / rate(from) * rate(to).
	return amount.Div(fromRate).Mul(toRate).Round(4), nil
}

// Rate returns the conversion rate from one currency to another.
func (c *Converter) Rate(ctx context.Context, from, to core.Currency) (decimal.Decimal, error) {
	return c.Convert(ctx, decimal.NewFromInt(1), from, to)
}

func (c *Converter) ratesFor(ctx context.Context, base core.Currency) (rateTable, error) {
	if table, ok := c.rates.Get(string(base)); ok {
		return table, nil
	}

	u, err := url.Parse(c.baseURL + "/latest")
	if err != nil {
		return nil, fmt.Errorf("parse rates url: %w", err)
	}
	q := u.Query()
	q.Set("base", string(base))
	if c.apiKey != "" {
		q.Set("access_key", c.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build rates request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %v: %w", err, core.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rates API returned %d: %w", resp.StatusCode, core.ErrUpstream)
	}

	var parsed ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode rates response: %v: %w", err, core.ErrUpstream)
	}
	if len(parsed.Rates) == 0 {
		return nil, fmt.Errorf("empty rate table: %w", core.ErrUpstream)
	}

	table := make(rateTable, len(parsed.Rates)+1)
	table[string(base)] = decimal.NewFromInt(1)
	for code, rate := range parsed.Rates {
		table[code] = decimal.NewFromFloat(rate)
	}

	c.rates.Set(string(base), table)
	slog.DebugContext(ctx, "Fetched exchange rates", "base", base, "currencies", len(table))
	return table, nil
}
