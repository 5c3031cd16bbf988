// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package builtin

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/currency"

	"github.com/teradata-labs/wayfarer/pkg/porter"
)

const (
	// DefaultPrimaryRatesEndpoint serves rates keyed by base currency,
	// appended as a path segment.
	DefaultPrimaryRatesEndpoint = "https://open.er-api.com/v6/latest"
	// DefaultFallbackRatesEndpoint serves ECB rates via from/to query
	// parameters. It covers fewer currencies than the primary.
	DefaultFallbackRatesEndpoint = "https://api.frankfurter.app/latest"
)

// CurrencyConfig configures the conversion tool. Zero values select the
// public endpoints, which need no credential.
type CurrencyConfig struct {
	PrimaryEndpoint   string
	FallbackEndpoint  string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// CurrencyTool converts an amount between two ISO 4217 currencies. It asks
// the primary rate provider first and falls back to the secondary; the
// conversion fails only when both providers do.
type CurrencyTool struct {
	client           *jsonClient
	primaryEndpoint  string
	fallbackEndpoint string
}

var _ porter.Tool = (*CurrencyTool)(nil)

func NewCurrencyTool(cfg CurrencyConfig) *CurrencyTool {
	primary := cfg.PrimaryEndpoint
	if primary == "" {
		primary = DefaultPrimaryRatesEndpoint
	}
	fallback := cfg.FallbackEndpoint
	if fallback == "" {
		fallback = DefaultFallbackRatesEndpoint
	}
	return &CurrencyTool{
		client:           newJSONClient(cfg.Timeout, cfg.RequestsPerSecond),
		primaryEndpoint:  primary,
		fallbackEndpoint: fallback,
	}
}

func (t *CurrencyTool) Name() string { return "convert_currency" }

func (t *CurrencyTool) Description() string {
	return "Converts an amount between two currencies using current exchange rates. Currencies are ISO 4217 codes such as USD, EUR, JPY."
}

func (t *CurrencyTool) Capability() string { return porter.CapabilityCurrency }

func (t *CurrencyTool) InputSchema() *porter.JSONSchema {
	return porter.NewObjectSchema(
		"Currency conversion",
		map[string]*porter.JSONSchema{
			"amount": porter.NewNumberSchema("Amount to convert"),
			"from":   porter.NewStringSchema("Source currency code, e.g. USD"),
			"to":     porter.NewStringSchema("Target currency code, e.g. EUR"),
		},
		[]string{"amount", "from", "to"},
	)
}

func (t *CurrencyTool) Execute(ctx context.Context, params map[string]interface{}) (*porter.Result, error) {
	start := time.Now()

	amount, ok := floatParam(params, "amount")
	if !ok {
		return invalidInput(start, "amount must be a number"), nil
	}
	from, ok := normalizedCode(params, "from")
	if !ok {
		return invalidInput(start, "from is required"), nil
	}
	to, ok := normalizedCode(params, "to")
	if !ok {
		return invalidInput(start, "to is required"), nil
	}

	for _, code := range []string{from, to} {
		if _, err := currency.ParseISO(code); err != nil {
			return failResult(start, &porter.Error{
				Code:       porter.CodeInvalidInput,
				Message:    fmt.Sprintf("%q is not an ISO 4217 currency code", code),
				Details:    map[string]interface{}{"code": code},
				Suggestion: "Use three-letter codes such as USD, EUR, or JPY",
			}), nil
		}
	}

	if from == to {
		return t.conversionResult(start, amount, from, to, 1.0, "identity"), nil
	}

	rate, provider, err := t.lookupRate(ctx, from, to)
	if err != nil {
		return failResult(start, &porter.Error{
			Code:      porter.CodeConversion,
			Message:   fmt.Sprintf("no provider could convert %s to %s", from, to),
			Details:   map[string]interface{}{"error": err.Error()},
			Retryable: true,
		}), nil
	}

	return t.conversionResult(start, amount, from, to, rate, provider), nil
}

func (t *CurrencyTool) conversionResult(start time.Time, amount float64, from, to string, rate float64, provider string) *porter.Result {
	converted := math.Round(amount*rate*100) / 100
	return okResult(start, map[string]interface{}{
		"amount":    amount,
		"from":      from,
		"to":        to,
		"rate":      rate,
		"converted": converted,
		"provider":  provider,
	}, nil)
}

// lookupRate asks the primary provider, then the fallback. It returns the
// rate and the name of the provider that answered.
func (t *CurrencyTool) lookupRate(ctx context.Context, from, to string) (float64, string, error) {
	rate, primaryErr := t.primaryRate(ctx, from, to)
	if primaryErr == nil {
		return rate, "open.er-api.com", nil
	}

	rate, fallbackErr := t.fallbackRate(ctx, from, to)
	if fallbackErr == nil {
		return rate, "frankfurter.app", nil
	}

	return 0, "", fmt.Errorf("primary: %v; fallback: %v", primaryErr, fallbackErr)
}

func (t *CurrencyTool) primaryRate(ctx context.Context, from, to string) (float64, error) {
	var resp struct {
		Result string             `json:"result"`
		Rates  map[string]float64 `json:"rates"`
	}
	if err := t.client.getJSON(ctx, t.primaryEndpoint+"/"+from, nil, &resp); err != nil {
		return 0, err
	}
	if resp.Result != "success" {
		return 0, fmt.Errorf("provider reported result %q", resp.Result)
	}
	rate, ok := resp.Rates[to]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("no rate for %s", to)
	}
	return rate, nil
}

func (t *CurrencyTool) fallbackRate(ctx context.Context, from, to string) (float64, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)

	var resp struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := t.client.getJSON(ctx, t.fallbackEndpoint+"?"+q.Encode(), nil, &resp); err != nil {
		return 0, err
	}
	rate, ok := resp.Rates[to]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("no rate for %s", to)
	}
	return rate, nil
}

func normalizedCode(params map[string]interface{}, key string) (string, bool) {
	s, ok := stringParam(params, key)
	if !ok {
		return "", false
	}
	return strings.ToUpper(s), true
}
