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
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/teradata-labs/wayfarer/pkg/porter"
)

const (
	defaultHotelResults = 5
	maxHotelResults     = 10
	dateLayout          = "2006-01-02"
)

// HotelsConfig configures the hotel search tool. There is no public default
// endpoint; deployments point it at their inventory service. Endpoint and
// key fall back to WAYFARER_HOTELS_ENDPOINT and WAYFARER_HOTELS_API_KEY.
type HotelsConfig struct {
	Endpoint          string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// HotelSearchTool queries a hotel inventory service for offers matching a
// destination and stay window. The upstream is expected to answer with a
// JSON array of offers.
type HotelSearchTool struct {
	client   *jsonClient
	endpoint string
	apiKey   string
}

var _ porter.Tool = (*HotelSearchTool)(nil)

func NewHotelSearchTool(cfg HotelsConfig) *HotelSearchTool {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv("WAYFARER_HOTELS_ENDPOINT")
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("WAYFARER_HOTELS_API_KEY")
	}
	return &HotelSearchTool{
		client:   newJSONClient(cfg.Timeout, cfg.RequestsPerSecond),
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

func (t *HotelSearchTool) Name() string { return "search_hotels" }

func (t *HotelSearchTool) Description() string {
	return "Searches hotel inventory for offers at a destination. Returns hotel names with nightly price, rating, review count, and booking link."
}

func (t *HotelSearchTool) Capability() string { return porter.CapabilityHotels }

func (t *HotelSearchTool) InputSchema() *porter.JSONSchema {
	return porter.NewObjectSchema(
		"Hotel offer search",
		map[string]*porter.JSONSchema{
			"destination": porter.NewStringSchema("City or area to search in"),
			"check_in":    porter.NewStringSchema("Check-in date, YYYY-MM-DD").WithFormat("date"),
			"check_out":   porter.NewStringSchema("Check-out date, YYYY-MM-DD").WithFormat("date"),
			"guests": porter.NewIntegerSchema("Number of guests").
				WithDefault(1),
			"max_results": porter.NewIntegerSchema("Maximum offers to return, up to 10").
				WithDefault(defaultHotelResults),
		},
		[]string{"destination"},
	)
}

func (t *HotelSearchTool) Execute(ctx context.Context, params map[string]interface{}) (*porter.Result, error) {
	start := time.Now()

	if t.endpoint == "" {
		return failResult(start, &porter.Error{
			Code:       porter.CodeConfiguration,
			Message:    "no hotel search endpoint configured",
			Suggestion: "Set tools.hotels.endpoint in wayfarer.yaml or the WAYFARER_HOTELS_ENDPOINT environment variable",
		}), nil
	}

	destination, ok := stringParam(params, "destination")
	if !ok {
		return invalidInput(start, "destination is required"), nil
	}

	checkIn, _ := stringParam(params, "check_in")
	checkOut, _ := stringParam(params, "check_out")
	for name, value := range map[string]string{"check_in": checkIn, "check_out": checkOut} {
		if value == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, value); err != nil {
			return invalidInput(start, "%s must be a YYYY-MM-DD date, got %q", name, value), nil
		}
	}
	if checkIn != "" && checkOut != "" && checkOut <= checkIn {
		return invalidInput(start, "check_out %s must be after check_in %s", checkOut, checkIn), nil
	}

	guests := intParam(params, "guests", 1)
	if guests < 1 {
		guests = 1
	}
	limit := intParam(params, "max_results", defaultHotelResults)
	if limit < 1 {
		limit = 1
	}
	if limit > maxHotelResults {
		limit = maxHotelResults
	}

	offers, err := t.search(ctx, destination, checkIn, checkOut, guests, limit)
	if err != nil {
		if errors.Is(err, errUpstreamNotFound) {
			return failResult(start, &porter.Error{
				Code:       porter.CodeNotFound,
				Message:    fmt.Sprintf("no hotel inventory for %q", destination),
				Suggestion: "Try a nearby city or a broader area name",
			}), nil
		}
		return failResult(start, upstreamError(t.Name(), err)), nil
	}
	if len(offers) == 0 {
		return failResult(start, &porter.Error{
			Code:       porter.CodeNotFound,
			Message:    fmt.Sprintf("no offers found for %q", destination),
			Suggestion: "Try different dates or a nearby city",
		}), nil
	}

	return okResult(start, map[string]interface{}{
		"destination": destination,
		"offers":      offers,
		"count":       len(offers),
	}, map[string]interface{}{
		"check_in":  checkIn,
		"check_out": checkOut,
	}), nil
}

// hotelOffer mirrors the offer shape the hotel stage parses from the model
// payload, so tool output can be echoed through unchanged.
type hotelOffer struct {
	Name          string   `json:"name"`
	PricePerNight *float64 `json:"price_per_night,omitempty"`
	ReviewCount   int      `json:"review_count,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	BookingURL    string   `json:"booking_url,omitempty"`
}

func (t *HotelSearchTool) search(ctx context.Context, destination, checkIn, checkOut string, guests, limit int) ([]hotelOffer, error) {
	q := url.Values{}
	q.Set("destination", destination)
	if checkIn != "" {
		q.Set("check_in", checkIn)
	}
	if checkOut != "" {
		q.Set("check_out", checkOut)
	}
	q.Set("guests", strconv.Itoa(guests))
	q.Set("max_results", strconv.Itoa(limit))

	headers := map[string]string{}
	if t.apiKey != "" {
		headers["X-API-Key"] = t.apiKey
	}

	var offers []hotelOffer
	if err := t.client.getJSON(ctx, t.endpoint+"?"+q.Encode(), headers, &offers); err != nil {
		return nil, err
	}

	kept := offers[:0]
	for _, o := range offers {
		if o.Name == "" {
			continue
		}
		kept = append(kept, o)
	}
	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept, nil
}
