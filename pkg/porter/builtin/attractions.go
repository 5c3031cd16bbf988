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
	"strings"
	"time"

	"github.com/teradata-labs/wayfarer/pkg/porter"
)

const (
	// DefaultGeoapifyGeocodeEndpoint resolves the destination to coordinates.
	DefaultGeoapifyGeocodeEndpoint = "https://api.geoapify.com/v1/geocode/search"
	// DefaultGeoapifyPlacesEndpoint lists places around a point.
	DefaultGeoapifyPlacesEndpoint = "https://api.geoapify.com/v2/places"

	defaultAttractionsRadius = 5000
	defaultAttractionsLimit  = 10
	maxAttractionsLimit      = 20
)

// AttractionsConfig configures the attractions tool. The API key falls back
// to the GEOAPIFY_API_KEY environment variable when unset.
type AttractionsConfig struct {
	APIKey            string
	GeocodeEndpoint   string
	PlacesEndpoint    string
	RadiusMeters      int
	Timeout           time.Duration
	RequestsPerSecond float64
}

// AttractionsTool finds points of interest around a destination through the
// Geoapify Places API, biased by the traveller's stated preferences.
type AttractionsTool struct {
	client          *jsonClient
	apiKey          string
	geocodeEndpoint string
	placesEndpoint  string
	radiusMeters    int
}

var _ porter.Tool = (*AttractionsTool)(nil)

func NewAttractionsTool(cfg AttractionsConfig) *AttractionsTool {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEOAPIFY_API_KEY")
	}
	geocode := cfg.GeocodeEndpoint
	if geocode == "" {
		geocode = DefaultGeoapifyGeocodeEndpoint
	}
	places := cfg.PlacesEndpoint
	if places == "" {
		places = DefaultGeoapifyPlacesEndpoint
	}
	radius := cfg.RadiusMeters
	if radius <= 0 {
		radius = defaultAttractionsRadius
	}
	return &AttractionsTool{
		client:          newJSONClient(cfg.Timeout, cfg.RequestsPerSecond),
		apiKey:          apiKey,
		geocodeEndpoint: geocode,
		placesEndpoint:  places,
		radiusMeters:    radius,
	}
}

func (t *AttractionsTool) Name() string { return "find_attractions" }

func (t *AttractionsTool) Description() string {
	return "Finds attractions and points of interest near a destination. Pass the traveller's preferences (museums, food, nightlife, nature) to bias the categories searched."
}

func (t *AttractionsTool) Capability() string { return porter.CapabilityAttractions }

func (t *AttractionsTool) InputSchema() *porter.JSONSchema {
	return porter.NewObjectSchema(
		"Attraction lookup around a destination",
		map[string]*porter.JSONSchema{
			"destination": porter.NewStringSchema("City or place name to search around"),
			"preferences": porter.NewStringSchema("Free-text interests, e.g. \"art museums and street food\""),
			"max_results": porter.NewIntegerSchema("Maximum attractions to return, up to 20").
				WithDefault(defaultAttractionsLimit),
		},
		[]string{"destination"},
	)
}

func (t *AttractionsTool) Execute(ctx context.Context, params map[string]interface{}) (*porter.Result, error) {
	start := time.Now()

	if t.apiKey == "" {
		return failResult(start, &porter.Error{
			Code:       porter.CodeConfiguration,
			Message:    "no Geoapify API key configured",
			Suggestion: "Set tools.attractions.api_key in wayfarer.yaml or the GEOAPIFY_API_KEY environment variable",
		}), nil
	}

	destination, ok := stringParam(params, "destination")
	if !ok {
		return invalidInput(start, "destination is required"), nil
	}
	preferences, _ := stringParam(params, "preferences")
	limit := intParam(params, "max_results", defaultAttractionsLimit)
	if limit < 1 {
		limit = 1
	}
	if limit > maxAttractionsLimit {
		limit = maxAttractionsLimit
	}

	lon, lat, err := t.geocode(ctx, destination)
	if err != nil {
		if errors.Is(err, errUpstreamNotFound) || errors.Is(err, errNoGeocodeMatch) {
			return failResult(start, &porter.Error{
				Code:       porter.CodeNotFound,
				Message:    fmt.Sprintf("no location found for %q", destination),
				Suggestion: "Check the destination spelling or add a country name",
			}), nil
		}
		return failResult(start, upstreamError(t.Name(), err)), nil
	}

	categories := categoriesFor(preferences)
	attractions, err := t.places(ctx, lon, lat, categories, limit)
	if err != nil {
		return failResult(start, upstreamError(t.Name(), err)), nil
	}

	return okResult(start, map[string]interface{}{
		"destination": destination,
		"attractions": attractions,
		"count":       len(attractions),
	}, map[string]interface{}{
		"source":     "geoapify",
		"categories": categories,
	}), nil
}

type geoapifyFeatures struct {
	Features []struct {
		Properties struct {
			Name       string   `json:"name"`
			Formatted  string   `json:"formatted"`
			Lon        float64  `json:"lon"`
			Lat        float64  `json:"lat"`
			Categories []string `json:"categories"`
		} `json:"properties"`
	} `json:"features"`
}

func (t *AttractionsTool) geocode(ctx context.Context, destination string) (lon, lat float64, err error) {
	q := url.Values{}
	q.Set("text", destination)
	q.Set("limit", "1")
	q.Set("format", "geojson")
	q.Set("apiKey", t.apiKey)

	var resp geoapifyFeatures
	if err := t.client.getJSON(ctx, t.geocodeEndpoint+"?"+q.Encode(), nil, &resp); err != nil {
		return 0, 0, err
	}
	if len(resp.Features) == 0 {
		return 0, 0, errNoGeocodeMatch
	}
	p := resp.Features[0].Properties
	return p.Lon, p.Lat, nil
}

type attraction struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Category string `json:"category"`
}

func (t *AttractionsTool) places(ctx context.Context, lon, lat float64, categories string, limit int) ([]attraction, error) {
	q := url.Values{}
	q.Set("categories", categories)
	q.Set("filter", fmt.Sprintf("circle:%s,%s,%d",
		strconv.FormatFloat(lon, 'f', 6, 64),
		strconv.FormatFloat(lat, 'f', 6, 64),
		t.radiusMeters))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("apiKey", t.apiKey)

	var resp geoapifyFeatures
	if err := t.client.getJSON(ctx, t.placesEndpoint+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	out := make([]attraction, 0, len(resp.Features))
	for _, f := range resp.Features {
		p := f.Properties
		if strings.TrimSpace(p.Name) == "" {
			// Unnamed map features are useless in an itinerary.
			continue
		}
		a := attraction{Name: p.Name, Address: p.Formatted}
		if len(p.Categories) > 0 {
			a.Category = p.Categories[0]
		}
		out = append(out, a)
	}
	return out, nil
}

// categoriesFor maps free-text traveller preferences onto Geoapify category
// identifiers. Unrecognized or empty preferences fall back to general
// sightseeing.
func categoriesFor(preferences string) string {
	p := strings.ToLower(preferences)
	var cats []string
	add := func(names ...string) {
		for _, n := range names {
			found := false
			for _, c := range cats {
				if c == n {
					found = true
					break
				}
			}
			if !found {
				cats = append(cats, n)
			}
		}
	}

	if containsAny(p, "museum", "art", "culture", "history", "gallery") {
		add("entertainment.museum", "tourism.sights")
	}
	if containsAny(p, "food", "restaurant", "eat", "culinary", "cuisine") {
		add("catering.restaurant")
	}
	if containsAny(p, "nature", "park", "hik", "outdoor", "garden", "beach") {
		add("natural", "leisure.park")
	}
	if containsAny(p, "night", "bar", "club", "music") {
		add("adult.nightclub", "catering.bar")
	}
	if containsAny(p, "shop", "market") {
		add("commercial.shopping_mall", "commercial.marketplace")
	}
	if containsAny(p, "family", "kid", "child") {
		add("entertainment.theme_park", "entertainment.zoo")
	}
	if len(cats) == 0 {
		add("tourism.sights", "tourism.attraction")
	}
	return strings.Join(cats, ",")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
