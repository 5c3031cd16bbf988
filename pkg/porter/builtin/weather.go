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
	"strconv"
	"time"

	"github.com/teradata-labs/wayfarer/pkg/porter"
)

const (
	// DefaultGeocodingEndpoint resolves destination names to coordinates.
	DefaultGeocodingEndpoint = "https://geocoding-api.open-meteo.com/v1/search"
	// DefaultForecastEndpoint serves the daily forecast.
	DefaultForecastEndpoint = "https://api.open-meteo.com/v1/forecast"

	// MaxForecastDays is the longest forecast the tool will request.
	MaxForecastDays     = 5
	defaultForecastDays = 3
)

// WeatherConfig configures the weather tool. Zero values select the public
// Open-Meteo endpoints, which need no credential.
type WeatherConfig struct {
	GeocodingEndpoint string
	ForecastEndpoint  string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// WeatherTool resolves a destination through the Open-Meteo geocoding API
// and fetches a short daily forecast for it.
type WeatherTool struct {
	client            *jsonClient
	geocodingEndpoint string
	forecastEndpoint  string
}

var _ porter.Tool = (*WeatherTool)(nil)

func NewWeatherTool(cfg WeatherConfig) *WeatherTool {
	geocoding := cfg.GeocodingEndpoint
	if geocoding == "" {
		geocoding = DefaultGeocodingEndpoint
	}
	forecast := cfg.ForecastEndpoint
	if forecast == "" {
		forecast = DefaultForecastEndpoint
	}
	return &WeatherTool{
		client:            newJSONClient(cfg.Timeout, cfg.RequestsPerSecond),
		geocodingEndpoint: geocoding,
		forecastEndpoint:  forecast,
	}
}

func (t *WeatherTool) Name() string { return "get_weather" }

func (t *WeatherTool) Description() string {
	return "Fetches a daily weather forecast for a destination, up to 5 days ahead. Returns conditions, temperature range, and precipitation chance per day."
}

func (t *WeatherTool) Capability() string { return porter.CapabilityWeather }

func (t *WeatherTool) InputSchema() *porter.JSONSchema {
	return porter.NewObjectSchema(
		"Weather forecast lookup",
		map[string]*porter.JSONSchema{
			"destination": porter.NewStringSchema("City or place name, e.g. \"Lisbon\" or \"Kyoto, Japan\""),
			"days": porter.NewIntegerSchema("Number of forecast days, 1 to 5").
				WithDefault(defaultForecastDays),
		},
		[]string{"destination"},
	)
}

func (t *WeatherTool) Execute(ctx context.Context, params map[string]interface{}) (*porter.Result, error) {
	start := time.Now()

	destination, ok := stringParam(params, "destination")
	if !ok {
		return invalidInput(start, "destination is required"), nil
	}
	days := intParam(params, "days", defaultForecastDays)
	if days < 1 {
		days = 1
	}
	if days > MaxForecastDays {
		days = MaxForecastDays
	}

	loc, err := t.geocode(ctx, destination)
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

	forecast, err := t.forecast(ctx, loc, days)
	if err != nil {
		return failResult(start, upstreamError(t.Name(), err)), nil
	}

	return okResult(start, map[string]interface{}{
		"destination": destination,
		"resolved":    loc.Name,
		"country":     loc.Country,
		"latitude":    loc.Latitude,
		"longitude":   loc.Longitude,
		"forecast":    forecast,
	}, map[string]interface{}{
		"source": "open-meteo",
		"days":   days,
	}), nil
}

var errNoGeocodeMatch = errors.New("geocoding returned no results")

type geoLocation struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (t *WeatherTool) geocode(ctx context.Context, destination string) (*geoLocation, error) {
	q := url.Values{}
	q.Set("name", destination)
	q.Set("count", "1")
	q.Set("language", "en")
	q.Set("format", "json")

	var resp struct {
		Results []geoLocation `json:"results"`
	}
	if err := t.client.getJSON(ctx, t.geocodingEndpoint+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, errNoGeocodeMatch
	}
	return &resp.Results[0], nil
}

type forecastDay struct {
	Date                   string  `json:"date"`
	Summary                string  `json:"summary"`
	HighC                  float64 `json:"high_c"`
	LowC                   float64 `json:"low_c"`
	PrecipitationChancePct int     `json:"precipitation_chance_pct"`
}

func (t *WeatherTool) forecast(ctx context.Context, loc *geoLocation, days int) ([]forecastDay, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', 4, 64))
	q.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_probability_max")
	q.Set("timezone", "auto")
	q.Set("forecast_days", strconv.Itoa(days))

	var resp struct {
		Daily struct {
			Time                        []string  `json:"time"`
			WeatherCode                 []int     `json:"weather_code"`
			TemperatureMax              []float64 `json:"temperature_2m_max"`
			TemperatureMin              []float64 `json:"temperature_2m_min"`
			PrecipitationProbabilityMax []int     `json:"precipitation_probability_max"`
		} `json:"daily"`
	}
	if err := t.client.getJSON(ctx, t.forecastEndpoint+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	daily := resp.Daily
	out := make([]forecastDay, 0, len(daily.Time))
	for i, date := range daily.Time {
		day := forecastDay{Date: date}
		if i < len(daily.WeatherCode) {
			day.Summary = weatherCodeText(daily.WeatherCode[i])
		}
		if i < len(daily.TemperatureMax) {
			day.HighC = daily.TemperatureMax[i]
		}
		if i < len(daily.TemperatureMin) {
			day.LowC = daily.TemperatureMin[i]
		}
		if i < len(daily.PrecipitationProbabilityMax) {
			day.PrecipitationChancePct = daily.PrecipitationProbabilityMax[i]
		}
		out = append(out, day)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("forecast response carried no days")
	}
	return out, nil
}

// weatherCodeText maps WMO weather interpretation codes to short phrases.
func weatherCodeText(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 2:
		return "mostly clear"
	case code == 3:
		return "overcast"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "rain showers"
	case code == 85 || code == 86:
		return "snow showers"
	case code >= 95:
		return "thunderstorm"
	default:
		return "mixed conditions"
	}
}
