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
	"github.com/teradata-labs/wayfarer/pkg/porter"
)

// Config aggregates the per-tool configuration. Zero values give a working
// set: weather, currency, search, and the calculator run against public
// endpoints; hotels and attractions report configuration errors until an
// endpoint or API key is provided.
type Config struct {
	Hotels      HotelsConfig
	Weather     WeatherConfig
	Attractions AttractionsConfig
	Currency    CurrencyConfig
	Search      SearchConfig
}

// All constructs every builtin tool.
func All(cfg Config) []porter.Tool {
	return []porter.Tool{
		NewHotelSearchTool(cfg.Hotels),
		NewWeatherTool(cfg.Weather),
		NewAttractionsTool(cfg.Attractions),
		NewCurrencyTool(cfg.Currency),
		NewCalculatorTool(),
		NewWebSearchTool(cfg.Search),
	}
}

// ByName constructs a single builtin tool, or nil for an unknown name.
func ByName(name string, cfg Config) porter.Tool {
	switch name {
	case "search_hotels":
		return NewHotelSearchTool(cfg.Hotels)
	case "get_weather":
		return NewWeatherTool(cfg.Weather)
	case "find_attractions":
		return NewAttractionsTool(cfg.Attractions)
	case "convert_currency":
		return NewCurrencyTool(cfg.Currency)
	case "calculator":
		return NewCalculatorTool()
	case "web_search":
		return NewWebSearchTool(cfg.Search)
	default:
		return nil
	}
}

// Names lists the builtin tool names in registration order.
func Names() []string {
	return []string{
		"search_hotels",
		"get_weather",
		"find_attractions",
		"convert_currency",
		"calculator",
		"web_search",
	}
}

// RegisterAll registers every builtin tool on the given registry.
func RegisterAll(registry *porter.Registry, cfg Config) {
	for _, tool := range All(cfg) {
		registry.Register(tool)
	}
}
