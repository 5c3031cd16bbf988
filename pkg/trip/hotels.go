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
package trip

import (
	"encoding/json"
	"fmt"
	"strings"
)

// HotelOffer is one hotel candidate produced by the hotel stage.
// The slice on the state is replaced wholesale each time the stage runs;
// offers are never merged across runs.
type HotelOffer struct {
	Name          string   `json:"name"`
	PricePerNight *float64 `json:"price_per_night,omitempty"`
	ReviewCount   int      `json:"review_count,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	BookingURL    string   `json:"booking_url,omitempty"`
}

// ParseHotelOffers parses the hotel stage payload into offers.
//
// The payload must be a JSON array of offers, optionally wrapped in a
// markdown code fence or surrounded by prose. Any parse or validation
// failure invalidates the whole payload; the caller degrades to an empty
// slice and logs the raw content, it does not keep partial results.
func ParseHotelOffers(raw string) ([]HotelOffer, error) {
	text := stripCodeFence(raw)
	text = strings.TrimSpace(text)

	var offers []HotelOffer
	if err := json.Unmarshal([]byte(text), &offers); err != nil {
		// Models sometimes wrap the array in prose. Retry on the outermost
		// bracketed slice before giving up.
		start := strings.Index(text, "[")
		end := strings.LastIndex(text, "]")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("hotel payload is not a JSON array: %w", err)
		}
		if err := json.Unmarshal([]byte(text[start:end+1]), &offers); err != nil {
			return nil, fmt.Errorf("hotel payload is not a JSON array: %w", err)
		}
	}

	for i, offer := range offers {
		if strings.TrimSpace(offer.Name) == "" {
			return nil, fmt.Errorf("hotel offer %d has no name", i)
		}
		if offer.ReviewCount < 0 {
			return nil, fmt.Errorf("hotel offer %q has negative review count", offer.Name)
		}
		if offer.Rating != nil && (*offer.Rating < 0 || *offer.Rating > 5) {
			return nil, fmt.Errorf("hotel offer %q has rating %v outside 0-5", offer.Name, *offer.Rating)
		}
	}

	if offers == nil {
		offers = []HotelOffer{}
	}
	return offers, nil
}

// stripCodeFence removes a wrapping markdown code fence (```json ... ```)
// if the text carries one.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}
	// Drop the opening fence line, including any language tag.
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	} else {
		return text
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
