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
	"strings"
)

// SnapshotMessage is the persisted form of one history entry. Tool
// machinery is dropped; only the role-tagged text survives.
type SnapshotMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Snapshot is the external serialization of a planning state: a plain keyed
// JSON record mirroring the state attributes, with sequence fields as
// ordered lists and absent optionals omitted.
type Snapshot struct {
	Destination               string            `json:"destination,omitempty"`
	Budget                    string            `json:"budget,omitempty"`
	NativeCurrency            string            `json:"native_currency,omitempty"`
	StartDate                 string            `json:"start_date,omitempty"`
	EndDate                   string            `json:"end_date,omitempty"`
	Days                      string            `json:"days,omitempty"`
	GroupSize                 string            `json:"group_size,omitempty"`
	ActivityPreferences       string            `json:"activity_preferences,omitempty"`
	AccommodationType         string            `json:"accommodation_type,omitempty"`
	DietaryRestrictions       string            `json:"dietary_restrictions,omitempty"`
	TransportationPreferences string            `json:"transportation_preferences,omitempty"`
	MessageHistory            []SnapshotMessage `json:"message_history,omitempty"`
	Hotels                    []HotelOffer      `json:"hotels,omitempty"`
	Attractions               string            `json:"attractions,omitempty"`
	Weather                   string            `json:"weather,omitempty"`
	Itinerary                 string            `json:"itinerary,omitempty"`
	Summary                   string            `json:"summary,omitempty"`
	CurrencyRates             string            `json:"currency_rates,omitempty"`
	MissingFields             []string          `json:"missing_fields,omitempty"`
	CalculatorResult          string            `json:"calculator_result,omitempty"`
}

// Snapshot converts the state into its external record.
func (s *PlanningState) Snapshot() *Snapshot {
	snap := &Snapshot{
		Destination:               s.DestinationValue(),
		Budget:                    s.BudgetValue(),
		NativeCurrency:            s.NativeCurrencyValue(),
		StartDate:                 s.StartDateValue(),
		EndDate:                   s.EndDateValue(),
		Days:                      s.DaysValue(),
		GroupSize:                 s.GroupSize,
		ActivityPreferences:       s.ActivityPreferencesValue(),
		AccommodationType:         s.AccommodationTypeValue(),
		DietaryRestrictions:       s.DietaryRestrictionsValue(),
		TransportationPreferences: s.TransportationPreferencesValue(),
		Hotels:                    s.Hotels,
		Attractions:               s.Attractions,
		Weather:                   s.Weather,
		Itinerary:                 s.Itinerary,
		Summary:                   s.Summary,
		CurrencyRates:             s.CurrencyRates,
		MissingFields:             s.MissingFields,
		CalculatorResult:          s.CalculatorResult,
	}

	for _, msg := range s.MessageHistory {
		content := msg.Content
		if content == "" && len(msg.ContentBlocks) > 0 {
			var parts []string
			for _, block := range msg.ContentBlocks {
				if block.Type == "text" && block.Text != "" {
					parts = append(parts, block.Text)
				}
			}
			content = strings.Join(parts, "\n")
		}
		snap.MessageHistory = append(snap.MessageHistory, SnapshotMessage{
			Role:    msg.Role,
			Content: content,
		})
	}

	return snap
}

// Encode serializes the snapshot as JSON.
func (snap *Snapshot) Encode() ([]byte, error) {
	return json.Marshal(snap)
}

// DecodeSnapshot parses a stored snapshot record.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
