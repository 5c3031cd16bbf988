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

import "strings"

// Extraction is the schema-constrained result of the field extractor.
// Every field is optional; the extractor only reports what the latest user
// message actually contains.
type Extraction struct {
	Destination               *string  `json:"destination,omitempty"`
	Budget                    *string  `json:"budget,omitempty"`
	NativeCurrency            *string  `json:"native_currency,omitempty"`
	StartDate                 *string  `json:"start_date,omitempty"`
	EndDate                   *string  `json:"end_date,omitempty"`
	Days                      *string  `json:"days,omitempty"`
	GroupSize                 *string  `json:"group_size,omitempty"`
	ActivityPreferences       *string  `json:"activity_preferences,omitempty"`
	AccommodationType         *string  `json:"accommodation_type,omitempty"`
	DietaryRestrictions       *string  `json:"dietary_restrictions,omitempty"`
	TransportationPreferences *string  `json:"transportation_preferences,omitempty"`
	MissingFields             []string `json:"missing_fields,omitempty"`
}

// Merge applies the extraction onto the state.
//
// Only fields the extraction actually carries overwrite state values; absent
// or blank fields never null out what an earlier turn established. The
// missing set is replaced when reported, since the extractor computes it
// against the full state.
func (e *Extraction) Merge(s *PlanningState) {
	assign(&s.Destination, e.Destination)
	assign(&s.Budget, e.Budget)
	assign(&s.NativeCurrency, e.NativeCurrency)
	assign(&s.StartDate, e.StartDate)
	assign(&s.EndDate, e.EndDate)
	assign(&s.Days, e.Days)
	assign(&s.ActivityPreferences, e.ActivityPreferences)
	assign(&s.AccommodationType, e.AccommodationType)
	assign(&s.DietaryRestrictions, e.DietaryRestrictions)
	assign(&s.TransportationPreferences, e.TransportationPreferences)

	if e.GroupSize != nil && strings.TrimSpace(*e.GroupSize) != "" {
		s.GroupSize = strings.TrimSpace(*e.GroupSize)
	}

	if e.MissingFields != nil {
		s.SetMissingFields(e.MissingFields)
	}
}

// assign overwrites dst when src carries a non-blank value.
func assign(dst **string, src *string) {
	if src == nil {
		return
	}
	v := strings.TrimSpace(*src)
	if v == "" {
		return
	}
	*dst = &v
}
