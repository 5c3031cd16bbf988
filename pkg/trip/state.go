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

// Package trip holds the planning state that a run threads through the
// pipeline, together with the deterministic logic that operates on it:
// extraction merging, date normalization, and hotel payload parsing.
//
// The state is owned by exactly one run. Stages receive it sequentially and
// mutate it in place; there is no locking because there is no concurrent
// writer within a run.
package trip

import (
	"strings"
	"time"

	"github.com/teradata-labs/wayfarer/pkg/types"
)

// PlanningState accumulates everything known about the trip across stages.
//
// User-supplied attributes are pointers: nil means the user never provided
// the value, which the merge logic must distinguish from an empty string.
// Stage outputs are plain strings because each has exactly one writer and
// empty simply means the stage has not run yet.
type PlanningState struct {
	// User-supplied attributes
	Destination               *string
	Budget                    *string // raw text, currency unresolved
	NativeCurrency            *string
	StartDate                 *string // YYYY-MM-DD
	EndDate                   *string // YYYY-MM-DD
	Days                      *string // may be non-numeric ("weekend")
	GroupSize                 string  // defaults to "1"
	ActivityPreferences       *string
	AccommodationType         *string
	DietaryRestrictions       *string
	TransportationPreferences *string

	// Conversation
	MessageHistory []types.Message // append-only

	// Stage outputs
	Hotels           []HotelOffer // replaced wholesale per hotel stage run
	Attractions      string
	Weather          string
	Itinerary        string
	Summary          string
	CurrencyRates    string
	CalculatorResult string

	// Fields the extractor still needs from the user, in ask order.
	MissingFields []string
}

// NewPlanningState creates an empty state with defaults applied.
func NewPlanningState() *PlanningState {
	return &PlanningState{
		GroupSize: "1",
	}
}

// AppendMessage adds a message to the history. History is append-only;
// nothing ever rewrites or truncates it during a run.
func (s *PlanningState) AppendMessage(msg types.Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.MessageHistory = append(s.MessageHistory, msg)
}

// RemoveMissingField drops a field name from the missing set, preserving
// the order of the remaining entries.
func (s *PlanningState) RemoveMissingField(name string) {
	if len(s.MissingFields) == 0 {
		return
	}
	kept := s.MissingFields[:0]
	for _, f := range s.MissingFields {
		if f != name {
			kept = append(kept, f)
		}
	}
	s.MissingFields = kept
}

// SetMissingFields replaces the missing set, deduplicating while keeping
// first-occurrence order.
func (s *PlanningState) SetMissingFields(fields []string) {
	seen := make(map[string]bool, len(fields))
	ordered := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		ordered = append(ordered, f)
	}
	s.MissingFields = ordered
}

// String values of the user attributes, empty when unset. Prompt builders
// use these so templates never deal with nil pointers.

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// DestinationValue returns the destination or "".
func (s *PlanningState) DestinationValue() string { return deref(s.Destination) }

// BudgetValue returns the raw budget text or "".
func (s *PlanningState) BudgetValue() string { return deref(s.Budget) }

// NativeCurrencyValue returns the currency text or "".
func (s *PlanningState) NativeCurrencyValue() string { return deref(s.NativeCurrency) }

// StartDateValue returns the start date or "".
func (s *PlanningState) StartDateValue() string { return deref(s.StartDate) }

// EndDateValue returns the end date or "".
func (s *PlanningState) EndDateValue() string { return deref(s.EndDate) }

// DaysValue returns the trip length text or "".
func (s *PlanningState) DaysValue() string { return deref(s.Days) }

// ActivityPreferencesValue returns the preferences text or "".
func (s *PlanningState) ActivityPreferencesValue() string { return deref(s.ActivityPreferences) }

// AccommodationTypeValue returns the accommodation text or "".
func (s *PlanningState) AccommodationTypeValue() string { return deref(s.AccommodationType) }

// DietaryRestrictionsValue returns the dietary text or "".
func (s *PlanningState) DietaryRestrictionsValue() string { return deref(s.DietaryRestrictions) }

// TransportationPreferencesValue returns the transportation text or "".
func (s *PlanningState) TransportationPreferencesValue() string {
	return deref(s.TransportationPreferences)
}
