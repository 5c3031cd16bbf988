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
	"testing"

	"github.com/teradata-labs/wayfarer/pkg/types"
)

func TestSnapshot_OmitsAbsentOptionals(t *testing.T) {
	s := NewPlanningState()
	s.Destination = strPtr("Paris")

	data, err := s.Snapshot().Encode()
	if err != nil {
		t.Fatalf("Expected encode to succeed, got %v", err)
	}

	text := string(data)
	if !strings.Contains(text, `"destination":"Paris"`) {
		t.Errorf("Expected destination in snapshot, got %s", text)
	}
	if strings.Contains(text, "budget") {
		t.Errorf("Expected absent budget omitted, got %s", text)
	}
	if strings.Contains(text, "itinerary") {
		t.Errorf("Expected empty itinerary omitted, got %s", text)
	}
	// group_size has a default, so it is always present
	if !strings.Contains(text, `"group_size":"1"`) {
		t.Errorf("Expected group_size in snapshot, got %s", text)
	}
}

func TestSnapshot_FlattensMessageHistory(t *testing.T) {
	s := NewPlanningState()
	s.AppendMessage(types.Message{Role: "user", Content: "plan Paris"})
	s.AppendMessage(types.Message{
		Role: "assistant",
		ContentBlocks: []types.ContentBlock{
			{Type: types.BlockText, Text: "Looking into it."},
			{Type: types.BlockToolUse, Name: "search_hotels"},
			{Type: types.BlockText, Text: "Found options."},
		},
	})

	snap := s.Snapshot()

	if len(snap.MessageHistory) != 2 {
		t.Fatalf("Expected 2 history entries, got %d", len(snap.MessageHistory))
	}
	if snap.MessageHistory[0].Content != "plan Paris" {
		t.Errorf("Expected plain content kept, got %q", snap.MessageHistory[0].Content)
	}
	want := "Looking into it.\nFound options."
	if snap.MessageHistory[1].Content != want {
		t.Errorf("Expected text blocks joined, got %q", snap.MessageHistory[1].Content)
	}
}

func TestSnapshot_SequencesStayOrdered(t *testing.T) {
	s := NewPlanningState()
	s.Hotels = []HotelOffer{
		{Name: "First"},
		{Name: "Second"},
	}
	s.SetMissingFields([]string{"budget", "days"})

	snap := s.Snapshot()

	if len(snap.Hotels) != 2 || snap.Hotels[0].Name != "First" {
		t.Errorf("Expected hotel order preserved, got %+v", snap.Hotels)
	}
	if len(snap.MissingFields) != 2 || snap.MissingFields[0] != "budget" {
		t.Errorf("Expected missing field order preserved, got %v", snap.MissingFields)
	}
}

func TestSnapshot_DecodeRoundTrip(t *testing.T) {
	s := NewPlanningState()
	s.Destination = strPtr("Rome")
	s.Days = strPtr("3")
	s.Weather = "Sunny, 24C"
	s.Hotels = []HotelOffer{{Name: "Trastevere Rooms", ReviewCount: 44}}

	data, err := s.Snapshot().Encode()
	if err != nil {
		t.Fatalf("Expected encode to succeed, got %v", err)
	}

	decoded, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("Expected decode to succeed, got %v", err)
	}
	if decoded.Destination != "Rome" || decoded.Days != "3" {
		t.Errorf("Expected scalar fields round-tripped, got %+v", decoded)
	}
	if decoded.Weather != "Sunny, 24C" {
		t.Errorf("Expected weather round-tripped, got %q", decoded.Weather)
	}
	if len(decoded.Hotels) != 1 || decoded.Hotels[0].Name != "Trastevere Rooms" {
		t.Errorf("Expected hotels round-tripped, got %+v", decoded.Hotels)
	}
}

func TestSnapshot_IsPlainKeyedRecord(t *testing.T) {
	s := NewPlanningState()
	s.Destination = strPtr("Lisbon")
	s.CalculatorResult = "Total: 940 EUR"

	data, err := s.Snapshot().Encode()
	if err != nil {
		t.Fatalf("Expected encode to succeed, got %v", err)
	}

	var record map[string]interface{}
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("Expected snapshot to be a JSON object, got %v", err)
	}
	if record["calculator_result"] != "Total: 940 EUR" {
		t.Errorf("Expected snake_case keys, got %v", record)
	}
}
