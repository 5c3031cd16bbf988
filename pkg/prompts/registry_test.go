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
package prompts

import (
	"context"
	"sort"
	"strings"
	"testing"
)

var stageNames = []string{
	PromptIntent,
	PromptExtract,
	PromptHotel,
	PromptWeather,
	PromptAttractions,
	PromptBudget,
	PromptItinerary,
	PromptSummary,
}

func TestStaticRegistry_Defaults(t *testing.T) {
	registry := NewStaticRegistry()
	ctx := context.Background()

	names, err := registry.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(names) != len(stageNames) {
		t.Errorf("List() returned %d names, want %d", len(names), len(stageNames))
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("List() not sorted: %v", names)
	}

	for _, name := range stageNames {
		template, err := registry.Get(ctx, name)
		if err != nil {
			t.Errorf("Get(%q) failed: %v", name, err)
			continue
		}
		if strings.TrimSpace(template) == "" {
			t.Errorf("Get(%q) returned empty template", name)
		}
	}
}

func TestStaticRegistry_GetUnknown(t *testing.T) {
	registry := NewStaticRegistry()

	_, err := registry.Get(context.Background(), "planner.nonexistent")
	if err == nil {
		t.Fatal("Get() with unknown name should return error")
	}
	if !strings.Contains(err.Error(), "prompt not found") {
		t.Errorf("error = %q, want mention of prompt not found", err)
	}
}

func TestStaticRegistry_GetWithVariables(t *testing.T) {
	registry := NewStaticRegistry()
	ctx := context.Background()

	got, err := registry.GetWithVariables(ctx, PromptHotel, map[string]interface{}{
		"current_date": "2026-08-23",
	})
	if err != nil {
		t.Fatalf("GetWithVariables() failed: %v", err)
	}
	if !strings.Contains(got, "Today's date is 2026-08-23.") {
		t.Errorf("interpolated prompt missing date, got:\n%s", got)
	}
	if strings.Contains(got, "{{.current_date}}") {
		t.Error("placeholder survived interpolation")
	}
}

func TestStaticRegistry_MissingVariableKeepsPlaceholder(t *testing.T) {
	registry := NewStaticRegistry()

	got, err := registry.GetWithVariables(context.Background(), PromptWeather, map[string]interface{}{
		"unrelated": "value",
	})
	if err != nil {
		t.Fatalf("GetWithVariables() failed: %v", err)
	}
	if !strings.Contains(got, "{{.current_date}}") {
		t.Error("placeholder for unsupplied variable should stay in place")
	}
}

func TestStaticRegistry_Set(t *testing.T) {
	registry := NewStaticRegistry()
	ctx := context.Background()

	registry.Set(Prompt{
		Name:     PromptIntent,
		Template: "Answer TRAVEL or NOT_TRAVEL.",
	})

	got, err := registry.Get(ctx, PromptIntent)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != "Answer TRAVEL or NOT_TRAVEL." {
		t.Errorf("Get() = %q, want the override", got)
	}

	names, err := registry.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(names) != len(stageNames) {
		t.Errorf("override changed List() length to %d", len(names))
	}
}

func TestStaticRegistry_Close(t *testing.T) {
	registry := NewStaticRegistry()
	if err := registry.Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}

func TestDefaults_DeclaredVariablesAppear(t *testing.T) {
	for _, p := range Defaults() {
		for _, v := range p.Variables {
			placeholder := "{{." + v + "}}"
			if !strings.Contains(p.Template, placeholder) {
				t.Errorf("prompt %s declares variable %q but template lacks %s", p.Name, v, placeholder)
			}
		}
	}
}

func TestDefaults_IntentTokens(t *testing.T) {
	registry := NewStaticRegistry()

	got, err := registry.Get(context.Background(), PromptIntent)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	for _, token := range []string{"TRAVEL", "NOT_TRAVEL"} {
		if !strings.Contains(got, token) {
			t.Errorf("intent prompt missing token %q", token)
		}
	}
}

func TestDefaults_SummaryCarriesVerdictMarkers(t *testing.T) {
	registry := NewStaticRegistry()

	got, err := registry.Get(context.Background(), PromptSummary)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !strings.Contains(got, "REGENERATE:") {
		t.Error("summary prompt must spell out the REGENERATE: directive")
	}
	if !strings.Contains(got, "FINAL") {
		t.Error("summary prompt must spell out the FINAL marker")
	}
}
