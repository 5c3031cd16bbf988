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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writePromptFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFileRegistry_LoadAndGet(t *testing.T) {
	tmpDir := t.TempDir()
	writePromptFile(t, filepath.Join(tmpDir, "summary.yaml"), `name: planner.summary
description: Shorter supervisor prompt.
template: |
  Summarize the plan. End with FINAL.
`)

	registry, err := NewFileRegistry(tmpDir, nil)
	if err != nil {
		t.Fatalf("NewFileRegistry() failed: %v", err)
	}
	defer registry.Close()

	got, err := registry.Get(context.Background(), PromptSummary)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if strings.TrimSpace(got) != "Summarize the plan. End with FINAL." {
		t.Errorf("Get() = %q, want the on-disk override", got)
	}
}

func TestFileRegistry_FallbackToDefaults(t *testing.T) {
	registry, err := NewFileRegistry(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewFileRegistry() failed: %v", err)
	}
	defer registry.Close()

	got, err := registry.Get(context.Background(), PromptHotel)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !strings.Contains(got, "search_hotels") {
		t.Errorf("default hotel prompt expected, got:\n%s", got)
	}
}

func TestFileRegistry_GetWithVariables(t *testing.T) {
	tmpDir := t.TempDir()
	writePromptFile(t, filepath.Join(tmpDir, "greet.yaml"), `name: planner.greeting
variables: [destination]
template: Welcome to {{.destination}}!
`)

	registry, err := NewFileRegistry(tmpDir, nil)
	if err != nil {
		t.Fatalf("NewFileRegistry() failed: %v", err)
	}
	defer registry.Close()

	got, err := registry.GetWithVariables(context.Background(), "planner.greeting", map[string]interface{}{
		"destination": "Lisbon",
	})
	if err != nil {
		t.Fatalf("GetWithVariables() failed: %v", err)
	}
	if got != "Welcome to Lisbon!" {
		t.Errorf("GetWithVariables() = %q, want %q", got, "Welcome to Lisbon!")
	}
}

func TestFileRegistry_ListUnion(t *testing.T) {
	tmpDir := t.TempDir()
	writePromptFile(t, filepath.Join(tmpDir, "custom.yaml"), `name: planner.custom
template: Custom prompt.
`)
	writePromptFile(t, filepath.Join(tmpDir, "hotel.yaml"), `name: planner.hotel
template: Override of the hotel prompt.
`)

	registry, err := NewFileRegistry(tmpDir, nil)
	if err != nil {
		t.Fatalf("NewFileRegistry() failed: %v", err)
	}
	defer registry.Close()

	names, err := registry.List(context.Background())
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	// Eight defaults plus one new name; the hotel override must not double up.
	if len(names) != len(stageNames)+1 {
		t.Errorf("List() returned %d names, want %d: %v", len(names), len(stageNames)+1, names)
	}
	found := false
	for _, n := range names {
		if n == "planner.custom" {
			found = true
		}
	}
	if !found {
		t.Errorf("List() missing on-disk prompt: %v", names)
	}
}

func TestFileRegistry_NestedDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	writePromptFile(t, filepath.Join(tmpDir, "stages", "weather.yaml"), `name: planner.weather
template: Nested weather prompt.
`)

	registry, err := NewFileRegistry(tmpDir, nil)
	if err != nil {
		t.Fatalf("NewFileRegistry() failed: %v", err)
	}
	defer registry.Close()

	got, err := registry.Get(context.Background(), PromptWeather)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != "Nested weather prompt." {
		t.Errorf("Get() = %q, want the nested override", got)
	}
}

func TestFileRegistry_BadFileAtStartup(t *testing.T) {
	tmpDir := t.TempDir()
	writePromptFile(t, filepath.Join(tmpDir, "broken.yaml"), "name: [unclosed\n")

	if _, err := NewFileRegistry(tmpDir, nil); err == nil {
		t.Fatal("NewFileRegistry() should fail on unparseable prompt file")
	}
}

func TestFileRegistry_MissingName(t *testing.T) {
	tmpDir := t.TempDir()
	writePromptFile(t, filepath.Join(tmpDir, "anon.yaml"), "template: No name here.\n")

	_, err := NewFileRegistry(tmpDir, nil)
	if err == nil {
		t.Fatal("NewFileRegistry() should fail on prompt file without a name")
	}
	if !strings.Contains(err.Error(), "missing name") {
		t.Errorf("error = %q, want mention of missing name", err)
	}
}

func TestFileRegistry_NonexistentDir(t *testing.T) {
	if _, err := NewFileRegistry(filepath.Join(t.TempDir(), "absent"), nil); err == nil {
		t.Fatal("NewFileRegistry() should fail on a missing directory")
	}
}

func TestFileRegistry_ReloadPicksUpEdits(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "budget.yaml")
	writePromptFile(t, path, `name: planner.budget
template: Budget prompt, first version.
`)

	registry, err := NewFileRegistry(tmpDir, nil)
	if err != nil {
		t.Fatalf("NewFileRegistry() failed: %v", err)
	}
	defer registry.Close()
	ctx := context.Background()

	writePromptFile(t, path, `name: planner.budget
template: Budget prompt, second version.
`)
	if err := registry.Reload(ctx); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}

	got, err := registry.Get(ctx, PromptBudget)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != "Budget prompt, second version." {
		t.Errorf("Get() = %q, want the edited version", got)
	}
}

func TestFileRegistry_FailedReloadKeepsPreviousSet(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "budget.yaml")
	writePromptFile(t, path, `name: planner.budget
template: Working version.
`)

	registry, err := NewFileRegistry(tmpDir, nil)
	if err != nil {
		t.Fatalf("NewFileRegistry() failed: %v", err)
	}
	defer registry.Close()
	ctx := context.Background()

	writePromptFile(t, path, "name: [broken\n")
	if err := registry.Reload(ctx); err == nil {
		t.Fatal("Reload() should fail on a broken file")
	}

	got, err := registry.Get(ctx, PromptBudget)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got != "Working version." {
		t.Errorf("Get() = %q, want the pre-edit version", got)
	}
}

func TestFileRegistry_WatcherHotReload(t *testing.T) {
	tmpDir := t.TempDir()

	registry, err := NewFileRegistry(tmpDir, nil)
	if err != nil {
		t.Fatalf("NewFileRegistry() failed: %v", err)
	}
	defer registry.Close()
	ctx := context.Background()

	writePromptFile(t, filepath.Join(tmpDir, "fresh.yaml"), `name: planner.fresh
template: Dropped in while running.
`)

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := registry.Get(ctx, "planner.fresh")
		if err == nil && got == "Dropped in while running." {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("watcher never picked up the new prompt file (last: %q, %v)", got, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestFileRegistry_CloseIdempotent(t *testing.T) {
	registry, err := NewFileRegistry(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewFileRegistry() failed: %v", err)
	}

	if err := registry.Close(); err != nil {
		t.Errorf("first Close() = %v, want nil", err)
	}
	if err := registry.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
}
