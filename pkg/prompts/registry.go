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

// Package prompts manages the system prompts the planner stages run with.
//
// Every stage prompt is externalized behind the Registry interface so
// operators can tune wording without a rebuild. Two implementations ship:
// StaticRegistry serves the compiled-in defaults, FileRegistry overlays
// YAML files from a directory and hot-reloads edits.
//
// Example:
//
//	registry := prompts.NewStaticRegistry()
//	system, err := registry.GetWithVariables(ctx, prompts.PromptHotel, map[string]interface{}{
//	    "current_date": "2026-08-23",
//	})
package prompts

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Prompt is a named template with its declared variables.
type Prompt struct {
	// Name is the lookup key, e.g. "planner.hotel".
	Name string `yaml:"name"`

	// Description says what the prompt is for.
	Description string `yaml:"description,omitempty"`

	// Variables lists the placeholder names the template interpolates.
	Variables []string `yaml:"variables,omitempty"`

	// Template is the prompt text with {{.variable}} placeholders.
	Template string `yaml:"template"`
}

// Registry retrieves prompt templates by name.
type Registry interface {
	// Get returns the raw template for name, without interpolation.
	Get(ctx context.Context, name string) (string, error)

	// GetWithVariables returns the template with {{.var}} placeholders
	// substituted from vars. Placeholders without a value stay in place.
	GetWithVariables(ctx context.Context, name string, vars map[string]interface{}) (string, error)

	// List returns every known prompt name, sorted.
	List(ctx context.Context) ([]string, error)

	// Close releases any resources held by the registry.
	Close() error
}

// StaticRegistry serves the compiled-in default prompts from memory.
// The zero value is not usable; create one with NewStaticRegistry.
type StaticRegistry struct {
	mu      sync.RWMutex
	prompts map[string]Prompt
}

var _ Registry = (*StaticRegistry)(nil)

// NewStaticRegistry creates a registry seeded with the default prompt set.
func NewStaticRegistry() *StaticRegistry {
	r := &StaticRegistry{prompts: make(map[string]Prompt)}
	for _, p := range Defaults() {
		r.prompts[p.Name] = p
	}
	return r
}

// Set adds or replaces a prompt. Useful for tests and for callers that
// want to override a single default without a prompts directory.
func (r *StaticRegistry) Set(p Prompt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts[p.Name] = p
}

// Get returns the raw template for name.
func (r *StaticRegistry) Get(_ context.Context, name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prompts[name]
	if !ok {
		return "", fmt.Errorf("prompt not found: %s", name)
	}
	return p.Template, nil
}

// GetWithVariables returns the interpolated template for name.
func (r *StaticRegistry) GetWithVariables(ctx context.Context, name string, vars map[string]interface{}) (string, error) {
	template, err := r.Get(ctx, name)
	if err != nil {
		return "", err
	}
	return Interpolate(template, vars), nil
}

// List returns every known prompt name, sorted.
func (r *StaticRegistry) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.prompts))
	for name := range r.prompts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op; a static registry holds no resources.
func (r *StaticRegistry) Close() error { return nil }
