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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/wayfarer/pkg/porter"
)

// dataMap unwraps a tool result payload for assertions.
func dataMap(t *testing.T, result *porter.Result) map[string]interface{} {
	t.Helper()
	m, ok := result.Data.(map[string]interface{})
	require.True(t, ok, "result data is %T, want map[string]interface{}", result.Data)
	return m
}

func TestAll_CoversEveryName(t *testing.T) {
	tools := All(Config{})
	require.Len(t, tools, len(Names()))
	for i, name := range Names() {
		assert.Equal(t, name, tools[i].Name())
	}
}

func TestAll_SchemasAndDescriptions(t *testing.T) {
	for _, tool := range All(Config{}) {
		t.Run(tool.Name(), func(t *testing.T) {
			assert.NotEmpty(t, tool.Description())
			assert.NotEmpty(t, tool.Capability())
			schema := tool.InputSchema()
			require.NotNil(t, schema)
			assert.Equal(t, "object", schema.Type)
			assert.NotEmpty(t, schema.Properties)
		})
	}
}

func TestByName(t *testing.T) {
	for _, name := range Names() {
		tool := ByName(name, Config{})
		require.NotNil(t, tool, "no tool for %s", name)
		assert.Equal(t, name, tool.Name())
	}
	assert.Nil(t, ByName("no_such_tool", Config{}))
}

func TestRegisterAll(t *testing.T) {
	registry := porter.NewRegistry()
	RegisterAll(registry, Config{})

	assert.Equal(t, len(Names()), registry.Count())
	for _, name := range Names() {
		assert.True(t, registry.IsRegistered(name), "%s not registered", name)
	}
}

func TestRegisterAll_CapabilityLookup(t *testing.T) {
	registry := porter.NewRegistry()
	RegisterAll(registry, Config{})

	tests := []struct {
		capability string
		tool       string
	}{
		{porter.CapabilityHotels, "search_hotels"},
		{porter.CapabilityWeather, "get_weather"},
		{porter.CapabilityAttractions, "find_attractions"},
		{porter.CapabilityCurrency, "convert_currency"},
		{porter.CapabilityArithmetic, "calculator"},
		{porter.CapabilitySearch, "web_search"},
	}
	for _, tt := range tests {
		tools := registry.ListByCapability(tt.capability)
		require.Len(t, tools, 1, "capability %s", tt.capability)
		assert.Equal(t, tt.tool, tools[0].Name())
	}
}
