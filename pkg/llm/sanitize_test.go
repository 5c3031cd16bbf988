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
package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teradata-labs/wayfarer/pkg/types"
)

func TestSanitizeContent_Nil(t *testing.T) {
	assert.Equal(t, "", SanitizeContent(nil))
}

func TestSanitizeContent_PlainString(t *testing.T) {
	assert.Equal(t, "A weekend in Lisbon.", SanitizeContent("  A weekend in Lisbon.  \n"))
}

func TestSanitizeContent_StripsToolUseLine(t *testing.T) {
	input := "Here are some hotels.\n" +
		`{"type": "tool_use", "id": "tu_1", "name": "hotel_search", "input": {"city": "Paris"}}` + "\n" +
		"The Grand Hotel is excellent."

	assert.Equal(t, "Here are some hotels.\nThe Grand Hotel is excellent.", SanitizeContent(input))
}

func TestSanitizeContent_StripsMultilineToolResult(t *testing.T) {
	input := `Intro.
{
  "type": "tool_result",
  "tool_use_id": "tu_1",
  "content": "{\"hotels\": []}"
}
Outro.`

	assert.Equal(t, "Intro.\nOutro.", SanitizeContent(input))
}

func TestSanitizeContent_StripsThinkingWithSignature(t *testing.T) {
	input := "Plan below.\n" +
		`{"type": "thinking", "thinking": "First check the weather.", "signature": "Eo8BCk"}` + "\n" +
		"Day 1: Louvre."

	assert.Equal(t, "Plan below.\nDay 1: Louvre.", SanitizeContent(input))
}

func TestSanitizeContent_KeepsOrdinaryJSON(t *testing.T) {
	input := `Budget breakdown:
{
  "hotel": 540,
  "food": 200
}
Total: 740 EUR`

	assert.Equal(t, input, SanitizeContent(input))
}

func TestSanitizeContent_UnbalancedToolRegionDropsRest(t *testing.T) {
	input := "Keep this.\n" +
		`{"type": "tool_use", "name": "hotel_search", "input": {` + "\n" +
		"truncated"

	assert.Equal(t, "Keep this.", SanitizeContent(input))
}

func TestSanitizeContent_TypedBlocks(t *testing.T) {
	blocks := []types.ContentBlock{
		{Type: types.BlockText, Text: "Three days in Rome."},
		{Type: types.BlockToolUse, Name: "get_weather", Input: map[string]interface{}{"city": "Rome"}},
		{Type: types.BlockText, Text: "Pack light."},
		{Type: types.BlockThinking, Text: "internal reasoning"},
	}

	assert.Equal(t, "Three days in Rome.\nPack light.", SanitizeContent(blocks))
}

func TestSanitizeContent_DecodedBlockMaps(t *testing.T) {
	items := []interface{}{
		map[string]interface{}{"type": "text", "text": "Visit the old town."},
		map[string]interface{}{"type": "tool_use", "name": "hotel_search"},
		map[string]interface{}{"type": "text", "text": "Try the seafood."},
	}

	assert.Equal(t, "Visit the old town.\nTry the seafood.", SanitizeContent(items))
}

func TestSanitizeContent_Response(t *testing.T) {
	resp := &types.LLMResponse{
		ContentBlocks: []types.ContentBlock{
			{Type: types.BlockThinking, Text: "hmm"},
			{Type: types.BlockText, Text: "Take the train."},
		},
	}
	assert.Equal(t, "Take the train.", SanitizeContent(resp))

	var nilResp *types.LLMResponse
	assert.Equal(t, "", SanitizeContent(nilResp))
}

func TestSanitizeContent_Primitives(t *testing.T) {
	assert.Equal(t, "42", SanitizeContent(42))
	assert.Equal(t, "true", SanitizeContent(true))
	assert.Equal(t, "3.5", SanitizeContent(3.5))
}

func TestSanitizeContent_Idempotent(t *testing.T) {
	fixtures := []string{
		"plain text",
		"Here are some hotels.\n" +
			`{"type": "tool_use", "name": "hotel_search", "input": {}}` + "\n" +
			"Enjoy.",
		"Intro.\n{\n  \"type\": \"tool_result\",\n  \"content\": \"x\"\n}\nOutro.",
		"Budget:\n{\n  \"hotel\": 540\n}\nDone.",
		"",
	}

	for _, fixture := range fixtures {
		once := SanitizeContent(fixture)
		twice := SanitizeContent(once)
		assert.Equal(t, once, twice, "sanitizing %q a second time changed the output", fixture)
	}
}
