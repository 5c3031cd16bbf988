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
package porter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// NormalizeSchema ensures a JSON Schema complies with JSON Schema draft 2020-12.
// This is critical for Bedrock Claude models which strictly validate schemas.
//
// Common issues fixed:
// - Object types with nil properties -> empty map {}
// - Missing type fields -> inferred from structure
// - Nested objects with nil properties -> recursively normalized
func NormalizeSchema(schema *JSONSchema) *JSONSchema {
	if schema == nil {
		return nil
	}

	// Ensure object types have non-nil properties
	if schema.Type == "object" {
		if schema.Properties == nil {
			schema.Properties = make(map[string]*JSONSchema)
		}

		// Recursively normalize nested schemas
		for key, prop := range schema.Properties {
			schema.Properties[key] = NormalizeSchema(prop)
		}
	}

	// Ensure array types have items schema
	if schema.Type == "array" && schema.Items != nil {
		schema.Items = NormalizeSchema(schema.Items)
	}

	// Infer type if missing but structure is clear
	if schema.Type == "" {
		if schema.Properties != nil {
			schema.Type = "object"
			for key, prop := range schema.Properties {
				schema.Properties[key] = NormalizeSchema(prop)
			}
		} else if schema.Items != nil {
			schema.Type = "array"
			schema.Items = NormalizeSchema(schema.Items)
		} else if len(schema.Enum) > 0 {
			schema.Type = "string"
		}
	}

	return schema
}

// ValidateInput validates tool parameters against the tool's input schema.
// Returns nil when the schema is nil (tools may opt out of validation).
func ValidateInput(schema *JSONSchema, params map[string]interface{}) error {
	if schema == nil {
		return nil
	}

	// Round-trip through JSON so the validator sees plain maps, not our
	// typed schema struct.
	schemaBytes, err := json.Marshal(NormalizeSchema(schema))
	if err != nil {
		return fmt.Errorf("failed to serialize schema: %w", err)
	}
	var schemaDoc map[string]interface{}
	if err := json.Unmarshal(schemaBytes, &schemaDoc); err != nil {
		return fmt.Errorf("failed to parse schema: %w", err)
	}

	if params == nil {
		params = map[string]interface{}{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schemaDoc)
	documentLoader := gojsonschema.NewGoLoader(params)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var messages []string
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return fmt.Errorf("invalid parameters: %s", strings.Join(messages, "; "))
	}

	return nil
}
