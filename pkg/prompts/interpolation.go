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
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var placeholderRE = regexp.MustCompile(`\{\{\.(\w+)\}\}`)

// Interpolate substitutes {{.name}} placeholders in a template from vars.
//
// Values are sanitized before substitution so that user-controlled text
// (a destination, a preference string) cannot smuggle role markers or
// fake prompt boundaries into the assembled prompt. Placeholders with no
// matching entry in vars are left in place.
func Interpolate(template string, vars map[string]interface{}) string {
	if len(vars) == 0 {
		return template
	}
	return placeholderRE.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "{{."), "}}")
		value, ok := vars[name]
		if !ok {
			return match
		}
		return sanitizeValue(value)
	})
}

// sanitizeValue renders a variable value as a single sanitized line.
func sanitizeValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return sanitizeString(v)
	case []string:
		parts := make([]string, len(v))
		for i, s := range v {
			parts[i] = sanitizeString(s)
		}
		return strings.Join(parts, ", ")
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return sanitizeString(fmt.Sprintf("%v", v))
	}
}

// Markers a value could use to impersonate a conversation turn or open a
// formatting region the surrounding template did not intend.
var injectionMarkers = []string{
	"```",
	"###",
	"---",
	"System:",
	"Assistant:",
	"Human:",
	"[INST]",
	"[/INST]",
	"<|im_start|>",
	"<|im_end|>",
}

// sanitizeString flattens a value to one clean line: invalid UTF-8 and
// control characters dropped, line breaks turned into spaces, known
// injection markers removed, runs of whitespace collapsed.
func sanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			b.WriteRune(' ')
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	s = b.String()

	for _, marker := range injectionMarkers {
		s = strings.ReplaceAll(s, marker, " ")
	}

	return strings.Join(strings.Fields(s), " ")
}
