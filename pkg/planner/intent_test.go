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
package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/wayfarer/pkg/porter"
	"github.com/teradata-labs/wayfarer/pkg/prompts"
)

func TestNormalizeIntent(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"bare token", "TRAVEL", "TRAVEL"},
		{"lowercase token", "not_travel", "NOT_TRAVEL"},
		{"surrounding whitespace", "  TRAVEL \n", "TRAVEL"},
		{"inline backquotes", "`NOT_TRAVEL`", "NOT_TRAVEL"},
		{"fenced token", "```\nTRAVEL\n```", "TRAVEL"},
		{"fenced with language tag", "```text\nNOT_TRAVEL\n```", "NOT_TRAVEL"},
		{"hedged reply stays invalid", "I think TRAVEL", "I THINK TRAVEL"},
		{"empty reply", "", ""},
		{"only whitespace", " \n\t", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeIntent(tt.reply))
		})
	}
}

func TestClassifyIntent(t *testing.T) {
	newPlanner := func(t *testing.T, reply string) (*Planner, *scriptedProvider) {
		t.Helper()
		provider := newScriptedProvider()
		provider.reply("intent", reply)
		p, err := New(provider, prompts.NewStaticRegistry(), porter.NewRegistry())
		require.NoError(t, err)
		return p, provider
	}

	t.Run("travel", func(t *testing.T) {
		p, _ := newPlanner(t, "TRAVEL")
		intent, usage, err := p.classifyIntent(context.Background(), "a week in Kyoto")
		require.NoError(t, err)
		assert.Equal(t, IntentTravel, intent)
		assert.Equal(t, 30, usage.TotalTokens)
	})

	t.Run("not travel", func(t *testing.T) {
		p, _ := newPlanner(t, "```\nnot_travel\n```")
		intent, _, err := p.classifyIntent(context.Background(), "fix my regex")
		require.NoError(t, err)
		assert.Equal(t, IntentNotTravel, intent)
	})

	t.Run("anything else is a contract violation", func(t *testing.T) {
		p, _ := newPlanner(t, "TRAVEL, probably")
		_, _, err := p.classifyIntent(context.Background(), "hmm")
		require.Error(t, err)

		var intentErr *IntentError
		require.ErrorAs(t, err, &intentErr)
		assert.Equal(t, "TRAVEL, probably", intentErr.Raw)
		assert.Contains(t, err.Error(), "want TRAVEL or NOT_TRAVEL")
	})
}
