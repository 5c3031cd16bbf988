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
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/wayfarer/pkg/porter"
)

const (
	// DefaultSearchEndpoint is the DuckDuckGo Instant Answer API. It needs
	// no credential.
	DefaultSearchEndpoint = "https://api.duckduckgo.com/"

	defaultSearchResults = 5
	maxSearchResults     = 10
)

// SearchConfig configures the web search tool.
type SearchConfig struct {
	Endpoint          string
	Timeout           time.Duration
	RequestsPerSecond float64
	Logger            *zap.Logger
}

// WebSearchTool answers free-text queries through the DuckDuckGo Instant
// Answer API. Search is strictly best-effort: an upstream failure degrades
// to an empty result set with the error recorded in the payload, so stages
// that consult the web never fail because of it.
type WebSearchTool struct {
	client   *jsonClient
	endpoint string
	logger   *zap.Logger
}

var _ porter.Tool = (*WebSearchTool)(nil)

func NewWebSearchTool(cfg SearchConfig) *WebSearchTool {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultSearchEndpoint
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSearchTool{
		client:   newJSONClient(cfg.Timeout, cfg.RequestsPerSecond),
		endpoint: endpoint,
		logger:   logger,
	}
}

func (t *WebSearchTool) Name() string { return "web_search" }

func (t *WebSearchTool) Description() string {
	return "Searches the web for current information: event dates, typical costs, local tips. Results are best-effort and may be empty."
}

func (t *WebSearchTool) Capability() string { return porter.CapabilitySearch }

func (t *WebSearchTool) InputSchema() *porter.JSONSchema {
	return porter.NewObjectSchema(
		"Web search query",
		map[string]*porter.JSONSchema{
			"query": porter.NewStringSchema("Search query"),
			"max_results": porter.NewIntegerSchema("Maximum results to return, up to 10").
				WithDefault(defaultSearchResults),
			"depth": porter.NewStringSchema("Search depth: basic returns direct answers, full adds related topics").
				WithEnum("basic", "full").
				WithDefault("basic"),
		},
		[]string{"query"},
	)
}

func (t *WebSearchTool) Execute(ctx context.Context, params map[string]interface{}) (*porter.Result, error) {
	start := time.Now()

	query, ok := stringParam(params, "query")
	if !ok {
		return invalidInput(start, "query is required"), nil
	}
	limit := intParam(params, "max_results", defaultSearchResults)
	if limit < 1 {
		limit = 1
	}
	if limit > maxSearchResults {
		limit = maxSearchResults
	}
	depth, _ := stringParam(params, "depth")
	if depth != "full" {
		depth = "basic"
	}

	results, err := t.search(ctx, query, limit, depth)
	if err != nil {
		t.logger.Warn("web search degraded to empty results",
			zap.String("query", query),
			zap.Error(err))
		return okResult(start, map[string]interface{}{
			"query":        query,
			"results":      []searchResult{},
			"result_count": 0,
			"error":        err.Error(),
		}, map[string]interface{}{
			"source":   "duckduckgo",
			"degraded": true,
		}), nil
	}

	return okResult(start, map[string]interface{}{
		"query":        query,
		"results":      results,
		"result_count": len(results),
	}, map[string]interface{}{
		"source": "duckduckgo",
		"depth":  depth,
	}), nil
}

type searchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

type ddgTopic struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}

type ddgResponse struct {
	Abstract      string     `json:"Abstract"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Heading       string     `json:"Heading"`
	Results       []ddgTopic `json:"Results"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

func (t *WebSearchTool) search(ctx context.Context, query string, limit int, depth string) ([]searchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")

	var resp ddgResponse
	if err := t.client.getJSON(ctx, t.endpoint+"?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	results := make([]searchResult, 0, limit)
	if resp.AbstractText != "" {
		title := resp.Heading
		if title == "" {
			title = resultTitle(resp.AbstractText)
		}
		results = append(results, searchResult{
			Title:   title,
			URL:     resp.AbstractURL,
			Snippet: resp.AbstractText,
			Score:   1.0,
		})
	}
	for _, r := range resp.Results {
		if len(results) >= limit {
			break
		}
		if r.Text == "" {
			continue
		}
		results = append(results, searchResult{
			Title:   resultTitle(r.Text),
			URL:     r.FirstURL,
			Snippet: r.Text,
			Score:   0.8,
		})
	}
	if depth == "full" {
		for _, r := range resp.RelatedTopics {
			if len(results) >= limit {
				break
			}
			if r.Text == "" {
				continue
			}
			results = append(results, searchResult{
				Title:   resultTitle(r.Text),
				URL:     r.FirstURL,
				Snippet: r.Text,
				Score:   0.5,
			})
		}
	}
	return results, nil
}

// resultTitle derives a short title from a result snippet. DuckDuckGo
// topics carry a single text field, usually "Title - description".
func resultTitle(text string) string {
	if idx := strings.Index(text, " - "); idx > 0 && idx < 100 {
		return text[:idx]
	}
	if idx := strings.Index(text, ": "); idx > 0 && idx < 100 {
		return text[:idx]
	}
	if len(text) > 100 {
		return text[:97] + "..."
	}
	return text
}
