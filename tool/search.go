package tool

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/researchmesh/researchmesh/core"
)

// SearchResult is one hit returned by a search provider.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchProvider abstracts the search backend (DuckDuckGo, Google, Tavily,
// an arXiv API client, ...). Providers are external collaborators configured
// at wiring time.
type SearchProvider interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// StaticSearchProvider serves canned results keyed by query substring.
// Useful for tests and examples.
type StaticSearchProvider struct {
	mu      sync.RWMutex
	results map[string][]SearchResult
}

// NewStaticSearchProvider returns an empty provider.
func NewStaticSearchProvider() *StaticSearchProvider {
	return &StaticSearchProvider{results: map[string][]SearchResult{}}
}

// AddResults registers canned results for queries containing the key.
func (p *StaticSearchProvider) AddResults(key string, results []SearchResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results[key] = results
}

// Search implements SearchProvider.
func (p *StaticSearchProvider) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	for key, results := range p.results {
		if strings.Contains(strings.ToLower(query), strings.ToLower(key)) {
			if limit > 0 && limit < len(results) {
				return results[:limit], nil
			}
			return results, nil
		}
	}
	return []SearchResult{}, nil
}

var _ SearchProvider = (*StaticSearchProvider)(nil)

// NewSearchWebTool returns a tool that queries the configured search provider.
func NewSearchWebTool(provider SearchProvider) Tool {
	return NewFunctionTool(
		"search_web",
		"Search the web for sources relevant to a query. Returns titles, URLs and snippets.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string", "description": "Search query"},
				"limit": map[string]any{"type": "integer", "description": "Maximum number of results", "minimum": 1, "maximum": 25},
			},
			"required": []string{"query"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			if provider == nil {
				return nil, fmt.Errorf("search provider not configured")
			}

			query := args["query"].(string)
			limit := 10
			if raw, ok := args["limit"]; ok {
				limit = int(toFloat(raw))
			}

			results, err := provider.Search(tc.Context(), query, limit)
			if err != nil {
				return nil, fmt.Errorf("search %q: %w", query, err)
			}

			out := make([]map[string]any, 0, len(results))
			for _, r := range results {
				out = append(out, map[string]any{
					"title":   r.Title,
					"url":     r.URL,
					"snippet": r.Snippet,
				})
			}

			return map[string]any{"query": query, "results": out}, nil
		},
	)
}
