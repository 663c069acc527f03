package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/researchmesh/citation"
	"github.com/researchmesh/researchmesh/core"
	"github.com/researchmesh/researchmesh/invoker"
	"github.com/researchmesh/researchmesh/state"
	"github.com/researchmesh/researchmesh/store"
)

func newTestContext(agent string, optFns ...func(o *core.ToolContextOptions)) *core.ToolContext {
	return core.NewToolContext(context.Background(), "s1", agent, "call-1", optFns...)
}

// ---- FunctionTool ----

func TestFunctionToolValidatesBeforeExecution(t *testing.T) {
	executed := false
	sum := NewFunctionTool(
		"calculate_sum",
		"Calculate the sum of two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			executed = true
			return args["a"].(float64) + args["b"].(float64), nil
		},
	)

	// Missing required field.
	_, err := sum.Call(newTestContext("analysis"), map[string]any{"a": 1.0})
	require.Error(t, err)
	assert.Equal(t, invoker.CodeValidation, invoker.CodeOf(err))
	assert.False(t, executed)

	// Wrong type.
	_, err = sum.Call(newTestContext("analysis"), map[string]any{"a": 1.0, "b": "two"})
	require.Error(t, err)
	assert.Equal(t, invoker.CodeValidation, invoker.CodeOf(err))
	assert.False(t, executed)

	out, err := sum.Call(newTestContext("analysis"), map[string]any{"a": 1.0, "b": 2.0})
	require.NoError(t, err)
	assert.Equal(t, 3.0, out)
	assert.True(t, executed)
}

func TestFunctionToolNumericBounds(t *testing.T) {
	score := NewFunctionTool(
		"score_source",
		"Record a credibility score",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"score": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			},
			"required": []string{"score"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			return args["score"], nil
		},
	)

	_, err := score.Call(newTestContext("analysis"), map[string]any{"score": 1.5})
	require.Error(t, err)
	assert.Equal(t, invoker.CodeValidation, invoker.CodeOf(err))

	out, err := score.Call(newTestContext("analysis"), map[string]any{"score": 0.73})
	require.NoError(t, err)
	assert.Equal(t, 0.73, out)
}

func TestFunctionToolErrorClassification(t *testing.T) {
	classified := NewFunctionTool("t", "d", map[string]any{"type": "object"},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			return nil, &invoker.ToolError{Code: invoker.CodeTimeout, Tool: "t"}
		})

	_, err := classified.Call(newTestContext("a"), map[string]any{})
	assert.Equal(t, invoker.CodeTimeout, invoker.CodeOf(err))

	plain := NewFunctionTool("t", "d", map[string]any{"type": "object"},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			return nil, errors.New("backend hiccup")
		})

	_, err = plain.Call(newTestContext("a"), map[string]any{})
	assert.Equal(t, invoker.CodeRemote, invoker.CodeOf(err))
}

func TestFunctionToolFromStruct(t *testing.T) {
	type rankArgs struct {
		Query string `json:"query" description:"Search query"`
		Limit *int   `json:"limit,omitempty" description:"Max results"`
	}

	rank := NewFunctionToolFromStruct("rank_results", "Rank search results", rankArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			return args["query"], nil
		})

	schema := rank.Parameters()
	props := schema["properties"].(map[string]any)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "limit")
	assert.Equal(t, []string{"query"}, schema["required"])

	_, err := rank.Call(newTestContext("search"), map[string]any{})
	assert.Equal(t, invoker.CodeValidation, invoker.CodeOf(err))
}

// ---- handoff_to_agent ----

func TestHandoffTool(t *testing.T) {
	handoff := NewHandoffToAgentTool()
	tc := newTestContext("coordinator")

	out, err := handoff.Call(tc, map[string]any{"agent": "search"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"handoff": true, "agent": "search"}, out)

	target, ok := tc.HandoffTarget()
	require.True(t, ok)
	assert.Equal(t, "search", target)

	_, err = handoff.Call(newTestContext("coordinator"), map[string]any{"agent": ""})
	assert.Error(t, err)
	_, err = handoff.Call(newTestContext("coordinator"), map[string]any{})
	assert.Error(t, err)
}

// ---- context variable tools ----

func TestSetAndGetVariableTools(t *testing.T) {
	vars := state.NewInMemoryStore()
	withVars := func(o *core.ToolContextOptions) { o.Vars = vars }

	setTool := NewSetVariableTool()
	getTool := NewGetVariableTool()

	out, err := setTool.Call(newTestContext("search", withVars), map[string]any{
		"key": "search.topic", "value": "quantum error correction",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"key": "search.topic", "version": 1}, out)

	// A second write goes through the bounded stale-retry path: the tool
	// re-reads the current version instead of failing.
	out, err = setTool.Call(newTestContext("analysis", withVars), map[string]any{
		"key": "search.topic", "value": "QEC codes",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.(map[string]any)["version"])

	out, err = getTool.Call(newTestContext("synthesis", withVars), map[string]any{"key": "search.topic"})
	require.NoError(t, err)
	got := out.(map[string]any)
	assert.Equal(t, true, got["exists"])
	assert.Equal(t, "QEC codes", got["value"])
	assert.Equal(t, "analysis", got["writer"])

	out, err = getTool.Call(newTestContext("synthesis", withVars), map[string]any{"key": "missing"})
	require.NoError(t, err)
	assert.Equal(t, false, out.(map[string]any)["exists"])
}

// ---- citation tools ----

func TestRecordAndQueryCitationTools(t *testing.T) {
	ledger := citation.NewInMemoryLedger()
	withLedger := func(o *core.ToolContextOptions) { o.Ledger = ledger }

	record := NewRecordCitationTool()
	query := NewQueryCitationsTool()

	out, err := record.Call(newTestContext("search", withLedger), map[string]any{
		"source": "https://arxiv.org/abs/2401.00001",
		"score":  0.73,
		"claims": []any{"claim-1"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.(map[string]any)["citationId"])

	// Score outside [0,1] is rejected by schema validation before dispatch.
	_, err = record.Call(newTestContext("search", withLedger), map[string]any{
		"source": "https://example.com", "score": 1.2,
	})
	assert.Equal(t, invoker.CodeValidation, invoker.CodeOf(err))

	out, err = query.Call(newTestContext("validation", withLedger), map[string]any{"claim": "claim-1"})
	require.NoError(t, err)
	citations := out.(map[string]any)["citations"].([]map[string]any)
	require.Len(t, citations, 1)
	assert.Equal(t, 0.73, citations[0]["score"])
	assert.Equal(t, "search", citations[0]["agent"])
}

// ---- search_web ----

func TestSearchWebTool(t *testing.T) {
	provider := NewStaticSearchProvider()
	provider.AddResults("quantum", []SearchResult{
		{Title: "Surface codes", URL: "https://arxiv.org/abs/1208.0928", Snippet: "Surface codes for QEC"},
		{Title: "LDPC codes", URL: "https://arxiv.org/abs/2103.06309", Snippet: "Quantum LDPC codes"},
	})

	search := NewSearchWebTool(provider)

	out, err := search.Call(newTestContext("search"), map[string]any{"query": "quantum error correction"})
	require.NoError(t, err)
	results := out.(map[string]any)["results"].([]map[string]any)
	assert.Len(t, results, 2)

	out, err = search.Call(newTestContext("search"), map[string]any{"query": "quantum", "limit": 1})
	require.NoError(t, err)
	assert.Len(t, out.(map[string]any)["results"].([]map[string]any), 1)

	out, err = search.Call(newTestContext("search"), map[string]any{"query": "unrelated"})
	require.NoError(t, err)
	assert.Empty(t, out.(map[string]any)["results"].([]map[string]any))
}

// ---- fetch_page ----

func TestFetchPageTool(t *testing.T) {
	fetcher := NewStaticFetcher()
	fetcher.AddPage("https://example.com/paper", []byte("<html>paper</html>"))
	documents := store.NewInMemoryDocumentStore()
	withDocs := func(o *core.ToolContextOptions) { o.Documents = documents }

	fetch := NewFetchPageTool(fetcher)

	out, err := fetch.Call(newTestContext("search", withDocs), map[string]any{"url": "https://example.com/paper"})
	require.NoError(t, err)
	result := out.(map[string]any)
	assert.Equal(t, 18, result["bytes"])

	docID := result["documentId"].(string)
	data, err := documents.Get("s1", docID)
	require.NoError(t, err)
	assert.Equal(t, []byte("<html>paper</html>"), data)

	_, err = fetch.Call(newTestContext("search", withDocs), map[string]any{"url": "https://example.com/404"})
	assert.Error(t, err)
}
