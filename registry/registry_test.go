package registry

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/researchmesh/core"
	"github.com/researchmesh/researchmesh/tool"
)

func noopTool(name string) tool.Tool {
	return tool.NewFunctionTool(name, "test tool", map[string]any{"type": "object"},
		func(tc *core.ToolContext, args map[string]any) (any, error) { return nil, nil })
}

func testDefs() []Definition {
	return []Definition{
		{Name: "coordinator", Instructions: "Plan the research.", HandoffTargets: []string{"search"}},
		{Name: "search", Instructions: "Find sources.", Capabilities: []string{"search"},
			Tools: []string{"search_web"}, HandoffTargets: []string{"synthesis"}},
		{Name: "synthesis", Instructions: "Write the answer.", Terminal: true},
	}
}

func TestNewValidRegistry(t *testing.T) {
	r, err := New(testDefs(), []tool.Tool{noopTool("search_web")})
	require.NoError(t, err)

	def, err := r.Resolve("search")
	require.NoError(t, err)
	assert.True(t, def.MayHandoffTo("synthesis"))
	assert.False(t, def.MayHandoffTo("coordinator"))
	assert.True(t, def.MayUseTool("search_web"))
	assert.False(t, def.MayUseTool("fetch_page"))

	_, err = r.Resolve("unknown")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{"coordinator", "search", "synthesis"}, r.Names())

	tools := r.ToolsFor(def)
	require.Len(t, tools, 1)
	assert.Equal(t, "search_web", tools[0].Name())

	// The handoff tool is always available.
	_, ok := r.Tool(tool.HandoffToolName)
	assert.True(t, ok)
}

func TestNewFailsFastOnDanglingHandoffTarget(t *testing.T) {
	defs := testDefs()
	defs[0].HandoffTargets = []string{"search", "reviewer"} // reviewer undefined

	_, err := New(defs, []tool.Tool{noopTool("search_web")})
	require.Error(t, err)

	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "coordinator", ce.Agent)
	assert.Contains(t, ce.Reason, "reviewer")
}

func TestNewFailsFastOnUnresolvedTool(t *testing.T) {
	_, err := New(testDefs(), nil) // search_web never registered
	require.Error(t, err)

	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "search", ce.Agent)
}

func TestNewRejectsDuplicates(t *testing.T) {
	defs := append(testDefs(), Definition{Name: "search"})
	_, err := New(defs, []tool.Tool{noopTool("search_web")})
	assert.Error(t, err)

	_, err = New(testDefs(), []tool.Tool{noopTool("search_web"), noopTool("search_web")})
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(strings.NewReader(`
stepLimit: 12
rateLimitPerTool: 30
retryMaxAttempts: 3
retryBaseDelay: 200ms
retryMaxDelay: 5s
circuitFailureThreshold: 5
circuitCooldown: 30s
toolCallTimeout: 20s
modelCallTimeout: 60s
agents:
  - name: coordinator
    instructions: Plan the research.
    handoffTargets: [search]
  - name: search
    instructions: Find sources.
    capabilities: [search]
    tools: [search_web]
    terminal: true
`))
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.StepLimit)
	assert.Equal(t, 30.0, cfg.RateLimitPerTool)
	assert.Equal(t, "200ms", cfg.RetryBaseDelay.Std().String())
	assert.Equal(t, "30s", cfg.CircuitCooldown.Std().String())
	require.Len(t, cfg.Agents, 2)
	assert.Equal(t, []string{"search"}, cfg.Agents[0].HandoffTargets)
	assert.True(t, cfg.Agents[1].Terminal)
}

func TestLoadConfigRejectsEmptyAgents(t *testing.T) {
	_, err := LoadConfig(strings.NewReader("stepLimit: 5\n"))
	require.Error(t, err)

	var ce *ConfigurationError
	assert.ErrorAs(t, err, &ce)
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	_, err := LoadConfig(strings.NewReader(`
retryBaseDelay: soon
agents:
  - name: a
    instructions: x
`))
	assert.Error(t, err)
}
