package researchmesh

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/researchmesh/core"
	"github.com/researchmesh/researchmesh/invoker"
	"github.com/researchmesh/researchmesh/model"
	"github.com/researchmesh/researchmesh/orchestrator"
	"github.com/researchmesh/researchmesh/registry"
	"github.com/researchmesh/researchmesh/tool"
)

func demoAgents() []registry.Definition {
	return []registry.Definition{
		{Name: "coordinator", Instructions: "Plan.", HandoffTargets: []string{"search"}},
		{Name: "search", Instructions: "Search.", Capabilities: []string{"search"},
			Tools: []string{"search_web"}, HandoffTargets: []string{"synthesis"}},
		{Name: "synthesis", Instructions: "Answer.", Terminal: true},
	}
}

func TestRunDrivesPipelineEndToEnd(t *testing.T) {
	provider := tool.NewStaticSearchProvider()
	provider.AddResults("go", []tool.SearchResult{
		{Title: "The Go Blog", URL: "https://go.dev/blog", Snippet: "Articles about Go."},
	})

	mdl := model.NewScriptedModel("test")
	mdl.EnqueueToolCall("c1", tool.HandoffToolName, `{"agent":"search"}`)
	mdl.EnqueueToolCall("c2", "search_web", `{"query":"go concurrency"}`)
	mdl.EnqueueToolCall("c3", tool.HandoffToolName, `{"agent":"synthesis"}`)
	mdl.EnqueueReply("Goroutines and channels.")

	recorder := invoker.NewInMemoryRecorder()

	mesh, err := New(mdl, demoAgents(), []tool.Tool{tool.NewSearchWebTool(provider)}, func(o *Options) {
		o.StepLimit = 8
		o.Recorder = recorder
	})
	require.NoError(t, err)

	report, err := mesh.Run(context.Background(), orchestrator.Request{
		Query:        "How does Go do concurrency?",
		InitialAgent: "coordinator",
	})
	require.NoError(t, err)

	assert.Equal(t, core.StatusCompleted, report.Status)
	assert.Equal(t, "Goroutines and channels.", report.Reply)
	require.Len(t, report.Turns, 3)

	// Every model and tool invocation went through the invoker.
	assert.NotEmpty(t, recorder.ByTool("model"))
	assert.Len(t, recorder.ByTool("search_web"), 1)

	status, err := mesh.Status(report.SessionID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, status)

	result, err := mesh.Result(report.SessionID)
	require.NoError(t, err)
	assert.Equal(t, report.Reply, result.Reply)
}

func TestNewRejectsBrokenAgentGraph(t *testing.T) {
	agents := demoAgents()
	agents[0].HandoffTargets = []string{"reviewer"} // undefined

	_, err := New(model.NewScriptedModel("test"), agents, []tool.Tool{
		tool.NewSearchWebTool(tool.NewStaticSearchProvider()),
	})
	require.Error(t, err)

	var ce *registry.ConfigurationError
	assert.ErrorAs(t, err, &ce)
}

func TestNewFromConfig(t *testing.T) {
	cfg, err := registry.LoadConfig(strings.NewReader(`
stepLimit: 2
retryMaxAttempts: 1
agents:
  - name: solo
    instructions: Answer directly.
    terminal: true
`))
	require.NoError(t, err)

	mdl := model.NewScriptedModel("test")
	mdl.EnqueueReply("done")

	mesh, err := NewFromConfig(mdl, cfg, nil)
	require.NoError(t, err)

	report, err := mesh.Run(context.Background(), orchestrator.Request{
		Query:        "q",
		InitialAgent: "solo",
	})
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, report.Status)
}
