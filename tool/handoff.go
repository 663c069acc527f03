package tool

import (
	"fmt"

	"github.com/researchmesh/researchmesh/core"
)

// HandoffToolName is intercepted by the turn executor; the handoff request is
// validated against the registry instead of being dispatched externally.
const HandoffToolName = "handoff_to_agent"

// handoffToAgentTool requests transfer of the session to a named agent.
type handoffToAgentTool struct{}

// NewHandoffToAgentTool constructs the handoff tool instance.
func NewHandoffToAgentTool() Tool { return &handoffToAgentTool{} }

func (t *handoffToAgentTool) Name() string { return HandoffToolName }

func (t *handoffToAgentTool) Description() string {
	return "Hand the research session off to another agent by name. Use when another agent is better suited for the next step."
}

func (t *handoffToAgentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"agent": map[string]any{"type": "string", "description": "Target agent name"},
		},
		"required": []string{"agent"},
	}
}

func (t *handoffToAgentTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	raw, ok := args["agent"]
	if !ok {
		return nil, fmt.Errorf("missing required field 'agent'")
	}
	agentName, ok := raw.(string)
	if !ok || agentName == "" {
		return nil, fmt.Errorf("field 'agent' must be non-empty string")
	}
	tc.RequestHandoff(agentName)
	return map[string]any{"handoff": true, "agent": agentName}, nil
}
