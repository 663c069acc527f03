// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities (search, page fetching, citation recording,
// context variables, handoffs) with schema validated arguments and consistent
// error classification. Built-in research tools live alongside the generic
// FunctionTool adapter.
package tool

import (
	"github.com/researchmesh/researchmesh/core"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tools are registered with agents through the agent registry; the turn
// executor validates arguments against the declared schema before dispatch
// and routes execution through the invoker's protections.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions (snake_case names)
//   - Define proper JSON schema for parameters
//   - Classify failures as *invoker.ToolError where the code matters
//   - Be thread-safe if used concurrently
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the model to help it understand when and
	// how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	// This schema is used for parameter validation and model function calling.
	Parameters() map[string]any

	// Call executes the tool with structured arguments and ToolContext.
	// Arguments are parsed from JSON and validated against the tool's schema
	// before this method runs.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}
