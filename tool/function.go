package tool

import (
	"errors"
	"time"

	"github.com/researchmesh/researchmesh/core"
	"github.com/researchmesh/researchmesh/internal/util"
	"github.com/researchmesh/researchmesh/invoker"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a tool.
//
// Responsibilities:
//   - Holds a lightweight JSON-Schema-like parameter specification
//   - Validates model supplied arguments against that schema before execution
//   - Invokes the wrapped function with a *core.ToolContext giving access to
//     context variables, the citation ledger, documents and handoff signaling
//   - Normalizes error handling so callers receive *invoker.ToolError with
//     consistent codes: validation failures map to CodeValidation, other
//     failures to CodeRemote (codes the function reports itself pass through)
//
// Concurrency: a FunctionTool has no internal mutable state after
// construction and is safe for concurrent use by multiple goroutines.
type FunctionTool struct {
	// Tool identifier (snake_case recommended)
	name string
	// Human-readable description shown to models
	description string
	// JSON schema describing accepted arguments
	parameters map[string]any
	// User supplied implementation
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	sumTool := NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct using
// reflection. It is a convenience for simple argument containers and produces
// a schema equivalent to util.CreateSchema(structType).
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *FunctionTool {
	schema := util.CreateSchema(structType)
	return NewFunctionTool(name, description, schema, fn)
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the (minimal) JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates the provided args against the declared schema then invokes
// the underlying function.
//
// Error semantics:
//
//	*invoker.ToolError (returned directly) -> forwarded unchanged
//	validation failure                     -> CodeValidation
//	other error                            -> CodeRemote
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool call start", "tool", t.name, "call_id", toolCtx.CallID())

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		logger.Warn("tool call validation failed", "tool", t.name, "error", err.Error())

		return nil, &invoker.ToolError{
			Code:    invoker.CodeValidation,
			Tool:    t.name,
			Message: "parameter validation failed",
			Err:     err,
		}
	}

	result, err := t.fn(toolCtx, args)
	if err != nil {
		var toolErr *invoker.ToolError
		if errors.As(err, &toolErr) { // Already classified -> just log and forward
			logger.Error("tool call error", "tool", t.name, "error", toolErr.Error())

			return nil, toolErr
		}

		logger.Error("tool call error", "tool", t.name, "error", err.Error())

		return nil, &invoker.ToolError{
			Code: invoker.CodeRemote,
			Tool: t.name,
			Err:  err,
		}
	}

	logger.Info("tool call success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}

var _ Tool = (*FunctionTool)(nil)
