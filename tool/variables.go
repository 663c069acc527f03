package tool

import (
	"errors"
	"fmt"

	"github.com/researchmesh/researchmesh/core"
)

// setVariableRetries bounds the re-read/retry loop on stale writes. A writer
// losing this many races in a row indicates pathological contention.
const setVariableRetries = 3

// NewSetVariableTool returns a tool that writes a shared context variable
// through the store's compare-and-write, retrying a bounded number of times
// when the observed version went stale.
func NewSetVariableTool() Tool {
	return NewFunctionTool(
		"set_variable",
		"Store a value in the shared research context so later agents can use it. Keys may be namespaced by capability, e.g. 'search.topic'.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"key":   map[string]any{"type": "string", "description": "Variable name, optionally namespaced 'capability.key'"},
				"value": map[string]any{"description": "Value to store (any JSON shape)"},
			},
			"required": []string{"key", "value"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			key := args["key"].(string)
			value := args["value"]

			var lastErr error
			for i := 0; i < setVariableRetries; i++ {
				current, _, err := tc.GetVariable(key)
				if err != nil {
					return nil, err
				}

				entry, err := tc.SetVariable(key, value, current.Version)
				if err == nil {
					return map[string]any{"key": key, "version": entry.Version}, nil
				}
				if !errors.Is(err, core.ErrStaleWrite) {
					return nil, err
				}
				lastErr = err
			}

			return nil, fmt.Errorf("set_variable %q: %w", key, lastErr)
		},
	)
}

// NewGetVariableTool returns a tool that reads a shared context variable.
func NewGetVariableTool() Tool {
	return NewFunctionTool(
		"get_variable",
		"Read a value from the shared research context.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"key": map[string]any{"type": "string", "description": "Variable name"},
			},
			"required": []string{"key"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			key := args["key"].(string)

			entry, ok, err := tc.GetVariable(key)
			if err != nil {
				return nil, err
			}
			if !ok {
				return map[string]any{"key": key, "exists": false}, nil
			}

			return map[string]any{
				"key":     key,
				"exists":  true,
				"value":   entry.Value,
				"version": entry.Version,
				"writer":  entry.Writer,
			}, nil
		},
	)
}
