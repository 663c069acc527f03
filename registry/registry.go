package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/researchmesh/researchmesh/tool"
)

// ErrNotFound is returned by Resolve for unknown agent names.
var ErrNotFound = errors.New("agent not found")

// ConfigurationError reports an agent graph that cannot be registered:
// duplicate names, dangling handoff targets, or unresolved tool names.
type ConfigurationError struct {
	Agent  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Agent != "" {
		return fmt.Sprintf("configuration error for agent %q: %s", e.Agent, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// Definition is an immutable agent description. Registered once at startup;
// no runtime mutation.
type Definition struct {
	// Name is the unique agent key used for routing and handoffs.
	Name string `yaml:"name" json:"name"`
	// Instructions is the agent's system prompt. May contain template
	// markers expanded against injected context variables.
	Instructions string `yaml:"instructions" json:"instructions"`
	// Capabilities are tags matched against namespaced context variable
	// keys when building effective instructions.
	Capabilities []string `yaml:"capabilities" json:"capabilities"`
	// Tools lists the tool names this agent may call.
	Tools []string `yaml:"tools" json:"tools"`
	// HandoffTargets lists the agent names this agent may hand off to.
	HandoffTargets []string `yaml:"handoffTargets" json:"handoffTargets"`
	// Terminal marks agents whose final reply completes the session.
	Terminal bool `yaml:"terminal" json:"terminal"`
}

// MayHandoffTo reports whether target is in the permitted handoff set.
func (d Definition) MayHandoffTo(target string) bool {
	for _, t := range d.HandoffTargets {
		if t == target {
			return true
		}
	}
	return false
}

// MayUseTool reports whether the tool name is in the allowed set.
func (d Definition) MayUseTool(name string) bool {
	for _, t := range d.Tools {
		if t == name {
			return true
		}
	}
	return false
}

// Registry is the static agent lookup. Construction validates the whole
// agent graph; afterwards the registry is read-only and safe for concurrent
// use without locking.
type Registry struct {
	agents map[string]Definition
	tools  map[string]tool.Tool
}

// New builds a Registry from agent definitions and tool instances.
// The built-in handoff tool is always registered; definitions do not list it.
// Construction fails with *ConfigurationError when any declared handoff
// target or tool name does not resolve.
func New(defs []Definition, tools []tool.Tool) (*Registry, error) {
	r := &Registry{
		agents: make(map[string]Definition, len(defs)),
		tools:  make(map[string]tool.Tool, len(tools)+1),
	}

	handoff := tool.NewHandoffToAgentTool()
	r.tools[handoff.Name()] = handoff

	for _, t := range tools {
		if _, exists := r.tools[t.Name()]; exists {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("duplicate tool name %q", t.Name())}
		}
		r.tools[t.Name()] = t
	}

	for _, def := range defs {
		if def.Name == "" {
			return nil, &ConfigurationError{Reason: "agent with empty name"}
		}
		if _, exists := r.agents[def.Name]; exists {
			return nil, &ConfigurationError{Agent: def.Name, Reason: "duplicate agent name"}
		}
		r.agents[def.Name] = def
	}

	// Validate the graph only after all names are known.
	for _, def := range defs {
		for _, target := range def.HandoffTargets {
			if _, ok := r.agents[target]; !ok {
				return nil, &ConfigurationError{Agent: def.Name,
					Reason: fmt.Sprintf("handoff target %q does not resolve", target)}
			}
		}
		for _, name := range def.Tools {
			if _, ok := r.tools[name]; !ok {
				return nil, &ConfigurationError{Agent: def.Name,
					Reason: fmt.Sprintf("tool %q does not resolve", name)}
			}
		}
	}

	return r, nil
}

// Resolve returns the definition for an agent name.
func (r *Registry) Resolve(name string) (Definition, error) {
	def, ok := r.agents[name]
	if !ok {
		return Definition{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return def, nil
}

// Tool returns the registered tool instance for a name.
func (r *Registry) Tool(name string) (tool.Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// ToolsFor returns the tool instances an agent may call, in declaration order.
func (r *Registry) ToolsFor(def Definition) []tool.Tool {
	out := make([]tool.Tool, 0, len(def.Tools))
	for _, name := range def.Tools {
		if t, ok := r.tools[name]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Names returns the registered agent names sorted alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
