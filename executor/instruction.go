package executor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/researchmesh/researchmesh/core"
	"github.com/researchmesh/researchmesh/internal/util"
	"github.com/researchmesh/researchmesh/registry"
)

// relevantVars selects the context variables visible to an agent: entries
// whose key namespace ("capability.key") matches one of the agent's
// capability tags, plus un-namespaced entries visible to all.
func relevantVars(def registry.Definition, entries []core.VarEntry) []core.VarEntry {
	caps := make(map[string]bool, len(def.Capabilities))
	for _, c := range def.Capabilities {
		caps[c] = true
	}

	var out []core.VarEntry
	for _, e := range entries {
		ns, _, found := strings.Cut(e.Key, ".")
		if !found || caps[ns] {
			out = append(out, e)
		}
	}
	return out
}

// templateKey maps a variable key to its template marker name. Namespaced
// keys like "search.topic" are exposed as "search_topic" since a dot inside
// a marker parses as field access.
func templateKey(key string) string {
	return strings.ReplaceAll(key, ".", "_")
}

// buildInstructions produces the effective instruction set for a turn: the
// agent's instructions with template markers expanded against the visible
// context variables, followed by a rendered summary of those variables.
func buildInstructions(def registry.Definition, entries []core.VarEntry) (string, error) {
	visible := relevantVars(def, entries)

	data := make(map[string]any, len(visible))
	for _, e := range visible {
		data[templateKey(e.Key)] = e.Value
	}

	rendered, err := util.RenderTemplate(def.Instructions, data)
	if err != nil {
		return "", fmt.Errorf("render instructions for %s: %w", def.Name, err)
	}

	if len(visible) == 0 {
		return rendered, nil
	}

	var b strings.Builder
	b.WriteString(rendered)
	b.WriteString("\n\nShared research context:\n")
	for _, e := range visible {
		value, err := json.Marshal(e.Value)
		if err != nil {
			value = []byte(fmt.Sprintf("%q", fmt.Sprintf("%v", e.Value)))
		}
		fmt.Fprintf(&b, "- %s = %s (set by %s)\n", e.Key, value, e.Writer)
	}
	return b.String(), nil
}
