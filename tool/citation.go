package tool

import (
	"github.com/researchmesh/researchmesh/core"
)

// NewRecordCitationTool returns a tool that appends a citation to the ledger.
// The credibility score is whatever the caller's scoring policy produced; the
// ledger only checks it lies in [0,1].
func NewRecordCitationTool() Tool {
	return NewFunctionTool(
		"record_citation",
		"Record the provenance of a claim: the source it came from, its credibility score, and the claim identifiers it supports.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"source": map[string]any{"type": "string", "description": "Source identifier (URL, DOI, ...)"},
				"score":  map[string]any{"type": "number", "description": "Credibility score in [0,1]", "minimum": 0, "maximum": 1},
				"claims": map[string]any{"type": "array", "description": "Claim identifiers this source supports"},
			},
			"required": []string{"source", "score"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			citation := core.Citation{
				Source: args["source"].(string),
				Score:  toFloat(args["score"]),
			}
			if raw, ok := args["claims"].([]any); ok {
				for _, c := range raw {
					if s, ok := c.(string); ok {
						citation.Claims = append(citation.Claims, s)
					}
				}
			}

			id, err := tc.RecordCitation(citation)
			if err != nil {
				return nil, err
			}

			return map[string]any{"citationId": id}, nil
		},
	)
}

// NewQueryCitationsTool returns a tool that retrieves the provenance chain of
// a claim, ordered by retrieval timestamp.
func NewQueryCitationsTool() Tool {
	return NewFunctionTool(
		"query_citations",
		"Retrieve the citations supporting a claim, ordered by retrieval time.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"claim": map[string]any{"type": "string", "description": "Claim identifier"},
			},
			"required": []string{"claim"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			chain, err := tc.QueryChain(args["claim"].(string))
			if err != nil {
				return nil, err
			}

			out := make([]map[string]any, 0, len(chain))
			for _, c := range chain {
				out = append(out, map[string]any{
					"citationId": c.ID,
					"source":     c.Source,
					"score":      c.Score,
					"agent":      c.Agent,
					"retrieved":  c.RetrievedAt,
				})
			}

			return map[string]any{"claim": args["claim"], "citations": out}, nil
		},
	)
}

// toFloat accepts the numeric shapes JSON decoding produces.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
