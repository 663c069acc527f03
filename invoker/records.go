package invoker

import (
	"sync"

	"github.com/researchmesh/researchmesh/core"
)

// Compile-time interface check.
var _ core.CallRecorder = (*InMemoryRecorder)(nil)

// InMemoryRecorder accumulates tool call records for audit queries. Safe for
// concurrent use; suited for tests and single-process deployments.
type InMemoryRecorder struct {
	mu      sync.RWMutex
	records []core.ToolCallRecord
}

// NewInMemoryRecorder returns an empty recorder.
func NewInMemoryRecorder() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Record appends a tool call record.
func (r *InMemoryRecorder) Record(rec core.ToolCallRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// All returns a snapshot of every record in insertion order.
func (r *InMemoryRecorder) All() []core.ToolCallRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ToolCallRecord, len(r.records))
	copy(out, r.records)
	return out
}

// ByTool returns the records for one tool in insertion order.
func (r *InMemoryRecorder) ByTool(tool string) []core.ToolCallRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.ToolCallRecord
	for _, rec := range r.records {
		if rec.Tool == tool {
			out = append(out, rec)
		}
	}
	return out
}

// BySession returns the records for one session in insertion order.
func (r *InMemoryRecorder) BySession(sessionID string) []core.ToolCallRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.ToolCallRecord
	for _, rec := range r.records {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	return out
}
