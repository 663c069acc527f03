package core

import "time"

// ToolCallRecord captures one invocation attempt against an external tool.
// Records feed circuit-breaker accounting and the audit trail; every attempt
// produces one regardless of outcome.
type ToolCallRecord struct {
	SessionID   string         `json:"sessionId,omitempty"`
	Tool        string         `json:"tool"`
	Params      map[string]any `json:"params,omitempty"`
	Attempt     int            `json:"attempt"` // 1-based attempt number
	ValidParams bool           `json:"validParams"`
	Success     bool           `json:"success"`
	Error       string         `json:"error,omitempty"`
	Latency     time.Duration  `json:"latency"`
	Timestamp   time.Time      `json:"timestamp"`
}

// CallRecorder receives tool call records as they are produced.
type CallRecorder interface {
	Record(rec ToolCallRecord)
}

// CallRecorderFunc adapts a function to the CallRecorder interface.
type CallRecorderFunc func(rec ToolCallRecord)

// Record calls the underlying function.
func (f CallRecorderFunc) Record(rec ToolCallRecord) { f(rec) }

var _ CallRecorder = (CallRecorderFunc)(nil)
