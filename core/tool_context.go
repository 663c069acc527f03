package core

import (
	"context"
	"fmt"

	"github.com/researchmesh/researchmesh/logging"
)

// ToolContext provides a constrained, auditable surface for tool / function
// implementations invoked by an agent. Tools read and write context variables,
// record citations, store fetched documents, and may request a handoff; the
// turn executor inspects the accumulated handoff request after the call.
type ToolContext struct {
	ctx       context.Context
	sessionID string
	agent     string
	callID    string
	vars      ContextStore
	ledger    Ledger
	documents DocumentStore
	logger    logging.Logger

	handoffTarget *string
}

// ToolContextOptions configures the collaborators available to a tool.
type ToolContextOptions struct {
	Vars      ContextStore
	Ledger    Ledger
	Documents DocumentStore
	Logger    logging.Logger
}

// NewToolContext constructs a tool context bound to a session, acting agent
// and unique function call ID.
func NewToolContext(ctx context.Context, sessionID, agent, callID string, optFns ...func(o *ToolContextOptions)) *ToolContext {
	opts := ToolContextOptions{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &ToolContext{
		ctx:       ctx,
		sessionID: sessionID,
		agent:     agent,
		callID:    callID,
		vars:      opts.Vars,
		ledger:    opts.Ledger,
		documents: opts.Documents,
		logger:    opts.Logger,
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// SessionID returns the session ID associated with the tool invocation.
func (tc *ToolContext) SessionID() string { return tc.sessionID }

// Agent returns the acting agent name.
func (tc *ToolContext) Agent() string { return tc.agent }

// CallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) CallID() string { return tc.callID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }

// GetVariable retrieves the context variable entry for the given key.
func (tc *ToolContext) GetVariable(key string) (VarEntry, bool, error) {
	if tc.vars == nil {
		return VarEntry{}, false, fmt.Errorf("context store not configured")
	}

	entry, ok := tc.vars.Get(tc.sessionID, key)

	return entry, ok, nil
}

// SetVariable performs a compare-and-write against the context store.
// expectedVersion must match the key's current version (0 for a new key).
func (tc *ToolContext) SetVariable(key string, value any, expectedVersion int) (VarEntry, error) {
	if tc.vars == nil {
		return VarEntry{}, fmt.Errorf("context store not configured")
	}

	return tc.vars.Set(tc.sessionID, key, value, tc.agent, expectedVersion)
}

// ListVariables returns all context variable entries for the session.
func (tc *ToolContext) ListVariables() ([]VarEntry, error) {
	if tc.vars == nil {
		return nil, fmt.Errorf("context store not configured")
	}

	return tc.vars.List(tc.sessionID), nil
}

// RecordCitation appends a citation to the ledger, attributing it to the
// acting agent, and returns the assigned citation ID.
func (tc *ToolContext) RecordCitation(c Citation) (string, error) {
	if tc.ledger == nil {
		return "", fmt.Errorf("citation ledger not configured")
	}

	c.Agent = tc.agent

	return tc.ledger.Record(tc.sessionID, c)
}

// QueryChain returns the citations supporting a claim, ordered by retrieval
// timestamp.
func (tc *ToolContext) QueryChain(claimID string) ([]Citation, error) {
	if tc.ledger == nil {
		return nil, fmt.Errorf("citation ledger not configured")
	}

	return tc.ledger.QueryChain(tc.sessionID, claimID)
}

// SaveDocument persists fetched document bytes for the session.
func (tc *ToolContext) SaveDocument(id string, data []byte) error {
	if tc.documents == nil {
		return fmt.Errorf("document store not configured")
	}

	return tc.documents.Save(tc.sessionID, id, data)
}

// LoadDocument retrieves a persisted document by id.
func (tc *ToolContext) LoadDocument(id string) ([]byte, error) {
	if tc.documents == nil {
		return nil, fmt.Errorf("document store not configured")
	}

	return tc.documents.Get(tc.sessionID, id)
}

// ListDocuments returns document IDs stored for the session.
func (tc *ToolContext) ListDocuments() ([]string, error) {
	if tc.documents == nil {
		return nil, fmt.Errorf("document store not configured")
	}

	return tc.documents.List(tc.sessionID)
}

// RequestHandoff signals that the session should transfer to another agent.
// The executor validates the target against the registry and the acting
// agent's permitted set before honoring it.
func (tc *ToolContext) RequestHandoff(target string) {
	tc.handoffTarget = &target
	tc.logger.Info("handoff requested", "from_agent", tc.agent, "to_agent", target, "call_id", tc.callID)
}

// HandoffTarget returns the requested handoff target, if any.
func (tc *ToolContext) HandoffTarget() (string, bool) {
	if tc.handoffTarget == nil {
		return "", false
	}

	return *tc.handoffTarget, true
}

// IsValid reports whether the context is structurally usable.
func (tc *ToolContext) IsValid() bool {
	return tc.sessionID != "" && tc.callID != ""
}
