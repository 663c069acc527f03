package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/researchmesh/researchmesh/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input produced by the turn executor.
// Instructions carry the effective system prompt; History is the prior
// conversation converted to provider messages.
type Request struct {
	Instructions string           `json:"instructions"`
	History      []core.Content   `json:"history"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the final completion returned by a model. Content carries text
// parts and, when the model requests a tool, function call parts.
type Response struct {
	ID           string       `json:"id"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "scripted", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive one turn of generation.
// The call is synchronous; the invoker applies deadlines and retries around it.
type Model interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// ScriptedModel returns pre-enqueued responses in order. Useful for tests and
// examples where turn outcomes must be deterministic.
type ScriptedModel struct {
	mu        sync.Mutex
	info      Info
	responses []core.Content
	requests  []Request
}

// NewScriptedModel constructs an empty ScriptedModel.
func NewScriptedModel(name string) *ScriptedModel {
	return &ScriptedModel{
		info: Info{Name: name, Provider: "scripted", SupportsTools: true},
	}
}

// EnqueueReply scripts a plain text assistant reply.
func (m *ScriptedModel) EnqueueReply(text string) {
	m.enqueue(core.NewAssistantContent(text))
}

// EnqueueToolCall scripts an assistant response requesting a tool call.
func (m *ScriptedModel) EnqueueToolCall(id, name, arguments string) {
	m.enqueue(core.Content{
		Role: "assistant",
		Parts: []core.Part{core.FunctionCallPart{FunctionCall: core.FunctionCall{
			ID:        id,
			Name:      name,
			Arguments: arguments,
		}}},
	})
}

// EnqueueContent scripts an arbitrary assistant content response.
func (m *ScriptedModel) EnqueueContent(c core.Content) { m.enqueue(c) }

func (m *ScriptedModel) enqueue(c core.Content) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, c)
}

// Complete implements Model; it pops the next scripted response. Running out
// of script is an error so tests fail loudly instead of looping.
func (m *ScriptedModel) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if len(m.responses) == 0 {
		return nil, fmt.Errorf("scripted model exhausted after %d calls", len(m.requests))
	}

	next := m.responses[0]
	m.responses = m.responses[1:]

	finish := "stop"
	if _, ok := next.FirstFunctionCall(); ok {
		finish = "tool_calls"
	}

	return &Response{Content: next, FinishReason: finish}, nil
}

// Calls returns how many completions were requested.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a snapshot of the requests seen, in order.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Info implements Model interface.
func (m *ScriptedModel) Info() Info { return m.info }

var _ Model = (*ScriptedModel)(nil)
