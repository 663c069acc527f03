package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchmesh/researchmesh/core"
)

func TestScriptedModelReturnsInOrder(t *testing.T) {
	m := NewScriptedModel("test")
	m.EnqueueReply("first")
	m.EnqueueToolCall("call-1", "search_web", `{"query":"qec"}`)

	resp, err := m.Complete(context.Background(), Request{Instructions: "be helpful"})
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Content.Text())
	assert.Equal(t, "stop", resp.FinishReason)

	resp, err = m.Complete(context.Background(), Request{})
	require.NoError(t, err)
	call, ok := resp.Content.FirstFunctionCall()
	require.True(t, ok)
	assert.Equal(t, "search_web", call.Name)
	assert.Equal(t, "tool_calls", resp.FinishReason)

	// Script exhausted.
	_, err = m.Complete(context.Background(), Request{})
	assert.Error(t, err)

	assert.Equal(t, 3, m.Calls())
	reqs := m.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "be helpful", reqs[0].Instructions)
}

func TestScriptedModelHonorsCancellation(t *testing.T) {
	m := NewScriptedModel("test")
	m.EnqueueReply("never seen")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Complete(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, m.Calls())
}

func TestContentHelpers(t *testing.T) {
	c := core.Content{Role: "assistant", Parts: []core.Part{
		core.TextPart{Text: "a"},
		core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "1", Name: "x"}},
		core.TextPart{Text: "b"},
	}}
	assert.Equal(t, "ab", c.Text())
	assert.Len(t, c.FunctionCalls(), 1)
}
