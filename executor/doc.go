// Package executor runs one agent for one conversation turn. It builds the
// agent's effective instructions from its definition and the context
// variables relevant to its capabilities, invokes the model once, dispatches
// at most one tool call through the invoker, re-invokes the model at most
// once with the tool result, and classifies the outcome as a reply, a
// handoff directive, or a turn failure. Handoff targets are validated
// against the registry and the acting agent's permitted set; invalid targets
// are downgraded to failures, never silently accepted.
package executor
