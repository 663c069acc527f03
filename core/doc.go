// Package core contains the shared domain types of ResearchMesh: sessions and
// turns, role-based content parts, versioned context variables, citations,
// tool call records, transition events, and the ToolContext handed to tool
// implementations. Higher level packages (orchestrator, executor, invoker,
// registry) depend on core; core depends on nothing above logging.
package core
