// Package invoker wraps every external call (tool execution, model API) with
// the protections a research session depends on: per-tool token bucket rate
// limiting with bounded queueing, retry with capped jittered exponential
// backoff for transient failures, and a per-dependency circuit breaker. Every
// attempt produces a core.ToolCallRecord for audit and breaker accounting.
package invoker
