// Package orchestrator drives research sessions through their state machine.
// A session moves through created, active, and one of the terminal states
// completed, failed, or aborted. The orchestrator runs exactly one turn at a
// time per session, resolves handoff directives against the registry, guards
// against agent cycles with a step limit, retries transient turn failures
// with backoff, persists the session at every transition, and emits
// transition events for external observers. Failures are forward-only:
// recorded turns and citations are never rolled back.
package orchestrator
