// Package state implements the Context Store: shared mutable session state
// with per-key version counters and compare-and-write semantics. Agents in a
// session share the same store; versioning detects lost updates instead of
// silently clobbering concurrent writes.
package state
