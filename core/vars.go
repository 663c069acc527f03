package core

import "errors"

// ErrStaleWrite is returned by compare-and-write when the caller's observed
// version is no longer current. The writer must re-read and retry.
var ErrStaleWrite = errors.New("stale write: observed version is no longer current")

// VarEntry is a shared, versioned key/value entry visible to all agents in a
// session. Versions are strictly increasing per key.
type VarEntry struct {
	Key     string `json:"key"`
	Value   any    `json:"value"`
	Writer  string `json:"writer"`  // Last-writer agent name
	Version int    `json:"version"` // Starts at 1 on first write
}

// ContextStore holds shared mutable session state with per-key versioning.
//
// Set is a compare-and-write: expectedVersion must equal the current version
// of the key (0 for a key that does not exist yet) or the write fails with
// ErrStaleWrite. This detects lost updates if tool callbacks are ever
// dispatched concurrently.
type ContextStore interface {
	Get(sessionID, key string) (VarEntry, bool)
	Set(sessionID, key string, value any, writer string, expectedVersion int) (VarEntry, error)
	List(sessionID string) []VarEntry
}
