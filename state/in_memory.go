package state

import (
	"fmt"
	"sort"
	"sync"

	"github.com/researchmesh/researchmesh/core"
)

// Compile-time interface check.
var _ core.ContextStore = (*InMemoryStore)(nil)

// InMemoryStore is a process local ContextStore implementation keeping all
// entries in a nested map guarded by an RWMutex. It is safe for concurrent
// access and best suited for tests, examples and single-process deployments.
//
// Layout: sessionID -> key -> VarEntry
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]core.VarEntry
}

// NewInMemoryStore returns an empty in-memory context store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]map[string]core.VarEntry)}
}

// Get returns the entry for the key and an existence flag.
func (s *InMemoryStore) Get(sessionID, key string) (core.VarEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.sessions[sessionID]
	if !ok {
		return core.VarEntry{}, false
	}
	entry, ok := m[key]
	return entry, ok
}

// Set performs a compare-and-write. expectedVersion must equal the key's
// current version (0 for an absent key); otherwise the write is rejected with
// core.ErrStaleWrite and the caller must re-read and retry. Versions are
// strictly increasing per key.
func (s *InMemoryStore) Set(sessionID, key string, value any, writer string, expectedVersion int) (core.VarEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.sessions[sessionID]
	if !ok {
		m = make(map[string]core.VarEntry)
		s.sessions[sessionID] = m
	}

	current := m[key] // zero value carries Version 0 for absent keys
	if current.Version != expectedVersion {
		return core.VarEntry{}, fmt.Errorf("set %q (have version %d, expected %d): %w",
			key, current.Version, expectedVersion, core.ErrStaleWrite)
	}

	entry := core.VarEntry{
		Key:     key,
		Value:   value,
		Writer:  writer,
		Version: current.Version + 1,
	}
	m[key] = entry

	return entry, nil
}

// List returns a snapshot of all entries for the session sorted by key.
func (s *InMemoryStore) List(sessionID string) []core.VarEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.sessions[sessionID]
	if !ok {
		return []core.VarEntry{}
	}
	entries := make([]core.VarEntry, 0, len(m))
	for _, e := range m {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}
