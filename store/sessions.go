package store

import (
	"fmt"
	"sync"

	"github.com/researchmesh/researchmesh/core"
)

// Compile-time interface check.
var _ core.SessionStore = (*InMemorySessionStore)(nil)

// InMemorySessionStore is a volatile SessionStore implementation storing
// session snapshots in a process local map. It is safe for concurrent access
// and best suited for tests or ephemeral demo processes. Each stored and
// returned session is cloned to prevent external mutation of internal state.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewInMemorySessionStore constructs an empty in-memory session store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]*core.Session)}
}

// Create stores a new session. Creating an existing ID is an error.
func (s *InMemorySessionStore) Create(sess *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.ID]; exists {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

// Get returns a clone of the stored session or ErrNotFound.
func (s *InMemorySessionStore) Get(id string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return sess.Clone(), nil
}

// Save stores a clone of the provided session snapshot, overwriting any
// previous snapshot for the same ID.
func (s *InMemorySessionStore) Save(sess *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return nil
}
