package core

import (
	"fmt"
	"sync"
	"time"
)

// Status enumerates the session state machine states. The active agent name
// accompanies StatusActive on the Session itself.
type Status string

const (
	// StatusCreated is a session accepted but not yet driving turns.
	StatusCreated Status = "created"
	// StatusActive is a session with exactly one active agent.
	StatusActive Status = "active"
	// StatusCompleted is a terminal success state.
	StatusCompleted Status = "completed"
	// StatusFailed is a terminal failure state with a reason code.
	StatusFailed Status = "failed"
	// StatusAborted is a terminal state reached through cancellation.
	StatusAborted Status = "aborted"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusAborted
}

// Session is a research run: an ordered sequence of turns driven by exactly
// one active agent at a time. It is safe for concurrent access.
//
// Contract:
//   - Turns append in strictly increasing gap-free sequence order
//   - Once a terminal status is reached the session never transitions again
//   - Steps never exceeds StepLimit (the orchestrator checks before each turn)
//   - Mutations update the Updated timestamp.
type Session struct {
	ID          string    `json:"id"`
	Query       string    `json:"query"`
	ActiveAgent string    `json:"activeAgent"`
	Status      Status    `json:"status"`
	Turns       []Turn    `json:"turns"`
	Steps       int       `json:"steps"`
	StepLimit   int       `json:"stepLimit"`
	FinalReply  string    `json:"finalReply,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
	mu          sync.RWMutex
}

// NewSession creates a session in StatusCreated for the given query.
func NewSession(id, query, initialAgent string, stepLimit int) *Session {
	now := time.Now()
	return &Session{
		ID:          id,
		Query:       query,
		ActiveAgent: initialAgent,
		Status:      StatusCreated,
		Turns:       []Turn{},
		StepLimit:   stepLimit,
		Created:     now,
		Updated:     now,
	}
}

// CurrentStatus returns the status under lock.
func (s *Session) CurrentStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// CurrentAgent returns the active agent name under lock.
func (s *Session) CurrentAgent() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ActiveAgent
}

// StepCount returns the number of executed turns.
func (s *Session) StepCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Steps
}

// NextSeq returns the sequence number the next turn must carry.
func (s *Session) NextSeq() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Turns) + 1
}

// AppendTurn records a completed turn and advances the step counter.
// The turn's sequence number must be exactly one past the last recorded turn.
func (s *Session) AppendTurn(t Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if want := len(s.Turns) + 1; t.Seq != want {
		return fmt.Errorf("turn sequence violation: got %d, want %d", t.Seq, want)
	}
	s.Turns = append(s.Turns, t)
	s.Steps++
	s.Updated = time.Now()
	return nil
}

// Activate transitions the session into StatusActive with the given agent.
// It is also used to record a handoff while already active.
func (s *Session) Activate(agent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status.Terminal() {
		return fmt.Errorf("session %s is %s", s.ID, s.Status)
	}
	s.Status = StatusActive
	s.ActiveAgent = agent
	s.Updated = time.Now()
	return nil
}

// Complete transitions the session to StatusCompleted with the final reply.
func (s *Session) Complete(reply string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status.Terminal() {
		return fmt.Errorf("session %s is %s", s.ID, s.Status)
	}
	s.Status = StatusCompleted
	s.FinalReply = reply
	s.Updated = time.Now()
	return nil
}

// Fail transitions the session to StatusFailed with a reason code.
func (s *Session) Fail(reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status.Terminal() {
		return fmt.Errorf("session %s is %s", s.ID, s.Status)
	}
	s.Status = StatusFailed
	s.Reason = reason
	s.Updated = time.Now()
	return nil
}

// Abort transitions the session to StatusAborted. Aborting an already
// terminal session is a no-op so that cancellation stays idempotent.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status.Terminal() {
		return
	}
	s.Status = StatusAborted
	s.Reason = ReasonCanceled
	s.Updated = time.Now()
}

// GetTurns returns a defensive copy of the recorded turns.
func (s *Session) GetTurns() []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := make([]Turn, len(s.Turns))
	copy(turns, s.Turns)
	return turns
}

// LastTurn returns the most recently recorded turn, if any.
func (s *Session) LastTurn() (Turn, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.Turns) == 0 {
		return Turn{}, false
	}
	return s.Turns[len(s.Turns)-1], true
}

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &Session{
		ID:          s.ID,
		Query:       s.Query,
		ActiveAgent: s.ActiveAgent,
		Status:      s.Status,
		Turns:       make([]Turn, len(s.Turns)),
		Steps:       s.Steps,
		StepLimit:   s.StepLimit,
		FinalReply:  s.FinalReply,
		Reason:      s.Reason,
		Created:     s.Created,
		Updated:     s.Updated,
	}
	copy(clone.Turns, s.Turns)
	return clone
}

// SessionStore persists sessions at every state transition. Implementations
// decide the storage engine; the orchestrator only needs this contract.
type SessionStore interface {
	Create(s *Session) error
	Get(id string) (*Session, error)
	Save(s *Session) error
}
