package citation

import (
	"sort"
	"sync"
	"time"

	"github.com/researchmesh/researchmesh/core"
	"github.com/researchmesh/researchmesh/internal/util"
)

// Compile-time interface check.
var _ core.Ledger = (*InMemoryLedger)(nil)

// InMemoryLedger is a process local Ledger implementation keeping citations in
// a per-session append-only slice with a claim index. Safe for concurrent
// access; suited for tests, examples and single-process deployments.
type InMemoryLedger struct {
	mu       sync.RWMutex
	sessions map[string]*sessionLedger
}

type sessionLedger struct {
	citations []core.Citation
	byClaim   map[string][]int // claimID -> indexes into citations
}

// NewInMemoryLedger returns an empty in-memory citation ledger.
func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{sessions: make(map[string]*sessionLedger)}
}

// Record validates and appends a citation, assigning an ID if absent and
// stamping RetrievedAt if unset. Returns the citation ID. The only failure
// mode is malformed input (missing source, score outside [0,1]).
func (l *InMemoryLedger) Record(sessionID string, c core.Citation) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	if c.ID == "" {
		c.ID = util.NewID()
	}
	if c.RetrievedAt.IsZero() {
		c.RetrievedAt = time.Now()
	}
	// Copy the claim slice so later caller mutation cannot reach the ledger.
	claims := make([]string, len(c.Claims))
	copy(claims, c.Claims)
	c.Claims = claims

	l.mu.Lock()
	defer l.mu.Unlock()
	sl, ok := l.sessions[sessionID]
	if !ok {
		sl = &sessionLedger{byClaim: make(map[string][]int)}
		l.sessions[sessionID] = sl
	}

	idx := len(sl.citations)
	sl.citations = append(sl.citations, c)
	for _, claim := range c.Claims {
		sl.byClaim[claim] = append(sl.byClaim[claim], idx)
	}

	return c.ID, nil
}

// QueryChain returns the citations supporting a claim ordered by retrieval
// timestamp (insertion order breaks ties). The slice is a snapshot.
func (l *InMemoryLedger) QueryChain(sessionID, claimID string) ([]core.Citation, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	sl, ok := l.sessions[sessionID]
	if !ok {
		return []core.Citation{}, nil
	}

	idxs := sl.byClaim[claimID]
	chain := make([]core.Citation, 0, len(idxs))
	for _, i := range idxs {
		chain = append(chain, sl.citations[i])
	}
	sort.SliceStable(chain, func(i, j int) bool {
		return chain[i].RetrievedAt.Before(chain[j].RetrievedAt)
	})

	return chain, nil
}

// All returns every citation recorded for the session in insertion order.
func (l *InMemoryLedger) All(sessionID string) []core.Citation {
	l.mu.RLock()
	defer l.mu.RUnlock()
	sl, ok := l.sessions[sessionID]
	if !ok {
		return []core.Citation{}
	}
	out := make([]core.Citation, len(sl.citations))
	copy(out, sl.citations)
	return out
}
