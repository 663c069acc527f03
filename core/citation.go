package core

import (
	"fmt"
	"time"
)

// Citation records the provenance of a claim: its source, the caller-supplied
// credibility score, and the claims it supports. Citations are append-only
// and never mutated after insertion.
type Citation struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"` // URL, DOI or other source identifier
	Score       float64   `json:"score"`  // Credibility in [0,1], policy is the caller's
	RetrievedAt time.Time `json:"retrievedAt"`
	Agent       string    `json:"agent"`  // Contributing agent
	Claims      []string  `json:"claims"` // Claim identifiers this citation supports
}

// Validate checks the structural requirements of a citation.
func (c Citation) Validate() error {
	if c.Source == "" {
		return &InvalidCitationError{Reason: "missing source"}
	}
	if c.Score < 0 || c.Score > 1 {
		return &InvalidCitationError{Reason: fmt.Sprintf("score %v outside [0,1]", c.Score)}
	}
	return nil
}

// InvalidCitationError reports a malformed citation rejected by the ledger.
type InvalidCitationError struct {
	Reason string
}

// Error implements the error interface.
func (e *InvalidCitationError) Error() string {
	return fmt.Sprintf("invalid citation: %s", e.Reason)
}

// Ledger is the append-only provenance store. Record assigns and returns the
// citation ID; QueryChain returns the citations supporting a claim ordered by
// retrieval timestamp.
type Ledger interface {
	Record(sessionID string, c Citation) (string, error)
	QueryChain(sessionID, claimID string) ([]Citation, error)
}
