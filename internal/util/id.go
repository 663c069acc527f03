package util

import "github.com/google/uuid"

// NewID returns a new UUID string used to correlate sessions, turns, tool
// call records and citations.
func NewID() string { return uuid.NewString() }
