package store

import "errors"

// ErrNotFound is returned when the requested session or document does not exist.
var ErrNotFound = errors.New("not found")
