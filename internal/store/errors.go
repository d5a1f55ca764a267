package store

import "errors"

// ErrNotFound is returned when no live entry matches the given hash.
var ErrNotFound = errors.New("entry not found")
