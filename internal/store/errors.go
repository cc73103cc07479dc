package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup by identity matches no row.
var ErrNotFound = errors.New("record not found")

// PersistenceError wraps any store-level rejection: constraint violations,
// I/O failures, lost connections, context deadlines. For writes it is
// row-scoped; for reads it fails the request.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
