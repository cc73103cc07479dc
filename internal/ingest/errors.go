package ingest

import (
	"fmt"

	"github.com/ignite/medreg/internal/schema"
)

// ReadError means the source itself could not be read. Fatal for the
// whole import run.
type ReadError struct {
	Source string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read source %s: %v", e.Source, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// ParseError means the source was readable but is not well-formed CSV.
// Fatal for the whole import run.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse csv %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError means a single mapped row does not conform to the
// canonical schema. Row-scoped: sibling rows are unaffected. The full
// offending row is carried for diagnostics.
type ValidationError struct {
	Reason string
	Row    schema.Row
}

func (e *ValidationError) Error() string {
	return "validate row: " + e.Reason
}
