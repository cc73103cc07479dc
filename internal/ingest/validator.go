package ingest

import (
	"fmt"

	"github.com/ignite/medreg/internal/schema"
)

// Validate checks a mapped row against the canonical schema. The identity
// column is store-assigned and never part of validation. Values stay opaque
// text, so shape-checking reduces to required-field presence.
func Validate(row schema.Row) error {
	if len(row) == 0 {
		return &ValidationError{Reason: "no recognized columns carried a value", Row: row}
	}
	for _, f := range schema.RequiredFields {
		if !row.Has(f) {
			return &ValidationError{
				Reason: fmt.Sprintf("missing required field %q", f),
				Row:    row,
			}
		}
	}
	return nil
}
