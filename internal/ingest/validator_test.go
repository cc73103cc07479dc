package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/medreg/internal/schema"
)

func TestValidateAcceptsCompleteRow(t *testing.T) {
	row := schema.Row{
		schema.FieldCategory:     "Human",
		schema.FieldMedicineName: "Aspirin",
	}
	assert.NoError(t, Validate(row))
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	row := schema.Row{
		schema.FieldCategory:        "Human",
		schema.FieldActiveSubstance: "acetylsalicylic acid",
	}
	err := Validate(row)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Reason, "medicine_name")
	// The full offending row travels with the error for diagnostics.
	assert.Equal(t, row, verr.Row)
}

func TestValidateRejectsEmptyRow(t *testing.T) {
	err := Validate(schema.Row{})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestValidateIgnoresIdentity(t *testing.T) {
	// The store assigns ids; an imported row never carries one, and its
	// absence must not fail validation.
	row := schema.Row{
		schema.FieldCategory:     "Veterinary",
		schema.FieldMedicineName: "Bravecto",
	}
	assert.NoError(t, Validate(row))
}
