package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"Category", "category"},
		{"Medicine name", "medicine_name"},
		{"  Medicine name  ", "medicine_name"},
		{"Medicine\nname", "medicine_name"},
		{"Condition / indication", "condition_indication"},
		{"Pharmacotherapeutic group (human)", "pharmacotherapeutic_group_human"},
		{"International non-proprietary name (INN) / common name",
			"international_non-proprietary_name_inn_common_name"},
		{"PRIME: priority medicine", "prime:_priority_medicine"},
		{"Marketing authorisation holder/company name",
			"marketing_authorisation_holdercompany_name"},
		{"Date   of \r\n opinion", "date_of_opinion"},
		{"", ""},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeHeader(c.raw), "raw header %q", c.raw)
	}
}

func TestNormalizeHeaderIdempotent(t *testing.T) {
	headers := []string{
		"Category",
		"Medicine name",
		"International non-proprietary name (INN) / common name",
		"PRIME: priority medicine",
		"Condition / indication",
		"  padded \n header  ",
		"already_normalized_key",
	}
	for _, h := range headers {
		once := NormalizeHeader(h)
		assert.Equal(t, once, NormalizeHeader(once), "normalize not idempotent for %q", h)
	}
}

func TestMapHeader(t *testing.T) {
	f, ok := MapHeader(NormalizeHeader("Generic or hybrid"))
	require.True(t, ok)
	assert.Equal(t, FieldGenericOrHybrid, f)

	f, ok = MapHeader(NormalizeHeader("International non-proprietary name (INN) / common name"))
	require.True(t, ok)
	assert.Equal(t, FieldINN, f)

	f, ok = MapHeader(NormalizeHeader("PRIME: priority medicine"))
	require.True(t, ok)
	assert.Equal(t, FieldPrime, f)

	// Unknown headers are dropped, not errors.
	_, ok = MapHeader(NormalizeHeader("Some future report column"))
	assert.False(t, ok)
}

func TestAllFieldsClosedSet(t *testing.T) {
	fields := AllFields()
	assert.Len(t, fields, 39)

	seen := make(map[CanonicalField]bool, len(fields))
	for _, f := range fields {
		assert.False(t, seen[f], "duplicate field %s", f)
		seen[f] = true

		got, ok := Lookup(string(f))
		require.True(t, ok, "Lookup must recognize %s", f)
		assert.Equal(t, f, got)
	}

	_, ok := Lookup("no_such_field")
	assert.False(t, ok)

	// Every alias target must be a member of the canonical set.
	for key, f := range headerAliases {
		assert.True(t, seen[f], "alias %q maps to unknown field %s", key, f)
	}
}

func TestAllFieldsReturnsCopy(t *testing.T) {
	a := AllFields()
	a[0] = "tampered"
	assert.Equal(t, FieldCategory, AllFields()[0])
}
