package schema

// Row holds the canonical-field values for one record. A field that was
// absent in the source (missing column, or an empty cell) has no key at all;
// presence in the map always means a non-empty value. Values are opaque text,
// exactly as they appeared in the source.
type Row map[CanonicalField]string

// Get returns the value for f and whether it is present.
func (r Row) Get(f CanonicalField) (string, bool) {
	v, ok := r[f]
	return v, ok
}

// Has reports whether f carries a value.
func (r Row) Has(f CanonicalField) bool {
	_, ok := r[f]
	return ok
}

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
