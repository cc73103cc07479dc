package ingest

import "github.com/ignite/medreg/internal/schema"

// HeaderMapping maps a CSV column index to its canonical field. Columns
// whose header did not resolve hold the empty field and are dropped when
// mapping rows.
type HeaderMapping []schema.CanonicalField

// MapHeaders resolves a raw CSV header line into a HeaderMapping. Each
// header is normalized and looked up in the schema dictionary; unknown
// headers stay unmapped. Computed once per file, reused for every row.
func MapHeaders(raw []string) HeaderMapping {
	m := make(HeaderMapping, len(raw))
	for i, h := range raw {
		if f, ok := schema.MapHeader(schema.NormalizeHeader(h)); ok {
			m[i] = f
		}
	}
	return m
}

// Mapped reports how many columns resolved to a canonical field.
func (m HeaderMapping) Mapped() int {
	n := 0
	for _, f := range m {
		if f != "" {
			n++
		}
	}
	return n
}

// MapRow converts one raw CSV record into a canonical row. Empty cells
// become absent (no key in the row); non-empty values pass through
// unmodified — no trimming, no type coercion. Cells in unmapped columns
// are discarded. Records shorter than the header simply populate fewer
// fields; extra trailing cells are ignored.
func MapRow(mapping HeaderMapping, record []string) schema.Row {
	row := make(schema.Row, len(mapping))
	for i, f := range mapping {
		if f == "" || i >= len(record) {
			continue
		}
		if v := record[i]; v != "" {
			row[f] = v
		}
	}
	return row
}
