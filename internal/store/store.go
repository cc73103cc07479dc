package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ignite/medreg/internal/schema"
)

const tableName = "medicines"

// Record is one stored medicine: the store-assigned identity plus every
// canonical field that carries a value.
type Record struct {
	ID     int64
	Fields schema.Row
}

// MarshalJSON flattens the record: id alongside the populated fields.
// Absent fields are omitted rather than rendered as empty strings.
func (r Record) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(r.Fields)+1)
	m["id"] = r.ID
	for f, v := range r.Fields {
		m[string(f)] = v
	}
	return json.Marshal(m)
}

// Stats holds the register-wide aggregate counts.
type Stats struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"by_category"`
	ByStatus   map[string]int `json:"by_status"`
}

// Store is the Postgres persistence layer. All statements are generated
// from schema.AllFields, so the column surface and the canonical field set
// cannot drift apart.
type Store struct {
	db          *sql.DB
	columnList  string
	insertQuery string
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	fields := schema.AllFields()
	cols := make([]string, len(fields))
	placeholders := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = string(f)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return &Store{
		db:         db,
		columnList: strings.Join(cols, ", "),
		insertQuery: fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s) RETURNING id",
			tableName, strings.Join(cols, ", "), strings.Join(placeholders, ", ")),
	}
}

// EnsureSchema creates the medicines table if it does not exist. The
// identity is store-assigned; every canonical field is nullable text.
func (s *Store) EnsureSchema(ctx context.Context) error {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n\tid BIGSERIAL PRIMARY KEY", tableName)
	for _, f := range schema.AllFields() {
		fmt.Fprintf(&b, ",\n\t%s TEXT", f)
	}
	b.WriteString("\n)")
	if _, err := s.db.ExecContext(ctx, b.String()); err != nil {
		return &PersistenceError{Op: "ensure schema", Err: err}
	}
	return nil
}

// Insert appends one row and returns the store-assigned identity. Absent
// fields become NULL. Re-importing always appends; there is no upsert.
func (s *Store) Insert(ctx context.Context, row schema.Row) (int64, error) {
	fields := schema.AllFields()
	args := make([]interface{}, len(fields))
	for i, f := range fields {
		if v, ok := row.Get(f); ok {
			args[i] = v
		}
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, s.insertQuery, args...).Scan(&id); err != nil {
		return 0, &PersistenceError{Op: "insert", Err: err}
	}
	return id, nil
}

// Count returns the number of rows matching the predicate.
func (s *Store) Count(ctx context.Context, where string, args []interface{}) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", tableName, where)
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, &PersistenceError{Op: "count", Err: err}
	}
	return n, nil
}

// Select returns one page of rows matching the predicate, ordered by
// identity for stable pagination.
func (s *Store) Select(ctx context.Context, where string, args []interface{}, limit, offset int) ([]Record, error) {
	query := fmt.Sprintf(
		"SELECT id, %s FROM %s WHERE %s ORDER BY id LIMIT $%d OFFSET $%d",
		s.columnList, tableName, where, len(args)+1, len(args)+2)

	queryArgs := make([]interface{}, 0, len(args)+2)
	queryArgs = append(queryArgs, args...)
	queryArgs = append(queryArgs, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, &PersistenceError{Op: "select", Err: err}
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, &PersistenceError{Op: "select scan", Err: err}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "select rows", Err: err}
	}
	return out, nil
}

// GetByID fetches exactly one record. ErrNotFound when no row matches.
func (s *Store) GetByID(ctx context.Context, id int64) (Record, error) {
	query := fmt.Sprintf("SELECT id, %s FROM %s WHERE id = $1", s.columnList, tableName)
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return Record{}, &PersistenceError{Op: "get", Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Record{}, &PersistenceError{Op: "get", Err: err}
		}
		return Record{}, ErrNotFound
	}
	rec, err := scanRecord(rows)
	if err != nil {
		return Record{}, &PersistenceError{Op: "get scan", Err: err}
	}
	return rec, nil
}

// DistinctValues returns the sorted distinct non-empty values of one
// canonical field. NULLs and blanks are excluded at the store, never
// represented by a placeholder.
func (s *Store) DistinctValues(ctx context.Context, field schema.CanonicalField) ([]string, error) {
	query := fmt.Sprintf(
		"SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL AND %s <> '' ORDER BY %s",
		field, tableName, field, field, field)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &PersistenceError{Op: "distinct", Err: err}
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, &PersistenceError{Op: "distinct scan", Err: err}
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "distinct rows", Err: err}
	}
	return values, nil
}

// Stats returns the total row count plus breakdowns by category and by
// authorisation status, in a single round trip. Source data phrases the
// status inconsistently ("Authorised", "Withdrawn after authorisation"),
// so status matching is by case-insensitive prefix.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	query := fmt.Sprintf(`SELECT
		COUNT(*),
		COUNT(*) FILTER (WHERE LOWER(%[2]s) = 'human'),
		COUNT(*) FILTER (WHERE LOWER(%[2]s) = 'veterinary'),
		COUNT(*) FILTER (WHERE %[3]s ILIKE 'authorised%%'),
		COUNT(*) FILTER (WHERE %[3]s ILIKE 'withdrawn%%'),
		COUNT(*) FILTER (WHERE %[3]s ILIKE 'refused%%')
	FROM %[1]s`, tableName, schema.FieldCategory, schema.FieldAuthorisationStatus)

	var total, human, vet, authorised, withdrawn, refused int
	err := s.db.QueryRowContext(ctx, query).Scan(&total, &human, &vet, &authorised, &withdrawn, &refused)
	if err != nil {
		return Stats{}, &PersistenceError{Op: "stats", Err: err}
	}
	return Stats{
		Total:      total,
		ByCategory: map[string]int{"human": human, "veterinary": vet},
		ByStatus:   map[string]int{"authorised": authorised, "withdrawn": withdrawn, "refused": refused},
	}, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	fields := schema.AllFields()
	var id int64
	values := make([]sql.NullString, len(fields))
	dest := make([]interface{}, 0, len(fields)+1)
	dest = append(dest, &id)
	for i := range values {
		dest = append(dest, &values[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return Record{}, err
	}

	row := make(schema.Row, len(fields))
	for i, f := range fields {
		if values[i].Valid && values[i].String != "" {
			row[f] = values[i].String
		}
	}
	return Record{ID: id, Fields: row}, nil
}
