package query

import (
	"fmt"
	"strings"

	"github.com/ignite/medreg/internal/schema"
)

// Reserved parameter names. These control pagination, free-text search and
// the date-range bounds; they are never interpreted as per-field filters,
// even if a canonical field of the same name ever appeared.
const (
	ParamPage           = "page"
	ParamLimit          = "limit"
	ParamSearch         = "search"
	ParamAuthorisedFrom = "authorised_from"
	ParamAuthorisedTo   = "authorised_to"
	ParamDecisionFrom   = "decision_from"
	ParamDecisionTo     = "decision_to"
)

var reservedParams = map[string]bool{
	ParamPage:           true,
	ParamLimit:          true,
	ParamSearch:         true,
	ParamAuthorisedFrom: true,
	ParamAuthorisedTo:   true,
	ParamDecisionFrom:   true,
	ParamDecisionTo:     true,
}

// Predicate is a composed WHERE clause with positional arguments. The
// zero-filter predicate is "TRUE": no filters must mean match-all, never
// match-none.
type Predicate struct {
	Where string
	Args  []interface{}
}

type filterBuilder struct {
	conds []string
	args  []interface{}
}

// nextArg registers a value and returns its $n placeholder.
func (b *filterBuilder) nextArg(value interface{}) string {
	b.args = append(b.args, value)
	return fmt.Sprintf("$%d", len(b.args))
}

// BuildFilter folds an open parameter bag into a Predicate. All conditions
// are ANDed:
//
//   - any parameter named after a canonical field adds a substring match on
//     that field. LIKE is deliberate — matching is case-sensitive, not
//     inherited from store collation defaults;
//   - the two date-range pairs add inclusive lexical bounds on the
//     corresponding date columns (dates are stored as ISO-like text);
//   - "search" adds an OR-group of substring matches across the fixed
//     search fields.
//
// Unknown parameter names are ignored, never an error. Fields are visited
// in canonical order so the generated SQL is deterministic.
func BuildFilter(params map[string]string) Predicate {
	b := &filterBuilder{}

	for _, f := range schema.AllFields() {
		name := string(f)
		if reservedParams[name] {
			continue
		}
		if v := params[name]; v != "" {
			b.conds = append(b.conds, fmt.Sprintf("%s LIKE %s", f, b.nextArg("%"+v+"%")))
		}
	}

	b.addRange(schema.FieldAuthorisationDate, params[ParamAuthorisedFrom], params[ParamAuthorisedTo])
	b.addRange(schema.FieldDecisionDate, params[ParamDecisionFrom], params[ParamDecisionTo])

	if v := params[ParamSearch]; v != "" {
		ph := b.nextArg("%" + v + "%")
		parts := make([]string, len(schema.SearchFields))
		for i, f := range schema.SearchFields {
			parts[i] = fmt.Sprintf("%s LIKE %s", f, ph)
		}
		b.conds = append(b.conds, "("+strings.Join(parts, " OR ")+")")
	}

	if len(b.conds) == 0 {
		return Predicate{Where: "TRUE"}
	}
	return Predicate{Where: strings.Join(b.conds, " AND "), Args: b.args}
}

func (b *filterBuilder) addRange(f schema.CanonicalField, from, to string) {
	if from != "" {
		b.conds = append(b.conds, fmt.Sprintf("%s >= %s", f, b.nextArg(from)))
	}
	if to != "" {
		b.conds = append(b.conds, fmt.Sprintf("%s <= %s", f, b.nextArg(to)))
	}
}
