package tables

import (
	"github.com/rotisserie/eris"
)

// SchemaMode decides the output column set when states disagree on keys.
type SchemaMode string

const (
	// SchemaUnion uses every key seen across the run, in first-seen order.
	SchemaUnion SchemaMode = "union"
	// SchemaStrict fails any state whose records differ from the first record's key set.
	SchemaStrict SchemaMode = "strict"
	// SchemaFirst fixes the columns from the first non-empty state and pads or
	// truncates later states.
	SchemaFirst SchemaMode = "first"
)

// ParseSchemaMode validates a mode name. Empty means union.
func ParseSchemaMode(s string) (SchemaMode, error) {
	switch SchemaMode(s) {
	case "", SchemaUnion:
		return SchemaUnion, nil
	case SchemaStrict, SchemaFirst:
		return SchemaMode(s), nil
	default:
		return "", eris.Errorf("tables: unknown schema mode %q (want union, strict or first)", s)
	}
}

// columnSet is an insertion-ordered set of column names.
type columnSet struct {
	order []string
	seen  map[string]bool
}

func newColumnSet() *columnSet {
	return &columnSet{seen: make(map[string]bool)}
}

func (c *columnSet) add(keys ...string) {
	for _, k := range keys {
		if !c.seen[k] {
			c.seen[k] = true
			c.order = append(c.order, k)
		}
	}
}

// UnionColumns returns every key across the records, in first-seen order.
func UnionColumns(records ...[]Record) []string {
	cs := newColumnSet()
	for _, recs := range records {
		for _, r := range recs {
			cs.add(r.Keys...)
		}
	}
	return cs.order
}

// sameKeySet reports whether the record has exactly the given keys, in any order.
func sameKeySet(r Record, cols []string) bool {
	if len(r.Keys) != len(cols) {
		return false
	}
	for _, c := range cols {
		if _, ok := r.Values[c]; !ok {
			return false
		}
	}
	return true
}

// checkStrict returns an error naming the first record that does not match cols.
func checkStrict(records []Record, cols []string) error {
	for i, r := range records {
		if !sameKeySet(r, cols) {
			return eris.Errorf("record %d has keys %v, want %v", i+1, r.Keys, cols)
		}
	}
	return nil
}

// divergent reports whether any record would be padded or truncated under cols.
func divergent(records []Record, cols []string) bool {
	for _, r := range records {
		if !sameKeySet(r, cols) {
			return true
		}
	}
	return false
}

// Rows flattens records under cols. Missing keys become empty cells; extra keys are dropped.
func Rows(records []Record, cols []string) [][]string {
	rows := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = r.Get(c)
		}
		rows[i] = row
	}
	return rows
}
