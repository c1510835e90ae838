// Package sqlgen builds SQL fragments from semi-structured argument bags.
package sqlgen

import (
	"sort"
	"strings"
)

// QuoteIdent quotes an identifier for safe interpolation into SQL.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sortedKeys returns map keys in deterministic order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BuildWhere renders an equality predicate as an ANDed WHERE fragment with
// positional placeholders, returning the fragment and its bind arguments.
// An empty or nil predicate yields an empty fragment. Keys are emitted in
// sorted order so generated SQL is deterministic.
func BuildWhere(where map[string]any) (string, []any) {
	if len(where) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(where))
	args := make([]any, 0, len(where))
	for _, k := range sortedKeys(where) {
		v := where[k]
		if v == nil {
			clauses = append(clauses, QuoteIdent(k)+" IS NULL")
			continue
		}
		clauses = append(clauses, QuoteIdent(k)+" = ?")
		args = append(args, v)
	}
	return strings.Join(clauses, " AND "), args
}

// BuildSet renders field assignments as an UPDATE SET fragment with
// positional placeholders, keys in sorted order.
func BuildSet(data map[string]any) (string, []any) {
	clauses := make([]string, 0, len(data))
	args := make([]any, 0, len(data))
	for _, k := range sortedKeys(data) {
		clauses = append(clauses, QuoteIdent(k)+" = ?")
		args = append(args, data[k])
	}
	return strings.Join(clauses, ", "), args
}

// BuildInsert renders column and placeholder lists for an INSERT, keys in
// sorted order.
func BuildInsert(data map[string]any) (columns, placeholders string, args []any) {
	cols := make([]string, 0, len(data))
	holes := make([]string, 0, len(data))
	args = make([]any, 0, len(data))
	for _, k := range sortedKeys(data) {
		cols = append(cols, QuoteIdent(k))
		holes = append(holes, "?")
		args = append(args, data[k])
	}
	return strings.Join(cols, ", "), strings.Join(holes, ", "), args
}
