package compiler

import (
	"strings"

	"github.com/roach88/facet/internal/catalog"
)

// prefixes is the operator prefix table in match precedence. Longer prefixes
// come before their one-character heads so ">=" is never read as ">".
var prefixes = []struct {
	Kind   catalog.OperatorKind
	Prefix string
}{
	{catalog.OpGTE, ">="},
	{catalog.OpLTE, "<="},
	{catalog.OpGT, ">"},
	{catalog.OpLT, "<"},
	{catalog.OpNotEquals, "!="},
	{catalog.OpEquals, "="},
	{catalog.OpContains, "~"},
	{catalog.OpStartsWith, "^"},
	{catalog.OpEndsWith, "$"},
}

const (
	emptyKeyword    = "empty"
	notEmptyKeyword = "not-empty"
)

// Prefix returns the raw-query prefix for kind. ok is false for kinds
// without one (in, not-in, is-empty, is-not-empty).
func Prefix(kind catalog.OperatorKind) (string, bool) {
	for _, p := range prefixes {
		if p.Kind == kind {
			return p.Prefix, true
		}
	}
	return "", false
}

// matchPrefix finds the first prefix that leaves a non-empty remainder and
// names an operator the field supports.
func matchPrefix(input string, f *catalog.FieldType) (catalog.Operator, string, bool) {
	for _, p := range prefixes {
		rest, found := strings.CutPrefix(input, p.Prefix)
		if !found || rest == "" {
			continue
		}
		if op, ok := f.Operator(p.Kind); ok {
			return op, rest, true
		}
	}
	return catalog.Operator{}, "", false
}
