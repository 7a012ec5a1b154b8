package compiler

import (
	"strings"
	"unicode"

	"github.com/roach88/facet/internal/catalog"
	"github.com/roach88/facet/internal/criteria"
)

// Generate renders criteria as canonical raw query text. Only criteria
// whose cached IsValid is true are rendered; the output is lossy.
//
// Under OR, a rendered criterion containing a space is wrapped in
// parentheses. Parse does not read parentheses back.
func Generate(cs []criteria.Criterion, op criteria.LogicalOperator) string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		if !c.IsValid || c.Field == nil {
			continue
		}
		parts = append(parts, Render(c))
	}

	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}

	if op == criteria.Or {
		for i, s := range parts {
			if strings.Contains(s, " ") {
				parts[i] = "(" + s + ")"
			}
		}
		return strings.Join(parts, " OR ")
	}
	return strings.Join(parts, " ")
}

// Render renders a single criterion, ignoring its IsValid flag.
func Render(c criteria.Criterion) string {
	id := c.FieldID()

	if !c.Operator.RequiresValue {
		switch c.Operator.Kind {
		case catalog.OpIsEmpty:
			return id + ":" + emptyKeyword
		case catalog.OpIsNotEmpty:
			return id + ":" + notEmptyKeyword
		default:
			return id
		}
	}

	text := ""
	if c.Value != nil {
		text = c.Value.Text()
	}

	prefix, ok := Prefix(c.Operator.Kind)
	if ok && c.Field.DefaultOperator == c.Operator.Kind && !misreadable(text, c.Field) {
		prefix = ""
	}

	if strings.IndexFunc(text, unicode.IsSpace) >= 0 {
		text = `"` + text + `"`
	}
	return id + ":" + prefix + text
}

// misreadable reports whether a value rendered without a prefix would parse
// back as a different operator.
func misreadable(text string, f *catalog.FieldType) bool {
	switch text {
	case "", emptyKeyword, notEmptyKeyword:
		return true
	}
	_, _, ok := matchPrefix(text, f)
	return ok
}
