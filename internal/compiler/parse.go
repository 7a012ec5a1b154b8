// Package compiler converts between raw query text and typed criteria.
//
// The grammar is deliberately loose: tokens are "key:[prefix]value",
// separated by unquoted whitespace. Anything the parser does not
// understand is dropped, never reported as an error.
package compiler

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/facet/internal/catalog"
	"github.com/roach88/facet/internal/criteria"
)

// dateLayouts are tried in order when converting date values.
var dateLayouts = []string{
	criteria.DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// displayDateLayout renders parsed dates for DisplayValue.
const displayDateLayout = "Jan 2, 2006"

// Option configures Parse.
type Option func(*parser)

// WithIDGenerator sets the generator for criterion ids.
// The default generates UUIDv7 ids.
func WithIDGenerator(g criteria.IDGenerator) Option {
	return func(p *parser) {
		p.ids = g
	}
}

type parser struct {
	catalog *catalog.Catalog
	ids     criteria.IDGenerator
}

// ParseResult is the detailed output of ParseDetailed.
type ParseResult struct {
	Criteria []criteria.Criterion

	// Tokens counts the colon-bearing tokens in the input.
	Tokens int

	// Dropped counts colon-bearing tokens that produced no criterion,
	// for "some terms were not understood" notices.
	Dropped int
}

// Parse turns raw query text into criteria. Unknown fields, tokens without
// a colon and unusable operators are dropped silently. Every criterion gets
// a fresh id.
func Parse(text string, cat *catalog.Catalog, opts ...Option) []criteria.Criterion {
	return ParseDetailed(text, cat, opts...).Criteria
}

// IsValidRawQuery reports whether text yields at least one criterion.
func IsValidRawQuery(text string, cat *catalog.Catalog) bool {
	return len(ParseDetailed(text, cat, WithIDGenerator(nopIDs{})).Criteria) > 0
}

type nopIDs struct{}

func (nopIDs) Generate() string { return "" }

// ParseDetailed is Parse plus token accounting.
func ParseDetailed(text string, cat *catalog.Catalog, opts ...Option) ParseResult {
	p := &parser{catalog: cat, ids: criteria.UUIDv7Generator{}}
	for _, opt := range opts {
		opt(p)
	}

	res := ParseResult{Criteria: []criteria.Criterion{}}
	text = norm.NFC.String(text)
	if strings.TrimSpace(text) == "" {
		return res
	}

	for _, tok := range Tokenize(text) {
		if !strings.Contains(tok, ":") {
			continue
		}
		res.Tokens++
		c, ok := p.parseToken(tok)
		if !ok {
			res.Dropped++
			continue
		}
		res.Criteria = append(res.Criteria, c)
	}
	return res
}

func (p *parser) parseToken(tok string) (criteria.Criterion, bool) {
	key, rest, _ := strings.Cut(tok, ":")
	f, ok := p.catalog.Lookup(key)
	if !ok {
		return criteria.Criterion{}, false
	}

	op, raw, ok := operatorAndValue(rest, f)
	if !ok {
		return criteria.Criterion{}, false
	}

	c := criteria.Criterion{
		ID:       p.ids.Generate(),
		Field:    f,
		Operator: op,
	}
	if op.RequiresValue {
		c.Value, c.DisplayValue = convertValue(unquote(raw), f, op)
	}
	c.IsValid = criteria.InlineValid(c)
	return c, true
}

// operatorAndValue resolves the operator for the text after the colon.
// ok is false only for a field with no operators at all.
func operatorAndValue(input string, f *catalog.FieldType) (catalog.Operator, string, bool) {
	if op, rest, ok := matchPrefix(input, f); ok {
		return op, rest, true
	}

	switch input {
	case emptyKeyword, "", `""`:
		if op, ok := f.Operator(catalog.OpIsEmpty); ok {
			return op, "", true
		}
	case notEmptyKeyword:
		if op, ok := f.Operator(catalog.OpIsNotEmpty); ok {
			return op, "", true
		}
	}

	op, ok := f.Default()
	return op, input, ok
}

// convertValue types the unquoted value text for the field. Text that
// does not convert is kept as a String so the criterion reads as invalid
// instead of being lost.
func convertValue(text string, f *catalog.FieldType, op catalog.Operator) (criteria.Value, string) {
	if f.ValueKind == catalog.KindMultiSelect || op.Kind == catalog.OpIn || op.Kind == catalog.OpNotIn {
		list := splitList(text)
		return list, strings.Join(list, ", ")
	}

	switch f.ValueKind {
	case catalog.KindNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil || !criteria.Number(n).Finite() {
			return criteria.String(text), text
		}
		return criteria.Number(n), text
	case catalog.KindBoolean:
		b := strings.ToLower(text) == "true" || text == "1"
		return criteria.Bool(b), strconv.FormatBool(b)
	case catalog.KindDate:
		if d, ok := parseDate(text); ok {
			return d, d.Time().Format(displayDateLayout)
		}
		return criteria.String(text), text
	default:
		return criteria.String(text), text
	}
}

func splitList(text string) criteria.List {
	list := criteria.List{}
	for _, part := range strings.Split(text, ",") {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	return list
}

func parseDate(text string) (criteria.Date, bool) {
	text = strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, text)
		if err == nil {
			return criteria.NewDate(t.Year(), t.Month(), t.Day()), true
		}
	}
	return criteria.Date{}, false
}
