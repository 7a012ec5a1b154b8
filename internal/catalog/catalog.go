package catalog

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Catalog is an ordered, read-only set of field definitions.
//
// Lookups accept either the field ID or the lower-kebab-case form of the
// field label ("Created Date" -> "created-date").
type Catalog struct {
	fields  []*FieldType
	byID    map[string]*FieldType
	byLabel map[string]*FieldType
}

// New builds a catalog from field definitions in declaration order.
// The definitions are copied; later mutation of the arguments is not seen.
// When two fields share an ID the first one wins; use Validate to report it.
func New(fields ...FieldType) *Catalog {
	c := &Catalog{
		byID:    make(map[string]*FieldType, len(fields)),
		byLabel: make(map[string]*FieldType, len(fields)),
	}
	for _, f := range fields {
		f := cloneField(f)
		c.fields = append(c.fields, f)
		if _, dup := c.byID[f.ID]; !dup {
			c.byID[f.ID] = f
		}
		key := KebabLabel(f.Label)
		if _, dup := c.byLabel[key]; !dup && key != "" {
			c.byLabel[key] = f
		}
	}
	return c
}

func cloneField(f FieldType) *FieldType {
	f.SupportedOperators = append([]Operator(nil), f.SupportedOperators...)
	f.Options = append([]string(nil), f.Options...)
	f.ValidationRules = append([]Rule(nil), f.ValidationRules...)
	return &f
}

// Fields returns the field definitions in declaration order.
func (c *Catalog) Fields() []*FieldType {
	if c == nil {
		return nil
	}
	out := make([]*FieldType, len(c.fields))
	copy(out, c.fields)
	return out
}

// Len returns the number of fields.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.fields)
}

// Field returns the field with exactly the given ID.
func (c *Catalog) Field(id string) (*FieldType, bool) {
	if c == nil {
		return nil, false
	}
	f, ok := c.byID[id]
	return f, ok
}

// Lookup resolves a raw-query field key: exact ID first, then kebab label.
func (c *Catalog) Lookup(key string) (*FieldType, bool) {
	if c == nil || key == "" {
		return nil, false
	}
	if f, ok := c.byID[key]; ok {
		return f, true
	}
	f, ok := c.byLabel[key]
	return f, ok
}

// Label returns the label for a field ID, or the ID itself when unknown.
func (c *Catalog) Label(id string) string {
	if f, ok := c.Field(id); ok {
		return f.Label
	}
	return id
}

var whitespaceRun = regexp.MustCompile(`\s+`)

var lower = cases.Lower(language.Und)

// KebabLabel lowercases a label and replaces whitespace runs with "-".
func KebabLabel(label string) string {
	return whitespaceRun.ReplaceAllString(lower.String(strings.TrimSpace(label)), "-")
}
