package criteria

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/facet/internal/catalog"
)

// LogicalOperator combines the criteria of a query.
type LogicalOperator string

const (
	And LogicalOperator = "AND"
	Or  LogicalOperator = "OR"
)

// ParseLogicalOperator accepts "and"/"or" in any case. Empty means AND.
func ParseLogicalOperator(s string) (LogicalOperator, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "AND":
		return And, nil
	case "OR":
		return Or, nil
	}
	return "", fmt.Errorf("invalid logical operator %q (want AND or OR)", s)
}

// Criterion is one concrete filter inside a query.
//
// Field points into the catalog and is shared, never copied. IsValid is a
// cached check result and must be recomputed after any mutation.
type Criterion struct {
	ID           string
	Field        *catalog.FieldType
	Operator     catalog.Operator
	Value        Value
	DisplayValue string
	IsValid      bool
}

// FieldID returns the field id, or "" for a criterion without a field.
func (c Criterion) FieldID() string {
	if c.Field == nil {
		return ""
	}
	return c.Field.ID
}

// FieldLabel returns the field label, or "" for a criterion without a field.
func (c Criterion) FieldLabel() string {
	if c.Field == nil {
		return ""
	}
	return c.Field.Label
}

type criterionJSON struct {
	ID           string `json:"id"`
	Field        string `json:"field"`
	Operator     string `json:"operator"`
	Value        any    `json:"value"`
	DisplayValue string `json:"display_value,omitempty"`
	IsValid      bool   `json:"is_valid"`
}

// MarshalJSON renders the field by id and the value in native form.
func (c Criterion) MarshalJSON() ([]byte, error) {
	return json.Marshal(criterionJSON{
		ID:           c.ID,
		Field:        c.FieldID(),
		Operator:     string(c.Operator.Kind),
		Value:        Native(c.Value),
		DisplayValue: c.DisplayValue,
		IsValid:      c.IsValid,
	})
}

// Query is an ordered list of criteria combined by one logical operator.
// Order is significant for serialization and display.
type Query struct {
	Criteria        []Criterion     `json:"criteria"`
	RawQuery        string          `json:"raw_query,omitempty"`
	LogicalOperator LogicalOperator `json:"logical_operator"`
	IsValid         bool            `json:"is_valid"`
}

// FieldIDs returns the distinct field ids of cs, sorted.
func FieldIDs(cs []Criterion) []string {
	seen := make(map[string]bool, len(cs))
	ids := make([]string, 0, len(cs))
	for _, c := range cs {
		id := c.FieldID()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// InlineValid is the cheap validity check applied when a criterion is built:
// an operator that takes no value is always valid; otherwise the value must
// be non-empty and, on number fields, a finite number.
func InlineValid(c Criterion) bool {
	if c.Field == nil {
		return false
	}
	if !c.Operator.RequiresValue {
		return true
	}
	if IsEmpty(c.Value) {
		return false
	}
	if c.Field.ValueKind == catalog.KindNumber {
		n, ok := c.Value.(Number)
		return ok && n.Finite()
	}
	return true
}

// Revalidate recomputes the cached IsValid flag of every criterion in place
// using InlineValid. Criteria from untrusted input must pass through here
// or through a full validation before their flag is read.
func Revalidate(cs []Criterion) {
	for i := range cs {
		cs[i].IsValid = InlineValid(cs[i])
	}
}
