package catalog

// ValueKind is the type of value a field accepts.
type ValueKind string

const (
	KindText         ValueKind = "text"
	KindNumber       ValueKind = "number"
	KindDate         ValueKind = "date"
	KindBoolean      ValueKind = "boolean"
	KindSingleSelect ValueKind = "single-select"
	KindMultiSelect  ValueKind = "multi-select"
)

// IsSelect reports whether the kind draws its values from Options.
func (k ValueKind) IsSelect() bool {
	return k == KindSingleSelect || k == KindMultiSelect
}

// Valid reports whether k is one of the known value kinds.
func (k ValueKind) Valid() bool {
	switch k {
	case KindText, KindNumber, KindDate, KindBoolean, KindSingleSelect, KindMultiSelect:
		return true
	}
	return false
}

// OperatorKind is the closed set of comparison operators.
type OperatorKind string

const (
	OpContains   OperatorKind = "contains"
	OpEquals     OperatorKind = "equals"
	OpNotEquals  OperatorKind = "not-equals"
	OpGT         OperatorKind = "gt"
	OpLT         OperatorKind = "lt"
	OpGTE        OperatorKind = "gte"
	OpLTE        OperatorKind = "lte"
	OpStartsWith OperatorKind = "starts-with"
	OpEndsWith   OperatorKind = "ends-with"
	OpIsEmpty    OperatorKind = "is-empty"
	OpIsNotEmpty OperatorKind = "is-not-empty"
	OpIn         OperatorKind = "in"
	OpNotIn      OperatorKind = "not-in"
)

// AllOperatorKinds lists every operator kind in declaration order.
var AllOperatorKinds = []OperatorKind{
	OpContains, OpEquals, OpNotEquals, OpGT, OpLT, OpGTE, OpLTE,
	OpStartsWith, OpEndsWith, OpIsEmpty, OpIsNotEmpty, OpIn, OpNotIn,
}

var operatorLabels = map[OperatorKind]string{
	OpContains:   "contains",
	OpEquals:     "equals",
	OpNotEquals:  "not equals",
	OpGT:         "greater than",
	OpLT:         "less than",
	OpGTE:        "greater than or equal",
	OpLTE:        "less than or equal",
	OpStartsWith: "starts with",
	OpEndsWith:   "ends with",
	OpIsEmpty:    "is empty",
	OpIsNotEmpty: "is not empty",
	OpIn:         "in",
	OpNotIn:      "not in",
}

// Valid reports whether k is a known operator kind.
func (k OperatorKind) Valid() bool {
	_, ok := operatorLabels[k]
	return ok
}

// Label returns the generic human label for the kind.
func (k OperatorKind) Label() string {
	if l, ok := operatorLabels[k]; ok {
		return l
	}
	return "unknown"
}

// IsLowerBound reports whether the kind constrains a value from below.
func (k OperatorKind) IsLowerBound() bool {
	return k == OpGT || k == OpGTE
}

// IsUpperBound reports whether the kind constrains a value from above.
func (k OperatorKind) IsUpperBound() bool {
	return k == OpLT || k == OpLTE
}

// Operator is one comparison a field supports.
type Operator struct {
	Kind          OperatorKind `json:"kind" yaml:"kind"`
	Label         string       `json:"label" yaml:"label"`
	RequiresValue bool         `json:"requires_value" yaml:"requires_value"`
}

// Op returns the operator for kind with its generic label.
// is-empty and is-not-empty are the only operators that take no value.
func Op(kind OperatorKind) Operator {
	return Operator{
		Kind:          kind,
		Label:         kind.Label(),
		RequiresValue: kind != OpIsEmpty && kind != OpIsNotEmpty,
	}
}

// LabeledOp returns the operator for kind with a field-specific label.
func LabeledOp(kind OperatorKind, label string) Operator {
	op := Op(kind)
	op.Label = label
	return op
}

// RuleType names a catalog-declared validation rule.
type RuleType string

const (
	RuleRequired RuleType = "required"
	RulePattern  RuleType = "pattern"
	RuleMin      RuleType = "min"
	RuleMax      RuleType = "max"

	// RuleCount marks a counting field: upper bounds must be > 0 and
	// lower bounds must be >= 0.
	RuleCount RuleType = "count"
)

// Rule is a validation rule attached to a field.
type Rule struct {
	Type    RuleType `json:"type" yaml:"type"`
	Number  float64  `json:"number,omitempty" yaml:"number,omitempty"`
	Pattern string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`
}

// FieldType is a filterable attribute. Values are immutable once placed in a
// Catalog; criteria hold pointers to them.
type FieldType struct {
	ID                 string       `json:"id"`
	Label              string       `json:"label"`
	Description        string       `json:"description,omitempty"`
	ValueKind          ValueKind    `json:"value_kind"`
	SupportedOperators []Operator   `json:"supported_operators"`
	DefaultOperator    OperatorKind `json:"default_operator,omitempty"`
	Options            []string     `json:"options,omitempty"`
	ValidationRules    []Rule       `json:"validation_rules,omitempty"`
}

// Operator returns the supported operator of the given kind.
func (f *FieldType) Operator(kind OperatorKind) (Operator, bool) {
	for _, op := range f.SupportedOperators {
		if op.Kind == kind {
			return op, true
		}
	}
	return Operator{}, false
}

// Supports reports whether the field supports the operator kind.
func (f *FieldType) Supports(kind OperatorKind) bool {
	_, ok := f.Operator(kind)
	return ok
}

// Default returns the declared default operator, falling back to the first
// supported operator. ok is false for a field with no operators.
func (f *FieldType) Default() (Operator, bool) {
	if op, ok := f.Operator(f.DefaultOperator); ok {
		return op, true
	}
	if len(f.SupportedOperators) == 0 {
		return Operator{}, false
	}
	return f.SupportedOperators[0], true
}

// HasOption reports whether v is one of the field's options.
func (f *FieldType) HasOption(v string) bool {
	for _, o := range f.Options {
		if o == v {
			return true
		}
	}
	return false
}

// Rule returns the first rule of the given type.
func (f *FieldType) Rule(t RuleType) (Rule, bool) {
	for _, r := range f.ValidationRules {
		if r.Type == t {
			return r, true
		}
	}
	return Rule{}, false
}
