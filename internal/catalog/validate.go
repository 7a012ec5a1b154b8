package catalog

import (
	"fmt"
	"regexp"
	"strings"
)

// Catalog validation error codes (E100-E199)
const (
	ErrEmptyCatalog = "E100" // catalog has no fields

	// Field errors (E101-E109)
	ErrFieldIDEmpty      = "E101" // id is required
	ErrFieldLabelEmpty   = "E102" // label is required
	ErrInvalidValueKind  = "E103" // unknown value kind
	ErrDuplicateFieldID  = "E104" // two fields share an id
	ErrDuplicateLabelKey = "E105" // two labels collapse to the same key
	ErrFieldIDHasColon   = "E106" // ":" is the raw-query separator

	// Operator errors (E110-E119)
	ErrNoOperators        = "E110" // at least one operator required
	ErrInvalidOperator    = "E111" // unknown operator kind
	ErrDuplicateOperator  = "E112" // operator listed twice
	ErrDefaultUnsupported = "E113" // default operator not in supported set

	// Option and rule errors (E120-E129)
	ErrSelectNoOptions = "E120" // select field without options
	ErrInvalidRule     = "E121" // unknown rule type
	ErrInvalidPattern  = "E122" // pattern rule does not compile
	ErrRuleBounds      = "E123" // min rule above max rule
)

// ValidationError is one problem found in a catalog definition.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a catalog for structural problems.
// Returns all errors found (does not fail-fast).
func Validate(c *Catalog) []ValidationError {
	var errs []ValidationError

	if c.Len() == 0 {
		return []ValidationError{{
			Field:   "fields",
			Message: "catalog must define at least one field",
			Code:    ErrEmptyCatalog,
		}}
	}

	ids := make(map[string]bool)
	keys := make(map[string]string)

	for i, f := range c.fields {
		path := fmt.Sprintf("fields[%d]", i)
		if f.ID != "" {
			path = "field." + f.ID
		}

		if strings.TrimSpace(f.ID) == "" {
			errs = append(errs, ValidationError{Field: path + ".id", Message: "id is required", Code: ErrFieldIDEmpty})
		} else if strings.ContainsAny(f.ID, ": \t") {
			errs = append(errs, ValidationError{
				Field:   path + ".id",
				Message: fmt.Sprintf("id %q must not contain ':' or whitespace", f.ID),
				Code:    ErrFieldIDHasColon,
			})
		}
		if ids[f.ID] && f.ID != "" {
			errs = append(errs, ValidationError{
				Field:   path + ".id",
				Message: fmt.Sprintf("duplicate field id: %q", f.ID),
				Code:    ErrDuplicateFieldID,
			})
		}
		ids[f.ID] = true

		if strings.TrimSpace(f.Label) == "" {
			errs = append(errs, ValidationError{Field: path + ".label", Message: "label is required", Code: ErrFieldLabelEmpty})
		} else {
			key := KebabLabel(f.Label)
			if other, seen := keys[key]; seen && other != f.ID {
				errs = append(errs, ValidationError{
					Field:   path + ".label",
					Message: fmt.Sprintf("label key %q already used by field %q", key, other),
					Code:    ErrDuplicateLabelKey,
				})
			}
			keys[key] = f.ID
		}

		if !f.ValueKind.Valid() {
			errs = append(errs, ValidationError{
				Field:   path + ".kind",
				Message: fmt.Sprintf("invalid value kind: %q", f.ValueKind),
				Code:    ErrInvalidValueKind,
			})
		}

		errs = append(errs, validateOperators(path, f)...)

		if f.ValueKind.IsSelect() && len(f.Options) == 0 {
			errs = append(errs, ValidationError{
				Field:   path + ".options",
				Message: fmt.Sprintf("%s field requires options", f.ValueKind),
				Code:    ErrSelectNoOptions,
			})
		}

		errs = append(errs, validateRules(path, f)...)
	}

	return errs
}

func validateOperators(path string, f *FieldType) []ValidationError {
	var errs []ValidationError

	if len(f.SupportedOperators) == 0 {
		return []ValidationError{{
			Field:   path + ".operators",
			Message: "at least one operator is required",
			Code:    ErrNoOperators,
		}}
	}

	seen := make(map[OperatorKind]bool)
	for j, op := range f.SupportedOperators {
		if !op.Kind.Valid() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.operators[%d]", path, j),
				Message: fmt.Sprintf("invalid operator: %q", op.Kind),
				Code:    ErrInvalidOperator,
			})
		}
		if seen[op.Kind] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.operators[%d]", path, j),
				Message: fmt.Sprintf("duplicate operator: %q", op.Kind),
				Code:    ErrDuplicateOperator,
			})
		}
		seen[op.Kind] = true
	}

	if f.DefaultOperator != "" && !seen[f.DefaultOperator] {
		errs = append(errs, ValidationError{
			Field:   path + ".default",
			Message: fmt.Sprintf("default operator %q is not supported by the field", f.DefaultOperator),
			Code:    ErrDefaultUnsupported,
		})
	}
	return errs
}

func validateRules(path string, f *FieldType) []ValidationError {
	var errs []ValidationError
	var lo, hi *float64

	for j, r := range f.ValidationRules {
		field := fmt.Sprintf("%s.rules[%d]", path, j)
		switch r.Type {
		case RuleRequired, RuleCount:
		case RuleMin:
			n := r.Number
			lo = &n
		case RuleMax:
			n := r.Number
			hi = &n
		case RulePattern:
			if _, err := regexp.Compile(r.Pattern); err != nil {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("pattern does not compile: %v", err),
					Code:    ErrInvalidPattern,
				})
			}
		default:
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid rule type: %q", r.Type),
				Code:    ErrInvalidRule,
			})
		}
	}

	if lo != nil && hi != nil && *lo > *hi {
		errs = append(errs, ValidationError{
			Field:   path + ".rules",
			Message: fmt.Sprintf("min %g is greater than max %g", *lo, *hi),
			Code:    ErrRuleBounds,
		})
	}
	return errs
}
