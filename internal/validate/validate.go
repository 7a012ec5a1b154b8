// Package validate checks a set of criteria for structural, type and
// semantic problems.
//
// Validation is a pure function: the same query always yields the same
// findings, in the same order. Nothing here returns an error or panics;
// malformed input becomes findings.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/roach88/facet/internal/catalog"
	"github.com/roach88/facet/internal/criteria"
)

// MaxTextLength is the longest text value accepted without a constraint
// finding, in runes.
const MaxTextLength = 100

// Validate runs every pass over q and returns the concatenated findings:
// presence, per-criterion values, duplicates, conflicts, then the
// logical-operator interaction. An empty op falls back to
// q.LogicalOperator.
func Validate(q criteria.Query, op criteria.LogicalOperator) []Finding {
	if op == "" {
		op = q.LogicalOperator
	}

	v := &validator{findings: []Finding{}}
	v.checkPresence(q)
	for _, c := range q.Criteria {
		v.checkCriterion(c)
	}
	v.checkDuplicates(q.Criteria)
	v.checkConflicts(q.Criteria)
	v.checkLogicalOperator(q.Criteria, op)
	return v.findings
}

// ValidateCriterion returns the per-criterion findings for c alone.
func ValidateCriterion(c criteria.Criterion) []Finding {
	v := &validator{findings: []Finding{}}
	v.checkCriterion(c)
	return v.findings
}

// Revalidate validates q, then refreshes the cached IsValid flags of its
// criteria and of q itself. It returns the findings.
func Revalidate(q *criteria.Query, op criteria.LogicalOperator) []Finding {
	for i := range q.Criteria {
		q.Criteria[i].IsValid = IsValid(ValidateCriterion(q.Criteria[i]))
	}
	findings := Validate(*q, op)
	q.IsValid = IsValid(findings)
	return findings
}

// validator accumulates findings during the passes.
type validator struct {
	findings []Finding
}

func (v *validator) add(kind Kind, code, field, format string, args ...any) {
	v.findings = append(v.findings, Finding{
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
		Code:     code,
		Kind:     kind,
		Severity: kind.Severity(),
	})
}

func (v *validator) checkPresence(q criteria.Query) {
	if len(q.Criteria) == 0 && strings.TrimSpace(q.RawQuery) == "" {
		v.add(KindRequired, ErrEmptyQuery, "query", "At least one search criterion is required")
	}
}

func (v *validator) checkCriterion(c criteria.Criterion) {
	f := c.Field
	if f == nil {
		v.add(KindRequired, ErrNoField, "criterion", "Criterion %q has no field", c.ID)
		return
	}
	if !f.Supports(c.Operator.Kind) {
		v.add(KindFormat, ErrUnsupportedOperator, f.ID,
			"%s does not support the %q operator", f.Label, c.Operator.Kind)
		return
	}
	if !c.Operator.RequiresValue {
		return
	}

	if criteria.IsEmpty(c.Value) {
		msg := fmt.Sprintf("Value is required for %s %s", f.Label, c.Operator.Label)
		if r, ok := f.Rule(catalog.RuleRequired); ok && r.Message != "" {
			msg = r.Message
		}
		v.add(KindRequired, ErrValueRequired, f.ID, "%s", msg)
		return
	}

	if !v.checkType(c) {
		return
	}
	v.checkLength(c)
	v.checkRules(c)
}

// checkType reports false when the value has the wrong type, so later
// checks do not pile on.
func (v *validator) checkType(c criteria.Criterion) bool {
	f := c.Field
	switch f.ValueKind {
	case catalog.KindNumber:
		n, ok := c.Value.(criteria.Number)
		if !ok || !n.Finite() {
			v.add(KindFormat, ErrNotANumber, f.ID, "%s must be a valid number, got %q", f.Label, c.Value.Text())
			return false
		}
	case catalog.KindDate:
		if _, ok := c.Value.(criteria.Date); !ok {
			v.add(KindFormat, ErrNotADate, f.ID, "%s must be a valid date, got %q", f.Label, c.Value.Text())
			return false
		}
	case catalog.KindBoolean:
		if _, ok := c.Value.(criteria.Bool); !ok {
			v.add(KindFormat, ErrNotABoolean, f.ID, "%s must be true or false, got %q", f.Label, c.Value.Text())
			return false
		}
	case catalog.KindSingleSelect, catalog.KindMultiSelect:
		var bad []string
		for _, item := range items(c.Value) {
			if !f.HasOption(item) {
				bad = append(bad, item)
			}
		}
		if len(bad) > 0 {
			v.add(KindFormat, ErrUnknownOption, f.ID, "%q is not a valid option for %s", strings.Join(bad, ", "), f.Label)
			return false
		}
	}
	return true
}

func (v *validator) checkLength(c criteria.Criterion) {
	for _, item := range items(c.Value) {
		if n := utf8.RuneCountInString(item); n > MaxTextLength {
			v.add(KindConstraint, ErrValueLength, c.Field.ID,
				"%s value is %d characters, the limit is %d", c.Field.Label, n, MaxTextLength)
			return
		}
	}
}

func (v *validator) checkRules(c criteria.Criterion) {
	f := c.Field
	n, isNumber := c.Value.(criteria.Number)

	for _, r := range f.ValidationRules {
		switch r.Type {
		case catalog.RuleCount:
			if !isNumber {
				continue
			}
			kind := c.Operator.Kind
			if kind.IsUpperBound() && n <= 0 {
				v.add(KindConstraint, ErrCountRange, f.ID,
					"%s", ruleMessage(r, "%s upper bound must be greater than 0", f.Label))
			}
			if kind.IsLowerBound() && n < 0 {
				v.add(KindConstraint, ErrCountRange, f.ID,
					"%s", ruleMessage(r, "%s lower bound must be 0 or greater", f.Label))
			}
		case catalog.RuleMin:
			if isNumber && float64(n) < r.Number {
				v.add(KindConstraint, ErrBelowMin, f.ID,
					"%s", ruleMessage(r, "%s must be at least %g", f.Label, r.Number))
			}
		case catalog.RuleMax:
			if isNumber && float64(n) > r.Number {
				v.add(KindConstraint, ErrAboveMax, f.ID,
					"%s", ruleMessage(r, "%s must be at most %g", f.Label, r.Number))
			}
		case catalog.RulePattern:
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				continue // reported by catalog validation
			}
			for _, item := range items(c.Value) {
				if !re.MatchString(item) {
					v.add(KindFormat, ErrPatternMismatch, f.ID,
						"%s", ruleMessage(r, "%s value %q does not match %s", f.Label, item, r.Pattern))
					break
				}
			}
		}
	}
}

func ruleMessage(r catalog.Rule, format string, args ...any) string {
	if r.Message != "" {
		return r.Message
	}
	return fmt.Sprintf(format, args...)
}

// items returns the textual items of a string or list value.
func items(val criteria.Value) []string {
	switch x := val.(type) {
	case criteria.String:
		return []string{string(x)}
	case criteria.List:
		return x
	default:
		return nil
	}
}
