package validate

import (
	"fmt"
	"strings"

	"github.com/roach88/facet/internal/catalog"
	"github.com/roach88/facet/internal/criteria"
)

type pairKey struct {
	field string
	op    catalog.OperatorKind
}

// checkDuplicates emits a single finding naming every (field, operator)
// pair that occurs more than once.
func (v *validator) checkDuplicates(cs []criteria.Criterion) {
	counts := make(map[pairKey]int)
	var order []pairKey
	labels := make(map[pairKey]string)

	for _, c := range cs {
		if c.Field == nil {
			continue
		}
		k := pairKey{c.Field.ID, c.Operator.Kind}
		if counts[k] == 0 {
			order = append(order, k)
			labels[k] = fmt.Sprintf("%s (%s)", c.Field.Label, c.Operator.Label)
		}
		counts[k]++
	}

	var dups []string
	var fields []string
	for _, k := range order {
		if counts[k] > 1 {
			dups = append(dups, labels[k])
			fields = append(fields, k.field)
		}
	}
	if len(dups) == 0 {
		return
	}
	v.add(KindDuplicate, ErrDuplicate, strings.Join(fields, ","),
		"Duplicate criteria: %s", strings.Join(dups, ", "))
}

type bound struct {
	value  float64
	strict bool
}

type fieldUsage struct {
	field     *catalog.FieldType
	equals    []string
	notEquals bool
	lower     *bound
	upper     *bound
}

// checkConflicts applies the fixed pairwise rules per field: equals with
// not-equals, an empty numeric range, and two different equals values on a
// single-select field.
func (v *validator) checkConflicts(cs []criteria.Criterion) {
	usage := make(map[string]*fieldUsage)
	var order []string

	for _, c := range cs {
		if c.Field == nil {
			continue
		}
		u, ok := usage[c.Field.ID]
		if !ok {
			u = &fieldUsage{field: c.Field}
			usage[c.Field.ID] = u
			order = append(order, c.Field.ID)
		}

		switch kind := c.Operator.Kind; {
		case kind == catalog.OpEquals:
			if c.Value != nil {
				u.equals = append(u.equals, c.Value.Text())
			} else {
				u.equals = append(u.equals, "")
			}
		case kind == catalog.OpNotEquals:
			u.notEquals = true
		case kind.IsLowerBound() || kind.IsUpperBound():
			n, ok := c.Value.(criteria.Number)
			if !ok || !n.Finite() || c.Field.ValueKind != catalog.KindNumber {
				continue
			}
			b := bound{value: float64(n), strict: kind == catalog.OpGT || kind == catalog.OpLT}
			if kind.IsLowerBound() {
				u.lower = tighterLower(u.lower, b)
			} else {
				u.upper = tighterUpper(u.upper, b)
			}
		}
	}

	for _, id := range order {
		u := usage[id]
		label := u.field.Label

		if len(u.equals) > 0 && u.notEquals {
			v.add(KindConflict, ErrEqualsConflict, id,
				"%s cannot be both equal and not equal", label)
		}

		if u.lower != nil && u.upper != nil && emptyRange(*u.lower, *u.upper) {
			v.add(KindConflict, ErrRangeConflict, id,
				"%s lower bound %g is not below upper bound %g", label, u.lower.value, u.upper.value)
		}

		if u.field.ValueKind == catalog.KindSingleSelect && distinct(u.equals) > 1 {
			v.add(KindConflict, ErrSelectConflict, id,
				"%s cannot equal %s at the same time", label, strings.Join(u.equals, " and "))
		}
	}
}

func tighterLower(cur *bound, b bound) *bound {
	if cur == nil || b.value > cur.value || (b.value == cur.value && b.strict) {
		return &b
	}
	return cur
}

func tighterUpper(cur *bound, b bound) *bound {
	if cur == nil || b.value < cur.value || (b.value == cur.value && b.strict) {
		return &b
	}
	return cur
}

// emptyRange reports a range whose lower bound is not below its upper
// bound. Touching inclusive bounds count too: a range that admits a single
// value is better written as equals.
func emptyRange(lo, hi bound) bool {
	return lo.value >= hi.value
}

func distinct(values []string) int {
	seen := make(map[string]bool, len(values))
	for _, s := range values {
		seen[s] = true
	}
	return len(seen)
}

// checkLogicalOperator warns about empty-checks under OR, whose meaning is
// rarely what the user expects.
func (v *validator) checkLogicalOperator(cs []criteria.Criterion, op criteria.LogicalOperator) {
	if op != criteria.Or {
		return
	}
	var labels []string
	var fields []string
	for _, c := range cs {
		if c.Field == nil {
			continue
		}
		if c.Operator.Kind == catalog.OpIsEmpty || c.Operator.Kind == catalog.OpIsNotEmpty {
			labels = append(labels, fmt.Sprintf("%s %s", c.Field.Label, c.Operator.Label))
			fields = append(fields, c.Field.ID)
		}
	}
	if len(labels) == 0 {
		return
	}
	v.add(KindConstraint, ErrOrEmptyOperator, strings.Join(fields, ","),
		"Empty checks combined with OR may match more than intended: %s", strings.Join(labels, ", "))
}
