package validate

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/facet/internal/catalog"
	"github.com/roach88/facet/internal/criteria"
)

func crit(t *testing.T, fieldID string, kind catalog.OperatorKind, v criteria.Value) criteria.Criterion {
	t.Helper()
	f, ok := catalog.Default().Field(fieldID)
	require.True(t, ok, fieldID)
	op, ok := f.Operator(kind)
	require.True(t, ok, "%s does not support %s", fieldID, kind)
	c := criteria.Criterion{ID: fieldID, Field: f, Operator: op, Value: v}
	c.IsValid = criteria.InlineValid(c)
	return c
}

func query(cs ...criteria.Criterion) criteria.Query {
	return criteria.Query{Criteria: cs, LogicalOperator: criteria.And}
}

func codes(fs []Finding) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Code
	}
	return out
}

func TestSeverityMapping(t *testing.T) {
	assert.Equal(t, SeverityError, KindRequired.Severity())
	assert.Equal(t, SeverityError, KindFormat.Severity())
	assert.Equal(t, SeverityWarning, KindConstraint.Severity())
	assert.Equal(t, SeverityWarning, KindConflict.Severity())
	assert.Equal(t, SeverityInfo, KindDuplicate.Severity())
}

func TestPresence(t *testing.T) {
	fs := Validate(criteria.Query{}, criteria.And)
	require.Len(t, fs, 1)
	assert.Equal(t, ErrEmptyQuery, fs[0].Code)
	assert.False(t, IsValid(fs))

	fs = Validate(criteria.Query{RawQuery: "   "}, criteria.And)
	assert.Len(t, fs, 1)

	fs = Validate(criteria.Query{RawQuery: "status:Active"}, criteria.And)
	assert.Empty(t, fs)
	assert.NotNil(t, fs)
}

func TestValidQueryHasNoFindings(t *testing.T) {
	q := query(
		crit(t, "branch-name", catalog.OpContains, criteria.String("main")),
		crit(t, "iteration", catalog.OpGT, criteria.Number(2)),
		crit(t, "status", catalog.OpEquals, criteria.String("Active")),
		crit(t, "created-date", catalog.OpLT, criteria.NewDate(2024, 1, 1)),
		crit(t, "assignee", catalog.OpIsEmpty, nil),
		crit(t, "labels", catalog.OpIn, criteria.List{"bug", "high priority"}),
	)
	assert.Empty(t, Validate(q, criteria.And))
}

func TestPerCriterionChecks(t *testing.T) {
	tests := []struct {
		name string
		c    criteria.Criterion
		code string
		kind Kind
	}{
		{"missing value", crit(t, "assignee", catalog.OpEquals, nil), ErrValueRequired, KindRequired},
		{"blank value", crit(t, "assignee", catalog.OpEquals, criteria.String("  ")), ErrValueRequired, KindRequired},
		{"non numeric", crit(t, "iteration", catalog.OpEquals, criteria.String("abc")), ErrNotANumber, KindFormat},
		{"nan", crit(t, "iteration", catalog.OpEquals, criteria.Number(math.NaN())), ErrNotANumber, KindFormat},
		{"bad date", crit(t, "created-date", catalog.OpEquals, criteria.String("soon")), ErrNotADate, KindFormat},
		{"unknown option", crit(t, "status", catalog.OpEquals, criteria.String("Archived")), ErrUnknownOption, KindFormat},
		{"unknown list option", crit(t, "labels", catalog.OpIn, criteria.List{"bug", "wontfix"}), ErrUnknownOption, KindFormat},
		{"too long", crit(t, "branch-name", catalog.OpContains, criteria.String(strings.Repeat("x", 101))), ErrValueLength, KindConstraint},
		{"count upper bound", crit(t, "iteration", catalog.OpLT, criteria.Number(0)), ErrCountRange, KindConstraint},
		{"count lower bound", crit(t, "iteration", catalog.OpGTE, criteria.Number(-1)), ErrCountRange, KindConstraint},
		{"max rule", crit(t, "iteration", catalog.OpEquals, criteria.Number(10000)), ErrAboveMax, KindConstraint},
		{"pattern rule", crit(t, "assignee", catalog.OpEquals, criteria.String("john doe")), ErrPatternMismatch, KindFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := ValidateCriterion(tt.c)
			require.Len(t, fs, 1, "%v", fs)
			assert.Equal(t, tt.code, fs[0].Code)
			assert.Equal(t, tt.kind, fs[0].Kind)
			assert.Equal(t, tt.kind.Severity(), fs[0].Severity)
			assert.Equal(t, tt.c.Field.ID, fs[0].Field)
		})
	}
}

func TestCountBoundaries(t *testing.T) {
	assert.Empty(t, ValidateCriterion(crit(t, "iteration", catalog.OpGTE, criteria.Number(0))))
	assert.Empty(t, ValidateCriterion(crit(t, "iteration", catalog.OpGT, criteria.Number(0))))
	assert.Empty(t, ValidateCriterion(crit(t, "iteration", catalog.OpLTE, criteria.Number(1))))
	assert.Len(t, ValidateCriterion(crit(t, "iteration", catalog.OpLTE, criteria.Number(0))), 1)
}

func TestLengthLimitCountsRunes(t *testing.T) {
	c := crit(t, "branch-name", catalog.OpContains, criteria.String(strings.Repeat("é", MaxTextLength)))
	assert.Empty(t, ValidateCriterion(c))
}

func TestCatalogRuleMessagesAndMin(t *testing.T) {
	f := &catalog.FieldType{
		ID:                 "score",
		Label:              "Score",
		ValueKind:          catalog.KindNumber,
		SupportedOperators: []catalog.Operator{catalog.Op(catalog.OpEquals)},
		ValidationRules: []catalog.Rule{
			{Type: catalog.RuleRequired, Message: "Score is mandatory"},
			{Type: catalog.RuleMin, Number: 1, Message: "Score must be at least 1"},
		},
	}
	c := criteria.Criterion{Field: f, Operator: catalog.Op(catalog.OpEquals)}
	fs := ValidateCriterion(c)
	require.Len(t, fs, 1)
	assert.Equal(t, "Score is mandatory", fs[0].Message)

	c.Value = criteria.Number(0)
	fs = ValidateCriterion(c)
	require.Len(t, fs, 1)
	assert.Equal(t, ErrBelowMin, fs[0].Code)
	assert.Equal(t, "Score must be at least 1", fs[0].Message)
}

func TestMalformedCriteria(t *testing.T) {
	f, _ := catalog.Default().Field("status")
	q := query(
		criteria.Criterion{ID: "x"},
		criteria.Criterion{ID: "y", Field: f, Operator: catalog.Op(catalog.OpGT), Value: criteria.String("Active")},
	)
	var fs []Finding
	assert.NotPanics(t, func() { fs = Validate(q, criteria.And) })
	assert.Equal(t, []string{ErrNoField, ErrUnsupportedOperator}, codes(fs))
	assert.False(t, IsValid(fs))
}

func TestDuplicateExample(t *testing.T) {
	q := query(
		crit(t, "status", catalog.OpEquals, criteria.String("Active")),
		crit(t, "status", catalog.OpEquals, criteria.String("Done")),
	)
	fs := Validate(q, criteria.And)

	assert.Equal(t, 1, Count(fs, KindDuplicate))
	assert.True(t, IsValid(fs))
	for _, f := range fs {
		if f.Kind == KindDuplicate {
			assert.Equal(t, SeverityInfo, f.Severity)
			assert.Contains(t, f.Message, "Status")
		}
	}
}

func TestDuplicateNamesAllLabels(t *testing.T) {
	q := query(
		crit(t, "branch-name", catalog.OpContains, criteria.String("a")),
		crit(t, "iteration", catalog.OpGT, criteria.Number(1)),
		crit(t, "branch-name", catalog.OpContains, criteria.String("b")),
		crit(t, "iteration", catalog.OpGT, criteria.Number(2)),
		crit(t, "iteration", catalog.OpLT, criteria.Number(9)),
	)
	fs := Validate(q, criteria.And)
	require.Equal(t, 1, Count(fs, KindDuplicate))
	dup := fs[0]
	assert.Equal(t, "Duplicate criteria: Branch Name (contains), Iteration (greater than)", dup.Message)
	assert.Equal(t, "branch-name,iteration", dup.Field)
}

func TestConflictExample(t *testing.T) {
	q := query(
		crit(t, "iteration", catalog.OpGT, criteria.Number(5)),
		crit(t, "iteration", catalog.OpLT, criteria.Number(3)),
	)
	fs := Validate(q, criteria.And)
	require.Len(t, fs, 1)
	assert.Equal(t, KindConflict, fs[0].Kind)
	assert.Equal(t, SeverityWarning, fs[0].Severity)
	assert.Equal(t, ErrRangeConflict, fs[0].Code)
	assert.True(t, IsValid(fs))
}

func TestRangeConflictBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		lo, hi   catalog.OperatorKind
		lv, hv   float64
		conflict bool
	}{
		{"inclusive equal", catalog.OpGTE, catalog.OpLTE, 5, 5, true},
		{"strict lower equal", catalog.OpGT, catalog.OpLTE, 5, 5, true},
		{"strict upper equal", catalog.OpGTE, catalog.OpLT, 5, 5, true},
		{"open range", catalog.OpGT, catalog.OpLT, 1, 9, false},
		{"inverted", catalog.OpGTE, catalog.OpLTE, 6, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := query(
				crit(t, "iteration", tt.lo, criteria.Number(tt.lv)),
				crit(t, "iteration", tt.hi, criteria.Number(tt.hv)),
			)
			fs := Validate(q, criteria.And)
			assert.Equal(t, tt.conflict, Count(fs, KindConflict) == 1, "%v", fs)
		})
	}
}

func TestRangeConflictInclusiveTouchingBounds(t *testing.T) {
	q := query(
		crit(t, "iteration", catalog.OpGTE, criteria.Number(5)),
		crit(t, "iteration", catalog.OpLTE, criteria.Number(5)),
	)
	fs := Validate(q, criteria.And)
	require.Len(t, fs, 1)
	assert.Equal(t, ErrRangeConflict, fs[0].Code)
	assert.Contains(t, fs[0].Message, "lower bound 5 is not below upper bound 5")
	assert.True(t, IsValid(fs))
}

func TestTightestBoundsAreCompared(t *testing.T) {
	q := query(
		crit(t, "iteration", catalog.OpGT, criteria.Number(1)),
		crit(t, "iteration", catalog.OpGTE, criteria.Number(8)),
		crit(t, "iteration", catalog.OpLT, criteria.Number(7)),
	)
	fs := Validate(q, criteria.And)
	require.Equal(t, 1, Count(fs, KindConflict))
	assert.Contains(t, fs[len(fs)-1].Message, "lower bound 8")
}

func TestEqualsConflicts(t *testing.T) {
	q := query(
		crit(t, "status", catalog.OpEquals, criteria.String("Active")),
		crit(t, "status", catalog.OpNotEquals, criteria.String("Done")),
		crit(t, "assignee", catalog.OpEquals, criteria.String("ann")),
		crit(t, "assignee", catalog.OpEquals, criteria.String("bob")),
	)
	fs := Validate(q, criteria.And)
	assert.Equal(t, []string{ErrDuplicate, ErrEqualsConflict}, codes(fs),
		"two equals on a text field is a duplicate, not a select conflict")

	q = query(
		crit(t, "status", catalog.OpEquals, criteria.String("Active")),
		crit(t, "status", catalog.OpEquals, criteria.String("Done")),
	)
	fs = Validate(q, criteria.And)
	assert.Equal(t, []string{ErrDuplicate, ErrSelectConflict}, codes(fs))

	q = query(
		crit(t, "status", catalog.OpEquals, criteria.String("Active")),
		crit(t, "status", catalog.OpEquals, criteria.String("Active")),
	)
	fs = Validate(q, criteria.And)
	assert.Equal(t, []string{ErrDuplicate}, codes(fs))
}

func TestOrWithEmptyOperators(t *testing.T) {
	q := query(
		crit(t, "assignee", catalog.OpIsEmpty, nil),
		crit(t, "labels", catalog.OpIsEmpty, nil),
		crit(t, "status", catalog.OpEquals, criteria.String("Active")),
	)

	assert.Empty(t, Validate(q, criteria.And))

	fs := Validate(q, criteria.Or)
	require.Len(t, fs, 1)
	assert.Equal(t, ErrOrEmptyOperator, fs[0].Code)
	assert.Equal(t, KindConstraint, fs[0].Kind)
	assert.Equal(t, SeverityWarning, fs[0].Severity)
	assert.True(t, IsValid(fs))

	q.LogicalOperator = criteria.Or
	assert.Len(t, Validate(q, ""), 1, "empty op falls back to the query's operator")
}

func TestPassesDoNotShortCircuit(t *testing.T) {
	q := query(
		crit(t, "iteration", catalog.OpGT, criteria.String("x")),
		crit(t, "iteration", catalog.OpGT, criteria.Number(5)),
		crit(t, "iteration", catalog.OpLT, criteria.Number(3)),
		crit(t, "assignee", catalog.OpIsNotEmpty, nil),
	)
	fs := Validate(q, criteria.Or)
	assert.Equal(t, []string{ErrNotANumber, ErrDuplicate, ErrRangeConflict, ErrOrEmptyOperator}, codes(fs))
	assert.False(t, IsValid(fs))
}

func TestIdempotent(t *testing.T) {
	q := query(
		crit(t, "status", catalog.OpEquals, criteria.String("Active")),
		crit(t, "status", catalog.OpEquals, criteria.String("Done")),
		crit(t, "iteration", catalog.OpGT, criteria.Number(5)),
		crit(t, "iteration", catalog.OpLT, criteria.Number(3)),
	)
	first := Validate(q, criteria.Or)
	second := Validate(q, criteria.Or)
	assert.Equal(t, first, second)
}

func TestRevalidate(t *testing.T) {
	q := query(
		crit(t, "status", catalog.OpEquals, criteria.String("Archived")),
		crit(t, "iteration", catalog.OpGT, criteria.Number(5)),
	)
	q.Criteria[0].IsValid = true
	q.Criteria[1].IsValid = false

	fs := Revalidate(&q, criteria.And)
	assert.False(t, q.Criteria[0].IsValid)
	assert.True(t, q.Criteria[1].IsValid)
	assert.False(t, q.IsValid)
	assert.Equal(t, []string{ErrUnknownOption}, codes(fs))
}
