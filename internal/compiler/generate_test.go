package compiler

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/facet/internal/catalog"
	"github.com/roach88/facet/internal/criteria"
)

func crit(t *testing.T, cat *catalog.Catalog, fieldID string, kind catalog.OperatorKind, v criteria.Value) criteria.Criterion {
	t.Helper()
	f, ok := cat.Field(fieldID)
	require.True(t, ok, fieldID)
	op, ok := f.Operator(kind)
	require.True(t, ok, "%s does not support %s", fieldID, kind)
	c := criteria.Criterion{ID: fieldID + "-" + string(kind), Field: f, Operator: op, Value: v}
	c.IsValid = criteria.InlineValid(c)
	return c
}

func TestGenerateEmptyAndSingle(t *testing.T) {
	cat := catalog.Default()
	assert.Equal(t, "", Generate(nil, criteria.And))

	cs := []criteria.Criterion{crit(t, cat, "status", catalog.OpEquals, criteria.String("Active"))}
	assert.Equal(t, "status:Active", Generate(cs, criteria.Or))
}

func TestGenerateRendering(t *testing.T) {
	cat := catalog.Default()
	tests := []struct {
		name string
		c    criteria.Criterion
		want string
	}{
		{"default operator has no prefix", crit(t, cat, "branch-name", catalog.OpContains, criteria.String("main")), "branch-name:main"},
		{"explicit equals", crit(t, cat, "branch-name", catalog.OpEquals, criteria.String("main")), "branch-name:=main"},
		{"not equals", crit(t, cat, "status", catalog.OpNotEquals, criteria.String("Done")), "status:!=Done"},
		{"gte", crit(t, cat, "iteration", catalog.OpGTE, criteria.Number(2.5)), "iteration:>=2.5"},
		{"lt", crit(t, cat, "iteration", catalog.OpLT, criteria.Number(10)), "iteration:<10"},
		{"date", crit(t, cat, "created-date", catalog.OpGT, criteria.NewDate(2024, 1, 31)), "created-date:>2024-01-31"},
		{"quoted string", crit(t, cat, "status", catalog.OpEquals, criteria.String("In Progress")), `status:"In Progress"`},
		{"list", crit(t, cat, "labels", catalog.OpIn, criteria.List{"bug", "docs"}), "labels:bug,docs"},
		{"quoted list", crit(t, cat, "labels", catalog.OpIn, criteria.List{"bug", "high priority"}), `labels:"bug,high priority"`},
		{"is empty", crit(t, cat, "assignee", catalog.OpIsEmpty, nil), "assignee:empty"},
		{"is not empty", crit(t, cat, "assignee", catalog.OpIsNotEmpty, nil), "assignee:not-empty"},
		{"keyword value keeps prefix", crit(t, cat, "branch-name", catalog.OpContains, criteria.String("empty")), "branch-name:~empty"},
		{"prefix-like value keeps prefix", crit(t, cat, "branch-name", catalog.OpContains, criteria.String("$x")), "branch-name:~$x"},
		{"unsupported prefix char needs none", crit(t, cat, "branch-name", catalog.OpContains, criteria.String(">x")), "branch-name:>x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.c))
		})
	}
}

func TestRenderBareOperator(t *testing.T) {
	f, _ := catalog.Default().Field("assignee")
	c := criteria.Criterion{Field: f, Operator: catalog.Operator{Kind: catalog.OpEquals, RequiresValue: false}}
	assert.Equal(t, "assignee", Render(c))
}

func TestGenerateJoins(t *testing.T) {
	cat := catalog.Default()
	cs := []criteria.Criterion{
		crit(t, cat, "status", catalog.OpEquals, criteria.String("Active")),
		crit(t, cat, "labels", catalog.OpIn, criteria.List{"high priority"}),
		crit(t, cat, "iteration", catalog.OpGT, criteria.Number(5)),
	}

	assert.Equal(t, `status:Active labels:"high priority" iteration:>5`, Generate(cs, criteria.And))
	assert.Equal(t, `status:Active OR (labels:"high priority") OR iteration:>5`, Generate(cs, criteria.Or))
}

func TestGenerateOmitsInvalidCriteria(t *testing.T) {
	cat := catalog.Default()
	bad := crit(t, cat, "iteration", catalog.OpGT, criteria.String("abc"))
	require.False(t, bad.IsValid)

	cs := []criteria.Criterion{
		crit(t, cat, "status", catalog.OpEquals, criteria.String("Active")),
		bad,
		crit(t, cat, "assignee", catalog.OpEquals, criteria.String("")),
	}
	for _, op := range []criteria.LogicalOperator{criteria.And, criteria.Or} {
		out := Generate(cs, op)
		assert.Equal(t, "status:Active", out)
		assert.NotContains(t, out, "iteration")
		assert.NotContains(t, out, "assignee")
	}

	// the cached flag is trusted as-is
	stale := crit(t, cat, "branch-name", catalog.OpContains, criteria.String("main"))
	stale.IsValid = false
	assert.Equal(t, "", Generate([]criteria.Criterion{stale}, criteria.And))
}

type triple struct {
	Field    string
	Operator catalog.OperatorKind
	Value    criteria.Value
}

func triples(cs []criteria.Criterion) []triple {
	out := make([]triple, len(cs))
	for i, c := range cs {
		out[i] = triple{c.FieldID(), c.Operator.Kind, c.Value}
	}
	return out
}

func TestWeakRoundTrip(t *testing.T) {
	cat := catalog.Default()
	cs := []criteria.Criterion{
		crit(t, cat, "branch-name", catalog.OpContains, criteria.String("main")),
		crit(t, cat, "iteration", catalog.OpGT, criteria.Number(5)),
		crit(t, cat, "status", catalog.OpNotEquals, criteria.String("Done")),
		crit(t, cat, "assignee", catalog.OpEquals, criteria.String("john")),
		crit(t, cat, "branch-name", catalog.OpStartsWith, criteria.String("feat/")),
		crit(t, cat, "iteration", catalog.OpLTE, criteria.Number(12.5)),
	}

	parsed := Parse(Generate(cs, criteria.And), cat)
	if diff := cmp.Diff(triples(cs), triples(parsed)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestPrefixTableIsFixedPoint(t *testing.T) {
	cat := catalog.Default()
	samples := map[catalog.OperatorKind]criteria.Criterion{
		catalog.OpGTE:        crit(t, cat, "iteration", catalog.OpGTE, criteria.Number(3)),
		catalog.OpLTE:        crit(t, cat, "iteration", catalog.OpLTE, criteria.Number(3)),
		catalog.OpGT:         crit(t, cat, "iteration", catalog.OpGT, criteria.Number(3)),
		catalog.OpLT:         crit(t, cat, "iteration", catalog.OpLT, criteria.Number(3)),
		catalog.OpNotEquals:  crit(t, cat, "status", catalog.OpNotEquals, criteria.String("Active")),
		catalog.OpEquals:     crit(t, cat, "branch-name", catalog.OpEquals, criteria.String("main")),
		catalog.OpContains:   crit(t, cat, "branch-name", catalog.OpContains, criteria.String("main")),
		catalog.OpStartsWith: crit(t, cat, "branch-name", catalog.OpStartsWith, criteria.String("main")),
		catalog.OpEndsWith:   crit(t, cat, "branch-name", catalog.OpEndsWith, criteria.String("main")),
	}
	require.Len(t, samples, len(prefixes))

	for kind, c := range samples {
		first := Render(c)
		parsed := Parse(first, cat)
		require.Len(t, parsed, 1, first)
		assert.Equal(t, kind, parsed[0].Operator.Kind, first)
		assert.Equal(t, first, Render(parsed[0]), "not a fixed point for %s", kind)
	}
}

func TestPrefixLookup(t *testing.T) {
	p, ok := Prefix(catalog.OpGTE)
	assert.True(t, ok)
	assert.Equal(t, ">=", p)

	for _, k := range []catalog.OperatorKind{catalog.OpIn, catalog.OpNotIn, catalog.OpIsEmpty, catalog.OpIsNotEmpty} {
		_, ok := Prefix(k)
		assert.False(t, ok, string(k))
	}

	seen := make(map[string]bool)
	for _, p := range prefixes {
		assert.False(t, seen[p.Prefix], "duplicate prefix %q", p.Prefix)
		seen[p.Prefix] = true
		assert.False(t, strings.ContainsAny(p.Prefix, " :"))
	}
}
