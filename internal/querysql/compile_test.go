package querysql

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/facet/internal/catalog"
	"github.com/roach88/facet/internal/compiler"
	"github.com/roach88/facet/internal/criteria"
	"github.com/roach88/facet/internal/testutil"
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

func parse(t *testing.T, raw string, op criteria.LogicalOperator) criteria.Query {
	t.Helper()
	cs := compiler.Parse(raw, catalog.Default(), compiler.WithIDGenerator(testutil.NewSequenceGenerator("c")))
	return criteria.Query{Criteria: cs, RawQuery: raw, LogicalOperator: op}
}

func TestCompile_SimpleSelect(t *testing.T) {
	st, err := NewCompiler("items").Compile(parse(t, "status:Active iteration:>5", criteria.And))
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM items WHERE status = ? AND iteration > ? ORDER BY id ASC COLLATE BINARY", st.SQL)
	assert.Equal(t, []any{"Active", 5.0}, st.Params)
	assert.Zero(t, st.Skipped)

	// Values are parameters, never part of the statement.
	assert.NotContains(t, st.SQL, "Active")
}

func TestCompile_Postgres(t *testing.T) {
	c := NewCompiler("items", WithDialect(DialectPostgres))
	st, err := c.Compile(parse(t, "status:Active iteration:>5 labels:bug,urgent", criteria.And))
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT * FROM items WHERE status = $1 AND iteration > $2 AND labels IN ($3, $4) ORDER BY id ASC",
		st.SQL)
	assert.Equal(t, []any{"Active", 5.0, "bug", "urgent"}, st.Params)
}

func TestCompile_OrderByMandatory(t *testing.T) {
	tests := []struct {
		name string
		c    *Compiler
		q    criteria.Query
		want string
	}{
		{"empty sqlite", NewCompiler("items"), criteria.Query{}, "SELECT * FROM items ORDER BY id ASC COLLATE BINARY"},
		{"empty postgres", NewCompiler("items", WithDialect(DialectPostgres)), criteria.Query{}, "SELECT * FROM items ORDER BY id ASC"},
		{
			"custom order",
			NewCompiler("runs", WithOrderBy("runs.created_at")),
			criteria.Query{},
			"SELECT * FROM runs ORDER BY runs.created_at ASC COLLATE BINARY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := tt.c.Compile(tt.q)
			require.NoError(t, err)
			assert.Equal(t, tt.want, st.SQL)
			assert.Equal(t, []any{}, st.Params)
		})
	}
}

func TestCompile_Operators(t *testing.T) {
	tests := []struct {
		name       string
		c          criteria.Criterion
		wantSQL    string
		wantParams []any
	}{
		{"equals", crit(t, "status", catalog.OpEquals, criteria.String("Done")), "status = ?", []any{"Done"}},
		{"not equals", crit(t, "status", catalog.OpNotEquals, criteria.String("Done")), "status <> ?", []any{"Done"}},
		{"gte", crit(t, "iteration", catalog.OpGTE, criteria.Number(2)), "iteration >= ?", []any{2.0}},
		{"lte", crit(t, "iteration", catalog.OpLTE, criteria.Number(9)), "iteration <= ?", []any{9.0}},
		{"lt", crit(t, "iteration", catalog.OpLT, criteria.Number(3.5)), "iteration < ?", []any{3.5}},
		{
			"contains escapes wildcards",
			crit(t, "branch-name", catalog.OpContains, criteria.String("feat_50%")),
			`branch_name LIKE ? ESCAPE '\'`,
			[]any{`%feat\_50\%%`},
		},
		{"starts with", crit(t, "branch-name", catalog.OpStartsWith, criteria.String("main")), `branch_name LIKE ? ESCAPE '\'`, []any{"main%"}},
		{"ends with", crit(t, "branch-name", catalog.OpEndsWith, criteria.String("fix")), `branch_name LIKE ? ESCAPE '\'`, []any{"%fix"}},
		{"in", crit(t, "labels", catalog.OpIn, criteria.List{"bug", "docs"}), "labels IN (?, ?)", []any{"bug", "docs"}},
		{"not in", crit(t, "labels", catalog.OpNotIn, criteria.List{"docs"}), "labels NOT IN (?)", []any{"docs"}},
		{"in scalar", crit(t, "status", catalog.OpIn, criteria.String("Active")), "status IN (?)", []any{"Active"}},
		{"is empty", crit(t, "assignee", catalog.OpIsEmpty, nil), "(assignee IS NULL OR assignee = '')", nil},
		{"is not empty", crit(t, "assignee", catalog.OpIsNotEmpty, nil), "(assignee IS NOT NULL AND assignee <> '')", nil},
		{"date", crit(t, "created-date", catalog.OpGT, criteria.NewDate(2024, time.January, 15)), "created_date > ?", []any{"2024-01-15"}},
	}

	c := NewCompiler("items")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, skipped, err := c.Where([]criteria.Criterion{tt.c}, criteria.And)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantParams, params)
			assert.Zero(t, skipped)
		})
	}
}

func TestCompile_PostgresDate(t *testing.T) {
	c := NewCompiler("items", WithDialect(DialectPostgres))
	q := criteria.Query{Criteria: []criteria.Criterion{
		crit(t, "created-date", catalog.OpEquals, criteria.NewDate(2024, time.January, 15)),
	}}

	st, err := c.Compile(q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM items WHERE created_date = $1 ORDER BY id ASC", st.SQL)
	assert.Equal(t, []any{time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)}, st.Params)
	assert.Equal(t, []string{"1: 2024-01-15"}, Describe(st))
}

func TestCompile_Or(t *testing.T) {
	q := criteria.Query{
		LogicalOperator: criteria.Or,
		Criteria: []criteria.Criterion{
			crit(t, "status", catalog.OpEquals, criteria.String("Active")),
			crit(t, "assignee", catalog.OpIsEmpty, nil),
		},
	}

	st, err := NewCompiler("items").Compile(q)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT * FROM items WHERE status = ? OR (assignee IS NULL OR assignee = '') ORDER BY id ASC COLLATE BINARY",
		st.SQL)
}

func TestCompile_SkipsInvalid(t *testing.T) {
	st, err := NewCompiler("items").Compile(parse(t, "iteration:abc status:Active", criteria.And))
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM items WHERE status = ? ORDER BY id ASC COLLATE BINARY", st.SQL)
	assert.Equal(t, 1, st.Skipped)
}

func TestCompile_Columns(t *testing.T) {
	c := NewCompiler("items", WithColumns(map[string]string{"status": "state", "branch-name": "runs.branch"}))
	assert.Equal(t, "state", c.Column("status"))
	assert.Equal(t, "runs.branch", c.Column("branch-name"))
	assert.Equal(t, "created_date", c.Column("created-date"))

	st, err := c.Compile(parse(t, "status:Active", criteria.And))
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM items WHERE state = ? ORDER BY id ASC COLLATE BINARY", st.SQL)
}

func TestCompile_InvalidIdentifiers(t *testing.T) {
	tests := []struct {
		name string
		c    *Compiler
	}{
		{"table", NewCompiler("items; DROP TABLE items")},
		{"order by", NewCompiler("items", WithOrderBy("id DESC"))},
		{"column", NewCompiler("items", WithColumns(map[string]string{"status": "status = 1 OR 1"}))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.c.Compile(parse(t, "status:Active", criteria.And))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidIdentifier)
		})
	}
}

func TestCompile_ListWithScalarOperator(t *testing.T) {
	f, _ := catalog.Default().Field("status")
	c := criteria.Criterion{Field: f, Operator: catalog.Op(catalog.OpEquals), Value: criteria.List{"a", "b"}, IsValid: true}

	_, _, _, err := NewCompiler("items").Where([]criteria.Criterion{c}, criteria.And)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile status")
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect(" Postgres ")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, d)

	d, err = ParseDialect("sqlite")
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, d)

	_, err = ParseDialect("mysql")
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	st := Statement{Params: []any{"Active", 5.0, true}}
	want := []string{`1: "Active"`, "2: 5", "3: true"}
	if diff := cmp.Diff(want, Describe(st)); diff != "" {
		t.Errorf("Describe mismatch (-want +got):\n%s", diff)
	}
}
