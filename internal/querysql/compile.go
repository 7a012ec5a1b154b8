// Package querysql compiles a criteria query into a parameterized SQL
// SELECT, so a search backend can run what the query editor produced.
//
// Values are never interpolated: every value becomes a placeholder
// parameter. Every statement carries an ORDER BY for deterministic results.
package querysql

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/facet/internal/catalog"
	"github.com/roach88/facet/internal/criteria"
)

// Dialect selects the placeholder style and value encoding.
type Dialect string

const (
	// DialectSQLite uses "?" placeholders and dates as ISO text.
	DialectSQLite Dialect = "sqlite"
	// DialectPostgres uses "$n" placeholders and dates as time.Time.
	DialectPostgres Dialect = "postgres"
)

// ParseDialect accepts "sqlite" or "postgres" in any case.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case DialectSQLite, DialectPostgres:
		return d, nil
	}
	return "", fmt.Errorf("unknown dialect %q (want sqlite or postgres)", s)
}

// ErrInvalidIdentifier is returned for a table, column or order key that is
// not a plain SQL identifier.
var ErrInvalidIdentifier = errors.New("querysql: invalid identifier")

// validIdentifier matches plain SQL identifiers, optionally table-qualified.
// Identifiers cannot be parameterized, so nothing else is accepted.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// likeEscaper escapes LIKE wildcards in a value; the statement declares
// ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Option configures a Compiler.
type Option func(*Compiler)

// WithDialect sets the SQL dialect. The default is SQLite.
func WithDialect(d Dialect) Option {
	return func(c *Compiler) { c.dialect = d }
}

// WithColumns maps field ids to column names. Unmapped fields use the
// field id with dashes turned into underscores.
func WithColumns(columns map[string]string) Option {
	return func(c *Compiler) {
		for id, col := range columns {
			c.columns[id] = col
		}
	}
}

// WithOrderBy sets the ORDER BY column. The default is "id".
func WithOrderBy(column string) Option {
	return func(c *Compiler) { c.orderBy = column }
}

// Compiler compiles criteria to SQL against one table.
//
// Thread-safety: a Compiler is immutable after NewCompiler and safe for
// concurrent use.
type Compiler struct {
	table   string
	dialect Dialect
	columns map[string]string
	orderBy string
}

// NewCompiler returns a compiler for table.
func NewCompiler(table string, opts ...Option) *Compiler {
	c := &Compiler{
		table:   table,
		dialect: DialectSQLite,
		columns: make(map[string]string),
		orderBy: "id",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Statement is a compiled query.
type Statement struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
	// Skipped counts criteria left out because they are not valid.
	Skipped int `json:"skipped"`
}

// Compile converts q to a SELECT over the compiler's table. Only criteria
// whose cached IsValid is true are compiled, as with raw query generation.
// A query without valid criteria selects every row.
func (c *Compiler) Compile(q criteria.Query) (Statement, error) {
	if !validIdentifier.MatchString(c.table) {
		return Statement{}, fmt.Errorf("%w: table %q", ErrInvalidIdentifier, c.table)
	}
	if !validIdentifier.MatchString(c.orderBy) {
		return Statement{}, fmt.Errorf("%w: order by %q", ErrInvalidIdentifier, c.orderBy)
	}

	where, params, skipped, err := c.Where(q.Criteria, q.LogicalOperator)
	if err != nil {
		return Statement{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT * FROM %s", c.table)
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(c.stableOrderKey())

	if params == nil {
		params = []any{}
	}
	return Statement{SQL: c.rebind(b.String()), Params: params, Skipped: skipped}, nil
}

// Where compiles the valid criteria of cs into a WHERE fragment joined by
// op, with "?" placeholders. An empty fragment means no filter.
func (c *Compiler) Where(cs []criteria.Criterion, op criteria.LogicalOperator) (string, []any, int, error) {
	joiner := " AND "
	if op == criteria.Or {
		joiner = " OR "
	}

	var (
		parts   []string
		params  []any
		skipped int
	)
	for _, cr := range cs {
		if !cr.IsValid || cr.Field == nil {
			skipped++
			continue
		}
		sql, ps, err := c.compileCriterion(cr)
		if err != nil {
			return "", nil, 0, fmt.Errorf("compile %s: %w", cr.FieldID(), err)
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, joiner), params, skipped, nil
}

// Column returns the column a field id compiles to.
func (c *Compiler) Column(fieldID string) string {
	if col, ok := c.columns[fieldID]; ok {
		return col
	}
	return strings.ReplaceAll(fieldID, "-", "_")
}

// stableOrderKey returns the ORDER BY clause for a query.
// COLLATE BINARY keeps SQLite text ordering deterministic across versions.
func (c *Compiler) stableOrderKey() string {
	if c.dialect == DialectSQLite {
		return c.orderBy + " ASC COLLATE BINARY"
	}
	return c.orderBy + " ASC"
}

func (c *Compiler) compileCriterion(cr criteria.Criterion) (string, []any, error) {
	col := c.Column(cr.FieldID())
	if !validIdentifier.MatchString(col) {
		return "", nil, fmt.Errorf("%w: column %q", ErrInvalidIdentifier, col)
	}

	switch kind := cr.Operator.Kind; kind {
	case catalog.OpIsEmpty:
		return fmt.Sprintf("(%s IS NULL OR %s = '')", col, col), nil, nil
	case catalog.OpIsNotEmpty:
		return fmt.Sprintf("(%s IS NOT NULL AND %s <> '')", col, col), nil, nil
	case catalog.OpIn, catalog.OpNotIn:
		return c.compileList(col, kind, cr.Value)
	case catalog.OpContains, catalog.OpStartsWith, catalog.OpEndsWith:
		if cr.Value == nil {
			return "", nil, fmt.Errorf("%s needs a value", kind)
		}
		pattern := likeEscaper.Replace(cr.Value.Text())
		switch kind {
		case catalog.OpContains:
			pattern = "%" + pattern + "%"
		case catalog.OpStartsWith:
			pattern += "%"
		default:
			pattern = "%" + pattern
		}
		return fmt.Sprintf(`%s LIKE ? ESCAPE '\'`, col), []any{pattern}, nil
	}

	cmp, ok := comparisons[cr.Operator.Kind]
	if !ok {
		return "", nil, fmt.Errorf("unsupported operator %q", cr.Operator.Kind)
	}
	param, err := c.toParam(cr.Value)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("%s %s ?", col, cmp), []any{param}, nil
}

var comparisons = map[catalog.OperatorKind]string{
	catalog.OpEquals:    "=",
	catalog.OpNotEquals: "<>",
	catalog.OpGT:        ">",
	catalog.OpLT:        "<",
	catalog.OpGTE:       ">=",
	catalog.OpLTE:       "<=",
}

// compileList compiles in / not-in. A scalar value is a one-item list.
func (c *Compiler) compileList(col string, kind catalog.OperatorKind, v criteria.Value) (string, []any, error) {
	var items []string
	switch val := v.(type) {
	case criteria.List:
		items = val
	case nil:
	default:
		items = []string{val.Text()}
	}

	if len(items) == 0 {
		if kind == catalog.OpIn {
			return "1 = 0", nil, nil
		}
		return "1 = 1", nil, nil
	}

	marks := make([]string, len(items))
	params := make([]any, len(items))
	for i, item := range items {
		marks[i] = "?"
		params[i] = item
	}
	not := ""
	if kind == catalog.OpNotIn {
		not = "NOT "
	}
	return fmt.Sprintf("%s %sIN (%s)", col, not, strings.Join(marks, ", ")), params, nil
}

// toParam converts a criterion value to a driver parameter.
func (c *Compiler) toParam(v criteria.Value) (any, error) {
	switch val := v.(type) {
	case criteria.String:
		return string(val), nil
	case criteria.Number:
		return float64(val), nil
	case criteria.Bool:
		return bool(val), nil
	case criteria.Date:
		if c.dialect == DialectPostgres {
			return val.Time().UTC(), nil
		}
		return val.Time().Format(criteria.DateLayout), nil
	case criteria.List:
		return nil, fmt.Errorf("a list cannot be compared with a single operator")
	case nil:
		return nil, fmt.Errorf("missing value")
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// rebind rewrites "?" placeholders for the dialect. Values are never
// inlined, so every "?" in the statement is a placeholder.
func (c *Compiler) rebind(sql string) string {
	if c.dialect != DialectPostgres {
		return sql
	}
	var b strings.Builder
	n := 0
	for _, r := range sql {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Describe renders params one per line for display, in placeholder order.
func Describe(st Statement) []string {
	lines := make([]string, len(st.Params))
	for i, p := range st.Params {
		switch v := p.(type) {
		case string:
			lines[i] = fmt.Sprintf("%d: %q", i+1, v)
		case time.Time:
			lines[i] = fmt.Sprintf("%d: %s", i+1, v.Format(criteria.DateLayout))
		default:
			lines[i] = fmt.Sprintf("%d: %v", i+1, v)
		}
	}
	return lines
}
