package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/facet/internal/querysql"
)

// SQLOptions holds flags for the sql command.
type SQLOptions struct {
	*RootOptions
	Or      bool
	Table   string
	Dialect string
}

// NewSQLCommand creates the sql command.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SQLOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sql <query>...",
		Short: "Compile a raw query to parameterized SQL",
		Long: `Compile a raw query into a parameterized SELECT over the search table.

Invalid criteria are left out, as in the formatted query. Values are
always passed as parameters.

Examples:
  facet sql 'status:Active iteration:>5'
  facet sql --dialect postgres --table runs 'labels:bug,urgent'`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Or, "or", false, "combine criteria with OR instead of AND")
	cmd.Flags().StringVar(&opts.Table, "table", "", "table to select from (default: sql.table)")
	cmd.Flags().StringVar(&opts.Dialect, "dialect", "", "sqlite or postgres (default: sql.dialect)")

	return cmd
}

func runSQL(opts *SQLOptions, args []string, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := s.cfg.SQL
	table := cfg.Table
	if opts.Table != "" {
		table = opts.Table
	}
	dialectName := cfg.Dialect
	if opts.Dialect != "" {
		dialectName = opts.Dialect
	}
	dialect, err := querysql.ParseDialect(dialectName)
	if err != nil {
		return s.out.commandError(ErrCodeInvalidArg, err.Error(), nil)
	}

	q, _, _ := s.parseQuery(strings.Join(args, " "), logicalOperator(opts.Or))
	c := querysql.NewCompiler(table,
		querysql.WithDialect(dialect),
		querysql.WithColumns(cfg.Columns),
		querysql.WithOrderBy(cfg.OrderBy),
	)
	st, err := c.Compile(q)
	if err != nil {
		return s.out.commandError(ErrCodeInvalidArg, "failed to compile query", err)
	}
	s.out.VerboseLog("Compiled %d criteria for %s (%d skipped)", len(q.Criteria)-st.Skipped, dialect, st.Skipped)

	if s.out.JSON() {
		return s.out.Success(st)
	}
	w := s.out.Writer
	fmt.Fprintln(w, st.SQL)
	for _, line := range querysql.Describe(st) {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if st.Skipped > 0 {
		fmt.Fprintf(w, "  %d invalid criteria skipped\n", st.Skipped)
	}
	return nil
}
