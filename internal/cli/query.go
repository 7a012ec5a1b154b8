package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/facet/internal/compiler"
	"github.com/roach88/facet/internal/criteria"
	"github.com/roach88/facet/internal/validate"
)

// QueryOptions holds flags shared by the query commands.
type QueryOptions struct {
	*RootOptions
	Or bool
}

// ParseOutput is the JSON payload of the parse command.
type ParseOutput struct {
	Query   criteria.Query `json:"query"`
	Tokens  int            `json:"tokens"`
	Dropped int            `json:"dropped"`
}

// FormatOutput is the JSON payload of the format command.
type FormatOutput struct {
	Query string `json:"query"`
}

// ValidateOutput is the JSON payload of the validate command.
type ValidateOutput struct {
	Query    string             `json:"query"`
	IsValid  bool               `json:"is_valid"`
	Findings []validate.Finding `json:"findings"`
}

func addQueryFlags(cmd *cobra.Command, opts *QueryOptions) {
	cmd.Flags().BoolVar(&opts.Or, "or", false, "combine criteria with OR instead of AND")
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse <query>...",
		Short: "Parse a raw query into criteria",
		Long: `Parse a raw query such as 'status:Active iteration:>5' into criteria.

Unknown fields and tokens without a colon are dropped; the number of
dropped terms is reported.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, args, cmd)
		},
	}
	addQueryFlags(cmd, opts)
	return cmd
}

func runParse(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	q, res, _ := s.parseQuery(strings.Join(args, " "), logicalOperator(opts.Or))

	if s.out.JSON() {
		return s.out.Success(ParseOutput{Query: q, Tokens: res.Tokens, Dropped: res.Dropped})
	}

	w := s.out.Writer
	fmt.Fprintf(w, "✓ Parsed %d criteria (%s)\n", len(q.Criteria), q.LogicalOperator)
	for _, c := range q.Criteria {
		mark := "✓"
		if !c.IsValid {
			mark = "✗"
		}
		fmt.Fprintf(w, "  %s %s\n", mark, describe(c))
	}
	if res.Dropped > 0 {
		fmt.Fprintf(w, "  %d of %d term(s) not understood\n", res.Dropped, res.Tokens)
	}
	return nil
}

// describe renders a criterion as "Label operator value".
func describe(c criteria.Criterion) string {
	parts := []string{c.FieldLabel(), c.Operator.Label}
	if c.DisplayValue != "" {
		parts = append(parts, c.DisplayValue)
	} else if c.Value != nil {
		parts = append(parts, c.Value.Text())
	}
	return strings.Join(parts, " ")
}

// NewFormatCommand creates the format command.
func NewFormatCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "format <query>...",
		Short: "Normalize a raw query",
		Long: `Parse a raw query and print it back in canonical form, for example
'created-date:=2024-01-15  status:=Active' becomes
'created-date:2024-01-15 status:Active'.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormat(opts, args, cmd)
		},
	}
	addQueryFlags(cmd, opts)
	return cmd
}

func runFormat(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	q, _, _ := s.parseQuery(strings.Join(args, " "), logicalOperator(opts.Or))
	text := compiler.Generate(q.Criteria, q.LogicalOperator)

	if s.out.JSON() {
		return s.out.Success(FormatOutput{Query: text})
	}
	fmt.Fprintln(s.out.Writer, text)
	return nil
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <query>...",
		Short: "Validate a query against the catalog",
		Long: `Validate a raw query against the field catalog.

Reports per-criterion errors, duplicates and conflicting criteria.
Exits with status 1 when any finding is an error.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}
	addQueryFlags(cmd, opts)
	return cmd
}

func runValidate(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	text := strings.Join(args, " ")
	q, _, findings := s.parseQuery(text, logicalOperator(opts.Or))
	result := ValidateOutput{Query: text, IsValid: q.IsValid, Findings: findings}

	if q.IsValid {
		if s.out.JSON() {
			return s.out.Success(result)
		}
		fmt.Fprintf(s.out.Writer, "✓ Query valid: %d criteria\n", len(q.Criteria))
		printFindings(s.out, findings)
		return nil
	}

	code := firstErrorCode(findings)
	msg := fmt.Sprintf("query has %d finding(s)", len(findings))
	if s.out.JSON() {
		_ = s.out.Failure(result, code, msg)
	} else {
		fmt.Fprintf(s.out.Writer, "✗ Query invalid: %s\n", msg)
		printFindings(s.out, findings)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", code, msg))
}

func printFindings(out *OutputFormatter, findings []validate.Finding) {
	for _, f := range findings {
		fmt.Fprintf(out.Writer, "  %s\n", f.String())
	}
}

func firstErrorCode(findings []validate.Finding) string {
	for _, f := range findings {
		if f.Severity == validate.SeverityError {
			return f.Code
		}
	}
	return ErrCodeGeneric
}
