package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/facet/internal/catalog"
	"github.com/roach88/facet/internal/compiler"
)

// CatalogCheckOutput is the JSON payload of catalog check.
type CatalogCheckOutput struct {
	Path   string                    `json:"path"`
	Valid  bool                      `json:"valid"`
	Fields int                       `json:"fields"`
	Errors []catalog.ValidationError `json:"errors,omitempty"`
}

// FieldOutput describes one catalog field.
type FieldOutput struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Kind      string   `json:"kind"`
	Default   string   `json:"default_operator"`
	Operators []string `json:"operators"`
	Options   []string `json:"options,omitempty"`
}

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and check field catalogs",
	}
	cmd.AddCommand(newCatalogCheckCommand(rootOpts))
	cmd.AddCommand(newCatalogShowCommand(rootOpts))
	return cmd
}

func newCatalogCheckCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <path>",
		Short: "Validate a catalog file or CUE directory",
		Long: `Validate a catalog definition for structural problems.

Checks field ids and labels, operators, defaults, options and rules.
Exits with status 1 when the catalog has errors.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogCheck(opts, args[0], cmd)
		},
	}
}

func runCatalogCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	out.VerboseLog("Loading catalog from %s", path)
	cat, err := catalog.Load(path)
	if err != nil {
		return out.commandError(ErrCodeCatalogLoad, "failed to load catalog", err)
	}

	errs := catalog.Validate(cat)
	result := CatalogCheckOutput{Path: path, Valid: len(errs) == 0, Fields: cat.Len(), Errors: errs}

	if len(errs) == 0 {
		if out.JSON() {
			return out.Success(result)
		}
		fmt.Fprintf(out.Writer, "✓ Catalog valid: %d fields\n", cat.Len())
		return nil
	}

	msg := fmt.Sprintf("catalog has %d error(s)", len(errs))
	if out.JSON() {
		_ = out.Failure(result, ErrCodeCatalogInvalid, msg)
	} else {
		fmt.Fprintf(out.Writer, "✗ Catalog invalid: %s\n", msg)
		for _, e := range errs {
			fmt.Fprintf(out.Writer, "  %s\n", e.Error())
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", ErrCodeCatalogInvalid, msg))
}

func newCatalogShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "List the fields of the active catalog",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogShow(opts, cmd)
		},
	}
}

func runCatalogShow(opts *RootOptions, cmd *cobra.Command) error {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	fields := s.catalog.Fields()
	rows := make([]FieldOutput, 0, len(fields))
	for _, f := range fields {
		row := FieldOutput{
			ID:      f.ID,
			Label:   f.Label,
			Kind:    string(f.ValueKind),
			Default: string(f.DefaultOperator),
			Options: f.Options,
		}
		for _, op := range f.SupportedOperators {
			row.Operators = append(row.Operators, operatorSyntax(op))
		}
		rows = append(rows, row)
	}

	if s.out.JSON() {
		return s.out.Success(rows)
	}
	for _, r := range rows {
		fmt.Fprintf(s.out.Writer, "%s (%s) [%s]\n", r.ID, r.Label, r.Kind)
		fmt.Fprintf(s.out.Writer, "  operators: %s\n", strings.Join(r.Operators, ", "))
		if len(r.Options) > 0 {
			fmt.Fprintf(s.out.Writer, "  options:   %s\n", strings.Join(r.Options, ", "))
		}
	}
	return nil
}

// operatorSyntax renders an operator as its label plus raw-query prefix,
// e.g. "greater than (>)".
func operatorSyntax(op catalog.Operator) string {
	if p, ok := compiler.Prefix(op.Kind); ok {
		return fmt.Sprintf("%s (%s)", op.Label, p)
	}
	return op.Label
}
