// Package cli implements the facet command-line interface.
package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/facet/internal/criteria"
	"github.com/roach88/facet/internal/store"
)

// RootOptions carries the persistent flags to every subcommand.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	Catalog    string

	// Store, IDs and Now override the configured store, the criterion id
	// generator and the wall clock (for testing). Nil means the defaults.
	Store store.Store
	IDs   criteria.IDGenerator
	Now   func() time.Time
}

// ValidFormats lists the values --format accepts.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the facet CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facet",
		Short: "facet - query intelligence for faceted search",
		Long: `Parse, format and validate faceted search queries like
"status:Active iteration:>5", and rank suggestions for the next input
from search history, templates and learned behavior patterns.`,
		// main reports errors so they are not printed twice.
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default: facet.yaml in the user config dir or .)")
	cmd.PersistentFlags().StringVar(&opts.Catalog, "catalog", "", "catalog file or CUE directory (overrides catalog.path)")

	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewFormatCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSuggestCommand(opts))
	cmd.AddCommand(NewTrackCommand(opts))
	cmd.AddCommand(NewShareCommand(opts))
	cmd.AddCommand(NewSQLCommand(opts))
	cmd.AddCommand(NewCatalogCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTemplateCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
