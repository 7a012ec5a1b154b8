package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/facet/internal/criteria"
	"github.com/roach88/facet/internal/history"
	"github.com/roach88/facet/internal/suggest"
)

// SuggestOptions holds flags for the suggest command.
type SuggestOptions struct {
	*RootOptions
	Input   string
	Field   string
	Current string
	Limit   int
}

// NewSuggestCommand creates the suggest command.
func NewSuggestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SuggestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Rank suggestions for the next search input",
		Long: `Rank field, value, operator and template suggestions from search
history, saved templates and learned behavior patterns.

Examples:
  facet suggest --current 'status:Active'
  facet suggest --field status --input Ac`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggest(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", "", "text typed so far")
	cmd.Flags().StringVar(&opts.Field, "field", "", "field being edited (id or label)")
	cmd.Flags().StringVar(&opts.Current, "current", "", "criteria already in the query, as a raw query")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum suggestions (default: suggest.limit)")

	return cmd
}

func runSuggest(opts *SuggestOptions, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	limit := opts.Limit
	if limit == 0 {
		limit = s.cfg.Suggest.Limit
	}
	if limit < 0 {
		return s.out.commandError(ErrCodeInvalidArg, fmt.Sprintf("--limit must be positive, got %d", limit), nil)
	}

	sc := suggest.Context{
		Input:   opts.Input,
		Catalog: s.catalog,
		Limit:   limit,
		Now:     s.now(),
	}
	if opts.Field != "" {
		f, ok := s.catalog.Lookup(opts.Field)
		if !ok {
			return s.out.commandError(ErrCodeInvalidArg, fmt.Sprintf("unknown field %q", opts.Field), nil)
		}
		sc.ActiveField = f
	}
	if strings.TrimSpace(opts.Current) != "" {
		q, _, _ := s.parseQuery(opts.Current, criteria.And)
		sc.Current = q.Criteria
	}

	ctx := commandContext(cmd)
	h, err := s.history(ctx)
	if err != nil {
		return err
	}
	t, err := s.templates(ctx)
	if err != nil {
		return err
	}
	r, err := s.ranker(ctx)
	if err != nil {
		return err
	}
	sc.RecentHistory = h.Entries()
	sc.Templates = t.All()

	items := r.Suggest(sc)
	s.out.VerboseLog("%d suggestion(s) from %d history entries, %d templates, %d patterns",
		len(items), len(sc.RecentHistory), len(sc.Templates), len(r.Patterns()))

	if s.out.JSON() {
		return s.out.Success(items)
	}
	if len(items) == 0 {
		fmt.Fprintln(s.out.Writer, "No suggestions")
		return nil
	}
	for _, it := range items {
		fmt.Fprintf(s.out.Writer, "  %.2f  %-10s %-24s %s\n", it.Score, it.Kind, it.Label, it.Reason)
	}
	return nil
}

// TrackOptions holds flags for the track command.
type TrackOptions struct {
	*RootOptions
	Action string
	Mode   string
	Or     bool
}

// TrackOutput is the JSON payload of the track command.
type TrackOutput struct {
	Action   string         `json:"action"`
	Recorded bool           `json:"recorded"`
	Entry    *history.Entry `json:"entry,omitempty"`
}

// NewTrackCommand creates the track command.
func NewTrackCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TrackOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "track <query>...",
		Short: "Record a user action on a query",
		Long: `Record a user action for behavior learning.

An executed search (the default action) also grows the pattern of the
fields it used and is added to search history.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrack(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Action, "action", suggest.ActionSearchExecuted, "action name")
	cmd.Flags().StringVar(&opts.Mode, "mode", string(history.ModeVisual), "editor mode (visual|raw)")
	cmd.Flags().BoolVar(&opts.Or, "or", false, "combine criteria with OR instead of AND")

	return cmd
}

func runTrack(opts *TrackOptions, args []string, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	mode, ok := history.ParseMode(opts.Mode)
	if !ok {
		return s.out.commandError(ErrCodeInvalidArg, fmt.Sprintf("invalid mode %q: must be visual or raw", opts.Mode), nil)
	}
	if strings.TrimSpace(opts.Action) == "" {
		return s.out.commandError(ErrCodeInvalidArg, "--action must not be empty", nil)
	}

	ctx := commandContext(cmd)
	r, err := s.ranker(ctx)
	if err != nil {
		return err
	}

	q, _, _ := s.parseQuery(strings.Join(args, " "), logicalOperator(opts.Or))
	r.TrackBehavior(ctx, opts.Action, suggest.Payload{Criteria: q.Criteria, RawQuery: q.RawQuery})

	result := TrackOutput{Action: opts.Action}
	if opts.Action == suggest.ActionSearchExecuted {
		h, err := s.history(ctx)
		if err != nil {
			return err
		}
		if e, added := h.Add(ctx, q, mode); added {
			result.Recorded = true
			result.Entry = &e
		}
	}

	if s.out.JSON() {
		return s.out.Success(result)
	}
	fmt.Fprintf(s.out.Writer, "✓ Tracked %s\n", opts.Action)
	if result.Entry != nil {
		fmt.Fprintf(s.out.Writer, "✓ Added to history: %s\n", result.Entry.DisplayText)
	}
	return nil
}
