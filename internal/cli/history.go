package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/facet/internal/history"
)

// HistoryListOptions holds flags for history list.
type HistoryListOptions struct {
	*RootOptions
	Search string
	Limit  int
}

// NewHistoryCommand creates the history command group.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear search history",
	}
	cmd.AddCommand(newHistoryListCommand(rootOpts))
	cmd.AddCommand(newHistoryRemoveCommand(rootOpts))
	cmd.AddCommand(newHistoryClearCommand(rootOpts))
	return cmd
}

func newHistoryListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List recent searches, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Search, "search", "", "only entries whose text contains this term")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum entries (0 for all)")
	return cmd
}

func runHistoryList(opts *HistoryListOptions, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	h, err := s.history(commandContext(cmd))
	if err != nil {
		return err
	}

	var entries []history.Entry
	if opts.Search != "" {
		entries = h.Search(opts.Search)
	} else {
		entries = h.Entries()
	}
	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}

	if s.out.JSON() {
		if entries == nil {
			entries = []history.Entry{}
		}
		return s.out.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(s.out.Writer, "No search history")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(s.out.Writer, "%s  %-6s %s\n", e.Timestamp.Local().Format("2006-01-02 15:04"), e.Mode, e.DisplayText)
		s.out.VerboseLog("  id=%s raw=%q", e.ID, e.RawQuery)
	}
	return nil
}

func newHistoryRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <id>",
		Short:         "Remove one history entry",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := commandContext(cmd)
			h, err := s.history(ctx)
			if err != nil {
				return err
			}
			if !h.Remove(ctx, args[0]) {
				return s.out.commandError(ErrCodeNotFound, fmt.Sprintf("history entry %q not found", args[0]), nil)
			}
			if s.out.JSON() {
				return s.out.Success(map[string]string{"removed": args[0]})
			}
			fmt.Fprintf(s.out.Writer, "✓ Removed %s\n", args[0])
			return nil
		},
	}
}

func newHistoryClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear",
		Short:         "Delete all search history",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := commandContext(cmd)
			h, err := s.history(ctx)
			if err != nil {
				return err
			}
			n := len(h.Entries())
			h.Clear(ctx)
			if s.out.JSON() {
				return s.out.Success(map[string]int{"cleared": n})
			}
			fmt.Fprintf(s.out.Writer, "✓ Cleared %d entries\n", n)
			return nil
		},
	}
}

// TemplateSaveOptions holds flags for template save.
type TemplateSaveOptions struct {
	*RootOptions
	Description string
	Tags        []string
	Mode        string
	Or          bool
}

// NewTemplateCommand creates the template command group.
func NewTemplateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage saved search templates",
	}
	cmd.AddCommand(newTemplateSaveCommand(rootOpts))
	cmd.AddCommand(newTemplateListCommand(rootOpts))
	cmd.AddCommand(newTemplateApplyCommand(rootOpts))
	cmd.AddCommand(newTemplateDeleteCommand(rootOpts))
	return cmd
}

func newTemplateSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TemplateSaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save <name> <query>...",
		Short: "Save a query as a named template",
		Long: `Save a query as a named template. Saving under an existing name
(case-insensitive) replaces that template and keeps its usage count.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplateSave(opts, args, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Description, "description", "", "template description")
	cmd.Flags().StringSliceVar(&opts.Tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().StringVar(&opts.Mode, "mode", string(history.ModeVisual), "editor mode (visual|raw)")
	cmd.Flags().BoolVar(&opts.Or, "or", false, "combine criteria with OR instead of AND")
	return cmd
}

func runTemplateSave(opts *TemplateSaveOptions, args []string, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	name := strings.TrimSpace(args[0])
	if name == "" {
		return s.out.commandError(ErrCodeInvalidArg, "template name must not be empty", nil)
	}
	mode, ok := history.ParseMode(opts.Mode)
	if !ok {
		return s.out.commandError(ErrCodeInvalidArg, fmt.Sprintf("invalid mode %q: must be visual or raw", opts.Mode), nil)
	}

	q, _, _ := s.parseQuery(strings.Join(args[1:], " "), logicalOperator(opts.Or))
	if len(q.Criteria) == 0 {
		return s.out.commandError(ErrCodeInvalidArg, "query has no usable criteria", nil)
	}

	ctx := commandContext(cmd)
	t, err := s.templates(ctx)
	if err != nil {
		return err
	}
	tmpl := t.Save(ctx, history.TemplateInput{
		Name:        name,
		Description: opts.Description,
		Query:       q,
		Mode:        mode,
		Tags:        opts.Tags,
	})

	if s.out.JSON() {
		return s.out.Success(tmpl)
	}
	fmt.Fprintf(s.out.Writer, "✓ Saved template %q (%s)\n", tmpl.Name, tmpl.ID)
	return nil
}

// TemplateListOptions holds flags for template list.
type TemplateListOptions struct {
	*RootOptions
	MostUsed int
}

func newTemplateListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TemplateListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List saved templates",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplateList(opts, cmd)
		},
	}
	cmd.Flags().IntVar(&opts.MostUsed, "most-used", 0, "only the N most used templates")
	return cmd
}

func runTemplateList(opts *TemplateListOptions, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	t, err := s.templates(commandContext(cmd))
	if err != nil {
		return err
	}

	var list []history.Template
	if opts.MostUsed > 0 {
		list = t.MostUsed(opts.MostUsed)
	} else {
		list = t.All()
	}

	if s.out.JSON() {
		if list == nil {
			list = []history.Template{}
		}
		return s.out.Success(list)
	}
	if len(list) == 0 {
		fmt.Fprintln(s.out.Writer, "No templates")
		return nil
	}
	for _, tmpl := range list {
		fmt.Fprintf(s.out.Writer, "%s  %-20s used %d  %s\n", tmpl.ID, tmpl.Name, tmpl.UsageCount, tmpl.RawQuery)
	}
	return nil
}

func newTemplateApplyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "apply <id>",
		Short:         "Mark a template as used and print its query",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := commandContext(cmd)
			t, err := s.templates(ctx)
			if err != nil {
				return err
			}
			tmpl, ok := t.Apply(ctx, args[0])
			if !ok {
				return s.out.commandError(ErrCodeNotFound, fmt.Sprintf("template %q not found", args[0]), nil)
			}
			if s.out.JSON() {
				return s.out.Success(tmpl)
			}
			fmt.Fprintln(s.out.Writer, tmpl.RawQuery)
			return nil
		},
	}
}

func newTemplateDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a saved template",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts, cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := commandContext(cmd)
			t, err := s.templates(ctx)
			if err != nil {
				return err
			}
			if !t.Delete(ctx, args[0]) {
				return s.out.commandError(ErrCodeNotFound, fmt.Sprintf("template %q not found", args[0]), nil)
			}
			if s.out.JSON() {
				return s.out.Success(map[string]string{"deleted": args[0]})
			}
			fmt.Fprintf(s.out.Writer, "✓ Deleted template %s\n", args[0])
			return nil
		},
	}
}
