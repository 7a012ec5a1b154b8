package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/facet/internal/compiler"
	"github.com/roach88/facet/internal/criteria"
	"github.com/roach88/facet/internal/shareurl"
)

// DefaultShareBase is the page shared URLs point at when --base is unset.
const DefaultShareBase = "https://localhost/search"

// ShareOptions holds flags for the share command.
type ShareOptions struct {
	*RootOptions
	Base   string
	Mode   string
	Decode string
}

// ShareOutput is the JSON payload of the share command.
type ShareOutput struct {
	URL     string          `json:"url,omitempty"`
	State   *shareurl.State `json:"state,omitempty"`
	Valid   bool            `json:"valid"`
	Found   bool            `json:"found"`
	Current bool            `json:"current_version"`
}

// NewShareCommand creates the share command.
func NewShareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShareOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "share [query]...",
		Short: "Encode a query into a shareable URL, or decode one",
		Long: `Encode a raw query into a shareable URL:

  facet share --base https://app.example.com/search 'status:Active'

or read the search back out of a URL:

  facet share --decode 'https://app.example.com/search?q=status%3AActive&mode=visual&v=1'`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShare(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Base, "base", DefaultShareBase, "base URL of the search page")
	cmd.Flags().StringVar(&opts.Mode, "mode", shareurl.ModeVisual, "editor mode (visual|raw)")
	cmd.Flags().StringVar(&opts.Decode, "decode", "", "URL to decode instead of encoding a query")

	return cmd
}

func runShare(opts *ShareOptions, args []string, cmd *cobra.Command) error {
	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if opts.Decode != "" {
		if len(args) > 0 {
			return s.out.commandError(ErrCodeInvalidArg, "--decode takes no query arguments", nil)
		}
		return runShareDecode(s, opts.Decode)
	}

	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return s.out.commandError(ErrCodeInvalidArg, "a query or --decode is required", nil)
	}

	state := shareurl.State{Query: text, Mode: opts.Mode}
	u, err := shareurl.Encode(opts.Base, state)
	if err != nil {
		return s.out.commandError(ErrCodeInvalidArg, "failed to encode URL", err)
	}

	valid := compiler.IsValidRawQuery(text, s.catalog)
	if s.out.JSON() {
		return s.out.Success(ShareOutput{URL: u, Valid: valid, Found: true, Current: true})
	}
	fmt.Fprintln(s.out.Writer, u)
	if !valid {
		fmt.Fprintln(s.out.ErrWriter, "warning: query has no usable criteria")
	}
	return nil
}

func runShareDecode(s *session, raw string) error {
	state, found, err := shareurl.Decode(raw)
	if err != nil {
		return s.out.commandError(ErrCodeInvalidArg, "failed to decode URL", err)
	}

	if !found {
		if s.out.JSON() {
			return s.out.Success(ShareOutput{})
		}
		fmt.Fprintln(s.out.Writer, "No search in URL")
		return nil
	}

	valid := compiler.IsValidRawQuery(state.Query, s.catalog)
	if s.out.JSON() {
		return s.out.Success(ShareOutput{State: &state, Valid: valid, Found: true, Current: state.Compatible()})
	}

	fmt.Fprintf(s.out.Writer, "Query: %s\n", state.Query)
	fmt.Fprintf(s.out.Writer, "Mode:  %s\n", state.Mode)
	if !state.Compatible() {
		fmt.Fprintf(s.out.Writer, "Version %s differs from current %s\n", state.Version, shareurl.Version)
	}
	if valid {
		q, _, _ := s.parseQuery(state.Query, criteria.And)
		fmt.Fprintf(s.out.Writer, "✓ %d criteria\n", len(q.Criteria))
	} else {
		fmt.Fprintln(s.out.Writer, "✗ No usable criteria")
	}
	return nil
}
