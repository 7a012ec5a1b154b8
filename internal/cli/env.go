package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/facet/internal/catalog"
	"github.com/roach88/facet/internal/compiler"
	"github.com/roach88/facet/internal/config"
	"github.com/roach88/facet/internal/criteria"
	"github.com/roach88/facet/internal/history"
	"github.com/roach88/facet/internal/store"
	"github.com/roach88/facet/internal/store/badger"
	"github.com/roach88/facet/internal/store/postgres"
	"github.com/roach88/facet/internal/store/sqlite"
	"github.com/roach88/facet/internal/suggest"
	"github.com/roach88/facet/internal/validate"
)

// session is what a command needs after global flags are applied: the
// configuration, the field catalog and, for commands that remember
// things, the store.
type session struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	out     *OutputFormatter
	ids     criteria.IDGenerator
	now     func() time.Time

	store     store.Store
	ownsStore bool
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// openSession loads configuration, sets up logging and loads the catalog.
// Errors have already been reported through the formatter.
func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	out := newFormatter(opts, cmd)

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, out.commandError(ErrCodeConfig, "failed to load config", err)
	}

	setupLogging(cmd.ErrOrStderr(), cfg.Log.Level, opts.Verbose)

	path := cfg.Catalog.Path
	if opts.Catalog != "" {
		path = opts.Catalog
	}
	cat, err := loadCatalog(out, path)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:     cfg,
		catalog: cat,
		out:     out,
		ids:     opts.IDs,
		now:     opts.Now,
	}
	if s.ids == nil {
		s.ids = criteria.UUIDv7Generator{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.Store != nil {
		s.store = opts.Store
	}
	return s, nil
}

// setupLogging installs the default slog logger. --verbose wins over the
// configured level.
func setupLogging(w io.Writer, level string, verbose bool) {
	lvl := slog.LevelWarn
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
}

// loadCatalog returns the built-in catalog for an empty path. A loaded
// catalog must also pass validation.
func loadCatalog(out *OutputFormatter, path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}

	out.VerboseLog("Loading catalog from %s", path)
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, out.commandError(ErrCodeCatalogLoad, "failed to load catalog", err)
	}
	if errs := catalog.Validate(cat); len(errs) > 0 {
		_ = out.Error(ErrCodeCatalogInvalid, fmt.Sprintf("catalog has %d error(s)", len(errs)), errs)
		if !out.JSON() {
			for _, e := range errs {
				fmt.Fprintf(out.Writer, "  %s\n", e.Error())
			}
		}
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: catalog has %d error(s)", ErrCodeCatalogInvalid, len(errs)))
	}
	out.VerboseLog("Loaded %d fields", cat.Len())
	return cat, nil
}

// openStore opens the configured store unless one was injected.
func (s *session) openStore(ctx context.Context) (store.Store, error) {
	if s.store != nil {
		return s.store, nil
	}

	st := s.cfg.Store
	var (
		opened store.Store
		err    error
	)
	switch st.Backend {
	case config.BackendSQLite:
		if err = os.MkdirAll(filepath.Dir(st.Path), 0o755); err == nil {
			opened, err = sqlite.Open(st.Path)
		}
	case config.BackendBadger:
		opened, err = badger.Open(st.Path)
	case config.BackendPostgres:
		opened, err = postgres.Open(ctx, st.DSN, st.Table)
	default:
		opened = store.NewMemory()
	}
	if err != nil {
		return nil, s.out.commandError(ErrCodeStore, fmt.Sprintf("failed to open %s store", st.Backend), err)
	}

	s.out.VerboseLog("Opened %s store", st.Backend)
	s.store = opened
	s.ownsStore = true
	return opened, nil
}

// Close releases a store the session opened itself.
func (s *session) Close() {
	if !s.ownsStore || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		slog.Warn("failed to close store", "error", err)
	}
}

func (s *session) history(ctx context.Context) (*history.History, error) {
	st, err := s.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return history.Open(ctx, st,
		history.WithIDGenerator(s.ids),
		history.WithClock(s.now),
		history.WithMaxEntries(s.cfg.History.MaxEntries),
	), nil
}

func (s *session) templates(ctx context.Context) (*history.Templates, error) {
	st, err := s.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return history.OpenTemplates(ctx, st,
		history.WithIDGenerator(s.ids),
		history.WithClock(s.now),
	), nil
}

func (s *session) ranker(ctx context.Context) (*suggest.Ranker, error) {
	st, err := s.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return suggest.NewRanker(ctx, st,
		suggest.WithClock(s.now),
		suggest.WithCatalog(s.catalog),
	), nil
}

// parseQuery builds a validated query from raw text. The returned
// findings already set the query's IsValid flag.
func (s *session) parseQuery(text string, op criteria.LogicalOperator) (criteria.Query, compiler.ParseResult, []validate.Finding) {
	res := compiler.ParseDetailed(text, s.catalog, compiler.WithIDGenerator(s.ids))
	q := criteria.Query{
		Criteria:        res.Criteria,
		RawQuery:        text,
		LogicalOperator: op,
	}
	findings := validate.Revalidate(&q, op)
	return q, res, findings
}

// logicalOperator maps the --or flag.
func logicalOperator(or bool) criteria.LogicalOperator {
	if or {
		return criteria.Or
	}
	return criteria.And
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
