package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/facet/internal/catalog"
	"github.com/roach88/facet/internal/compiler"
	"github.com/roach88/facet/internal/criteria"
	"github.com/roach88/facet/internal/history"
	"github.com/roach88/facet/internal/querysql"
	"github.com/roach88/facet/internal/shareurl"
	"github.com/roach88/facet/internal/store/sqlite"
	"github.com/roach88/facet/internal/suggest"
	"github.com/roach88/facet/internal/testutil"
	"github.com/roach88/facet/internal/validate"
)

// Phases of a trace step.
const (
	PhaseSetup = "setup"
	PhaseFlow  = "flow"
)

// Actions a scenario step can run.
const (
	ActionParse         = "parse"
	ActionFormat        = "format"
	ActionValidate      = "validate"
	ActionSuggest       = "suggest"
	ActionTrack         = "track"
	ActionSaveTemplate  = "save_template"
	ActionApplyTemplate = "apply_template"
	ActionShare         = "share"
	ActionDecode        = "decode"
	ActionAdvanceClock  = "advance_clock"
	ActionSQL           = "sql"
)

func knownAction(name string) bool {
	switch name {
	case ActionParse, ActionFormat, ActionValidate, ActionSuggest, ActionTrack,
		ActionSaveTemplate, ActionApplyTemplate, ActionShare, ActionDecode, ActionAdvanceClock, ActionSQL:
		return true
	}
	return false
}

// DefaultShareBase is the base URL share steps use when none is given.
const DefaultShareBase = "https://localhost/search"

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and id generator.
type Harness struct {
	catalog   *catalog.Catalog
	clock     *testutil.Clock
	ids       *testutil.SequenceGenerator
	history   *history.History
	templates *history.Templates
	ranker    *suggest.Ranker
	logger    *slog.Logger

	// templateIDs maps template names to ids for apply_template.
	templateIDs map[string]string
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load and validate the catalog
// 3. Execute setup steps
// 4. Execute flow steps with expect validation
// 5. Evaluate assertions against the trace and stored state
func Run(scenario *Scenario) (*Result, error) {
	st, err := sqlite.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	cat, err := loadCatalog(scenario.Catalog)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	clock := testutil.NewClock(testutil.Epoch)
	ids := testutil.NewSequenceGenerator("id")

	h := &Harness{
		catalog: cat,
		clock:   clock,
		ids:     ids,
		history: history.Open(ctx, st,
			history.WithIDGenerator(ids),
			history.WithClock(clock.Now),
		),
		templates: history.OpenTemplates(ctx, st,
			history.WithIDGenerator(ids),
			history.WithClock(clock.Now),
		),
		ranker: suggest.NewRanker(ctx, st,
			suggest.WithClock(clock.Now),
			suggest.WithCatalog(cat),
		),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		templateIDs: map[string]string{},
	}

	result := NewResult()
	if err := h.executeSetup(ctx, scenario.Setup, result); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		History:   h.history,
		Templates: h.templates,
		Ranker:    h.ranker,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if errs := catalog.Validate(cat); len(errs) > 0 {
		return nil, fmt.Errorf("invalid catalog: %s", errs[0].Error())
	}
	return cat, nil
}

// executeSetup runs all setup steps. Setup outcomes are traced but not
// checked.
func (h *Harness) executeSetup(ctx context.Context, setup []ActionStep, result *Result) error {
	for i, step := range setup {
		outcome, res, err := h.executeStep(ctx, step.Action, step.Args, result)
		if err != nil {
			return fmt.Errorf("setup step %d (%s): %w", i, step.Action, err)
		}
		result.AddStep(PhaseSetup, step.Action, step.Args, outcome, res)

		h.logger.Info("setup step completed", "step", i, "action", step.Action, "case", outcome)
	}
	return nil
}

// executeFlow runs all flow steps and validates expect clauses.
// A mismatch is recorded on the result; only a step that cannot run at
// all is returned as an error.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		outcome, res, err := h.executeStep(ctx, step.Invoke, step.Args, result)
		if err != nil {
			return fmt.Errorf("flow step %d (%s): %w", i, step.Invoke, err)
		}
		result.AddStep(PhaseFlow, step.Invoke, step.Args, outcome, res)

		if step.Expect != nil {
			if step.Expect.Case != "" && step.Expect.Case != outcome {
				result.AddError(fmt.Sprintf("flow[%d] %s: expected case %q, got %q",
					i, step.Invoke, step.Expect.Case, outcome))
			}
			if !matchArgs(res, step.Expect.Result) {
				result.AddError(fmt.Sprintf("flow[%d] %s: expected result %v, got %v",
					i, step.Invoke, step.Expect.Result, res))
			}
		}

		h.logger.Info("flow step completed", "step", i, "action", step.Invoke, "case", outcome)
	}
	return nil
}

// executeStep runs one action and returns its outcome case and result.
func (h *Harness) executeStep(ctx context.Context, action string, args map[string]any, result *Result) (string, map[string]any, error) {
	switch action {
	case ActionParse:
		return h.parse(args)
	case ActionFormat:
		return h.format(args)
	case ActionValidate:
		return h.validate(args)
	case ActionSuggest:
		return h.suggest(args)
	case ActionTrack:
		return h.track(ctx, args)
	case ActionSaveTemplate:
		return h.saveTemplate(ctx, args)
	case ActionApplyTemplate:
		return h.applyTemplate(ctx, args)
	case ActionShare:
		return h.share(args)
	case ActionDecode:
		return h.decode(args)
	case ActionAdvanceClock:
		return h.advanceClock(args)
	case ActionSQL:
		return h.compileSQL(args)
	}
	return "", nil, fmt.Errorf("unknown action %q", action)
}

func (h *Harness) query(args map[string]any) (criteria.Query, compiler.ParseResult, []validate.Finding) {
	text := stringArg(args, "query")
	op := criteria.And
	if boolArg(args, "or") {
		op = criteria.Or
	}
	parsed := compiler.ParseDetailed(text, h.catalog, compiler.WithIDGenerator(h.ids))
	q := criteria.Query{
		Criteria:        parsed.Criteria,
		RawQuery:        text,
		LogicalOperator: op,
	}
	findings := validate.Revalidate(&q, op)
	return q, parsed, findings
}

func (h *Harness) parse(args map[string]any) (string, map[string]any, error) {
	q, parsed, _ := h.query(args)
	outcome := "Parsed"
	if len(q.Criteria) == 0 {
		outcome = "Empty"
	}
	return outcome, map[string]any{
		"count":   len(q.Criteria),
		"tokens":  parsed.Tokens,
		"dropped": parsed.Dropped,
		"fields":  criteria.FieldIDs(q.Criteria),
	}, nil
}

func (h *Harness) format(args map[string]any) (string, map[string]any, error) {
	q, _, _ := h.query(args)
	return "Formatted", map[string]any{
		"text": compiler.Generate(q.Criteria, q.LogicalOperator),
	}, nil
}

func (h *Harness) validate(args map[string]any) (string, map[string]any, error) {
	q, _, findings := h.query(args)
	codes := make([]string, 0, len(findings))
	for _, f := range findings {
		codes = append(codes, f.Code)
	}
	outcome := "Valid"
	if !q.IsValid {
		outcome = "Invalid"
	}
	return outcome, map[string]any{
		"valid":    q.IsValid,
		"findings": codes,
	}, nil
}

func (h *Harness) suggest(args map[string]any) (string, map[string]any, error) {
	sc := suggest.Context{
		Input:         stringArg(args, "input"),
		Catalog:       h.catalog,
		Limit:         intArg(args, "limit"),
		Now:           h.clock.Now(),
		RecentHistory: h.history.Entries(),
		Templates:     h.templates.All(),
	}
	if id := stringArg(args, "field"); id != "" {
		f, ok := h.catalog.Lookup(id)
		if !ok {
			return "", nil, fmt.Errorf("unknown field %q", id)
		}
		sc.ActiveField = f
	}
	if current := stringArg(args, "current"); strings.TrimSpace(current) != "" {
		q, _, _ := h.query(map[string]any{"query": current})
		sc.Current = q.Criteria
	}

	items := h.ranker.Suggest(sc)
	outcome := "Suggested"
	if len(items) == 0 {
		outcome = "Empty"
	}
	values := make([]string, 0, len(items))
	for _, it := range items {
		values = append(values, it.Value)
	}
	res, err := toMap(map[string]any{"count": len(items), "values": values, "items": items})
	return outcome, res, err
}

func (h *Harness) track(ctx context.Context, args map[string]any) (string, map[string]any, error) {
	mode, ok := history.ParseMode(stringArg(args, "mode"))
	if !ok {
		return "", nil, fmt.Errorf("invalid mode %q", stringArg(args, "mode"))
	}
	action := stringArg(args, "action")
	if action == "" {
		action = suggest.ActionSearchExecuted
	}

	q, _, _ := h.query(args)
	h.ranker.TrackBehavior(ctx, action, suggest.Payload{Criteria: q.Criteria, RawQuery: q.RawQuery})

	res := map[string]any{"action": action, "recorded": false}
	if action != suggest.ActionSearchExecuted {
		return "Recorded", res, nil
	}
	e, added := h.history.Add(ctx, q, mode)
	if !added {
		return "Skipped", res, nil
	}
	res["recorded"] = true
	res["entry_id"] = e.ID
	res["display_text"] = e.DisplayText
	return "Recorded", res, nil
}

func (h *Harness) saveTemplate(ctx context.Context, args map[string]any) (string, map[string]any, error) {
	name := stringArg(args, "name")
	if name == "" {
		return "", nil, fmt.Errorf("save_template requires a name")
	}
	mode, ok := history.ParseMode(stringArg(args, "mode"))
	if !ok {
		return "", nil, fmt.Errorf("invalid mode %q", stringArg(args, "mode"))
	}
	q, _, _ := h.query(args)
	tpl := h.templates.Save(ctx, history.TemplateInput{
		Name:        name,
		Description: stringArg(args, "description"),
		Query:       q,
		Mode:        mode,
	})
	h.templateIDs[name] = tpl.ID
	return "Saved", map[string]any{"id": tpl.ID, "name": tpl.Name, "raw_query": tpl.RawQuery}, nil
}

func (h *Harness) applyTemplate(ctx context.Context, args map[string]any) (string, map[string]any, error) {
	name := stringArg(args, "name")
	id, ok := h.templateIDs[name]
	if !ok {
		return "NotFound", map[string]any{"name": name}, nil
	}
	tpl, ok := h.templates.Apply(ctx, id)
	if !ok {
		return "NotFound", map[string]any{"name": name}, nil
	}
	return "Applied", map[string]any{
		"id":          tpl.ID,
		"raw_query":   tpl.RawQuery,
		"usage_count": tpl.UsageCount,
	}, nil
}

func (h *Harness) share(args map[string]any) (string, map[string]any, error) {
	base := stringArg(args, "base")
	if base == "" {
		base = DefaultShareBase
	}
	u, err := shareurl.Encode(base, shareurl.State{
		Query: stringArg(args, "query"),
		Mode:  stringArg(args, "mode"),
	})
	if err != nil {
		return "Rejected", map[string]any{"error": err.Error()}, nil
	}
	return "Encoded", map[string]any{"url": u}, nil
}

func (h *Harness) decode(args map[string]any) (string, map[string]any, error) {
	s, found, err := shareurl.Decode(stringArg(args, "url"))
	if err != nil {
		return "Rejected", map[string]any{"error": err.Error()}, nil
	}
	if !found {
		return "NotFound", map[string]any{}, nil
	}
	return "Found", map[string]any{
		"query":      s.Query,
		"mode":       s.Mode,
		"compatible": s.Compatible(),
		"valid":      compiler.IsValidRawQuery(s.Query, h.catalog),
	}, nil
}

func (h *Harness) compileSQL(args map[string]any) (string, map[string]any, error) {
	table := stringArg(args, "table")
	if table == "" {
		table = "items"
	}
	dialect := querysql.DialectSQLite
	if name := stringArg(args, "dialect"); name != "" {
		d, err := querysql.ParseDialect(name)
		if err != nil {
			return "Rejected", map[string]any{"error": err.Error()}, nil
		}
		dialect = d
	}

	q, _, _ := h.query(args)
	st, err := querysql.NewCompiler(table, querysql.WithDialect(dialect)).Compile(q)
	if err != nil {
		return "Rejected", map[string]any{"error": err.Error()}, nil
	}
	res, err := toMap(st)
	if err != nil {
		return "", nil, err
	}
	if len(q.Criteria) == st.Skipped {
		return "Empty", res, nil
	}
	return "Compiled", res, nil
}

func (h *Harness) advanceClock(args map[string]any) (string, map[string]any, error) {
	d, err := time.ParseDuration(stringArg(args, "duration"))
	if err != nil {
		return "", nil, fmt.Errorf("invalid duration: %w", err)
	}
	now := h.clock.Advance(d)
	return "Advanced", map[string]any{"now": now.UTC().Format(time.RFC3339)}, nil
}

// toMap normalizes v into the shape a YAML expectation compares against.
func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func boolArg(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
