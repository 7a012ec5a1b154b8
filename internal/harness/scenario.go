package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a query scenario: a catalog, setup steps that build up
// history, templates and patterns, a flow of checked steps, and assertions
// on the resulting trace and stored state.
//
// Catalog is an optional catalog file or CUE directory, relative to the
// scenario file; empty means the built-in catalog. Setup steps run
// unchecked before Flow.
type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Catalog     string       `yaml:"catalog,omitempty"`
	Setup       []ActionStep `yaml:"setup,omitempty"`
	Flow        []FlowStep   `yaml:"flow"`
	Assertions  []Assertion  `yaml:"assertions"`
}

// ActionStep is one setup step.
type ActionStep struct {
	Action string         `yaml:"action"`
	Args   map[string]any `yaml:"args"`
}

// FlowStep is one checked step. A nil Expect checks nothing.
type FlowStep struct {
	Invoke string         `yaml:"invoke"`
	Args   map[string]any `yaml:"args"`
	Expect *ExpectClause  `yaml:"expect,omitempty"`
}

// ExpectClause names the outcome a flow step must reach. Result keys are
// compared as a subset of the step result.
type ExpectClause struct {
	Case   string         `yaml:"case"`
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion checks the trace or the stored state after the flow ran.
// Which fields apply depends on Type:
//
//	trace_contains    Action, Result (subset)
//	trace_count       Action, Count
//	suggestion_order  Values, in order within the last suggest step
//	final_state       Table, Where (exact), Expect (subset)
type Assertion struct {
	Type   string         `yaml:"type"`
	Action string         `yaml:"action,omitempty"`
	Result map[string]any `yaml:"result,omitempty"`
	Count  int            `yaml:"count,omitempty"`
	Values []string       `yaml:"values,omitempty"`
	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains   = "trace_contains"
	AssertTraceCount      = "trace_count"
	AssertSuggestionOrder = "suggestion_order"
	AssertFinalState      = "final_state"
)

// State tables readable by final_state.
const (
	TableHistory      = "history"
	TableTemplates    = "templates"
	TablePatterns     = "patterns"
	TableInteractions = "interactions"
)

// LoadScenario reads a scenario file. Unknown keys are rejected so a
// misspelled key fails loudly instead of being ignored.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the catalog path BEFORE validation
	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow must have at least one step")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions must have at least one entry")
	}

	if s.Catalog != "" {
		if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
			return fmt.Errorf("catalog not found: %s", s.Catalog)
		}
	}

	for i, step := range s.Setup {
		if err := validateStep(fmt.Sprintf("setup[%d]", i), "action", step.Action, step.Args); err != nil {
			return err
		}
	}

	for i, step := range s.Flow {
		if err := validateStep(fmt.Sprintf("flow[%d]", i), "invoke", step.Invoke, step.Args); err != nil {
			return err
		}
		if step.Expect != nil && step.Expect.Case == "" && len(step.Expect.Result) == 0 {
			return fmt.Errorf("flow[%d].expect: case or result is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(where, key, action string, args map[string]any) error {
	switch {
	case action == "":
		return fmt.Errorf("%s: %s is required", where, key)
	case !knownAction(action):
		return fmt.Errorf("%s: unknown action %q", where, action)
	case args == nil:
		return fmt.Errorf("%s: args is required (use {} for none)", where)
	}
	return nil
}

// validateAssertion checks the fields the assertion's type needs.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertSuggestionOrder:
		if len(a.Values) == 0 {
			return fmt.Errorf("assertions[%d]: values list is required for suggestion_order", index)
		}
	case AssertFinalState:
		switch a.Table {
		case "":
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		case TableHistory, TableTemplates, TablePatterns, TableInteractions:
		default:
			return fmt.Errorf("assertions[%d]: unknown table %q", index, a.Table)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
