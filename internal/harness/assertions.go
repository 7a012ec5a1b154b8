package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/facet/internal/history"
	"github.com/roach88/facet/internal/suggest"
)

// AssertionError describes a failed assertion together with the trace
// it was checked against.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %v -> %s\n", event.Seq, event.Phase, event.Action, event.Args, event.Case)
		}
	}

	return buf.String()
}

// AssertionContext provides the stored state final_state assertions read.
type AssertionContext struct {
	History   *history.History
	Templates *history.Templates
	Ranker    *suggest.Ranker
}

// assertTraceContains checks if the trace contains a step of the action
// whose result matches (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Action == assertion.Action && matchArgs(event.Result, assertion.Result) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with result %v", assertion.Action, assertion.Result),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceCount requires exactly Count steps of Action.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Action == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}

	return nil
}

// assertSuggestionOrder checks that the values appear in the given order
// among the last suggest step's values. Other values may come between.
func assertSuggestionOrder(result *Result, assertion Assertion) error {
	step, ok := result.lastStep(ActionSuggest)
	if !ok {
		return &AssertionError{
			Type:     AssertSuggestionOrder,
			Expected: fmt.Sprintf("a suggest step with values %v", assertion.Values),
			Actual:   "no suggest step in trace",
			Trace:    result.Trace,
		}
	}

	var actual []string
	if raw, ok := step.Result["values"].([]any); ok {
		for _, v := range raw {
			actual = append(actual, fmt.Sprint(v))
		}
	}

	// Find first position of each expected value
	positions := make(map[string]int)
	for i, v := range actual {
		if _, seen := positions[v]; !seen {
			positions[v] = i + 1 // 1-indexed for readability
		}
	}

	for _, v := range assertion.Values {
		if positions[v] == 0 {
			return &AssertionError{
				Type:     AssertSuggestionOrder,
				Expected: fmt.Sprintf("all values present: %v", assertion.Values),
				Actual:   fmt.Sprintf("missing value %q in %v", v, actual),
			}
		}
	}

	for i := 1; i < len(assertion.Values); i++ {
		prev := assertion.Values[i-1]
		curr := assertion.Values[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertSuggestionOrder,
				Expected: fmt.Sprintf("values in order: %v", assertion.Values),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
			}
		}
	}

	return nil
}

// assertFinalState checks that exactly one record of the table matches
// Where and that it carries the expected values (subset semantics).
func assertFinalState(actx *AssertionContext, assertion Assertion) error {
	records, err := tableRecords(actx, assertion.Table)
	if err != nil {
		return err
	}

	var matched []map[string]any
	for _, rec := range records {
		if matchArgs(rec, assertion.Where) {
			matched = append(matched, rec)
		}
	}

	whereDesc := formatWhereClause(assertion.Where)
	switch len(matched) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("record in %s where %s", assertion.Table, whereDesc),
			Actual:   fmt.Sprintf("record not found among %d", len(records)),
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one record in %s where %s", assertion.Table, whereDesc),
			Actual:   fmt.Sprintf("%d records matched (assertion is ambiguous)", len(matched)),
		}
	}

	actual := matched[0]
	for _, key := range sortedKeys(assertion.Expect) {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actual[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in record: %v", key, actual),
			}
		}
		if !valuesEqual(actualValue, expectedValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v", key, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v", key, actualValue),
			}
		}
	}

	return nil
}

// tableRecords returns the stored records of a table as JSON-shaped maps.
func tableRecords(actx *AssertionContext, table string) ([]map[string]any, error) {
	if actx == nil {
		return nil, fmt.Errorf("final_state assertion requires stored state")
	}

	var v any
	switch table {
	case TableHistory:
		v = actx.History.Entries()
	case TableTemplates:
		v = actx.Templates.All()
	case TablePatterns:
		v = actx.Ranker.Patterns()
	case TableInteractions:
		v = actx.Ranker.Interactions()
	default:
		return nil, fmt.Errorf("unknown table %q", table)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", table, err)
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", table, err)
	}
	return records, nil
}

// formatWhereClause creates a human-readable description of the filters.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// matchArgs checks if actual contains all expected keys (subset match).
// Extra keys in actual are ignored.
func matchArgs(actual map[string]any, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}
	for key, expectedValue := range expected {
		actualValue, exists := actual[key]
		if !exists {
			return false
		}
		if !valuesEqual(actualValue, expectedValue) {
			return false
		}
	}
	return true
}

// valuesEqual compares two values after normalizing both through JSON, so
// a YAML int matches a float64 and a []string matches a []any.
func valuesEqual(actual, expected any) bool {
	a, errA := normalize(actual)
	e, errE := normalize(expected)
	if errA != nil || errE != nil {
		return reflect.DeepEqual(actual, expected)
	}
	return reflect.DeepEqual(a, e)
}

func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EvaluateAssertions runs all assertions and collects errors.
// Returns a list of error messages (empty if all passed).
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertSuggestionOrder:
			err = assertSuggestionOrder(result, assertion)
		case AssertFinalState:
			err = assertFinalState(actx, assertion)
		default:
			err = fmt.Errorf("unknown assertion type: %s", assertion.Type)
		}

		if err != nil {
			errors = append(errors, fmt.Sprintf("assertion %d (%s): %v", i, assertion.Type, err))
		}
	}

	return errors
}
