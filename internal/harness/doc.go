// Package harness runs query scenarios against the parser, validator,
// history, templates and suggestion ranker as executable contract tests.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	catalog: catalog.yaml        # optional, relative to the scenario file
//	setup:
//	  - action: track
//	    args: { query: "status:Active iteration:>5" }
//	flow:
//	  - invoke: parse
//	    args: { query: "status:Active bogus:1" }
//	    expect:
//	      case: Parsed
//	      result: { count: 1, dropped: 1 }
//	assertions:
//	  - type: trace_contains
//	    action: validate
//	    result: { valid: false }
//	  - type: final_state
//	    table: history
//	    where: { raw_query: "status:Active iteration:>5" }
//	    expect: { mode: visual }
//
// # Actions
//
// Setup and flow steps use the same actions:
//
//   - parse: {query, or} -> Parsed | Empty
//   - format: {query, or} -> Formatted
//   - validate: {query, or} -> Valid | Invalid
//   - suggest: {current, field, input, limit} -> Suggested | Empty
//   - track: {query, mode, action, or} -> Recorded | Skipped
//   - save_template: {name, query, description} -> Saved
//   - apply_template: {name} -> Applied | NotFound
//   - share: {query, base, mode} -> Encoded | Rejected
//   - decode: {url} -> Found | NotFound | Rejected
//   - advance_clock: {duration} -> Advanced
//   - sql: {query, or, table, dialect} -> Compiled | Empty | Rejected
//
// # Assertion Types
//
//   - trace_contains: a step of the action whose result matches a subset
//   - trace_count: the action appears exactly N times
//   - suggestion_order: values appear in order in the last suggest step
//   - final_state: one stored record (history, templates, patterns,
//     interactions) matching where has the expected fields
//
// # Deterministic Testing
//
// Every scenario runs with a fixed clock starting at testutil.Epoch, a
// sequential id generator and a fresh in-memory SQLite store, so traces
// are identical across runs and can be compared against golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/related_fields.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
