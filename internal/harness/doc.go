// Package harness provides conformance testing for operator type relations.
//
// A scenario declares a small program inline, runs validation and type
// inference over it, records the run in a fresh in-memory store, and checks
// the per-node outcomes against expectations.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	run_id: test-run-001
//	inputs:
//	  - {name: x, shape: [1, 4], dtype: float32}
//	  - {name: t, shape: [4, "?"], dtype: float32}
//	nodes:
//	  - name: y
//	    op: MultiThreshold
//	    args: [x, t]
//	    attrs: {out_dtype: UINT8, out_bias: 0}
//	expect:
//	  - node: y
//	    outcome: deferred
//	    output: "Tensor[(1, 4), float32]"
//	assertions:
//	  - type: outcome_count
//	    outcome: deferred
//	    count: 1
//	  - type: stored_run
//	    expect: {solved: 0, failed: 0, deferred: 1}
//
// Shape entries are non-negative ints or "?" for a dynamic dimension.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - outcome_count: Verifies exactly N nodes ended with an outcome
//   - deferred_contains: Verifies a node postponed an assertion whose
//     description contains a substring
//   - validation_code: Verifies validation reported a code
//   - stored_run: Reads the run back from the store and verifies its counts
//
// # Deterministic Testing
//
// Runs use a fixed run id (scenario.run_id, or "test-run-default") and a
// fresh in-memory SQLite database, so traces are identical across runs and
// can be compared against golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/multithreshold_basic.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
