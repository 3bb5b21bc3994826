package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/mthresh/internal/ir"
)

// TraceSnapshot captures the complete trace for a scenario execution.
// Call hashes are left out so that golden files survive changes to the
// hashing scheme; they are covered by the ir package tests.
type TraceSnapshot struct {
	ScenarioName string      `json:"scenario_name"`
	RunID        string      `json:"run_id"`
	Trace        []NodeTrace `json:"trace"`
	Validation   []string    `json:"validation,omitempty"`
}

// toCanonical converts a TraceSnapshot to an ir.Object for canonical JSON
// serialization.
func (s *TraceSnapshot) toCanonical() ir.Object {
	trace := make(ir.List, len(s.Trace))
	for i, n := range s.Trace {
		node := ir.Object{
			"name":    ir.Str(n.Name),
			"op":      ir.Str(n.Op),
			"outcome": ir.Str(n.Outcome),
		}
		if n.Output != "" {
			node["output"] = ir.Str(n.Output)
		}
		if n.Code != "" {
			node["code"] = ir.Str(n.Code)
		}
		if n.Message != "" {
			node["message"] = ir.Str(n.Message)
		}
		if len(n.Deferred) > 0 {
			deferred := make(ir.List, len(n.Deferred))
			for j, d := range n.Deferred {
				deferred[j] = ir.Str(d)
			}
			node["deferred"] = deferred
		}
		trace[i] = node
	}

	obj := ir.Object{
		"scenario_name": ir.Str(s.ScenarioName),
		"run_id":        ir.Str(s.RunID),
		"trace":         trace,
	}
	if len(s.Validation) > 0 {
		codes := make(ir.List, len(s.Validation))
		for i, c := range s.Validation {
			codes[i] = ir.Str(c)
		}
		obj["validation"] = codes
	}
	return obj
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := SnapshotJSON(scenarioName, result)
	if err != nil {
		return err
	}

	// Compare with golden file using goldie
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}

// SnapshotJSON returns the canonical golden-file bytes for a result.
func SnapshotJSON(scenarioName string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		RunID:        result.RunID,
		Trace:        result.Trace,
		Validation:   result.Validation,
	}
	return ir.MarshalCanonical(snapshot.toCanonical())
}
