package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/mthresh/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string      // Assertion type for categorization
	Expected string      // Human-readable expected outcome
	Actual   string      // Human-readable actual outcome
	Trace    []NodeTrace // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	// Header with assertion type
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)

	// Expected vs Actual (most important info)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	// Full trace for context
	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, n := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s %s", i+1, n.Name, n.Op, n.Outcome)
		if n.Code != "" {
			fmt.Fprintf(&buf, " %s", n.Code)
		}
		buf.WriteString("\n")
	}

	return buf.String()
}

// EvaluateExpectations checks per-node expectations against the trace.
// Returns one message per mismatch.
func EvaluateExpectations(result *Result, expects []ExpectClause) []string {
	var errors []string

	for i, e := range expects {
		n, ok := result.Node(e.Node)
		if !ok {
			errors = append(errors, fmt.Sprintf("expect[%d]: node %q not found", i, e.Node))
			continue
		}

		if n.Outcome != e.Outcome {
			errors = append(errors, fmt.Sprintf("expect[%d]: node %q outcome = %s, expected %s (%s: %s)",
				i, e.Node, n.Outcome, e.Outcome, n.Code, n.Message))
		}
		if e.Output != "" && n.Output != e.Output {
			errors = append(errors, fmt.Sprintf("expect[%d]: node %q output = %q, expected %q",
				i, e.Node, n.Output, e.Output))
		}
		if e.Code != "" && n.Code != e.Code {
			errors = append(errors, fmt.Sprintf("expect[%d]: node %q code = %q, expected %q",
				i, e.Node, n.Code, e.Code))
		}
		if e.MessageContains != "" && !strings.Contains(n.Message, e.MessageContains) {
			errors = append(errors, fmt.Sprintf("expect[%d]: node %q message %q does not contain %q",
				i, e.Node, n.Message, e.MessageContains))
		}
	}

	return errors
}

// assertOutcomeCount checks that exactly Count nodes ended with Outcome.
func assertOutcomeCount(trace []NodeTrace, assertion Assertion) error {
	count := 0
	for _, n := range trace {
		if n.Outcome == assertion.Outcome {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertOutcomeCount,
			Expected: fmt.Sprintf("%d %s nodes", assertion.Count, assertion.Outcome),
			Actual:   fmt.Sprintf("%d %s nodes", count, assertion.Outcome),
			Trace:    trace,
		}
	}
	return nil
}

// assertDeferredContains checks that a node postponed a matching assertion.
func assertDeferredContains(trace []NodeTrace, assertion Assertion) error {
	for _, n := range trace {
		if n.Name != assertion.Node {
			continue
		}
		for _, d := range n.Deferred {
			if strings.Contains(d, assertion.Contains) {
				return nil
			}
		}
		return &AssertionError{
			Type:     AssertDeferredContains,
			Expected: fmt.Sprintf("node %s defers an assertion containing %q", assertion.Node, assertion.Contains),
			Actual:   fmt.Sprintf("deferred: %v", n.Deferred),
			Trace:    trace,
		}
	}

	return &AssertionError{
		Type:     AssertDeferredContains,
		Expected: fmt.Sprintf("node %s", assertion.Node),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertValidationCode checks that validation reported a code.
func assertValidationCode(result *Result, assertion Assertion) error {
	if slices.Contains(result.Validation, assertion.Code) {
		return nil
	}
	return &AssertionError{
		Type:     AssertValidationCode,
		Expected: fmt.Sprintf("validation code %s", assertion.Code),
		Actual:   fmt.Sprintf("validation codes %v", result.Validation),
		Trace:    result.Trace,
	}
}

// assertStoredRun reads the run back from the store and checks its counts.
func assertStoredRun(ctx context.Context, st *store.Store, result *Result, assertion Assertion) error {
	run, err := st.ReadRun(ctx, result.RunID)
	if err != nil {
		return fmt.Errorf("stored_run: read run %q: %w", result.RunID, err)
	}

	actual := map[string]int{
		"solved":   run.Solved,
		"failed":   run.Failed,
		"deferred": run.Deferred,
	}

	var mismatches []string
	for _, key := range []string{"solved", "failed", "deferred"} {
		want, ok := assertion.Expect[key]
		if ok && actual[key] != want {
			mismatches = append(mismatches, fmt.Sprintf("%s=%d (expected %d)", key, actual[key], want))
		}
	}
	if len(run.Nodes) != len(result.Trace) {
		mismatches = append(mismatches, fmt.Sprintf("%d stored nodes (expected %d)", len(run.Nodes), len(result.Trace)))
	}

	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     AssertStoredRun,
			Expected: fmt.Sprintf("%v", assertion.Expect),
			Actual:   strings.Join(mismatches, ", "),
			Trace:    result.Trace,
		}
	}
	return nil
}

// AssertionContext provides the store needed by stored_run assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions and returns error messages.
// Returns an empty slice if all assertions pass.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertOutcomeCount:
			err = assertOutcomeCount(result.Trace, assertion)
		case AssertDeferredContains:
			err = assertDeferredContains(result.Trace, assertion)
		case AssertValidationCode:
			err = assertValidationCode(result, assertion)
		case AssertStoredRun:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: stored_run requires database context", i)
			} else {
				err = assertStoredRun(actx.Ctx, actx.Store, result, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
