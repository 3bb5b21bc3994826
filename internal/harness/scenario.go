package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios declare a program inline, run type inference over it and
// check the resulting per-node outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario.
	// It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RunID is an optional fixed run id for deterministic tests.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	// Inputs declares the typed program inputs.
	Inputs []InputDecl `yaml:"inputs"`

	// Nodes declares the let-bound calls in order.
	Nodes []NodeDecl `yaml:"nodes"`

	// Expect lists expected per-node outcomes.
	Expect []ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate the whole run.
	// Supported types: outcome_count, deferred_contains, validation_code, stored_run
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// InputDecl declares a program input.
type InputDecl struct {
	Name string `yaml:"name"`

	// Shape entries are ints or "?" for a dynamic dimension.
	// An input without a shape or dtype has an incomplete type.
	Shape []any `yaml:"shape"`

	DType string `yaml:"dtype"`
}

// NodeDecl declares one call.
type NodeDecl struct {
	Name  string         `yaml:"name"`
	Op    string         `yaml:"op"`
	Args  []string       `yaml:"args"`
	Attrs map[string]any `yaml:"attrs,omitempty"`
}

// ExpectClause specifies the expected result of one node.
// Empty fields are not checked.
type ExpectClause struct {
	Node    string `yaml:"node"`
	Outcome string `yaml:"outcome"`
	Output  string `yaml:"output,omitempty"`
	Code    string `yaml:"code,omitempty"`

	// MessageContains is a substring of the expected diagnostic message.
	MessageContains string `yaml:"message_contains,omitempty"`
}

// Assertion validates the whole run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "outcome_count": Check exactly Count nodes have Outcome
	// - "deferred_contains": Check Node postponed an assertion containing Contains
	// - "validation_code": Check validation reported Code
	// - "stored_run": Read the stored run and check its counts
	Type string `yaml:"type"`

	// Outcome and Count are used by outcome_count.
	Outcome string `yaml:"outcome,omitempty"`
	Count   int    `yaml:"count,omitempty"`

	// Node and Contains are used by deferred_contains.
	Node     string `yaml:"node,omitempty"`
	Contains string `yaml:"contains,omitempty"`

	// Code is used by validation_code.
	Code string `yaml:"code,omitempty"`

	// Expect maps "solved", "failed" and "deferred" to counts (stored_run).
	Expect map[string]int `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertOutcomeCount     = "outcome_count"
	AssertDeferredContains = "deferred_contains"
	AssertValidationCode   = "validation_code"
	AssertStoredRun        = "stored_run"
)

var validOutcomes = map[string]bool{
	"solved":   true,
	"failed":   true,
	"deferred": true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Nodes) == 0 {
		return fmt.Errorf("nodes list is required and must be non-empty")
	}

	for i, in := range s.Inputs {
		if in.Name == "" {
			return fmt.Errorf("inputs[%d]: name is required", i)
		}
	}

	for i, n := range s.Nodes {
		if n.Name == "" {
			return fmt.Errorf("nodes[%d]: name is required", i)
		}
		if n.Op == "" {
			return fmt.Errorf("nodes[%d]: op is required", i)
		}
	}

	for i, e := range s.Expect {
		if e.Node == "" {
			return fmt.Errorf("expect[%d]: node is required", i)
		}
		if !validOutcomes[e.Outcome] {
			return fmt.Errorf("expect[%d]: invalid outcome %q, must be solved, failed or deferred", i, e.Outcome)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}

	return nil
}

// validateAssertion checks that an assertion has the fields its type needs.
func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertOutcomeCount:
		if !validOutcomes[a.Outcome] {
			return fmt.Errorf("outcome_count: invalid outcome %q", a.Outcome)
		}
		if a.Count < 0 {
			return fmt.Errorf("outcome_count: count must be non-negative")
		}
	case AssertDeferredContains:
		if a.Node == "" || a.Contains == "" {
			return fmt.Errorf("deferred_contains: node and contains are required")
		}
	case AssertValidationCode:
		if a.Code == "" {
			return fmt.Errorf("validation_code: code is required")
		}
	case AssertStoredRun:
		if len(a.Expect) == 0 {
			return fmt.Errorf("stored_run: expect is required")
		}
		for k := range a.Expect {
			if !validOutcomes[k] {
				return fmt.Errorf("stored_run: unknown count %q", k)
			}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
