package typeinfer

import (
	"github.com/roach88/mthresh/internal/ir"
	"github.com/roach88/mthresh/internal/op"
)

// Outcome is the final state of a binding after inference.
type Outcome int

const (
	OutcomeSolved Outcome = iota
	OutcomeFailed
	OutcomeDeferred
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSolved:
		return "solved"
	case OutcomeFailed:
		return "failed"
	case OutcomeDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// NodeResult is the inference result of one binding.
type NodeResult struct {
	Name    string  `json:"name"`
	Op      string  `json:"op"`
	Outcome Outcome `json:"outcome"`

	// Output is the type assigned to the binding. It is nil for failed
	// bindings and for bindings whose inputs never resolved.
	Output ir.Type `json:"-"`

	// Diagnostic explains a failed binding, or the last pending diagnostic
	// of a binding that never resolved.
	Diagnostic *op.Diagnostic `json:"diagnostic,omitempty"`

	// Deferred lists the assertions the relation postponed.
	Deferred []op.Assertion `json:"deferred,omitempty"`

	// Hash is the content hash of the call.
	Hash string `json:"hash"`

	Span ir.Span `json:"span"`
}

// OutputString renders Output, or "" when there is none.
func (n NodeResult) OutputString() string {
	if n.Output == nil {
		return ""
	}
	return n.Output.String()
}

// Result holds the per-binding results of one inference pass.
type Result struct {
	Program string       `json:"program"`
	Nodes   []NodeResult `json:"nodes"` // declaration order
	Rounds  int          `json:"rounds"`
}

// Node returns the result for a binding name.
func (r *Result) Node(name string) (NodeResult, bool) {
	for _, n := range r.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return NodeResult{}, false
}

// Failed returns the failed bindings in declaration order.
func (r *Result) Failed() []NodeResult {
	return r.filter(OutcomeFailed)
}

// Deferred returns the deferred bindings in declaration order.
func (r *Result) Deferred() []NodeResult {
	return r.filter(OutcomeDeferred)
}

// Solved returns the solved bindings in declaration order.
func (r *Result) Solved() []NodeResult {
	return r.filter(OutcomeSolved)
}

// OK reports whether no binding failed.
func (r *Result) OK() bool {
	return len(r.Failed()) == 0
}

func (r *Result) filter(o Outcome) []NodeResult {
	var out []NodeResult
	for _, n := range r.Nodes {
		if n.Outcome == o {
			out = append(out, n)
		}
	}
	return out
}
