package harness

// NodeTrace is the observed result of one node.
type NodeTrace struct {
	Name     string   `json:"name"`
	Op       string   `json:"op"`
	Outcome  string   `json:"outcome"`
	Output   string   `json:"output,omitempty"`
	Code     string   `json:"code,omitempty"`
	Message  string   `json:"message,omitempty"`
	Deferred []string `json:"deferred,omitempty"` // postponed assertion descriptions
	CallHash string   `json:"call_hash"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// RunID is the id the run was stored under.
	RunID string `json:"run_id"`

	// Trace contains one entry per node, in declaration order.
	Trace []NodeTrace `json:"trace"`

	// Validation contains the codes reported by structural validation,
	// in the order they were found.
	Validation []string `json:"validation,omitempty"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []NodeTrace{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Node returns the trace entry for a node name.
func (r *Result) Node(name string) (NodeTrace, bool) {
	for _, n := range r.Trace {
		if n.Name == name {
			return n, true
		}
	}
	return NodeTrace{}, false
}
