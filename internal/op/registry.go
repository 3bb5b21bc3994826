package op

import (
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/mthresh/internal/ir"
)

// MakeFuncPrefix namespaces the builder functions front ends look up by
// operator name.
const MakeFuncPrefix = "relay.op.contrib._make."

// MakeFuncName returns the global function name of an operator's builder.
func MakeFuncName(opName string) string {
	return MakeFuncPrefix + opName
}

// Reporter is the per-call sink a relation writes its results to.
// Each relation invocation gets its own Reporter.
type Reporter interface {
	// Assign fills type slot i with t.
	Assign(slot int, t ir.Type)

	// Defer records an assertion that could not be checked because a
	// dimension is not statically known.
	Defer(a Assertion)

	// Span returns the source location of the call being checked.
	Span() ir.Span
}

// Assertion is a shape constraint postponed until its dimension is known.
type Assertion struct {
	Slot        int    `json:"slot"`
	Axis        int    `json:"axis"`
	Expected    string `json:"expected"`
	Description string `json:"description"`
}

// RelFunc is a type relation. types holds the argument types followed by
// the output slot. A returned *Diagnostic is a type error in the program;
// any other error is a bug in the caller.
type RelFunc func(types []ir.Type, attrs ir.Attrs, reporter Reporter) error

// RawAttrs holds attribute values as decoded by a front end, before they
// are bound to an operator's typed attribute struct.
type RawAttrs map[string]any

// BuildFunc constructs a call from front-end arguments.
type BuildFunc func(args []ir.Expr, attrs RawAttrs, span ir.Span) (*ir.Call, error)

// Argument documents one operator input.
type Argument struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Def describes a registered operator.
type Def struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	NumInputs    int        `json:"num_inputs"`
	Arguments    []Argument `json:"arguments"`
	Attributes   []Argument `json:"attributes,omitempty"`
	SupportLevel int        `json:"support_level"`
	AttrsTypeKey string     `json:"attrs_type_key,omitempty"`
	RelName      string     `json:"rel_name"`
	Rel          RelFunc    `json:"-"`
	Pattern      Pattern    `json:"pattern"`
}

// Registry maps operator names to their definitions.
// Registries are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]Def
	funcs map[string]BuildFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:  make(map[string]Def),
		funcs: make(map[string]BuildFunc),
	}
}

// Register adds an operator definition.
// Names must be unique and every operator needs a relation.
func (r *Registry) Register(def Def) error {
	if def.Name == "" {
		return fmt.Errorf("register operator: empty name")
	}
	if def.Rel == nil {
		return fmt.Errorf("register operator %q: no type relation", def.Name)
	}
	if def.NumInputs < 0 {
		return fmt.Errorf("register operator %q: negative arity %d", def.Name, def.NumInputs)
	}
	if len(def.Arguments) != 0 && len(def.Arguments) != def.NumInputs {
		return fmt.Errorf("register operator %q: %d documented arguments for arity %d",
			def.Name, len(def.Arguments), def.NumInputs)
	}
	if def.RelName == "" {
		def.RelName = def.Name
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("register operator %q: already registered", def.Name)
	}
	r.defs[def.Name] = def
	return nil
}

// Get returns the definition for an operator name.
func (r *Registry) Get(name string) (Def, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Names returns all registered operator names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// RegisterFunc binds a builder under a global function name.
func (r *Registry) RegisterFunc(name string, fn BuildFunc) error {
	if fn == nil {
		return fmt.Errorf("register func %q: nil builder", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("register func %q: already registered", name)
	}
	r.funcs[name] = fn
	return nil
}

// Func returns the builder bound under name.
func (r *Registry) Func(name string) (BuildFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}
