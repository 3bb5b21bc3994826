package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/mthresh/internal/ir"
	"github.com/roach88/mthresh/internal/op"
)

// Validation error codes (E100-E199)
const (
	ErrEmptyProgram  = "E101" // program has no nodes
	ErrDuplicateName = "E102" // input or node name declared twice
	ErrUndefinedRef  = "E103" // argument names neither an input nor a node
	ErrUnknownOp     = "E104" // operator not registered
	ErrArity         = "E105" // wrong number of arguments for the operator
	ErrInvalidInput  = "E106" // invalid input dimension or empty dtype
	ErrCyclicRef     = "E107" // nodes depend on each other
)

// ValidationError represents a structural error in a compiled program.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled program against the operators in reg.
// Returns all errors found (does not fail-fast).
//
// Validate checks structure only. Whether calls are well-typed is decided
// by type inference.
func Validate(p *ir.Program, reg *op.Registry) []ValidationError {
	var errs []ValidationError

	// E101: at least one node required
	if len(p.Bindings) == 0 {
		errs = append(errs, ValidationError{
			Field:   "node",
			Message: fmt.Sprintf("program %q has no nodes", p.Name),
			Code:    ErrEmptyProgram,
			Line:    p.Span.Line,
		})
	}

	// Track names for duplicate detection
	names := make(map[string]bool)

	for i, v := range p.Vars {
		// E102: duplicate input name
		if names[v.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("var[%d].name", i),
				Message: fmt.Sprintf("duplicate name: %q", v.Name),
				Code:    ErrDuplicateName,
				Line:    v.Span.Line,
			})
		}
		names[v.Name] = true

		errs = append(errs, validateVarType(v, i)...)
	}

	for i, b := range p.Bindings {
		// E102: duplicate node name, shared namespace with inputs
		if names[b.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("node[%d].name", i),
				Message: fmt.Sprintf("duplicate name: %q", b.Name),
				Code:    ErrDuplicateName,
				Line:    b.Call.Span.Line,
			})
		}
		names[b.Name] = true
	}

	for i, b := range p.Bindings {
		errs = append(errs, validateCall(p, b, i, reg)...)
	}

	// E107: reference cycles can never resolve
	for _, cycle := range FindCycles(p) {
		first, _ := p.Binding(cycle[0])
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("node.%s", cycle[0]),
			Message: fmt.Sprintf("cyclic reference: %s", strings.Join(cycle, " -> ")),
			Code:    ErrCyclicRef,
			Line:    first.Call.Span.Line,
		})
	}

	return errs
}

// validateVarType checks an input's declared type.
func validateVarType(v *ir.Var, i int) []ValidationError {
	var errs []ValidationError

	tt, ok := v.Type.(ir.TensorType)
	if !ok {
		return []ValidationError{{
			Field:   fmt.Sprintf("var[%d].type", i),
			Message: fmt.Sprintf("input %q must have a tensor type", v.Name),
			Code:    ErrInvalidInput,
			Line:    v.Span.Line,
		}}
	}

	// E106: dtype required
	if strings.TrimSpace(tt.DType) == "" {
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("var[%d].dtype", i),
			Message: fmt.Sprintf("input %q has an empty dtype", v.Name),
			Code:    ErrInvalidInput,
			Line:    v.Span.Line,
		})
	}

	// E106: dimensions are non-negative or dynamic
	for j, d := range tt.Shape {
		if d < ir.AnyDim {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("var[%d].shape[%d]", i, j),
				Message: fmt.Sprintf("invalid dimension %d for input %q", int64(d), v.Name),
				Code:    ErrInvalidInput,
				Line:    v.Span.Line,
			})
		}
	}

	return errs
}

// validateCall checks one node's operator and arguments.
func validateCall(p *ir.Program, b ir.Binding, i int, reg *op.Registry) []ValidationError {
	var errs []ValidationError
	line := b.Call.Span.Line

	// E103: arguments must name an input or a node
	for j, arg := range b.Call.Args {
		name := ir.ArgName(arg)
		if _, isCall := arg.(*ir.Call); isCall {
			continue
		}
		if p.Var(name) == nil {
			if _, ok := p.Binding(name); !ok {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("node[%d].args[%d]", i, j),
					Message: fmt.Sprintf("undefined reference %q in node %q", name, b.Name),
					Code:    ErrUndefinedRef,
					Line:    line,
				})
			}
		}
	}

	// E104: operator must be registered
	def, ok := reg.Get(b.Call.Op)
	if !ok {
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("node[%d].op", i),
			Message: fmt.Sprintf("unknown operator %q", b.Call.Op),
			Code:    ErrUnknownOp,
			Line:    line,
		})
		return errs
	}

	// E105: arity
	if len(b.Call.Args) != def.NumInputs {
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("node[%d].args", i),
			Message: fmt.Sprintf("%s expects %d arguments, got %d", def.Name, def.NumInputs, len(b.Call.Args)),
			Code:    ErrArity,
			Line:    line,
		})
	}

	return errs
}
