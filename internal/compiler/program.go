package compiler

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/mthresh/internal/ir"
	"github.com/roach88/mthresh/internal/op"
)

// DynamicDim is the shape entry that marks a dimension unknown until run time.
const DynamicDim = "?"

// CompilePrograms compiles every program declared under the top-level
// "program" field, in declaration order.
func CompilePrograms(v cue.Value, reg *op.Registry) ([]*ir.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	programsVal := v.LookupPath(cue.ParsePath("program"))
	if !programsVal.Exists() {
		return nil, nil
	}

	iter, err := programsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var programs []*ir.Program
	for iter.Next() {
		prog, err := CompileProgram(iter.Value(), reg)
		if err != nil {
			return nil, err
		}
		programs = append(programs, prog)
	}
	return programs, nil
}

// CompileProgram parses a CUE value into an ir.Program.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the program struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`program: Demo: { var: {...}, node: {...} }`)
//	prog, err := CompileProgram(v.LookupPath(cue.ParsePath("program.Demo")), reg)
//
// Calls are built through the builder registered for their operator in reg.
// Operators without a builder compile to generic calls, which Validate
// reports as unknown.
func CompileProgram(v cue.Value, reg *op.Registry) (*ir.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	prog := &ir.Program{Span: spanOf(v.Pos())}

	// Program name from struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		prog.Name = labels[len(labels)-1].String()
	}

	vars, err := parseVars(v)
	if err != nil {
		return nil, err
	}
	prog.Vars = vars

	bindings, err := parseNodes(v, prog, reg)
	if err != nil {
		return nil, err
	}
	prog.Bindings = bindings

	return prog, nil
}

// parseVars extracts the typed program inputs.
func parseVars(v cue.Value) ([]*ir.Var, error) {
	varsVal := v.LookupPath(cue.ParsePath("var"))
	if !varsVal.Exists() {
		return nil, nil
	}

	iter, err := varsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var vars []*ir.Var
	for iter.Next() {
		name := iter.Label()
		varValue := iter.Value()

		dtypeVal := varValue.LookupPath(cue.ParsePath("dtype"))
		if !dtypeVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("var.%s.dtype", name),
				Message: "dtype is required",
				Pos:     varValue.Pos(),
			}
		}
		dt, err := dtypeVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}

		shape, err := parseShape(varValue, name)
		if err != nil {
			return nil, err
		}

		vars = append(vars, &ir.Var{
			Name: name,
			Type: ir.TensorType{Shape: shape, DType: dt},
			Span: spanOf(varValue.Pos()),
		})
	}
	return vars, nil
}

// parseShape reads a shape list. Entries are non-negative ints or "?".
func parseShape(varValue cue.Value, name string) ([]ir.Dim, error) {
	shapeVal := varValue.LookupPath(cue.ParsePath("shape"))
	if !shapeVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("var.%s.shape", name),
			Message: "shape is required",
			Pos:     varValue.Pos(),
		}
	}

	iter, err := shapeVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	shape := []ir.Dim{}
	for i := 0; iter.Next(); i++ {
		dimVal := iter.Value()
		field := fmt.Sprintf("var.%s.shape[%d]", name, i)

		if s, err := dimVal.String(); err == nil {
			if s != DynamicDim {
				return nil, &CompileError{
					Field:   field,
					Message: fmt.Sprintf("dimension must be an int or %q, got %q", DynamicDim, s),
					Pos:     dimVal.Pos(),
				}
			}
			shape = append(shape, ir.AnyDim)
			continue
		}

		n, err := dimVal.Int64()
		if err != nil {
			return nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("dimension must be an int or %q", DynamicDim),
				Pos:     dimVal.Pos(),
			}
		}
		if n < 0 {
			return nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("dimension must be non-negative, got %d", n),
				Pos:     dimVal.Pos(),
			}
		}
		shape = append(shape, ir.Dim(n))
	}
	return shape, nil
}

// parseNodes extracts the let-bound calls in declaration order.
func parseNodes(v cue.Value, prog *ir.Program, reg *op.Registry) ([]ir.Binding, error) {
	nodesVal := v.LookupPath(cue.ParsePath("node"))
	if !nodesVal.Exists() {
		return nil, nil
	}

	iter, err := nodesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var bindings []ir.Binding
	for iter.Next() {
		name := iter.Label()
		nodeValue := iter.Value()

		call, err := parseCall(nodeValue, name, prog, reg)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, ir.Binding{Name: name, Call: call})
	}
	return bindings, nil
}

// parseCall builds one node's call.
func parseCall(nodeValue cue.Value, name string, prog *ir.Program, reg *op.Registry) (*ir.Call, error) {
	opVal := nodeValue.LookupPath(cue.ParsePath("op"))
	if !opVal.Exists() {
		return nil, &CompileError{
			Field:   fmt.Sprintf("node.%s.op", name),
			Message: "op is required",
			Pos:     nodeValue.Pos(),
		}
	}
	opName, err := opVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var args []ir.Expr
	argsVal := nodeValue.LookupPath(cue.ParsePath("args"))
	if argsVal.Exists() {
		argsIter, err := argsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for argsIter.Next() {
			argName, err := argsIter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			args = append(args, resolveArg(prog, argName))
		}
	}

	raw, err := parseAttrs(nodeValue, name)
	if err != nil {
		return nil, err
	}

	span := spanOf(nodeValue.Pos())
	build, ok := reg.Func(op.MakeFuncName(opName))
	if !ok {
		return &ir.Call{Op: opName, Args: args, Attrs: GenericAttrs(raw), Span: span}, nil
	}

	call, err := build(args, raw, span)
	if err != nil {
		return nil, &CompileError{
			Field:   fmt.Sprintf("node.%s", name),
			Message: err.Error(),
			Pos:     nodeValue.Pos(),
		}
	}
	return call, nil
}

// resolveArg binds an argument name to a program input, or to a binding
// reference otherwise.
func resolveArg(prog *ir.Program, name string) ir.Expr {
	if v := prog.Var(name); v != nil {
		return v
	}
	return &ir.Ref{Name: name}
}

// parseAttrs decodes the attrs struct into Go values: string, int64,
// float64 or bool.
func parseAttrs(nodeValue cue.Value, name string) (op.RawAttrs, error) {
	raw := op.RawAttrs{}
	attrsVal := nodeValue.LookupPath(cue.ParsePath("attrs"))
	if !attrsVal.Exists() {
		return raw, nil
	}

	iter, err := attrsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		attrName := iter.Label()
		attrVal := iter.Value()

		var value any
		switch attrVal.Kind() {
		case cue.StringKind:
			value, err = attrVal.String()
		case cue.IntKind:
			value, err = attrVal.Int64()
		case cue.FloatKind:
			value, err = attrVal.Float64()
		case cue.BoolKind:
			value, err = attrVal.Bool()
		default:
			return nil, &CompileError{
				Field:   fmt.Sprintf("node.%s.attrs.%s", name, attrName),
				Message: fmt.Sprintf("unsupported attribute kind: %v", attrVal.IncompleteKind()),
				Pos:     attrVal.Pos(),
			}
		}
		if err != nil {
			return nil, formatCUEError(err)
		}
		raw[attrName] = value
	}
	return raw, nil
}

// GenericAttrs carries the attributes of a call whose operator has no
// registered builder.
type GenericAttrs op.RawAttrs

// GenericAttrsTypeKey identifies GenericAttrs.
const GenericAttrsTypeKey = "compiler.attrs.Generic"

// TypeKey implements ir.Attrs.
func (GenericAttrs) TypeKey() string {
	return GenericAttrsTypeKey
}

// Fields implements ir.Attrs.
func (a GenericAttrs) Fields() ir.Object {
	obj := ir.Object{}
	for k, v := range a {
		switch x := v.(type) {
		case string:
			obj[k] = ir.Str(x)
		case int64:
			obj[k] = ir.Int(x)
		case int:
			obj[k] = ir.Int(x)
		case bool:
			obj[k] = ir.Bool(x)
		case float64:
			obj[k] = ir.Str(strconv.FormatFloat(x, 'g', -1, 64))
		default:
			obj[k] = ir.Str(fmt.Sprint(x))
		}
	}
	return obj
}

func spanOf(pos token.Pos) ir.Span {
	if !pos.IsValid() {
		return ir.Span{}
	}
	return ir.Span{File: pos.Filename(), Line: pos.Line(), Column: pos.Column()}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
