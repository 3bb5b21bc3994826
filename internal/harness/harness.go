package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/mthresh/internal/compiler"
	"github.com/roach88/mthresh/internal/finn"
	"github.com/roach88/mthresh/internal/ir"
	"github.com/roach88/mthresh/internal/op"
	"github.com/roach88/mthresh/internal/store"
	"github.com/roach88/mthresh/internal/testutil"
	"github.com/roach88/mthresh/internal/typeinfer"
)

// Harness is the test execution engine.
// It runs scenarios against a fresh registry and store with fixed run ids.
type Harness struct {
	store  *store.Store
	reg    *op.Registry
	runIDs store.RunIDGenerator
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and operator registry
// 2. Build the program declared by the scenario
// 3. Validate it and run type inference
// 4. Record the run in the store
// 5. Check expectations and assertions
func Run(scenario *Scenario) (*Result, error) {
	// Create fresh in-memory SQLite database
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	reg := op.NewRegistry()
	if err := finn.Register(reg); err != nil {
		return nil, fmt.Errorf("failed to register operators: %w", err)
	}

	h := &Harness{
		store:  st,
		reg:    reg,
		runIDs: testutil.NewFixedRunIDGenerator(scenario.RunID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	prog, err := BuildProgram(scenario, h.reg)
	if err != nil {
		return nil, fmt.Errorf("failed to build program: %w", err)
	}

	result := NewResult()
	for _, verr := range compiler.Validate(prog, h.reg) {
		h.logger.Debug("validation", "scenario", scenario.Name, "error", verr.Error())
		result.Validation = append(result.Validation, verr.Code)
	}

	inferred, err := typeinfer.Infer(ctx, prog, h.reg)
	if err != nil {
		return nil, fmt.Errorf("failed to infer types: %w", err)
	}

	run, err := store.NewRun(h.runIDs.Generate(), prog, inferred)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	run, err = h.store.WriteRun(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	result.RunID = run.ID

	for _, n := range inferred.Nodes {
		result.Trace = append(result.Trace, traceNode(n))
	}
	h.logger.Debug("scenario executed", "scenario", scenario.Name, "nodes", len(result.Trace))

	for _, msg := range EvaluateExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}

	actx := &AssertionContext{
		Store: h.store,
		Ctx:   ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// traceNode converts an inference result into a trace entry.
func traceNode(n typeinfer.NodeResult) NodeTrace {
	tr := NodeTrace{
		Name:     n.Name,
		Op:       n.Op,
		Outcome:  n.Outcome.String(),
		Output:   n.OutputString(),
		CallHash: n.Hash,
	}
	if n.Diagnostic != nil {
		tr.Code = n.Diagnostic.Code
		tr.Message = n.Diagnostic.Message
	}
	for _, a := range n.Deferred {
		tr.Deferred = append(tr.Deferred, a.Description)
	}
	return tr
}

// BuildProgram converts the inline program of a scenario into an
// ir.Program. Calls are built through the builders registered in reg;
// operators without a builder become generic calls.
func BuildProgram(scenario *Scenario, reg *op.Registry) (*ir.Program, error) {
	prog := &ir.Program{Name: scenario.Name}

	for _, in := range scenario.Inputs {
		v := &ir.Var{Name: in.Name}
		if in.DType != "" && in.Shape != nil {
			shape, err := parseShape(in.Shape)
			if err != nil {
				return nil, fmt.Errorf("input %q: %w", in.Name, err)
			}
			v.Type = ir.TensorType{Shape: shape, DType: in.DType}
		}
		prog.Vars = append(prog.Vars, v)
	}

	for _, n := range scenario.Nodes {
		args := make([]ir.Expr, len(n.Args))
		for i, name := range n.Args {
			if v := prog.Var(name); v != nil {
				args[i] = v
			} else {
				args[i] = &ir.Ref{Name: name}
			}
		}

		raw := op.RawAttrs{}
		for k, v := range n.Attrs {
			raw[k] = v
		}

		var call *ir.Call
		if build, ok := reg.Func(op.MakeFuncName(n.Op)); ok {
			var err error
			call, err = build(args, raw, ir.Span{})
			if err != nil {
				return nil, fmt.Errorf("node %q: %w", n.Name, err)
			}
		} else {
			call = &ir.Call{Op: n.Op, Args: args, Attrs: compiler.GenericAttrs(raw)}
		}
		prog.Bindings = append(prog.Bindings, ir.Binding{Name: n.Name, Call: call})
	}

	return prog, nil
}

// parseShape converts YAML shape entries into dimensions.
func parseShape(entries []any) ([]ir.Dim, error) {
	shape := make([]ir.Dim, len(entries))
	for i, e := range entries {
		switch d := e.(type) {
		case int:
			if d < 0 {
				return nil, fmt.Errorf("shape[%d]: dimension must be non-negative, got %d", i, d)
			}
			shape[i] = ir.Dim(d)
		case string:
			if d != compiler.DynamicDim {
				return nil, fmt.Errorf("shape[%d]: dimension must be an int or %q, got %q", i, compiler.DynamicDim, d)
			}
			shape[i] = ir.AnyDim
		default:
			return nil, fmt.Errorf("shape[%d]: unsupported dimension %v (%T)", i, e, e)
		}
	}
	return shape, nil
}
