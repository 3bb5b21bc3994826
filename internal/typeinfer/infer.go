package typeinfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/mthresh/internal/ir"
	"github.com/roach88/mthresh/internal/op"
)

// Host error codes (E301-E309)
const (
	ErrUnknownOp  = "E301" // call names an operator that is not registered
	ErrArity      = "E302" // call has the wrong number of arguments
	ErrNestedCall = "E303" // call argument is itself a call
)

type options struct {
	jobs int
}

// Option configures an inference pass.
type Option func(*options)

// WithJobs bounds the number of relations invoked concurrently.
// Values below 1 mean GOMAXPROCS.
func WithJobs(n int) Option {
	return func(o *options) {
		o.jobs = n
	}
}

// state tracks one binding across rounds.
type state struct {
	binding ir.Binding
	def     op.Def
	result  NodeResult
	settled bool
}

// attempt is the outcome of one relation invocation in a round.
type attempt struct {
	output   ir.Type
	deferred []op.Assertion
	err      error
}

// Infer runs type inference over prog using the relations in reg.
//
// Ill-typed calls do not make Infer fail; they are reported as
// OutcomeFailed in the result. Infer returns an error only when ctx is
// cancelled or a relation returns an error that is not an *op.Diagnostic.
func Infer(ctx context.Context, prog *ir.Program, reg *op.Registry, opts ...Option) (*Result, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.jobs < 1 {
		o.jobs = runtime.GOMAXPROCS(0)
	}

	states := make([]*state, len(prog.Bindings))
	for i, b := range prog.Bindings {
		st, err := newState(b, reg)
		if err != nil {
			return nil, err
		}
		states[i] = st
	}

	solved := make(map[string]ir.Type)
	rounds := 0
	for {
		var open []*state
		for _, st := range states {
			if !st.settled {
				open = append(open, st)
			}
		}
		if len(open) == 0 {
			break
		}
		rounds++

		attempts, err := runRound(ctx, prog, open, solved, o.jobs)
		if err != nil {
			return nil, err
		}

		progress := 0
		for i, st := range open {
			if settle(st, attempts[i], solved) {
				progress++
			}
		}
		slog.Debug("inference round",
			"program", prog.Name,
			"round", rounds,
			"open", len(open),
			"settled", progress)
		if progress == 0 {
			break
		}
	}

	result := &Result{Program: prog.Name, Rounds: rounds}
	for _, st := range states {
		if !st.settled {
			st.result.Outcome = OutcomeDeferred
		}
		result.Nodes = append(result.Nodes, st.result)
	}

	slog.Info("type inference complete",
		"program", prog.Name,
		"solved", len(result.Solved()),
		"failed", len(result.Failed()),
		"deferred", len(result.Deferred()),
		"rounds", rounds)
	return result, nil
}

// newState resolves the operator of a binding. Host-level problems settle
// the binding as failed before any relation runs.
func newState(b ir.Binding, reg *op.Registry) (*state, error) {
	if b.Call == nil {
		return nil, fmt.Errorf("binding %q has no call", b.Name)
	}
	hash, err := ir.CallHash(b.Call)
	if err != nil {
		return nil, fmt.Errorf("binding %q: %w", b.Name, err)
	}

	st := &state{
		binding: b,
		result: NodeResult{
			Name: b.Name,
			Op:   b.Call.Op,
			Hash: hash,
			Span: b.Call.Span,
		},
	}

	def, ok := reg.Get(b.Call.Op)
	if !ok {
		st.fail(op.Errorf(b.Call.Span, ErrUnknownOp, "unknown operator %q", b.Call.Op))
		return st, nil
	}
	if len(b.Call.Args) != def.NumInputs {
		st.fail(op.Errorf(b.Call.Span, ErrArity,
			"%s expects %d arguments, got %d", def.Name, def.NumInputs, len(b.Call.Args)))
		return st, nil
	}
	for _, arg := range b.Call.Args {
		if _, nested := arg.(*ir.Call); nested {
			st.fail(op.Errorf(b.Call.Span, ErrNestedCall,
				"argument %q of %s must be an input or a binding", ir.ArgName(arg), def.Name))
			return st, nil
		}
	}
	st.def = def
	return st, nil
}

func (st *state) fail(d *op.Diagnostic) {
	st.result.Outcome = OutcomeFailed
	st.result.Diagnostic = d
	st.settled = true
}

// runRound invokes the relation of every open binding. Argument types are
// resolved before any relation starts, so bindings solved within the round
// only become visible in the next one.
func runRound(ctx context.Context, prog *ir.Program, open []*state, solved map[string]ir.Type, jobs int) ([]attempt, error) {
	slots := make([][]ir.Type, len(open))
	for i, st := range open {
		slots[i] = argTypes(prog, st.binding.Call, solved)
	}

	attempts := make([]attempt, len(open))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, st := range open {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rep := newNodeReporter(st.binding.Call.Span, slots[i])
			err := st.def.Rel(slots[i], st.binding.Call.Attrs, rep)

			var d *op.Diagnostic
			if err != nil && !errors.As(err, &d) {
				return fmt.Errorf("relation %s on %q: %w", st.def.RelName, st.binding.Name, err)
			}
			out, _ := rep.output()
			attempts[i] = attempt{output: out, deferred: rep.deferred, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return attempts, nil
}

// argTypes builds the type slots of a call: one per argument followed by
// the output slot.
func argTypes(prog *ir.Program, call *ir.Call, solved map[string]ir.Type) []ir.Type {
	types := make([]ir.Type, len(call.Args)+1)
	for i, arg := range call.Args {
		types[i] = ir.IncompleteType{}
		switch a := arg.(type) {
		case *ir.Var:
			if a.Type != nil {
				types[i] = a.Type
			} else if v := prog.Var(a.Name); v != nil && v.Type != nil {
				types[i] = v.Type
			}
		case *ir.Ref:
			if t, ok := solved[a.Name]; ok {
				types[i] = t
			} else if v := prog.Var(a.Name); v != nil && v.Type != nil {
				types[i] = v.Type
			}
		}
	}
	types[len(call.Args)] = ir.IncompleteType{}
	return types
}

// settle applies an attempt to a binding. It reports whether the binding
// reached a final outcome.
func settle(st *state, a attempt, solved map[string]ir.Type) bool {
	if a.err != nil {
		var d *op.Diagnostic
		errors.As(a.err, &d)
		if d.Pending {
			st.result.Diagnostic = d
			return false
		}
		st.fail(d)
		slog.Debug("binding failed", "name", st.binding.Name, "code", d.Code)
		return true
	}
	if a.output == nil {
		return false
	}

	st.result.Output = a.output
	st.result.Deferred = a.deferred
	st.result.Diagnostic = nil
	st.result.Outcome = OutcomeSolved
	if len(a.deferred) > 0 {
		st.result.Outcome = OutcomeDeferred
	}
	st.settled = true
	solved[st.binding.Name] = a.output
	return true
}
