package typeinfer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mthresh/internal/finn"
	"github.com/roach88/mthresh/internal/ir"
	"github.com/roach88/mthresh/internal/op"
	"github.com/roach88/mthresh/internal/testutil"
)

func newRegistry(t *testing.T) *op.Registry {
	t.Helper()
	reg := op.NewRegistry()
	require.NoError(t, finn.Register(reg))
	return reg
}

func input(name string, t ir.TensorType) *ir.Var {
	return &ir.Var{Name: name, Type: t}
}

func bind(name string, call *ir.Call) ir.Binding {
	return ir.Binding{Name: name, Call: call}
}

// summary flattens a result for comparison.
type summary struct {
	Name    string
	Outcome string
	Output  string
	Code    string
}

func summarize(r *Result) []summary {
	out := make([]summary, len(r.Nodes))
	for i, n := range r.Nodes {
		s := summary{Name: n.Name, Outcome: n.Outcome.String(), Output: n.OutputString()}
		if n.Diagnostic != nil {
			s.Code = n.Diagnostic.Code
		}
		out[i] = s
	}
	return out
}

func TestInferSolved(t *testing.T) {
	x := input("x", testutil.Tensor("float32", 1, 4))
	th := input("t", testutil.Tensor("float32", 4, 256))
	prog := &ir.Program{
		Name:     "Demo",
		Vars:     []*ir.Var{x, th},
		Bindings: []ir.Binding{bind("y", finn.MakeCall(x, th, "UINT8", 0))},
	}

	res, err := Infer(context.Background(), prog, newRegistry(t))
	require.NoError(t, err)

	y, ok := res.Node("y")
	require.True(t, ok)
	assert.Equal(t, OutcomeSolved, y.Outcome)
	assert.Equal(t, x.Type, y.Output)
	assert.Nil(t, y.Diagnostic)
	assert.Equal(t, ir.MustCallHash(prog.Bindings[0].Call), y.Hash)
	assert.True(t, res.OK())
	assert.Equal(t, 1, res.Rounds)
}

func TestInferOutcomes(t *testing.T) {
	x := input("x", testutil.Tensor("float32", 1, 4))
	t256 := input("t256", testutil.Tensor("float32", 4, 256))
	t100 := input("t100", testutil.Tensor("float32", 4, 100))
	tdyn := input("tdyn", testutil.Tensor("float32", 4, -1))

	prog := &ir.Program{
		Name: "Outcomes",
		Vars: []*ir.Var{x, t256, t100, tdyn},
		Bindings: []ir.Binding{
			bind("ok", finn.MakeCall(x, t256, "UINT8", 0)),
			bind("bias", finn.MakeCall(x, t256, "INT8", 0)),
			bind("shape", finn.MakeCall(x, t100, "UINT8", 0)),
			bind("dtype", finn.MakeCall(x, t256, "FLOAT32", 0)),
			bind("dyn", finn.MakeCall(x, tdyn, "INT8", -128)),
		},
	}

	res, err := Infer(context.Background(), prog, newRegistry(t))
	require.NoError(t, err)

	want := []summary{
		{Name: "ok", Outcome: "solved", Output: "Tensor[(1, 4), float32]"},
		{Name: "bias", Outcome: "failed", Code: finn.ErrBiasSignMismatch},
		{Name: "shape", Outcome: "failed", Code: finn.ErrShapeMismatch},
		{Name: "dtype", Outcome: "failed", Code: finn.ErrInvalidDtypeFormat},
		{Name: "dyn", Outcome: "deferred", Output: "Tensor[(1, 4), float32]"},
	}
	if diff := cmp.Diff(want, summarize(res)); diff != "" {
		t.Errorf("Infer() mismatch (-want +got):\n%s", diff)
	}

	dyn, _ := res.Node("dyn")
	require.Len(t, dyn.Deferred, 1)
	assert.Equal(t, "256", dyn.Deferred[0].Expected)

	assert.Len(t, res.Failed(), 3)
	assert.Len(t, res.Deferred(), 1)
	assert.False(t, res.OK())
}

func TestInferChainResolvesAcrossRounds(t *testing.T) {
	x := input("x", testutil.Tensor("float32", 1, 4))
	th := input("t", testutil.Tensor("float32", 4, 16))

	// z is declared before y, so the first round sees y unresolved.
	prog := &ir.Program{
		Name: "Chain",
		Vars: []*ir.Var{x, th},
		Bindings: []ir.Binding{
			bind("z", finn.MakeCall(&ir.Ref{Name: "y"}, th, "UINT4", 0)),
			bind("y", finn.MakeCall(x, th, "INT4", -8)),
		},
	}

	res, err := Infer(context.Background(), prog, newRegistry(t))
	require.NoError(t, err)

	want := []summary{
		{Name: "z", Outcome: "solved", Output: "Tensor[(1, 4), float32]"},
		{Name: "y", Outcome: "solved", Output: "Tensor[(1, 4), float32]"},
	}
	if diff := cmp.Diff(want, summarize(res)); diff != "" {
		t.Errorf("Infer() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, res.Rounds)
}

func TestInferDependentOfFailedIsDeferred(t *testing.T) {
	x := input("x", testutil.Tensor("float32", 1, 4))
	th := input("t", testutil.Tensor("float32", 4, 256))
	prog := &ir.Program{
		Name: "Blocked",
		Vars: []*ir.Var{x, th},
		Bindings: []ir.Binding{
			bind("y", finn.MakeCall(x, th, "INT8", 0)),
			bind("z", finn.MakeCall(&ir.Ref{Name: "y"}, th, "UINT8", 0)),
		},
	}

	res, err := Infer(context.Background(), prog, newRegistry(t))
	require.NoError(t, err)

	z, ok := res.Node("z")
	require.True(t, ok)
	assert.Equal(t, OutcomeDeferred, z.Outcome)
	assert.Nil(t, z.Output)
	require.NotNil(t, z.Diagnostic)
	assert.Equal(t, finn.ErrShapeRankMismatch, z.Diagnostic.Code)
	assert.True(t, z.Diagnostic.Pending)
}

func TestInferIncompleteInput(t *testing.T) {
	x := &ir.Var{Name: "x"}
	th := input("t", testutil.Tensor("float32", 4, 256))
	prog := &ir.Program{
		Name:     "Incomplete",
		Vars:     []*ir.Var{x, th},
		Bindings: []ir.Binding{bind("y", finn.MakeCall(x, th, "UINT8", 0))},
	}

	res, err := Infer(context.Background(), prog, newRegistry(t))
	require.NoError(t, err)

	y, _ := res.Node("y")
	assert.Equal(t, OutcomeDeferred, y.Outcome)
	assert.True(t, y.Diagnostic.Pending)
	assert.Equal(t, 1, res.Rounds)
}

func TestInferHostErrors(t *testing.T) {
	x := input("x", testutil.Tensor("float32", 1, 4))
	th := input("t", testutil.Tensor("float32", 4, 256))
	prog := &ir.Program{
		Name: "Host",
		Vars: []*ir.Var{x, th},
		Bindings: []ir.Binding{
			bind("unknown", &ir.Call{Op: "Conv2D", Args: []ir.Expr{x, th}}),
			bind("arity", &ir.Call{Op: finn.OpName, Args: []ir.Expr{x}, Attrs: &finn.MultiThresholdAttrs{OutDType: "UINT8"}}),
			bind("nested", finn.MakeCall(finn.MakeCall(x, th, "UINT8", 0), th, "UINT8", 0)),
		},
	}

	res, err := Infer(context.Background(), prog, newRegistry(t))
	require.NoError(t, err)

	want := []summary{
		{Name: "unknown", Outcome: "failed", Code: ErrUnknownOp},
		{Name: "arity", Outcome: "failed", Code: ErrArity},
		{Name: "nested", Outcome: "failed", Code: ErrNestedCall},
	}
	if diff := cmp.Diff(want, summarize(res)); diff != "" {
		t.Errorf("Infer() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, res.Rounds)
}

func TestInferDeterministicAcrossJobs(t *testing.T) {
	x := input("x", testutil.Tensor("float32", 1, 4))
	th := input("t", testutil.Tensor("float32", 4, 256))
	prog := &ir.Program{Name: "Wide", Vars: []*ir.Var{x, th}}
	for i := 0; i < 40; i++ {
		tag, bias := "UINT8", 0.0
		switch i % 3 {
		case 1:
			tag, bias = "INT8", -128
		case 2:
			tag, bias = "INT8", 0
		}
		prog.Bindings = append(prog.Bindings,
			bind(string(rune('a'+i%26))+string(rune('0'+i/26)), finn.MakeCall(x, th, tag, bias)))
	}

	reg := newRegistry(t)
	serial, err := Infer(context.Background(), prog, reg, WithJobs(1))
	require.NoError(t, err)
	parallel, err := Infer(context.Background(), prog, reg, WithJobs(8))
	require.NoError(t, err)

	if diff := cmp.Diff(summarize(serial), summarize(parallel)); diff != "" {
		t.Errorf("results depend on scheduling (-serial +parallel):\n%s", diff)
	}
}

func TestInferRelationBug(t *testing.T) {
	reg := op.NewRegistry()
	require.NoError(t, reg.Register(op.Def{
		Name:      "Broken",
		NumInputs: 1,
		Rel: func([]ir.Type, ir.Attrs, op.Reporter) error {
			return errors.New("boom")
		},
	}))
	x := input("x", testutil.Tensor("float32", 1))
	prog := &ir.Program{
		Name:     "Bug",
		Vars:     []*ir.Var{x},
		Bindings: []ir.Binding{bind("y", &ir.Call{Op: "Broken", Args: []ir.Expr{x}})},
	}

	_, err := Infer(context.Background(), prog, reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), `"y"`)
}

func TestInferCancelled(t *testing.T) {
	x := input("x", testutil.Tensor("float32", 1, 4))
	th := input("t", testutil.Tensor("float32", 4, 256))
	prog := &ir.Program{
		Name:     "Cancelled",
		Vars:     []*ir.Var{x, th},
		Bindings: []ir.Binding{bind("y", finn.MakeCall(x, th, "UINT8", 0))},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Infer(ctx, prog, newRegistry(t))
	require.ErrorIs(t, err, context.Canceled)
}

func TestInferNilCall(t *testing.T) {
	prog := &ir.Program{Name: "Nil", Bindings: []ir.Binding{{Name: "y"}}}
	_, err := Infer(context.Background(), prog, newRegistry(t))
	require.Error(t, err)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "solved", OutcomeSolved.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
	assert.Equal(t, "deferred", OutcomeDeferred.String())
	assert.Equal(t, "unknown", Outcome(9).String())

	b, err := OutcomeDeferred.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "deferred", string(b))
}
