package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/mthresh/internal/finn"
	"github.com/roach88/mthresh/internal/ir"
	"github.com/roach88/mthresh/internal/op"
	"github.com/roach88/mthresh/internal/typeinfer"
)

// createTestStore creates a new temporary store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestProgram builds a program with one solved and one failed node.
func createTestProgram() *ir.Program {
	x := &ir.Var{Name: "x", Type: ir.NewTensorType("float32", 1, 4)}
	th := &ir.Var{Name: "t", Type: ir.NewTensorType("float32", 4, 256)}
	return &ir.Program{
		Name: "Demo",
		Vars: []*ir.Var{x, th},
		Bindings: []ir.Binding{
			{Name: "y", Call: finn.MakeCall(x, th, "UINT8", 0)},
			{Name: "z", Call: finn.MakeCall(x, th, "INT8", 0)},
		},
	}
}

// createTestRun infers prog and converts the result into a run.
func createTestRun(t *testing.T, id string, prog *ir.Program) Run {
	t.Helper()
	reg := op.NewRegistry()
	require.NoError(t, finn.Register(reg))

	res, err := typeinfer.Infer(context.Background(), prog, reg)
	require.NoError(t, err)

	run, err := NewRun(id, prog, res)
	require.NoError(t, err)
	return run
}
