package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// programsDir is the shared CUE fixture at the repository root.
var programsDir = filepath.Join("..", "..", "testdata", "programs")

// writeCUE writes src to a fresh directory and returns the directory.
func writeCUE(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "program.cue"), []byte(src), 0644))
	return dir
}

// execute runs cmd with args and returns its stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	if args == nil {
		args = []string{} // nil makes cobra fall back to os.Args
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

const failingProgram = `
package test

program: Bad: {
	var: {
		x: {shape: [1, 4], dtype: "float32"}
		t: {shape: [4, 256], dtype: "float32"}
	}
	node: {
		ok:   {op: "MultiThreshold", args: ["x", "t"], attrs: {out_dtype: "UINT8", out_bias: 0}}
		bias: {op: "MultiThreshold", args: ["x", "t"], attrs: {out_dtype: "INT8", out_bias: 0}}
	}
}
`

const invalidProgram = `
package test

program: Cycle: {
	var: t: {shape: [4, 2], dtype: "float32"}
	node: {
		a: {op: "MultiThreshold", args: ["b", "t"], attrs: {out_dtype: "UINT1", out_bias: 0}}
		b: {op: "MultiThreshold", args: ["a", "t"], attrs: {out_dtype: "UINT1", out_bias: 0}}
		c: {op: "MultiThreshold", args: ["missing", "t"], attrs: {out_dtype: "UINT1", out_bias: 0}}
	}
}
`
