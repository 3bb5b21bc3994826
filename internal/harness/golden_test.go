package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mthresh/internal/ir"
)

func TestTraceSnapshotCanonical(t *testing.T) {
	snap := TraceSnapshot{
		ScenarioName: "snap",
		RunID:        "run-1",
		Trace: []NodeTrace{
			{Name: "y", Op: "MultiThreshold", Outcome: "deferred", Output: "Tensor[(1), float32]",
				Deferred: []string{"thresholds.shape[0] == 2**1 = 2"}, CallHash: "abc"},
			{Name: "z", Op: "Relu", Outcome: "failed", Code: "E301", Message: `unknown operator "Relu"`},
		},
		Validation: []string{"E104"},
	}

	data, err := ir.MarshalCanonical(snap.toCanonical())
	require.NoError(t, err)

	want := `{"run_id":"run-1","scenario_name":"snap","trace":[` +
		`{"deferred":["thresholds.shape[0] == 2**1 = 2"],"name":"y","op":"MultiThreshold","outcome":"deferred","output":"Tensor[(1), float32]"},` +
		`{"code":"E301","message":"unknown operator \"Relu\"","name":"z","op":"Relu","outcome":"failed"}` +
		`],"validation":["E104"]}`
	assert.Equal(t, want, string(data))
	assert.NotContains(t, string(data), "abc", "call hashes are left out of snapshots")
}

func TestRunWithGoldenBasic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/multithreshold_basic.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass)
}
