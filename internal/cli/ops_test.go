package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpsText(t *testing.T) {
	out, err := execute(NewOpsCommand(&RootOptions{Format: "text"}))
	require.NoError(t, err)

	assert.Contains(t, out, "MultiThreshold (2 input(s), support level 9, broadcast)\n")
	assert.Contains(t, out, "  Threshold the input data to map it from one domain to another.\n")
	assert.Contains(t, out, "  arg  data         Tensor   The input tensor.\n")
	assert.Contains(t, out, "  arg  thresholds   Tensor   The thresholds for thresholding.\n")
	assert.Contains(t, out, "  attr out_dtype    string   The output dtype of the data.\n")
	assert.Contains(t, out, "  attr out_bias     double   ")
}

func TestOpsJSON(t *testing.T) {
	out, err := execute(NewOpsCommand(&RootOptions{Format: "json"}))
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   []struct {
			Name         string `json:"name"`
			NumInputs    int    `json:"num_inputs"`
			SupportLevel int    `json:"support_level"`
			RelName      string `json:"rel_name"`
			Arguments    []struct {
				Name string `json:"name"`
			} `json:"arguments"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)

	def := resp.Data[0]
	assert.Equal(t, "MultiThreshold", def.Name)
	assert.Equal(t, 2, def.NumInputs)
	assert.Equal(t, 9, def.SupportLevel)
	assert.Equal(t, "MultiThreshold", def.RelName)
	require.Len(t, def.Arguments, 2)
	assert.Equal(t, "thresholds", def.Arguments[1].Name)
}

func TestOpsRejectsArgs(t *testing.T) {
	_, err := execute(NewOpsCommand(&RootOptions{Format: "text"}), "extra")
	require.Error(t, err)
}
