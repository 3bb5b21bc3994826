package cli

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeText(t *testing.T) {
	out, err := execute(NewDecodeCommand(&RootOptions{Format: "text"}), "UINT8", "INT4", "UINT1")
	require.NoError(t, err)

	assert.Equal(t, "✓ UINT8: unsigned, 8 bit(s), 256 thresholds, out_bias 0\n"+
		"✓ INT4: signed, 4 bit(s), 16 thresholds, out_bias -8\n"+
		"✓ UINT1: unsigned, 1 bit(s), 2 thresholds, out_bias 0\n", out)
}

func TestDecodeInvalidTag(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"FLOAT8", "expected UINT<n> or INT<n>"},
		{"INT", "bit width must be 1 or 2 decimal digits"},
		{"UINT128", "bit width must be 1 or 2 decimal digits"},
		{"INT6x", `non-digit 'x' in bit width`},
		{"UINT0", "bit width 0 outside [1, 64]"},
		{"INT65", "bit width 65 outside [1, 64]"},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			out, err := execute(NewDecodeCommand(&RootOptions{Format: "text"}), tt.tag)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Equal(t, "✗ "+tt.tag+": "+tt.want+"\n", out)
		})
	}
}

func TestDecodeWidest(t *testing.T) {
	r := decodeTag("INT64")
	require.True(t, r.Valid)
	assert.True(t, r.Signed)
	assert.Equal(t, 64, r.BitWidth)
	assert.Equal(t, "18446744073709551616", r.Levels)
	assert.Equal(t, "-9223372036854775808", r.RequiredBias)
}

func TestDecodeJSON(t *testing.T) {
	out, err := execute(NewDecodeCommand(&RootOptions{Format: "json"}),
		"UINT8", "INT4", "INT64", "FLOAT8", "UINT0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 invalid tag(s)")

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "decode_json", []byte(out))
}

func TestDecodeRequiresTag(t *testing.T) {
	_, err := execute(NewDecodeCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}
