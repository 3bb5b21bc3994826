package finn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mthresh/internal/ir"
	"github.com/roach88/mthresh/internal/op"
)

func TestRegister(t *testing.T) {
	reg := op.NewRegistry()
	require.NoError(t, Register(reg))

	def, ok := reg.Get("MultiThreshold")
	require.True(t, ok)
	assert.Equal(t, 2, def.NumInputs)
	assert.Equal(t, 9, def.SupportLevel)
	assert.Equal(t, op.PatternBroadcast, def.Pattern)
	assert.Equal(t, "relay.attrs.MultiThresholdAttrs", def.AttrsTypeKey)
	assert.Equal(t, "MultiThreshold", def.RelName)
	assert.NotNil(t, def.Rel)
	require.Len(t, def.Arguments, 2)
	assert.Equal(t, "data", def.Arguments[0].Name)
	assert.Equal(t, "thresholds", def.Arguments[1].Name)

	_, ok = reg.Func("relay.op.contrib._make.MultiThreshold")
	assert.True(t, ok)
}

func TestRegisterTwiceFails(t *testing.T) {
	reg := op.NewRegistry()
	require.NoError(t, Register(reg))
	require.Error(t, Register(reg))
}

func TestMakeCall(t *testing.T) {
	data := &ir.Var{Name: "x"}
	thresholds := &ir.Var{Name: "t"}

	call := MakeCall(data, thresholds, "INT4", -8)
	assert.Equal(t, "MultiThreshold", call.Op)
	assert.Equal(t, []ir.Expr{data, thresholds}, call.Args)

	attrs, ok := call.Attrs.(*MultiThresholdAttrs)
	require.True(t, ok)
	assert.Equal(t, "INT4", attrs.OutDType)
	assert.Equal(t, -8.0, attrs.OutBias)
}

func TestMakeCallDoesNotValidate(t *testing.T) {
	call := MakeCall(&ir.Var{Name: "x"}, &ir.Var{Name: "t"}, "FLOAT32", 3.5)
	assert.NotNil(t, call)
}

func TestAttrsFields(t *testing.T) {
	a := &MultiThresholdAttrs{OutDType: "INT8", OutBias: -128}
	assert.Equal(t, AttrsTypeKey, a.TypeKey())
	assert.Equal(t, ir.Object{
		"out_dtype": ir.Str("INT8"),
		"out_bias":  ir.Str("-128"),
	}, a.Fields())

	b := &MultiThresholdAttrs{OutDType: "INT8", OutBias: -127.5}
	assert.NotEqual(t, ir.MustCallHash(MakeCall(&ir.Ref{Name: "x"}, &ir.Ref{Name: "t"}, a.OutDType, a.OutBias)),
		ir.MustCallHash(MakeCall(&ir.Ref{Name: "x"}, &ir.Ref{Name: "t"}, b.OutDType, b.OutBias)))
}

func TestBuild(t *testing.T) {
	args := []ir.Expr{&ir.Ref{Name: "x"}, &ir.Ref{Name: "t"}}
	span := ir.Span{File: "p.cue", Line: 3, Column: 1}

	call, err := build(args, op.RawAttrs{"out_dtype": "INT8", "out_bias": int64(-128)}, span)
	require.NoError(t, err)
	assert.Equal(t, span, call.Span)
	assert.Equal(t, -128.0, call.Attrs.(*MultiThresholdAttrs).OutBias)

	call, err = build(args, op.RawAttrs{"out_dtype": "UINT8", "out_bias": 0.0}, span)
	require.NoError(t, err)
	assert.Equal(t, "UINT8", call.Attrs.(*MultiThresholdAttrs).OutDType)
}

func TestBuildErrors(t *testing.T) {
	args := []ir.Expr{&ir.Ref{Name: "x"}, &ir.Ref{Name: "t"}}
	tests := []struct {
		name  string
		args  []ir.Expr
		attrs op.RawAttrs
		want  string
	}{
		{"arity", args[:1], op.RawAttrs{"out_dtype": "UINT8", "out_bias": 0.0}, "takes 2 arguments"},
		{"missing dtype", args, op.RawAttrs{"out_bias": 0.0}, "out_dtype is required"},
		{"dtype type", args, op.RawAttrs{"out_dtype": 8, "out_bias": 0.0}, "must be a string"},
		{"missing bias", args, op.RawAttrs{"out_dtype": "UINT8"}, "out_bias is required"},
		{"bias type", args, op.RawAttrs{"out_dtype": "UINT8", "out_bias": "zero"}, "must be a number"},
		{"inexact bias", args, op.RawAttrs{"out_dtype": "UINT8", "out_bias": int64(9007199254740993)}, "not exactly representable"},
		{"unknown attr", args, op.RawAttrs{"out_dtype": "UINT8", "out_bias": 0.0, "axis": 1}, "unknown attribute"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := build(tt.args, tt.attrs, ir.Span{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
