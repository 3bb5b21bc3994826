package op

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mthresh/internal/ir"
)

func identityRel(types []ir.Type, _ ir.Attrs, r Reporter) error {
	r.Assign(len(types)-1, types[0])
	return nil
}

func TestRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(Def{
		Name:      "Identity",
		NumInputs: 1,
		Arguments: []Argument{{Name: "data", Type: "Tensor"}},
		Rel:       identityRel,
		Pattern:   PatternElemWise,
	})
	require.NoError(t, err)

	def, ok := reg.Get("Identity")
	require.True(t, ok)
	assert.Equal(t, 1, def.NumInputs)
	assert.Equal(t, "Identity", def.RelName, "RelName defaults to Name")

	_, ok = reg.Get("Missing")
	assert.False(t, ok)
}

func TestRegisterRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		def  Def
		want string
	}{
		{"empty name", Def{Rel: identityRel}, "empty name"},
		{"nil relation", Def{Name: "X"}, "no type relation"},
		{"negative arity", Def{Name: "X", NumInputs: -1, Rel: identityRel}, "negative arity"},
		{"argument count", Def{Name: "X", NumInputs: 2, Arguments: []Argument{{Name: "a"}}, Rel: identityRel}, "documented arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().Register(tt.def)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(Def{Name: "X", Rel: identityRel}))
	err := reg.Register(Def{Name: "X", Rel: identityRel})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestNamesSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"b", "c", "a"} {
		require.NoError(t, reg.Register(Def{Name: name, Rel: identityRel}))
	}
	assert.Equal(t, []string{"a", "b", "c"}, reg.Names())
}

func TestRegistriesAreIndependent(t *testing.T) {
	r1 := NewRegistry()
	r2 := NewRegistry()
	require.NoError(t, r1.Register(Def{Name: "X", Rel: identityRel}))

	_, ok := r2.Get("X")
	assert.False(t, ok)
}

func TestRegisterFunc(t *testing.T) {
	reg := NewRegistry()
	build := func(args []ir.Expr, _ RawAttrs, span ir.Span) (*ir.Call, error) {
		return &ir.Call{Op: "X", Args: args, Span: span}, nil
	}

	require.NoError(t, reg.RegisterFunc(MakeFuncName("X"), build))
	require.Error(t, reg.RegisterFunc(MakeFuncName("X"), build))
	require.Error(t, reg.RegisterFunc("nil", nil))

	fn, ok := reg.Func("relay.op.contrib._make.X")
	require.True(t, ok)
	call, err := fn(nil, nil, ir.Span{Line: 1})
	require.NoError(t, err)
	assert.Equal(t, "X", call.Op)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = reg.Register(Def{Name: fmt.Sprintf("op%d", i), Rel: identityRel})
			_, _ = reg.Get("op0")
			_ = reg.Names()
		}(i)
	}
	wg.Wait()
	assert.Len(t, reg.Names(), 16)
}

func TestDiagnostic(t *testing.T) {
	span := ir.Span{File: "p.cue", Line: 4, Column: 2}
	d := Errorf(span, "E203", "expected %d, got %d", 256, 100)
	assert.Equal(t, "p.cue:4:2: E203: expected 256, got 100", d.Error())
	assert.False(t, d.Pending)

	bare := Errorf(ir.Span{}, "E201", "bad")
	assert.Equal(t, "E201: bad", bare.Error())

	wrapped := fmt.Errorf("node y: %w", Pendingf(span, "E202", "not a tensor"))
	assert.True(t, IsPending(wrapped))
	assert.Equal(t, "E202", CodeOf(wrapped))

	assert.False(t, IsPending(errors.New("plain")))
	assert.Equal(t, "", CodeOf(errors.New("plain")))
}

func TestPatternString(t *testing.T) {
	assert.Equal(t, "broadcast", PatternBroadcast.String())
	assert.Equal(t, "opaque", PatternOpaque.String())
	assert.Equal(t, "unknown", Pattern(42).String())
}

func TestPatternMarshalText(t *testing.T) {
	b, err := PatternBroadcast.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "broadcast", string(b))
}
