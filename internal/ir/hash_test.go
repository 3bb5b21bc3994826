package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAttrs struct {
	mode string
}

func (stubAttrs) TypeKey() string { return "test.attrs.Stub" }

func (a stubAttrs) Fields() Object { return Object{"mode": Str(a.mode)} }

func stubCall(mode string) *Call {
	return &Call{
		Op: "Stub",
		Args: []Expr{
			&Var{Name: "x", Type: NewTensorType("float32", 1, 4)},
			&Ref{Name: "y"},
		},
		Attrs: stubAttrs{mode: mode},
	}
}

func TestCallHashDeterminism(t *testing.T) {
	id1, err := CallHash(stubCall("a"))
	require.NoError(t, err)
	id2, err := CallHash(stubCall("a"))
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "CallHash must be deterministic")
	assert.Len(t, id1, 64, "SHA-256 hex is 64 characters")
}

func TestCallHashChangesWithInput(t *testing.T) {
	base := MustCallHash(stubCall("a"))

	otherAttrs := MustCallHash(stubCall("b"))
	assert.NotEqual(t, base, otherAttrs, "different attrs should produce different IDs")

	otherShape := stubCall("a")
	otherShape.Args[0] = &Var{Name: "x", Type: NewTensorType("float32", 1, 8)}
	assert.NotEqual(t, base, MustCallHash(otherShape), "different arg types should produce different IDs")

	otherOp := stubCall("a")
	otherOp.Op = "Other"
	assert.NotEqual(t, base, MustCallHash(otherOp), "different op should produce different IDs")
}

func TestCallHashIgnoresSpan(t *testing.T) {
	moved := stubCall("a")
	moved.Span = Span{File: "a.cue", Line: 10, Column: 2}
	assert.Equal(t, MustCallHash(stubCall("a")), MustCallHash(moved))
}

func TestCallHashNilAttrs(t *testing.T) {
	c := &Call{Op: "Identity", Args: []Expr{&Var{Name: "x"}}}
	_, err := CallHash(c)
	require.NoError(t, err)
}

func TestProgramHash(t *testing.T) {
	prog := func(name string) *Program {
		return &Program{
			Name: name,
			Vars: []*Var{{Name: "x", Type: NewTensorType("float32", 1, 4)}},
			Bindings: []Binding{
				{Name: "y", Call: stubCall("a")},
			},
		}
	}

	h1, err := ProgramHash(prog("p"))
	require.NoError(t, err)
	h2, err := ProgramHash(prog("p"))
	require.NoError(t, err)
	h3, err := ProgramHash(prog("q"))
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestHashDomainSeparation(t *testing.T) {
	data := []byte(`{"op":"x"}`)
	assert.NotEqual(t, hashWithDomain(DomainCall, data), hashWithDomain(DomainProgram, data))
}
