package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows the algorithm to change later.
const (
	DomainCall    = "mthresh/call/v1"
	DomainProgram = "mthresh/program/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CallValue converts a call to its canonical Value form. Source spans are
// excluded: moving a node in its file does not change its identity.
func CallValue(c *Call) Value {
	args := make(List, len(c.Args))
	for i, a := range c.Args {
		args[i] = exprValue(a)
	}
	obj := Object{
		"op":   Str(c.Op),
		"args": args,
	}
	if c.Attrs != nil {
		fields := c.Attrs.Fields()
		if fields == nil {
			fields = Object{}
		}
		obj["attrs"] = Object{
			"type_key": Str(c.Attrs.TypeKey()),
			"fields":   fields,
		}
	}
	return obj
}

func exprValue(e Expr) Value {
	switch a := e.(type) {
	case *Var:
		var t Type = IncompleteType{}
		if a.Type != nil {
			t = a.Type
		}
		return Object{"var": Str(a.Name), "type": TypeValue(t)}
	case *Ref:
		return Object{"ref": Str(a.Name)}
	case *Call:
		return Object{"call": CallValue(a)}
	default:
		return Object{"unknown": Str(fmt.Sprintf("%T", e))}
	}
}

// CallHash computes the content-addressed ID of a call.
func CallHash(c *Call) (string, error) {
	canonical, err := MarshalCanonical(CallValue(c))
	if err != nil {
		return "", fmt.Errorf("CallHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCall, canonical), nil
}

// ProgramValue converts a program to its canonical Value form.
func ProgramValue(p *Program) Value {
	vars := make(List, len(p.Vars))
	for i, v := range p.Vars {
		vars[i] = exprValue(v)
	}
	bindings := make(List, len(p.Bindings))
	for i, b := range p.Bindings {
		bindings[i] = Object{"name": Str(b.Name), "call": CallValue(b.Call)}
	}
	return Object{
		"name":     Str(p.Name),
		"vars":     vars,
		"bindings": bindings,
	}
}

// ProgramHash computes the content-addressed ID of a whole program.
func ProgramHash(p *Program) (string, error) {
	canonical, err := MarshalCanonical(ProgramValue(p))
	if err != nil {
		return "", fmt.Errorf("ProgramHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProgram, canonical), nil
}

// MustCallHash is like CallHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustCallHash(c *Call) string {
	id, err := CallHash(c)
	if err != nil {
		panic(err)
	}
	return id
}
