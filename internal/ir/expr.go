package ir

import "fmt"

// Span locates a node in its source file.
type Span struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// IsValid reports whether the span carries a line number.
func (s Span) IsValid() bool {
	return s.Line > 0
}

func (s Span) String() string {
	if !s.IsValid() {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
}

// Attrs is the static configuration attached to a call.
//
// TypeKey identifies the attribute schema for serialization; it must not
// drive behaviour. Fields returns the attribute values in canonical form.
type Attrs interface {
	TypeKey() string
	Fields() Object
}

// Expr is a sealed interface for call arguments.
type Expr interface {
	isExpr()
}

// Var is a program input with a declared type.
type Var struct {
	Name string `json:"name"`
	Type Type   `json:"-"`
	Span Span   `json:"span"`
}

func (*Var) isExpr() {}

// Ref refers to the output of an earlier binding.
type Ref struct {
	Name string `json:"name"`
}

func (*Ref) isExpr() {}

// Call applies a registered operator to arguments.
type Call struct {
	Op    string `json:"op"`
	Args  []Expr `json:"-"`
	Attrs Attrs  `json:"-"`
	Span  Span   `json:"span"`
}

func (*Call) isExpr() {}

// Binding names the result of a call.
type Binding struct {
	Name string `json:"name"`
	Call *Call  `json:"call"`
}

// Program is a flat list of program inputs and let-bound calls, in
// declaration order.
type Program struct {
	Name     string    `json:"name"`
	Vars     []*Var    `json:"vars"`
	Bindings []Binding `json:"bindings"`
	Span     Span      `json:"span"`
}

// Var returns the input with the given name, or nil.
func (p *Program) Var(name string) *Var {
	for _, v := range p.Vars {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Binding returns the binding with the given name.
func (p *Program) Binding(name string) (Binding, bool) {
	for _, b := range p.Bindings {
		if b.Name == name {
			return b, true
		}
	}
	return Binding{}, false
}

// ArgName returns the name an argument refers to.
func ArgName(e Expr) string {
	switch a := e.(type) {
	case *Var:
		return a.Name
	case *Ref:
		return a.Name
	case *Call:
		return a.Op
	default:
		return ""
	}
}
