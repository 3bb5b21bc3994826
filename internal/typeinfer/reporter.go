package typeinfer

import (
	"github.com/roach88/mthresh/internal/ir"
	"github.com/roach88/mthresh/internal/op"
)

// nodeReporter collects what one relation invocation reports. It is owned
// by a single goroutine for the duration of the call.
type nodeReporter struct {
	span     ir.Span
	types    []ir.Type
	deferred []op.Assertion
}

func newNodeReporter(span ir.Span, types []ir.Type) *nodeReporter {
	return &nodeReporter{span: span, types: types}
}

func (r *nodeReporter) Assign(slot int, t ir.Type) {
	if slot < 0 || slot >= len(r.types) {
		return
	}
	r.types[slot] = t
}

func (r *nodeReporter) Defer(a op.Assertion) {
	r.deferred = append(r.deferred, a)
}

func (r *nodeReporter) Span() ir.Span {
	return r.span
}

// output returns the type in the last slot if the relation assigned one.
func (r *nodeReporter) output() (ir.Type, bool) {
	out := r.types[len(r.types)-1]
	if _, incomplete := out.(ir.IncompleteType); incomplete || out == nil {
		return nil, false
	}
	return out, true
}
