package testutil

import (
	"sync"

	"github.com/roach88/mthresh/internal/ir"
	"github.com/roach88/mthresh/internal/op"
)

// RecordingReporter captures everything a relation reports.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type RecordingReporter struct {
	mu       sync.Mutex
	span     ir.Span
	assigned map[int]ir.Type
	deferred []op.Assertion
}

// NewRecordingReporter creates a reporter for a call at span.
func NewRecordingReporter(span ir.Span) *RecordingReporter {
	return &RecordingReporter{
		span:     span,
		assigned: make(map[int]ir.Type),
	}
}

// Assign implements op.Reporter.
func (r *RecordingReporter) Assign(slot int, t ir.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assigned[slot] = t
}

// Defer implements op.Reporter.
func (r *RecordingReporter) Defer(a op.Assertion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deferred = append(r.deferred, a)
}

// Span implements op.Reporter.
func (r *RecordingReporter) Span() ir.Span {
	return r.span
}

// Assigned returns the type written to slot, if any.
func (r *RecordingReporter) Assigned(slot int) (ir.Type, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.assigned[slot]
	return t, ok
}

// Deferred returns a copy of the postponed assertions.
func (r *RecordingReporter) Deferred() []op.Assertion {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]op.Assertion, len(r.deferred))
	copy(out, r.deferred)
	return out
}
