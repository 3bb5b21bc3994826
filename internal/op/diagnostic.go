package op

import (
	"errors"
	"fmt"

	"github.com/roach88/mthresh/internal/ir"
)

// Diagnostic is a fatal, span-attributed type error for one call.
type Diagnostic struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Span    ir.Span `json:"span"`

	// Pending marks a diagnostic raised because an input type is not yet
	// resolved. The host may retry the relation once more is known.
	Pending bool `json:"pending,omitempty"`
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	if d.Span.IsValid() {
		return fmt.Sprintf("%s: %s: %s", d.Span, d.Code, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// Errorf creates a fatal diagnostic.
func Errorf(span ir.Span, code, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	}
}

// Pendingf creates a diagnostic for inputs that are not resolved yet.
func Pendingf(span ir.Span, code, format string, args ...any) *Diagnostic {
	d := Errorf(span, code, format, args...)
	d.Pending = true
	return d
}

// IsPending reports whether err is a pending Diagnostic.
// Uses errors.As to handle wrapped errors.
func IsPending(err error) bool {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d.Pending
	}
	return false
}

// CodeOf returns the diagnostic code carried by err, or "" if err is not a
// Diagnostic.
func CodeOf(err error) string {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d.Code
	}
	return ""
}
