// Package op provides the host-side operator registry consumed by the
// type-inference pass.
//
// An operator is described by a Def: its name, arity, documentation, a
// support-level tier, a fusion pattern and the type relation invoked for
// every call to it. Registries are created and owned by the caller; this
// package holds no package-level mutable state.
//
// Relations report fatal problems by returning a *Diagnostic. A diagnostic
// marked Pending means the inputs were not resolved yet, not that the
// program is wrong.
package op
