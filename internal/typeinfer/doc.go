// Package typeinfer runs operator type relations over a program until no
// more types can be resolved.
//
// Inference proceeds in rounds. Each round invokes the relation of every
// binding that is not yet settled, with argument types taken from program
// inputs and from the outputs solved in earlier rounds. A relation that
// reports a pending diagnostic is retried in the next round. The pass
// stops when a round settles nothing new.
//
// Relations within a round run concurrently (see WithJobs). Results are
// always reported in binding declaration order, so the outcome does not
// depend on scheduling.
//
// Every binding ends in one of three outcomes:
//   - Solved: the relation accepted the call and assigned its output.
//   - Failed: the call is ill-typed (a fatal diagnostic).
//   - Deferred: a constraint could not be decided yet, either because the
//     relation postponed an assertion on a dynamic dimension or because
//     its inputs never became known.
package typeinfer
