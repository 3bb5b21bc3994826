// Package store provides SQLite-backed history of type-check runs.
//
// Each run records one inference pass over one program:
//   - Runs: program name and content hash, outcome counts, tool versions
//   - Node results: per-binding outcome, diagnostic and output type
//
// # Ordering
//
// Runs are ordered by seq INTEGER (logical clock), NEVER timestamps.
// Run ids are UUIDv7 in production, but ordering never depends on them.
// All list queries include ORDER BY seq ASC or position ASC.
//
// # Identity
//
// Node results carry the content hash of their call (see internal/ir),
// so the history of one call can be followed across runs and programs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
