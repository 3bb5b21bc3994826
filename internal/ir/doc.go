// Package ir provides the program and type model shared by the operator
// registry, the type-inference pass and the front ends.
//
// This package contains type definitions plus canonical serialization. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Types are immutable values; relations read them and never mutate them
//   - Canonical JSON has no float type; float attributes are hashed as strings
//   - Source spans never participate in content hashes
package ir
