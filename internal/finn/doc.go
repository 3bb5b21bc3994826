// Package finn provides the MultiThreshold operator: its attributes, its
// type relation, its call builder and its registration record.
//
// MultiThreshold maps input data from one domain (floating point or
// integer) to an integer domain: for a value x, the output is the number of
// thresholds that x is greater than or equal to, plus out_bias. This package
// only covers compile-time checking; it does not compute outputs.
//
// The relation accepts a call when:
//   - out_dtype decodes as UINT<n> or INT<n> with n in [1, 64]
//   - the thresholds tensor's trailing dimension is 2^n
//   - out_bias is -(2^n)/2 for signed out_dtype and 0 for unsigned
//
// and then gives the call the data argument's type unchanged.
package finn
