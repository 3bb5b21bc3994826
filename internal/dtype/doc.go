// Package dtype decodes the textual integer element-type tags used by
// quantizing operators.
//
// A tag is either UINT<n> (unsigned) or INT<n> (signed), where n is a one-
// or two-digit decimal bit width in [1, 64]:
//
//	d, err := dtype.Decode("INT8")
//	// d.Signed == true, d.BitWidth == 8
//	// d.Levels() == 256, d.RequiredBias() == -128
//
// This package imports nothing internal.
package dtype
