package testutil

import "github.com/roach88/mthresh/internal/ir"

// Tensor builds a tensor type; a negative extent becomes ir.AnyDim.
//
//	testutil.Tensor("float32", 1, 4)   // Tensor[(1, 4), float32]
//	testutil.Tensor("float32", 4, -1)  // Tensor[(4, ?), float32]
func Tensor(dtype string, dims ...int64) ir.TensorType {
	t := ir.NewTensorType(dtype, dims...)
	for i, d := range t.Shape {
		if d < 0 {
			t.Shape[i] = ir.AnyDim
		}
	}
	return t
}

// Slots returns the three type slots of a binary operator with an empty
// output slot.
func Slots(data, thresholds ir.Type) []ir.Type {
	return []ir.Type{data, thresholds, ir.IncompleteType{}}
}
