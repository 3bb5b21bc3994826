package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is a sealed interface for the types flowing through type inference.
// Only TensorType and IncompleteType implement it.
type Type interface {
	isType()
	String() string
}

// Dim is a single tensor extent. Negative values mean the extent is not
// statically known.
type Dim int64

// AnyDim marks an extent that is not known at compile time.
const AnyDim Dim = -1

// IsStatic reports whether the extent is known.
func (d Dim) IsStatic() bool {
	return d >= 0
}

func (d Dim) String() string {
	if !d.IsStatic() {
		return "?"
	}
	return strconv.FormatInt(int64(d), 10)
}

// TensorType is a shape plus an element dtype.
type TensorType struct {
	Shape []Dim  `json:"shape"`
	DType string `json:"dtype"`
}

func (TensorType) isType() {}

// NewTensorType builds a TensorType from plain extents.
func NewTensorType(dtype string, dims ...int64) TensorType {
	shape := make([]Dim, len(dims))
	for i, d := range dims {
		shape[i] = Dim(d)
	}
	return TensorType{Shape: shape, DType: dtype}
}

// Rank returns the number of dimensions.
func (t TensorType) Rank() int {
	return len(t.Shape)
}

// IsStatic reports whether every extent is known.
func (t TensorType) IsStatic() bool {
	for _, d := range t.Shape {
		if !d.IsStatic() {
			return false
		}
	}
	return true
}

// Equal reports whether t and other have the same dtype and shape.
func (t TensorType) Equal(other TensorType) bool {
	if t.DType != other.DType || len(t.Shape) != len(other.Shape) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != other.Shape[i] {
			return false
		}
	}
	return true
}

// String renders the type as Tensor[(1, 4), float32].
func (t TensorType) String() string {
	dims := make([]string, len(t.Shape))
	for i, d := range t.Shape {
		dims[i] = d.String()
	}
	return fmt.Sprintf("Tensor[(%s), %s]", strings.Join(dims, ", "), t.DType)
}

// IncompleteType stands in for a type that inference has not resolved yet.
type IncompleteType struct{}

func (IncompleteType) isType() {}

func (IncompleteType) String() string {
	return "?"
}

// TypeValue converts t to its canonical Value form.
func TypeValue(t Type) Value {
	switch tt := t.(type) {
	case TensorType:
		shape := make(List, len(tt.Shape))
		for i, d := range tt.Shape {
			shape[i] = Int(d)
		}
		return Object{
			"kind":  Str("tensor"),
			"shape": shape,
			"dtype": Str(tt.DType),
		}
	default:
		return Object{"kind": Str("incomplete")}
	}
}
