package finn

import (
	"fmt"
	"math/big"

	"github.com/roach88/mthresh/internal/dtype"
	"github.com/roach88/mthresh/internal/ir"
	"github.com/roach88/mthresh/internal/op"
)

// Type relation error codes (E201-E209)
const (
	ErrInvalidDtypeFormat = "E201" // out_dtype is not UINT<n>/INT<n> with n in [1, 64]
	ErrShapeRankMismatch  = "E202" // an input is not (yet) a tensor, or thresholds has rank 0
	ErrShapeMismatch      = "E203" // thresholds trailing dimension != 2^bit_width
	ErrBiasSignMismatch   = "E204" // out_bias inconsistent with out_dtype signedness
)

// Type slots of a MultiThreshold call.
const (
	slotData       = 0
	slotThresholds = 1
	slotOut        = 2
	numSlots       = 3
)

// MultiThresholdRel is the type relation of MultiThreshold.
//
// types must hold exactly [data, thresholds, out]. On success the data type
// is assigned to the output slot unchanged; out_dtype describes the logical
// quantization domain, not the physical tensor type.
//
// The relation is a pure function of its inputs and is safe for concurrent
// use.
func MultiThresholdRel(types []ir.Type, attrs ir.Attrs, reporter op.Reporter) error {
	if len(types) != numSlots {
		return fmt.Errorf("%s: expected %d type slots, got %d", OpName, numSlots, len(types))
	}
	params, ok := attrs.(*MultiThresholdAttrs)
	if !ok || params == nil {
		return fmt.Errorf("%s: expected *MultiThresholdAttrs, got %T", OpName, attrs)
	}
	span := reporter.Span()

	data, ok := types[slotData].(ir.TensorType)
	if !ok {
		return op.Pendingf(span, ErrShapeRankMismatch,
			"data is %s, not a tensor type", types[slotData])
	}
	thresholds, ok := types[slotThresholds].(ir.TensorType)
	if !ok {
		return op.Pendingf(span, ErrShapeRankMismatch,
			"thresholds is %s, not a tensor type", types[slotThresholds])
	}

	decoded, err := dtype.Decode(params.OutDType)
	if err != nil {
		return op.Errorf(span, ErrInvalidDtypeFormat,
			"%s out_dtype bad format: %q (expected UINT<n> or INT<n>, 1 <= n <= %d)",
			OpName, params.OutDType, dtype.MaxBitWidth)
	}

	if thresholds.Rank() == 0 {
		return op.Errorf(span, ErrShapeRankMismatch,
			"thresholds must have at least one dimension, got %s", thresholds)
	}

	levels := decoded.Levels()
	axis := thresholds.Rank() - 1
	last := thresholds.Shape[axis]
	if last.IsStatic() {
		if big.NewInt(int64(last)).Cmp(levels) != 0 {
			return op.Errorf(span, ErrShapeMismatch,
				"thresholds trailing dimension must be 2**%d = %s for out_dtype %s, got %d",
				decoded.BitWidth, levels, params.OutDType, last)
		}
	} else {
		reporter.Defer(op.Assertion{
			Slot:        slotThresholds,
			Axis:        axis,
			Expected:    levels.String(),
			Description: fmt.Sprintf("thresholds.shape[%d] == 2**%d = %s", axis, decoded.BitWidth, levels),
		})
	}

	if required := decoded.RequiredBias(); params.OutBias != required {
		if decoded.Signed {
			return op.Errorf(span, ErrBiasSignMismatch,
				"for a signed out_dtype %s, out_bias must be -(2**%d)/2 = %s, got %s",
				params.OutDType, decoded.BitWidth, dtype.FormatBias(required), dtype.FormatBias(params.OutBias))
		}
		return op.Errorf(span, ErrBiasSignMismatch,
			"for an unsigned out_dtype %s, out_bias must be 0, got %s",
			params.OutDType, dtype.FormatBias(params.OutBias))
	}

	reporter.Assign(slotOut, data)
	return nil
}
