package finn

import (
	"fmt"

	"github.com/roach88/mthresh/internal/ir"
	"github.com/roach88/mthresh/internal/op"
)

// OpName is the registered operator name.
const OpName = "MultiThreshold"

// SupportLevel is the operator's support tier.
const SupportLevel = 9

const description = `Threshold the input data to map it from one domain to another.

For a value x in the input, the output integer corresponds to the number of
thresholds that x is greater or equal to, shifted by out_bias.`

// Def returns the registration record of MultiThreshold. There is no
// separate shape function: the relation gives out the type of data.
func Def() op.Def {
	return op.Def{
		Name:        OpName,
		Description: description,
		NumInputs:   2,
		Arguments: []op.Argument{
			{Name: "data", Type: "Tensor", Description: "The input tensor."},
			{Name: "thresholds", Type: "Tensor", Description: "The thresholds for thresholding."},
		},
		Attributes: []op.Argument{
			{Name: "out_dtype", Type: "string", Description: "The output dtype of the data."},
			{Name: "out_bias", Type: "double", Description: "The bias added to the data (typically for unsigned integer)."},
		},
		SupportLevel: SupportLevel,
		AttrsTypeKey: AttrsTypeKey,
		RelName:      OpName,
		Rel:          MultiThresholdRel,
		Pattern:      op.PatternBroadcast,
	}
}

// Register adds MultiThreshold and its builder to reg.
// Call once while setting up a registry.
func Register(reg *op.Registry) error {
	if err := reg.Register(Def()); err != nil {
		return err
	}
	return reg.RegisterFunc(op.MakeFuncName(OpName), build)
}

// MakeCall builds a MultiThreshold call. It performs no validation; the
// relation checks the call when type inference reaches it.
func MakeCall(data, thresholds ir.Expr, outDType string, outBias float64) *ir.Call {
	return &ir.Call{
		Op:   OpName,
		Args: []ir.Expr{data, thresholds},
		Attrs: &MultiThresholdAttrs{
			OutDType: outDType,
			OutBias:  outBias,
		},
	}
}

// build adapts MakeCall to front ends that decode attributes generically.
func build(args []ir.Expr, attrs op.RawAttrs, span ir.Span) (*ir.Call, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%s takes 2 arguments (data, thresholds), got %d", OpName, len(args))
	}

	rawDType, ok := attrs["out_dtype"]
	if !ok {
		return nil, fmt.Errorf("%s: out_dtype is required", OpName)
	}
	outDType, ok := rawDType.(string)
	if !ok {
		return nil, fmt.Errorf("%s: out_dtype must be a string, got %T", OpName, rawDType)
	}

	rawBias, ok := attrs["out_bias"]
	if !ok {
		return nil, fmt.Errorf("%s: out_bias is required", OpName)
	}
	outBias, err := toFloat(rawBias)
	if err != nil {
		return nil, fmt.Errorf("%s: out_bias: %w", OpName, err)
	}

	for name := range attrs {
		if name != "out_dtype" && name != "out_bias" {
			return nil, fmt.Errorf("%s: unknown attribute %q", OpName, name)
		}
	}

	call := MakeCall(args[0], args[1], outDType, outBias)
	call.Span = span
	return call, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		f := float64(n)
		if f >= 0x1p63 || int64(f) != n {
			return 0, fmt.Errorf("%d is not exactly representable as a double", n)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("must be a number, got %T", v)
	}
}
