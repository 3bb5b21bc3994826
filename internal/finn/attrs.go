package finn

import (
	"strconv"

	"github.com/roach88/mthresh/internal/ir"
)

// AttrsTypeKey identifies MultiThresholdAttrs for serialization.
const AttrsTypeKey = "relay.attrs.MultiThresholdAttrs"

// MultiThresholdAttrs is the static configuration of a MultiThreshold call.
// Values are immutable once the call is built.
type MultiThresholdAttrs struct {
	OutDType string  `json:"out_dtype"` // output dtype of the data, e.g. "UINT8"
	OutBias  float64 `json:"out_bias"`  // bias added to the output integer
}

// TypeKey implements ir.Attrs.
func (*MultiThresholdAttrs) TypeKey() string {
	return AttrsTypeKey
}

// Fields implements ir.Attrs. The bias is rendered in its shortest exact
// decimal form so that hashes do not depend on float encoding.
func (a *MultiThresholdAttrs) Fields() ir.Object {
	return ir.Object{
		"out_dtype": ir.Str(a.OutDType),
		"out_bias":  ir.Str(strconv.FormatFloat(a.OutBias, 'g', -1, 64)),
	}
}
