package store

import (
	"fmt"

	"github.com/roach88/mthresh/internal/ir"
)

// marshalAttrs converts call attributes to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalAttrs(attrs ir.Attrs) (string, error) {
	if attrs == nil {
		return "{}", nil
	}
	fields := attrs.Fields()
	if fields == nil {
		fields = ir.Object{}
	}
	data, err := ir.MarshalCanonical(ir.Object{
		"type_key": ir.Str(attrs.TypeKey()),
		"fields":   fields,
	})
	if err != nil {
		return "", fmt.Errorf("marshal attrs: %w", err)
	}
	return string(data), nil
}
