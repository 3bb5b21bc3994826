package op

// Pattern classifies an operator for fusion and scheduling.
type Pattern int

// Fusion patterns, from most to least fusable.
const (
	PatternElemWise        Pattern = 0
	PatternBroadcast       Pattern = 1
	PatternInjective       Pattern = 2
	PatternCommReduce      Pattern = 3
	PatternOutEWiseFusable Pattern = 4
	PatternTuple           Pattern = 7
	PatternOpaque          Pattern = 8
)

func (p Pattern) String() string {
	switch p {
	case PatternElemWise:
		return "elemwise"
	case PatternBroadcast:
		return "broadcast"
	case PatternInjective:
		return "injective"
	case PatternCommReduce:
		return "comm_reduce"
	case PatternOutEWiseFusable:
		return "out_elemwise_fusable"
	case PatternTuple:
		return "tuple"
	case PatternOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// MarshalText encodes the pattern by name.
func (p Pattern) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
