package dtype

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Recognized tag prefixes. UINT is tried first because "INT" is a
// substring of it.
const (
	prefixUnsigned = "UINT"
	prefixSigned   = "INT"
)

// MaxBitWidth is the widest integer encoding a tag may name.
const MaxBitWidth = 64

// ErrInvalidFormat is the sentinel wrapped by every decode failure.
var ErrInvalidFormat = errors.New("invalid dtype format")

// FormatError describes why a tag could not be decoded.
type FormatError struct {
	Tag    string // the tag exactly as received
	Reason string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return fmt.Sprintf("%v %q: %s", ErrInvalidFormat, e.Tag, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidFormat.
func (e *FormatError) Unwrap() error {
	return ErrInvalidFormat
}

// Decoded is the structured form of an integer element-type tag.
type Decoded struct {
	Signed   bool `json:"signed"`
	BitWidth int  `json:"bit_width"`
}

// Decode parses tags of the form UINT<n> and INT<n>, where n is one or two
// decimal digits in [1, 64].
//
// Decode never panics; every failure is a *FormatError wrapping
// ErrInvalidFormat.
func Decode(tag string) (Decoded, error) {
	var (
		digits string
		signed bool
	)

	switch {
	case strings.HasPrefix(tag, prefixUnsigned):
		digits = tag[len(prefixUnsigned):]
	case strings.HasPrefix(tag, prefixSigned):
		digits = tag[len(prefixSigned):]
		signed = true
	default:
		return Decoded{}, &FormatError{Tag: tag, Reason: "expected UINT<n> or INT<n>"}
	}

	if len(digits) == 0 || len(digits) > 2 {
		return Decoded{}, &FormatError{Tag: tag, Reason: "bit width must be 1 or 2 decimal digits"}
	}

	// strconv.Atoi accepts a leading sign, which the tag grammar does not.
	for _, r := range digits {
		if r < '0' || r > '9' {
			return Decoded{}, &FormatError{Tag: tag, Reason: fmt.Sprintf("non-digit %q in bit width", r)}
		}
	}

	width, err := strconv.Atoi(digits)
	if err != nil {
		return Decoded{}, &FormatError{Tag: tag, Reason: err.Error()}
	}
	if width < 1 || width > MaxBitWidth {
		return Decoded{}, &FormatError{Tag: tag, Reason: fmt.Sprintf("bit width %d outside [1, %d]", width, MaxBitWidth)}
	}

	return Decoded{Signed: signed, BitWidth: width}, nil
}

// MustDecode is like Decode but panics on error.
// Use only in tests or for static tables.
func MustDecode(tag string) Decoded {
	d, err := Decode(tag)
	if err != nil {
		panic(err)
	}
	return d
}

// String re-encodes d in canonical form, e.g. "UINT8" or "INT4".
func (d Decoded) String() string {
	if d.Signed {
		return prefixSigned + strconv.Itoa(d.BitWidth)
	}
	return prefixUnsigned + strconv.Itoa(d.BitWidth)
}

// Levels returns 2^BitWidth, the number of quantization levels.
// The result is exact for every legal width, including 64.
func (d Decoded) Levels() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(d.BitWidth))
}

// RequiredBias returns the only out_bias value consistent with d:
// -(2^n)/2 for signed encodings and 0 for unsigned ones.
// Powers of two are exact in float64 up to 2^1023.
func (d Decoded) RequiredBias() float64 {
	if !d.Signed {
		return 0
	}
	return -math.Ldexp(1, d.BitWidth-1)
}

// FormatBias renders an out_bias value. Integral values are printed with
// every digit, so -(2**64)/2 reads -9223372036854775808 rather than its
// shortest round-trip form.
func FormatBias(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
