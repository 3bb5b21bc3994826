package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/mthresh/internal/dtype"
)

// DecodedTag is the decoded form of one dtype tag.
type DecodedTag struct {
	Tag          string `json:"tag"`
	Valid        bool   `json:"valid"`
	Signed       bool   `json:"signed,omitempty"`
	BitWidth     int    `json:"bit_width,omitempty"`
	Levels       string `json:"levels,omitempty"` // 2^bit_width, exact
	RequiredBias string `json:"required_bias,omitempty"`
	Error        string `json:"error,omitempty"`
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <tag>...",
		Short: "Decode out_dtype tags",
		Long: `Decode UINT<n> and INT<n> tags as the MultiThreshold relation does.

For each tag prints its signedness, bit width, the number of thresholds
a MultiThreshold call needs (2^n) and the out_bias it requires.

Examples:
  mthresh decode UINT8 INT4
  mthresh decode INT64 --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runDecode(opts *RootOptions, tags []string, cmd *cobra.Command) error {
	results := make([]DecodedTag, 0, len(tags))
	invalid := 0
	for _, tag := range tags {
		r := decodeTag(tag)
		if !r.Valid {
			invalid++
		}
		results = append(results, r)
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: results}
		if invalid > 0 {
			response.Status = "error"
			response.Error = &CLIError{Code: "E_DECODE_FAILED", Message: fmt.Sprintf("%d invalid tag(s)", invalid)}
		}
		if err := writeResponse(w, response); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if !r.Valid {
				fmt.Fprintf(w, "✗ %s: %s\n", r.Tag, r.Error)
				continue
			}
			signedness := "unsigned"
			if r.Signed {
				signedness = "signed"
			}
			fmt.Fprintf(w, "✓ %s: %s, %d bit(s), %s thresholds, out_bias %s\n",
				r.Tag, signedness, r.BitWidth, r.Levels, r.RequiredBias)
		}
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid tag(s)", invalid))
	}
	return nil
}

// decodeTag runs the codec over one tag.
func decodeTag(tag string) DecodedTag {
	d, err := dtype.Decode(tag)
	if err != nil {
		msg := err.Error()
		var fe *dtype.FormatError
		if errors.As(err, &fe) {
			msg = fe.Reason
		}
		return DecodedTag{Tag: tag, Error: msg}
	}
	return DecodedTag{
		Tag:          tag,
		Valid:        true,
		Signed:       d.Signed,
		BitWidth:     d.BitWidth,
		Levels:       d.Levels().String(),
		RequiredBias: dtype.FormatBias(d.RequiredBias()),
	}
}
