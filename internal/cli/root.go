package cli

import (
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/mthresh/internal/finn"
	"github.com/roach88/mthresh/internal/ir"
	"github.com/roach88/mthresh/internal/op"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string // sqlite check history; empty disables persistence
	Jobs     int    // parallel relation invocations
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the mthresh CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "mthresh",
		Short:   "mthresh - MultiThreshold type checker",
		Long:    "Type-check quantized thresholding programs written in CUE.",
		Version: ir.ToolVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.Jobs < 0 {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid jobs %d: must be non-negative", opts.Jobs))
			}
			configureLogging(cmd, opts.Verbose)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite check history")
	cmd.PersistentFlags().IntVar(&opts.Jobs, "jobs", runtime.GOMAXPROCS(0), "parallel relation invocations")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewDecodeCommand(opts))
	cmd.AddCommand(NewOpsCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// configureLogging routes slog output to the command's stderr.
// Verbose enables debug records from the inference pass.
func configureLogging(cmd *cobra.Command, verbose bool) {
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// newRegistry returns a registry holding every operator this tool knows.
func newRegistry() (*op.Registry, error) {
	reg := op.NewRegistry()
	if err := finn.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
