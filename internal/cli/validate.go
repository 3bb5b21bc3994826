package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/mthresh/internal/compiler"
	"github.com/roach88/mthresh/internal/ir"
	"github.com/roach88/mthresh/internal/op"
)

// ProgramValidation holds the structural errors of one program.
type ProgramValidation struct {
	Program string                     `json:"program"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Programs []ProgramValidation `json:"programs"`
}

// errorCount returns the number of errors across all programs.
func (r ValidationResult) errorCount() int {
	n := 0
	for _, p := range r.Programs {
		n += len(p.Errors)
	}
	return n
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <programs-dir>",
		Short: "Validate program structure without type inference",
		Long: `Validate CUE programs without running type inference.

Checks that every program has nodes, that names are unique, that
arguments refer to declared inputs or nodes, that operators are
registered with the right arity and that nodes do not depend on each
other in a cycle. Faster than check for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, programsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	reg, err := newRegistry()
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	// Use shared loader with fail-fast mode for validation
	loadResult, loadErrors := LoadPrograms(programsDir, reg, LoadModeFailFast)
	if len(loadErrors) > 0 {
		code, message := firstLoadError(loadErrors)
		return outputCommandError(formatter, code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, programsDir)

	result := validatePrograms(loadResult.Programs, reg, formatter)
	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}

	// Output success
	return outputValidateSuccess(formatter, result)
}

// validatePrograms runs structural validation over every program.
func validatePrograms(programs []*ir.Program, reg *op.Registry, formatter *OutputFormatter) ValidationResult {
	result := ValidationResult{Valid: true, Programs: make([]ProgramValidation, 0, len(programs))}
	for _, prog := range programs {
		formatter.VerboseLog("Validating program: %s", prog.Name)
		errs := compiler.Validate(prog, reg)
		if len(errs) > 0 {
			result.Valid = false
		}
		result.Programs = append(result.Programs, ProgramValidation{Program: prog.Name, Errors: errs})
	}
	return result
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d program(s) valid\n", len(result.Programs))
	return nil
}

// outputValidationErrors outputs the structural errors of every program.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	count := result.errorCount()

	if formatter.Format == "json" {
		var first compiler.ValidationError
		for _, p := range result.Programs {
			if len(p.Errors) > 0 {
				first = p.Errors[0]
				break
			}
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    first.Code,
				Message: first.Message,
			},
		}

		if err := writeResponse(formatter.Writer, response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", count))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, p := range result.Programs {
		if len(p.Errors) == 0 {
			continue
		}
		fmt.Fprintf(formatter.Writer, "%s:\n", p.Program)
		for _, err := range p.Errors {
			if err.Line > 0 {
				fmt.Fprintf(formatter.Writer, "  line %d\n", err.Line)
			}
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
		}
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", count))
}

// ValidateProgramsDir validates all programs in a directory.
// This is a helper function for external callers.
func ValidateProgramsDir(programsDir string) ([]compiler.ValidationError, error) {
	reg, err := newRegistry()
	if err != nil {
		return nil, err
	}

	// Use shared loader
	loadResult, loadErrors := LoadPrograms(programsDir, reg, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	// Create a silent formatter for validatePrograms
	silentFormatter := &OutputFormatter{Format: "text", Verbose: false, Writer: io.Discard}
	result := validatePrograms(loadResult.Programs, reg, silentFormatter)

	var errs []compiler.ValidationError
	for _, p := range result.Programs {
		errs = append(errs, p.Errors...)
	}
	return errs, nil
}
