package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/mthresh/internal/compiler"
	"github.com/roach88/mthresh/internal/ir"
	"github.com/roach88/mthresh/internal/op"
	"github.com/roach88/mthresh/internal/store"
	"github.com/roach88/mthresh/internal/typeinfer"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs store.RunIDGenerator
}

// NodeCheck is the reported result of one node.
type NodeCheck struct {
	Name     string   `json:"name"`
	Op       string   `json:"op"`
	Outcome  string   `json:"outcome"`
	Output   string   `json:"output,omitempty"`
	Code     string   `json:"code,omitempty"`
	Message  string   `json:"message,omitempty"`
	Deferred []string `json:"deferred,omitempty"`
	Line     int      `json:"line,omitempty"`
}

// ProgramCheck is the reported result of one program.
type ProgramCheck struct {
	Program    string                     `json:"program"`
	RunID      string                     `json:"run_id,omitempty"`
	Validation []compiler.ValidationError `json:"validation,omitempty"`
	Nodes      []NodeCheck                `json:"nodes"`
	Solved     int                        `json:"solved"`
	Failed     int                        `json:"failed"`
	Deferred   int                        `json:"deferred"`
}

// CheckResult holds the results of every program in a directory.
type CheckResult struct {
	Programs []ProgramCheck `json:"programs"`
	Solved   int            `json:"solved"`
	Failed   int            `json:"failed"`
	Deferred int            `json:"deferred"`
	Invalid  int            `json:"invalid"` // programs with validation errors
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <programs-dir>",
		Short: "Type-check programs",
		Long: `Load CUE programs, validate them and run type inference.

Every node is reported as solved, failed or deferred. A deferred node
either postponed a shape assertion to run time or never received complete
input types. With --db each program's results are recorded in the check
history.

Exit codes:
  0 - No node failed
  1 - A node failed or a program has validation errors
  2 - Command error (invalid paths, database errors, etc.)

Examples:
  mthresh check ./programs
  mthresh check ./programs --db ./mthresh.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *CheckOptions, programsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	reg, err := newRegistry()
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	loadResult, loadErrors := LoadPrograms(programsDir, reg, LoadModeFailFast)
	if len(loadErrors) > 0 {
		code, message := firstLoadError(loadErrors)
		return outputCommandError(formatter, code, message, nil)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, programsDir)

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return outputCommandError(formatter, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
	}

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = store.UUIDv7Generator{}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := CheckResult{Programs: make([]ProgramCheck, 0, len(loadResult.Programs))}
	for _, prog := range loadResult.Programs {
		pc, err := checkProgram(ctx, prog, reg, st, runIDs, opts.Jobs)
		if err != nil {
			return outputCommandError(formatter, ErrCodeGeneric, err.Error(), nil)
		}
		result.Programs = append(result.Programs, pc)
		result.Solved += pc.Solved
		result.Failed += pc.Failed
		result.Deferred += pc.Deferred
		if len(pc.Validation) > 0 {
			result.Invalid++
		}
	}

	if opts.Format == "json" {
		return outputCheckJSON(formatter.Writer, result)
	}
	return outputCheckText(formatter.Writer, result)
}

// checkProgram validates and infers one program and records it when a
// store is given.
func checkProgram(ctx context.Context, prog *ir.Program, reg *op.Registry, st *store.Store, runIDs store.RunIDGenerator, jobs int) (ProgramCheck, error) {
	pc := ProgramCheck{
		Program:    prog.Name,
		Validation: compiler.Validate(prog, reg),
	}

	res, err := typeinfer.Infer(ctx, prog, reg, typeinfer.WithJobs(jobs))
	if err != nil {
		return pc, fmt.Errorf("program %s: %w", prog.Name, err)
	}

	for _, n := range res.Nodes {
		pc.Nodes = append(pc.Nodes, nodeCheck(n))
		switch n.Outcome {
		case typeinfer.OutcomeSolved:
			pc.Solved++
		case typeinfer.OutcomeFailed:
			pc.Failed++
		case typeinfer.OutcomeDeferred:
			pc.Deferred++
		}
	}

	if st != nil {
		run, err := store.NewRun(runIDs.Generate(), prog, res)
		if err != nil {
			return pc, fmt.Errorf("program %s: %w", prog.Name, err)
		}
		run, err = st.WriteRun(ctx, run)
		if err != nil {
			return pc, fmt.Errorf("program %s: %w", prog.Name, err)
		}
		pc.RunID = run.ID
		slog.Info("run recorded", "program", prog.Name, "run_id", run.ID, "seq", run.Seq)
	}

	return pc, nil
}

// nodeCheck converts an inference result into its reported form.
func nodeCheck(n typeinfer.NodeResult) NodeCheck {
	nc := NodeCheck{
		Name:    n.Name,
		Op:      n.Op,
		Outcome: n.Outcome.String(),
		Output:  n.OutputString(),
		Line:    n.Span.Line,
	}
	if n.Diagnostic != nil {
		nc.Code = n.Diagnostic.Code
		nc.Message = n.Diagnostic.Message
	}
	for _, a := range n.Deferred {
		nc.Deferred = append(nc.Deferred, a.Description)
	}
	return nc
}

// checkFailed reports whether the result should exit non-zero.
func checkFailed(result CheckResult) bool {
	return result.Failed > 0 || result.Invalid > 0
}

// outputCheckJSON outputs the check result as JSON.
func outputCheckJSON(w io.Writer, result CheckResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if checkFailed(result) {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_CHECK_FAILED",
			Message: checkFailureMessage(result),
		}
	}

	if err := writeResponse(w, response); err != nil {
		return err
	}

	if checkFailed(result) {
		return NewExitError(ExitFailure, checkFailureMessage(result))
	}
	return nil
}

// outputCheckText outputs the check result as text.
func outputCheckText(w io.Writer, result CheckResult) error {
	for _, p := range result.Programs {
		if p.RunID != "" {
			fmt.Fprintf(w, "%s (run %s)\n", p.Program, p.RunID)
		} else {
			fmt.Fprintf(w, "%s\n", p.Program)
		}
		for _, v := range p.Validation {
			fmt.Fprintf(w, "  ! %s: %s\n", v.Code, v.Message)
		}
		for _, n := range p.Nodes {
			switch n.Outcome {
			case "solved":
				fmt.Fprintf(w, "  ✓ %s: %s\n", n.Name, n.Output)
			case "failed":
				fmt.Fprintf(w, "  ✗ %s: %s: %s\n", n.Name, n.Code, n.Message)
			default:
				fmt.Fprintf(w, "  ? %s: deferred", n.Name)
				if n.Output != "" {
					fmt.Fprintf(w, " %s", n.Output)
				}
				for _, d := range n.Deferred {
					fmt.Fprintf(w, " [runtime check: %s]", d)
				}
				if n.Code != "" {
					fmt.Fprintf(w, " [%s: %s]", n.Code, n.Message)
				}
				fmt.Fprintln(w)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Check Summary: %d solved, %d failed, %d deferred\n", result.Solved, result.Failed, result.Deferred)

	if checkFailed(result) {
		return NewExitError(ExitFailure, checkFailureMessage(result))
	}

	fmt.Fprintln(w, "✓ No type errors")
	return nil
}

func checkFailureMessage(result CheckResult) string {
	if result.Failed > 0 {
		return fmt.Sprintf("%d node(s) failed type checking", result.Failed)
	}
	return fmt.Sprintf("%d program(s) failed validation", result.Invalid)
}
