package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/mthresh/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	CallHash string // list every recorded result of one call
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Query the check history",
		Long: `Query the check history recorded by "mthresh check --db".

Without arguments lists every run in the order it was recorded. With a
run id shows the per-node results of that run. With --call lists every
recorded result of one call, identified by its content hash.

Examples:
  mthresh history --db ./mthresh.db
  mthresh history --db ./mthresh.db 0192f0c4-...
  mthresh history --db ./mthresh.db --call 3f9a...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runHistory(opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.CallHash, "call", "", "show results of the call with this hash")

	return cmd
}

func runHistory(opts *HistoryOptions, runID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Database == "" {
		return outputCommandError(formatter, ErrCodeDatabase, "--db is required", nil)
	}
	if runID != "" && opts.CallHash != "" {
		return outputCommandError(formatter, ErrCodeGeneric, "a run id and --call cannot be combined", nil)
	}
	if _, err := os.Stat(opts.Database); err != nil {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case runID != "":
		return showRun(ctx, st, runID, formatter)
	case opts.CallHash != "":
		return showCallHistory(ctx, st, opts.CallHash, formatter)
	default:
		return listRuns(ctx, st, formatter)
	}
}

func listRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}

	w := formatter.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%4d  %s  %-20s %d solved, %d failed, %d deferred\n",
			r.Seq, r.ID, r.Program, r.Solved, r.Failed, r.Deferred)
	}
	return nil
}

func showRun(ctx context.Context, st *store.Store, runID string, formatter *OutputFormatter) error {
	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("run not found: %s", runID), nil)
	}
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(run)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (seq %d)\n", run.ID, run.Seq)
	fmt.Fprintf(w, "Program: %s\n", run.Program)
	fmt.Fprintf(w, "Program hash: %s\n", run.ProgramHash)
	fmt.Fprintf(w, "Versions: ir %s, tool %s\n\n", run.IRVersion, run.ToolVersion)
	for _, n := range run.Nodes {
		writeNodeRecord(w, n.Name, n.Outcome, n.OutputType, n.Code, n.Message)
	}
	fmt.Fprintf(w, "\n%d solved, %d failed, %d deferred\n", run.Solved, run.Failed, run.Deferred)
	return nil
}

func showCallHistory(ctx context.Context, st *store.Store, callHash string, formatter *OutputFormatter) error {
	records, err := st.ReadCallHistory(ctx, callHash)
	if err != nil {
		return outputCommandError(formatter, ErrCodeDatabase, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(records)
	}

	w := formatter.Writer
	if len(records) == 0 {
		fmt.Fprintf(w, "No results recorded for call %s.\n", callHash)
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(w, "%4d  %s  %s: ", r.Seq, r.RunID, r.Program)
		writeNodeRecord(w, r.Node.Name, r.Node.Outcome, r.Node.OutputType, r.Node.Code, r.Node.Message)
	}
	return nil
}

// writeNodeRecord prints one stored node result on a single line.
func writeNodeRecord(w io.Writer, name, outcome, output, code, message string) {
	fmt.Fprintf(w, "%s %s", name, outcome)
	if output != "" {
		fmt.Fprintf(w, " %s", output)
	}
	if code != "" {
		fmt.Fprintf(w, " %s: %s", code, message)
	}
	fmt.Fprintln(w)
}
