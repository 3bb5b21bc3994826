package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/mthresh/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledProgram summarizes one compiled program.
type CompiledProgram struct {
	Name  string         `json:"name"`
	Hash  string         `json:"hash"`
	Vars  int            `json:"vars"`
	Nodes []CompiledNode `json:"nodes"`
}

// CompiledNode is one let-bound call and its content hash.
type CompiledNode struct {
	Name     string `json:"name"`
	Op       string `json:"op"`
	CallHash string `json:"call_hash"`
}

// CompilationResult holds the compiled programs.
type CompilationResult struct {
	Programs []CompiledProgram `json:"programs"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <programs-dir>",
		Short: "Compile CUE programs to canonical IR",
		Long: `Compile CUE programs to canonical IR format.

The compiler parses CUE files, builds every node through its operator's
builder and reports the content hash of each program and call. With
--output the canonical IR of all programs is written to a file.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, programsDir string, cmd *cobra.Command) error {
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

	loadResult, loadErrors := LoadPrograms(programsDir, reg, LoadModeCollectAll)

	if loadResult == nil && len(loadErrors) > 0 {
		code, message := firstLoadError(loadErrors)
		return outputCommandError(formatter, code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, programsDir)

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result, err := summarizePrograms(loadResult.Programs)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error(), nil)
	}
	for _, p := range result.Programs {
		formatter.VerboseLog("Compiled program: %s (%d node(s))", p.Name, len(p.Nodes))
	}

	if opts.Output != "" {
		if err := writeIRToFile(loadResult.Programs, opts.Output); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// summarizePrograms computes program and call hashes.
func summarizePrograms(programs []*ir.Program) (*CompilationResult, error) {
	result := &CompilationResult{Programs: make([]CompiledProgram, 0, len(programs))}
	for _, prog := range programs {
		hash, err := ir.ProgramHash(prog)
		if err != nil {
			return nil, fmt.Errorf("program %s: %w", prog.Name, err)
		}
		cp := CompiledProgram{
			Name:  prog.Name,
			Hash:  hash,
			Vars:  len(prog.Vars),
			Nodes: make([]CompiledNode, 0, len(prog.Bindings)),
		}
		for _, b := range prog.Bindings {
			callHash, err := ir.CallHash(b.Call)
			if err != nil {
				return nil, fmt.Errorf("program %s node %s: %w", prog.Name, b.Name, err)
			}
			cp.Nodes = append(cp.Nodes, CompiledNode{Name: b.Name, Op: b.Call.Op, CallHash: callHash})
		}
		result.Programs = append(result.Programs, cp)
	}
	return result, nil
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Compiled %d program(s)\n\n", len(result.Programs))

	for _, p := range result.Programs {
		fmt.Fprintf(formatter.Writer, "%s: %d input(s), %d node(s)\n", p.Name, p.Vars, len(p.Nodes))
		fmt.Fprintf(formatter.Writer, "  hash %s\n", p.Hash)
		for _, n := range p.Nodes {
			fmt.Fprintf(formatter.Writer, "  %s = %s  %s\n", n.Name, n.Op, n.CallHash[:12])
		}
		fmt.Fprintln(formatter.Writer)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote canonical IR to %s\n", outputFile)
	}

	return nil
}

// outputCompileErrors reports every program that failed to compile.
// Compile errors are command errors: no program was checked.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	failure := NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		all := make([]CLIError, len(errs))
		for i, err := range errs {
			all[i].Code, all[i].Message = loadErrorParts(err)
		}
		if err := writeResponse(formatter.Writer, CLIResponse{Status: "error", Error: &all[0], Data: all}); err != nil {
			return err
		}
		return failure
	}

	w := formatter.Writer
	fmt.Fprintln(w, "✗ Compilation failed")
	fmt.Fprintln(w)
	for _, err := range errs {
		var le *LoadError
		if errors.As(err, &le) && le.Pos.IsValid() {
			fmt.Fprintf(w, "%s:%d:%d\n", le.Pos.Filename(), le.Pos.Line(), le.Pos.Column())
		}
		code, message := loadErrorParts(err)
		fmt.Fprintf(w, "  %s: %s\n\n", code, message)
	}
	return failure
}

// writeIRToFile writes the programs to a file in canonical JSON format.
func writeIRToFile(programs []*ir.Program, filename string) error {
	list := make(ir.List, len(programs))
	for i, p := range programs {
		list[i] = ir.ProgramValue(p)
	}

	data, err := ir.MarshalCanonical(ir.Object{
		"ir_version": ir.Str(ir.IRVersion),
		"programs":   list,
	})
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
