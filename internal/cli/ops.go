package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mthresh/internal/op"
)

// NewOpsCommand creates the ops command.
func NewOpsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ops",
		Short:         "List registered operators",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOps(rootOpts, cmd)
		},
	}

	return cmd
}

func runOps(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format: opts.Format,
		Writer: cmd.OutOrStdout(),
	}

	reg, err := newRegistry()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to register operators", err)
	}

	defs := make([]op.Def, 0)
	for _, name := range reg.Names() {
		def, _ := reg.Get(name)
		defs = append(defs, def)
	}

	if opts.Format == "json" {
		return formatter.Success(defs)
	}

	w := formatter.Writer
	for _, def := range defs {
		fmt.Fprintf(w, "%s (%d input(s), support level %d, %s)\n",
			def.Name, def.NumInputs, def.SupportLevel, def.Pattern)
		for _, line := range strings.Split(def.Description, "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
		fmt.Fprintln(w)
		for _, a := range def.Arguments {
			fmt.Fprintf(w, "  arg  %-12s %-8s %s\n", a.Name, a.Type, a.Description)
		}
		for _, a := range def.Attributes {
			fmt.Fprintf(w, "  attr %-12s %-8s %s\n", a.Name, a.Type, a.Description)
		}
	}
	return nil
}
