// Command mthresh type-checks MultiThreshold programs written in CUE.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/mthresh/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
