// Command wiring serves the example puppy API, whose route parameters are
// resolved by the dependency injector, and inspects the compiled
// resolution plans of its routes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type flags struct {
	file     string
	envFiles []string
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "wiring",
		Short:         "Type-directed dependency injection for HTTP handlers",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&f.file, "config", "c", "", "path to a YAML configuration file")
	root.PersistentFlags().StringSliceVar(&f.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	root.AddCommand(newServeCmd(f), newPlanCmd(f))
	return root
}
