package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.Execute()
}

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	backend    string
	path       string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:           "lineage",
		Short:         "Versioned knowledge artifacts and dependency impact analysis",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default: ./lineage.yaml if present)")
	root.PersistentFlags().StringVar(&flags.backend, "backend", "", "storage backend, overrides storage.backend")
	root.PersistentFlags().StringVar(&flags.path, "path", "", "storage path, overrides storage.path")

	root.AddCommand(
		newServeCmd(&flags),
		newVersionCmd(&flags),
		newArtifactsCmd(&flags),
		newDepCmd(&flags),
		newImpactCmd(&flags),
		newCompareCmd(&flags),
		newLifecycleCmd(&flags),
		newExportCmd(&flags),
	)
	return root
}
