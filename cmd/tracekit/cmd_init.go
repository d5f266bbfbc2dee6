package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tracekit/internal/fsys"
	"tracekit/internal/scaffold"
)

var initFlags struct {
	force bool
}

var initCmd = &cobra.Command{
	Use:   "init [root]",
	Short: "Create an analysis skeleton",
	Long: `Creates queries/, data/ and visuals/ under [root] (default ".") together
with a template trace-metadata.json, a REPORT.html with one visual
placeholder and an assemble.yaml plan. The template manifest fails
validation until its placeholder values are replaced.`,
	Args: args(cobra.MaximumNArgs(1)),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initFlags.force, "force", false, "Overwrite existing skeleton files")
}

func runInit(cmd *cobra.Command, a []string) error {
	root := "."
	if len(a) == 1 {
		root = a[0]
	}
	written, err := scaffold.Init(fsys.OS{}, root, scaffold.Options{Force: initFlags.force})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, p := range written {
		fmt.Fprintf(out, "  created %s\n", p)
	}
	fmt.Fprintf(out, "Analysis skeleton ready in %s. Edit trace-metadata.json, then run 'tracekit validate %s'.\n", root, root)
	return nil
}
