package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tracekit/internal/assemble"
	"tracekit/internal/format"
	"tracekit/internal/fsys"
)

var assembleFlags struct {
	dryRun   bool
	parallel int
	markdown bool
}

var assembleCmd = &cobra.Command{
	Use:   "assemble <plan>",
	Short: "Run an assembly plan of substitutions and copies",
	Long: `Executes the steps of a YAML or JSON assembly plan. Paths in the plan are
relative to the plan file. Steps that write the same file run in plan order;
independent files are assembled concurrently. The first failing step stops
the run. With --dry-run every step is checked without writing anything.`,
	Args: args(cobra.ExactArgs(1)),
	RunE: runAssemble,
}

func init() {
	f := assembleCmd.Flags()
	f.BoolVar(&assembleFlags.dryRun, "dry-run", false, "Check every step without writing")
	f.IntVar(&assembleFlags.parallel, "parallel", assemble.DefaultParallel, "Maximum number of files assembled at once")
	f.BoolVar(&assembleFlags.markdown, "markdown", false, "Render the step table as Markdown")
}

func runAssemble(cmd *cobra.Command, a []string) error {
	plan, err := assemble.LoadPlan(fsys.OS{}, a[0])
	if err != nil {
		return usageError(err)
	}
	r := assemble.NewRunner(fsys.OS{}, assemble.Options{
		Parallel: assembleFlags.parallel,
		DryRun:   assembleFlags.dryRun,
	})
	outcome, err := r.Run(cmd.Context(), plan)
	if err != nil {
		return err
	}

	mode := format.ASCII
	if assembleFlags.markdown {
		mode = format.Markdown
	}
	tb := format.NewTable(mode)
	tb.Header("#", "KIND", "TARGET", "TOKEN", "SOURCE", "SIZE")
	for _, s := range outcome.Steps {
		tb.Row(s.Index+1, s.Kind, s.Target, s.Token, s.Source, format.Bytes(int64(s.BytesWritten)))
	}
	tb.Columns(format.ColumnConfig{Number: 1, Align: format.AlignRight})

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, tb.String())
	verb := "Assembled"
	if outcome.DryRun {
		verb = "Checked"
	}
	fmt.Fprintf(out, "%s %d steps in %s\n", verb, len(outcome.Steps), format.Duration(outcome.Duration))
	return nil
}
