package main

import (
	"fmt"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"tracekit/internal/convert"
	"tracekit/internal/fsys"
)

var convertCmd = &cobra.Command{
	Use:   "convert <in.csv> <out.json>",
	Short: "Convert a CSV query export to a data file",
	Long: `Reads a CSV file with a header row and writes {"results": [...]} with one
object per row, keyed by header in column order. Empty cells become null.`,
	Args: args(cobra.ExactArgs(2)),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, a []string) error {
	n, err := convert.File(fsys.OS{}, a[0], a[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Converted %s from %s to %s\n", english.Plural(n, "row", ""), a[0], a[1])
	return nil
}
