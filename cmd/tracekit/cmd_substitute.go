package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tracekit/internal/format"
	"tracekit/internal/fsys"
	"tracekit/internal/substitute"
)

var substituteFlags struct {
	output     string
	replaceAll bool
}

var substituteCmd = &cobra.Command{
	Use:   "substitute <target> <token> <source>",
	Short: "Replace a literal placeholder with the content of a file",
	Long: `Replaces the single occurrence of <token> in <target> with the exact bytes
of <source> and writes the result back atomically. The token is matched
literally. A token that is missing or occurs more than once is an error,
so running the same substitution twice fails the second time.

Exit codes: 3 file not found, 4 placeholder not found, 5 placeholder
ambiguous, 2 invalid arguments.`,
	Args: args(cobra.ExactArgs(3)),
	RunE: runSubstitute,
}

func init() {
	f := substituteCmd.Flags()
	f.StringVarP(&substituteFlags.output, "output", "o", "", "Write the result here instead of overwriting the target")
	f.BoolVar(&substituteFlags.replaceAll, "replace-all", false, "Replace every occurrence of the token")
}

func runSubstitute(cmd *cobra.Command, a []string) error {
	m := cfg.Multiplicity()
	if substituteFlags.replaceAll {
		m = substitute.MultiplicityReplaceAll
	}
	engine := substitute.New(fsys.OS{}, substitute.WithMultiplicity(m))
	res, err := engine.Apply(substitute.Request{
		Target: a[0],
		Token:  a[1],
		Source: a[2],
		Output: substituteFlags.output,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Replaced %s in %s with %s (%s)\n",
		res.Token, res.Output, a[2], format.Bytes(int64(res.BytesWritten)))
	return nil
}
