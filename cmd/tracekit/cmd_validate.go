package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"tracekit/internal/format"
	"tracekit/internal/fsys"
	"tracekit/internal/logging"
	"tracekit/internal/validate"
	"tracekit/internal/watch"
)

var validateFlags struct {
	verbose       bool
	minSize       int64
	minQuerySize  int64
	minDataSize   int64
	minVisualSize int64
	checkSync     bool
	jsonOut       bool
	jsonReport    bool
	markdown      bool
	skip          string
	watch         bool
}

var validateCmd = &cobra.Command{
	Use:   "validate [root]",
	Short: "Check an analysis tree before publishing",
	Long: `Runs every check against the analysis rooted at [root] (default ".") and
prints all findings at once: directory structure, query/data/visual pairing,
minimum file sizes, manifest quality and unresolved placeholders. With
--check-sync it also verifies that each data file's content is embedded in
the report and the visuals. --json prints the findings as an array of
{severity, category, message, file} objects.

Exit codes: 0 pass, 1 fail, 2 root missing or invalid arguments.`,
	Args: args(cobra.MaximumNArgs(1)),
	RunE: runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.BoolVarP(&validateFlags.verbose, "verbose", "v", false, "Include info findings for passing checks")
	f.Int64Var(&validateFlags.minSize, "min-size", 0, "Minimum size in bytes for every component file")
	f.Int64Var(&validateFlags.minQuerySize, "min-query-size", 0, "Minimum size in bytes for queries/*.sql")
	f.Int64Var(&validateFlags.minDataSize, "min-data-size", 0, "Minimum size in bytes for data/*.json")
	f.Int64Var(&validateFlags.minVisualSize, "min-visual-size", 0, "Minimum size in bytes for visuals/*.html")
	f.BoolVar(&validateFlags.checkSync, "check-sync", false, "Verify data content is embedded in the report and visuals")
	f.BoolVar(&validateFlags.jsonOut, "json", false, "Print the findings as a JSON array")
	f.BoolVar(&validateFlags.jsonReport, "json-report", false, "Print status, summary and findings as a JSON object")
	f.BoolVar(&validateFlags.markdown, "markdown", false, "Render the findings table as Markdown")
	f.StringVar(&validateFlags.skip, "skip", "", "Comma-separated checks to skip (structure,pairing,size,manifest,placeholders,sync)")
	f.BoolVarP(&validateFlags.watch, "watch", "w", false, "Revalidate whenever component files change")
}

// validateOptions merges explicitly set flags over the configured options.
func validateOptions(cmd *cobra.Command) (validate.Options, error) {
	opts := cfg.ValidateOptions()
	f := cmd.Flags()

	if f.Changed("min-size") {
		opts.Thresholds = validate.Uniform(validateFlags.minSize)
	}
	if f.Changed("min-query-size") {
		opts.Thresholds.Query = validateFlags.minQuerySize
	}
	if f.Changed("min-data-size") {
		opts.Thresholds.Data = validateFlags.minDataSize
	}
	if f.Changed("min-visual-size") {
		opts.Thresholds.Visual = validateFlags.minVisualSize
	}
	t := opts.Thresholds
	if t.Query < 0 || t.Data < 0 || t.Visual < 0 {
		return opts, errors.New("minimum sizes must not be negative")
	}

	if f.Changed("verbose") {
		opts.Verbose = validateFlags.verbose
	}
	if f.Changed("check-sync") {
		opts.CheckSync = validateFlags.checkSync
	}
	if f.Changed("skip") {
		opts.Skip = nil
		for _, s := range strings.Split(validateFlags.skip, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			c, err := validate.ParseCheck(s)
			if err != nil {
				return opts, fmt.Errorf("--skip: %w", err)
			}
			opts.Skip = append(opts.Skip, c)
		}
	}
	return opts, nil
}

func runValidate(cmd *cobra.Command, a []string) error {
	root := "."
	if len(a) == 1 {
		root = a[0]
	}
	opts, err := validateOptions(cmd)
	if err != nil {
		return usageError(err)
	}
	engine := validate.New(fsys.OS{}, opts)
	out := cmd.OutOrStdout()

	rep, err := validateOnce(cmd.Context(), engine, root, out)
	if err != nil {
		return err
	}
	if !validateFlags.watch {
		if !rep.Passed() {
			return &exitError{code: exitFailure}
		}
		return nil
	}
	return watchAndValidate(cmd.Context(), engine, root, out)
}

func validateOnce(ctx context.Context, engine *validate.Engine, root string, out io.Writer) (*validate.Report, error) {
	rep, err := engine.Run(ctx, root)
	if err != nil {
		return nil, err
	}
	switch {
	case validateFlags.jsonReport:
		err = format.WriteReportJSON(out, rep)
	case validateFlags.jsonOut:
		err = format.WriteFindingsJSON(out, rep.Findings)
	case validateFlags.markdown:
		err = format.WriteReport(out, rep, format.Markdown)
	default:
		err = format.WriteReport(out, rep, format.ASCII)
	}
	return rep, err
}

// watchAndValidate reruns the engine after every settled batch of changes
// until ctx ends.
func watchAndValidate(ctx context.Context, engine *validate.Engine, root string, out io.Writer) error {
	w, err := watch.New(root)
	if err != nil {
		return err
	}
	defer w.Close()

	log := logging.New("validate")
	log.Info("watching for changes", "root", root)
	err = w.Run(ctx, func(ctx context.Context, changed []string) {
		log.Info("revalidating", "changed", len(changed))
		fmt.Fprintln(out)
		if _, err := validateOnce(ctx, engine, root, out); err != nil {
			log.Error("validation failed", "error", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
