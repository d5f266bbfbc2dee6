package main

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"tracekit/internal/catalog"
	"tracekit/internal/fsys"
	"tracekit/internal/manifest"
	"tracekit/internal/validate"
)

var indexFlags struct {
	catalog string
}

var indexCmd = &cobra.Command{
	Use:   "index <root>...",
	Short: "Record analyses in the local catalog",
	Long: `Validates each analysis root, reads its trace-metadata.json and stores the
manifest fields, the raw report URL and the validation verdict in the
catalog. Re-indexing an analysis replaces its entry.`,
	Args: args(cobra.MinimumNArgs(1)),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexFlags.catalog, "catalog", "", "Catalog database (default from config)")
}

// catalogPath prefers the flag, then the config file.
func catalogPath(flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.Catalog.Path
}

func runIndex(cmd *cobra.Command, roots []string) error {
	store, err := catalog.Open(catalogPath(indexFlags.catalog))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	engine := validate.New(fsys.OS{}, cfg.ValidateOptions())
	out := cmd.OutOrStdout()
	for _, root := range roots {
		m, err := manifest.Load(fsys.OS{}, filepath.Join(root, manifest.FileName))
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return err
		}
		entry, err := catalog.FromManifest(m, abs)
		if err != nil {
			return fmt.Errorf("%s: %w", root, err)
		}
		rep, err := engine.Run(ctx, root)
		if err != nil {
			return err
		}
		entry.Status = string(rep.Status)
		entry.Errors = rep.Summary.Errors
		entry.Warnings = rep.Summary.Warnings
		if err := store.Upsert(ctx, entry); err != nil {
			return err
		}
		fmt.Fprintf(out, "Indexed %s (%s, %s, %s)\n", entry.ID, entry.Status,
			english.Plural(entry.Errors, "error", ""), english.Plural(entry.Warnings, "warning", ""))
	}
	return nil
}
