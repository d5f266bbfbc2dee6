package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tracekit/internal/catalog"
	"tracekit/internal/format"
)

var listFlags struct {
	catalog  string
	network  string
	markdown bool
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed analyses with their raw report URLs",
	Args:  args(cobra.NoArgs),
	RunE:  runList,
}

func init() {
	f := listCmd.Flags()
	f.StringVar(&listFlags.catalog, "catalog", "", "Catalog database (default from config)")
	f.StringVar(&listFlags.network, "network", "", "Only analyses covering this network")
	f.BoolVar(&listFlags.markdown, "markdown", false, "Render as a Markdown table")
}

func runList(cmd *cobra.Command, _ []string) error {
	store, err := catalog.Open(catalogPath(listFlags.catalog))
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context(), catalog.ListOptions{Network: listFlags.network})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		if listFlags.network != "" {
			fmt.Fprintf(out, "No analyses cover network %s.\n", listFlags.network)
			return nil
		}
		fmt.Fprintln(out, "No analyses indexed. Run 'tracekit index <root>' first.")
		return nil
	}

	mode := format.ASCII
	if listFlags.markdown {
		mode = format.Markdown
	}
	tb := format.NewTable(mode)
	tb.Header("ID", "TITLE", "DATE", "NETWORKS", "STATUS", "RAW URL")
	for _, e := range entries {
		tb.Row(e.ID, format.Truncate(e.Title, 40), e.AnalysisDate, strings.Join(e.Networks, ","), e.Status, e.RawURL)
	}
	fmt.Fprintln(out, tb.String())
	return nil
}
