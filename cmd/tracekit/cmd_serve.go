package main

import (
	"context"

	"github.com/spf13/cobra"

	"tracekit/internal/fsys"
	"tracekit/internal/logging"
	mcpserver "tracekit/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing the substitute, validate,
assemble and manifest_url tools. Relative paths resolve against the working
directory.

The server monitors for parent process death and exits when the client that
spawned it goes away.`,
	Args: args(cobra.NoArgs),
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	srv := mcpserver.NewServer(fsys.OS{}, cfg)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mcpserver.WatchParent(ctx, cancel)

	logging.New("mcp").Info("starting tracekit MCP server over stdio (parent watchdog active)", "root", srv.ProjectRoot)
	return srv.Run(ctx)
}
