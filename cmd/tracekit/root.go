package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tracekit/internal/config"
	"tracekit/internal/logging"
	"tracekit/internal/mcp"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel   string
	logFormat  string
	configPath string
}

// cfg is the loaded project configuration, set before any command runs.
var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:   "tracekit",
	Short: "Assemble and validate static analysis reports",
	Long: `tracekit fills report placeholders with component files and checks an
analysis tree (queries/, data/, visuals/, REPORT.html, trace-metadata.json)
for completeness, pairing, size, manifest quality and stale content.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&rootFlags.configPath, "config", "", "Config file (default .tracekit.yaml in the working directory)")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	rootCmd.AddCommand(substituteCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(assembleCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
	mcp.Version = version
}

// loadConfig reads the project file and installs the logger. Flags that were
// set explicitly win over the file.
func loadConfig(cmd *cobra.Command, _ []string) error {
	path := rootFlags.configPath
	if path == "" {
		path = config.Find(".")
	}
	cfg = config.Default()
	if path != "" {
		c, err := config.LoadFromPath(path)
		if err != nil {
			return usageError(err)
		}
		cfg = c
	}

	pf := cmd.Flags()
	if pf.Changed("log-level") {
		cfg.Log.Level = rootFlags.logLevel
	}
	if pf.Changed("log-format") {
		cfg.Log.Format = rootFlags.logFormat
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return usageError(err)
	}
	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		return usageError(fmt.Errorf("unknown log format %q (want text or json)", cfg.Log.Format))
	}
	logging.Init(level, cfg.Log.Format, cmd.ErrOrStderr())
	return nil
}

// args wraps a cobra positional-argument validator so that violations exit
// with the usage code.
func args(v cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := v(cmd, a); err != nil {
			return usageError(err)
		}
		return nil
	}
}
