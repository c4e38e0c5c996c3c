// Package cli implements the ripple command-line interface.
//
// The CLI loads reactive sheets (see pkg/sheet), applies writes to their
// sources and prints the resulting values or dependency trees.
//
// # Commands
//
//   - eval: Load a sheet, apply --set writes and print every entry
//   - graph: Draw the dependency tree of one entry or of every leaf entry
//   - version: Print build information
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger is
// a charmbracelet/log logger passed through the command context; the graph
// logs through it as a slog handler.
//
// # Configuration
//
// Defaults are read from a TOML file given by --config, or from ripple.toml in
// the working directory when present. Flags override file values.
package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (e.g., "v1.2.3").
	// Set via ldflags: -X github.com/pumped-fn/ripple/internal/cli.Version=...
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	out    io.Writer
	errOut io.Writer
	config Config
}

// New creates a CLI printing results to out and logs to logOut.
func New(out, logOut io.Writer) *CLI {
	return &CLI{
		Logger: newLogger(logOut, log.InfoLevel),
		out:    out,
		errOut: logOut,
		config: DefaultConfig(),
	}
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "ripple",
		Short:        "Ripple evaluates reactive sheets",
		Long:         `Ripple is a push-based incremental computation engine. The CLI loads HCL sheets of sources, cells and selects, applies writes and shows how changes propagate.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			if err := c.configure(cfg, verbose); err != nil {
				return err
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./"+defaultConfigFile+" if present)")

	root.AddCommand(c.evalCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.versionCommand())

	return root
}

// configure applies cfg to the logger. verbose wins over the configured level.
func (c *CLI) configure(cfg Config, verbose bool) error {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	if verbose {
		level = log.DebugLevel
	}

	formatter, err := parseFormatter(cfg.Log.Format)
	if err != nil {
		return err
	}

	c.Logger.SetLevel(level)
	c.Logger.SetFormatter(formatter)
	c.config = cfg
	return nil
}

func parseFormatter(format string) (log.Formatter, error) {
	switch format {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	default:
		return 0, fmt.Errorf("invalid log format %q: want text, json or logfmt", format)
	}
}

func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(c.out, "version: %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
			return err
		},
	}
}
