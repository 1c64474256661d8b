// Package cli implements the jsongraph command-line interface.
//
// The commands work on wire trees only: they never need the Go types a
// document was written from.
//
//   - fmt: re-indent a document, keeping its syntax
//   - convert: re-emit a document in another syntax or meta key spelling
//   - check: report parse errors, malformed wire structure, duplicate ids,
//     duplicate keys and references no node defines
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

var (
	version = "dev"
	commit  string
)

// SetVersion sets the version information displayed by --version.
func SetVersion(v, c string) {
	version = v
	commit = c
}

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	configPath string
	// pretty overrides terminal detection when set by tests.
	pretty *bool
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "jsongraph",
		Short:        "jsongraph formats, converts and checks object graph documents",
		Long:         `jsongraph works with JSON documents that carry @type, @id and @ref meta keys. It re-indents them, converts between JSON, relaxed JSON and YAML, and checks their reference structure.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate("jsongraph {{.Version}}\ncommit: " + commit + "\n")
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "TOML config file (default: $XDG_CONFIG_HOME/jsongraph/config.toml when present)")

	root.AddCommand(c.fmtCommand())
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.checkCommand())
	return root
}
