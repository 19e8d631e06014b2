// pg manages MCP server entries in Claude Desktop's configuration.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/pgctl/pgctl/pkg/reconciler"
	"github.com/pgctl/pgctl/pkg/registry"
)

var version = "dev"

var (
	flagConfig  string
	flagVerbose bool
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: false,
})

var rootCmd = &cobra.Command{
	Use:   "pg",
	Short: "Discover and install MCP servers for Claude Desktop",
	Long: `pg discovers MCP servers, installs them into Claude Desktop's
claude_desktop_config.json, and keeps hand-edited configuration intact.

Changes take effect after restarting Claude Desktop.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if flagVerbose {
			logger.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to claude_desktop_config.json (default: OS-specific)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

// configPath resolves the target config file, honoring --config.
func configPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return reconciler.DefaultConfigPath()
}

// newRegistry builds the registry and layers custom descriptor
// directories on top of the built-in table.
func newRegistry() (*registry.Registry, error) {
	reg, err := registry.New(registry.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	for _, dir := range registry.DefaultCustomDirs() {
		if err := reg.LoadCustomDir(dir); err != nil {
			logger.Warn("skipping custom server directory", "dir", dir, "err", err)
		}
	}
	return reg, nil
}
