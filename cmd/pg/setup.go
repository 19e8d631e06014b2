package main

import (
	"github.com/spf13/cobra"

	"github.com/pgctl/pgctl/internal/wizard"
)

var setupQuick bool

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive first-run setup",
	Long: `Checks for the tools MCP servers need (Node.js, Python, Docker) and
walks through installing a starter set of servers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup()
	},
}

func init() {
	setupCmd.Flags().BoolVar(&setupQuick, "quick", false, "Only offer servers that need no configuration")
}

func runSetup() error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	path, err := configPath()
	if err != nil {
		return err
	}
	_, err = wizard.New(reg, path, setupQuick, logger).Run()
	return err
}
