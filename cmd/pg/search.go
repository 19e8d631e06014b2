package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pgctl/pgctl/pkg/registry"
)

var searchCategory string

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the MCP server registry",
	Long: `Searches the registry by id, name, and description. Without a query,
lists every known server. Results are ordered by relevance.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) > 0 {
			query = args[0]
		}
		return runSearch(query, registry.Category(searchCategory))
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "Filter by category (official, community, custom)")
}

func runSearch(query string, category registry.Category) error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}

	results := reg.Search(query, category)
	if len(results) == 0 {
		fmt.Println("No servers found.")
		return nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"ID", "Category", "Method", "Description"})
	for _, d := range results {
		t.AppendRow(table.Row{d.ID, d.Category, d.Method, truncate(d.Description, 60)})
	}
	t.Render()
	fmt.Println(dimStyle.Render(fmt.Sprintf("%d server(s). Use 'pg info <id>' for details.", len(results))))
	return nil
}
