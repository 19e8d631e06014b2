package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <id>",
	Short: "Show details for a registry server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfo(args[0])
	},
}

func runInfo(id string) error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	d, err := reg.Lookup(id)
	if err != nil {
		return err
	}

	fmt.Println(headingStyle.Render(d.Name) + dimStyle.Render("  ("+d.ID+")"))
	fmt.Println(d.Description)
	fmt.Println()

	pairs := [][2]string{
		{"Category", string(d.Category)},
		{"Method", string(d.Method)},
		{"Package", d.Package},
		{"Command", d.Command},
		{"Args", strings.Join(d.ArgsTemplate, " ")},
		{"Homepage", d.Homepage},
	}
	if d.Git != nil {
		pairs = append(pairs, [2]string{"Repository", d.Git.URL})
	}
	if d.Docker != nil {
		pairs = append(pairs, [2]string{"Image", d.Docker.Image})
	}
	printKV(pairs)

	if len(d.RequiredArgs) > 0 {
		fmt.Println()
		fmt.Println(headingStyle.Render("Required arguments"))
		for _, a := range d.RequiredArgs {
			fmt.Printf("  --arg %s=...\n", a)
		}
	}
	if len(d.OptionalArgs) > 0 {
		fmt.Println()
		fmt.Println(headingStyle.Render("Optional arguments"))
		for _, a := range d.OptionalArgs {
			fmt.Printf("  --arg %s=...\n", a)
		}
	}
	if len(d.EnvVars) > 0 {
		fmt.Println()
		fmt.Println(headingStyle.Render("Environment variables"))
		keys := make([]string, 0, len(d.EnvVars))
		for k := range d.EnvVars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s  %s\n", k, dimStyle.Render(d.EnvVars[k]))
		}
	}
	if d.SetupHelp != "" {
		fmt.Println()
		fmt.Println(headingStyle.Render("Setup"))
		fmt.Println("  " + d.SetupHelp)
	}
	if d.ExampleUsage != "" {
		fmt.Println()
		fmt.Println(dimStyle.Render("Example: " + d.ExampleUsage))
	}
	return nil
}
