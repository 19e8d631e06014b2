package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/pgctl/pgctl/pkg/reconciler"
)

// defaultSimplifiedFile is where import/apply exchange the editable
// simplified view when no path is given.
const defaultSimplifiedFile = "mcp-servers.json"

var (
	showJSON  bool
	addArgs   []string
	addEnv    []string
	addForce  bool
	removeYes bool
	importOut string
	applyYes  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the Claude Desktop config",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List installed servers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigShow()
	},
}

var configAddCmd = &cobra.Command{
	Use:   "add <name> <command>",
	Short: "Add a manual server entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigAdd(args[0], args[1])
	},
}

var configRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a server entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigRemove(args[0])
	},
}

var configImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Export the config to an editable simplified file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigImport()
	},
}

var configApplyCmd = &cobra.Command{
	Use:   "apply [file]",
	Short: "Merge a simplified file back into the config",
	Long: `Reads a simplified server file and merges it into the Claude Desktop
config. Enabled entries are added or replaced, disabled entries are
removed, and entries absent from the file are left untouched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := defaultSimplifiedFile
		if len(args) > 0 {
			file = args[0]
		}
		return runConfigApply(file)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the config for broken entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigValidate()
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&showJSON, "json", false, "Print raw JSON")
	configAddCmd.Flags().StringArrayVar(&addArgs, "args", nil, "Command argument (repeatable)")
	configAddCmd.Flags().StringArrayVar(&addEnv, "env", nil, "Environment variable as KEY=VALUE (repeatable)")
	configAddCmd.Flags().BoolVar(&addForce, "force", false, "Overwrite an existing entry without asking")
	configRemoveCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "Skip the confirmation prompt")
	configImportCmd.Flags().StringVarP(&importOut, "output", "o", defaultSimplifiedFile, "Output file")
	configApplyCmd.Flags().BoolVarP(&applyYes, "yes", "y", false, "Skip the confirmation prompt")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configAddCmd)
	configCmd.AddCommand(configRemoveCmd)
	configCmd.AddCommand(configImportCmd)
	configCmd.AddCommand(configApplyCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigShow() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := reconciler.Load(path)
	if err != nil {
		return err
	}

	if showJSON {
		out, err := json.MarshalIndent(reconciler.ToSimplified(cfg), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(cfg.Servers) == 0 {
		fmt.Println("No servers configured.")
		fmt.Println(dimStyle.Render("Config: " + path))
		return nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"Name", "Command", "Args"})
	for _, name := range cfg.Names() {
		e := cfg.Servers[name]
		t.AppendRow(table.Row{name, e.Command, truncate(strings.Join(e.Args, " "), 60)})
	}
	t.Render()
	fmt.Println(dimStyle.Render("Config: " + path))
	return nil
}

func runConfigAdd(name, command string) error {
	env, err := parsePairs(addEnv)
	if err != nil {
		return fmt.Errorf("--env: %w", err)
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := reconciler.Load(path)
	if err != nil {
		return err
	}

	if _, exists := cfg.Servers[name]; exists && !addForce {
		if !confirmPrompt(fmt.Sprintf("Entry %q already exists. Overwrite?", name)) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	reconciler.Apply(cfg, &reconciler.ServerEntry{
		Name:    name,
		Command: command,
		Args:    addArgs,
		Env:     env,
	})

	if report := reconciler.Validate(cfg); report.HasErrors() {
		printFindings(report)
		return fmt.Errorf("refusing to write an invalid config")
	}
	if _, err := reconciler.Backup(path); err != nil {
		logger.Warn("backup failed", "err", err)
	}
	if err := reconciler.Persist(cfg, path); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("Added " + name + "."))
	return nil
}

func runConfigRemove(name string) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := reconciler.Load(path)
	if err != nil {
		return err
	}

	if !removeYes && !confirmPrompt(fmt.Sprintf("Remove %q from the config?", name)) {
		fmt.Println("Aborted.")
		return nil
	}

	if err := reconciler.Remove(cfg, name); err != nil {
		return err
	}
	if _, err := reconciler.Backup(path); err != nil {
		logger.Warn("backup failed", "err", err)
	}
	if err := reconciler.Persist(cfg, path); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("Removed " + name + "."))
	return nil
}

func runConfigImport() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := reconciler.Load(path)
	if err != nil {
		return err
	}

	simplified := reconciler.ToSimplified(cfg)
	if err := reconciler.SaveSimplified(simplified, importOut); err != nil {
		return err
	}
	fmt.Printf("Exported %d server(s) to %s.\n", len(simplified), importOut)
	fmt.Println(dimStyle.Render("Edit the file, then run 'pg config apply " + importOut + "'."))
	return nil
}

func runConfigApply(file string) error {
	simplified, err := reconciler.LoadSimplified(file)
	if err != nil {
		return err
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	base, err := reconciler.Load(path)
	if err != nil {
		return err
	}

	merged := reconciler.FromSimplified(simplified, base)

	added, removed := diffNames(base, merged)
	if len(added) == 0 && len(removed) == 0 {
		fmt.Println("No changes.")
		return nil
	}
	for _, name := range added {
		fmt.Println(successStyle.Render("  + " + name))
	}
	for _, name := range removed {
		fmt.Println(errorStyle.Render("  - " + name))
	}
	if !applyYes && !confirmPrompt("Apply these changes?") {
		fmt.Println("Aborted.")
		return nil
	}

	if report := reconciler.Validate(merged); report.HasErrors() {
		printFindings(report)
		return fmt.Errorf("refusing to write an invalid config")
	}
	if _, err := reconciler.Backup(path); err != nil {
		logger.Warn("backup failed", "err", err)
	}
	if err := reconciler.Persist(merged, path); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("Config updated."))
	return nil
}

func runConfigValidate() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := reconciler.Load(path)
	if err != nil {
		return err
	}

	report := reconciler.Validate(cfg)
	if len(report) == 0 {
		fmt.Println(successStyle.Render("Config is valid."))
		return nil
	}
	printFindings(report)
	if report.HasErrors() {
		return fmt.Errorf("%d error(s) found", len(report.Errors()))
	}
	return nil
}

// diffNames reports entries added/changed and entries removed between
// two configs, by name.
func diffNames(before, after *reconciler.Config) (added, removed []string) {
	for _, name := range after.Names() {
		b, ok := before.Servers[name]
		if !ok {
			added = append(added, name)
			continue
		}
		a := after.Servers[name]
		if b.Command != a.Command || strings.Join(b.Args, "\x00") != strings.Join(a.Args, "\x00") || !equalEnv(b.Env, a.Env) {
			added = append(added, name)
		}
	}
	for _, name := range before.Names() {
		if _, ok := after.Servers[name]; !ok {
			removed = append(removed, name)
		}
	}
	return added, removed
}

func equalEnv(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func confirmPrompt(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
