package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgctl/pgctl/pkg/reconciler"
)

var (
	installArgs     []string
	installEnv      []string
	installName     string
	installExtraEnv bool
	installDryRun   bool
)

var installCmd = &cobra.Command{
	Use:   "install <id>",
	Short: "Install a registry server into the Claude Desktop config",
	Long: `Resolves a registry descriptor with the supplied arguments, validates
the result, and writes it to claude_desktop_config.json. A timestamped
backup of the existing config is kept next to it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInstall(args[0])
	},
}

func init() {
	installCmd.Flags().StringArrayVar(&installArgs, "arg", nil, "Template argument as name=value (repeatable)")
	installCmd.Flags().StringArrayVar(&installEnv, "env", nil, "Environment variable as KEY=VALUE (repeatable)")
	installCmd.Flags().StringVar(&installName, "name", "", "Config entry name (default: server id)")
	installCmd.Flags().BoolVar(&installExtraEnv, "extra-env", false, "Pass env vars the descriptor does not declare")
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "Print the resolved entry without writing")
}

func runInstall(id string) error {
	reg, err := newRegistry()
	if err != nil {
		return err
	}
	d, err := reg.Lookup(id)
	if err != nil {
		return err
	}

	args, err := parsePairs(installArgs)
	if err != nil {
		return fmt.Errorf("--arg: %w", err)
	}
	env, err := parsePairs(installEnv)
	if err != nil {
		return fmt.Errorf("--env: %w", err)
	}

	entry, err := reconciler.Resolve(d, args, env, reconciler.ResolveOptions{
		Name:          installName,
		AllowExtraEnv: installExtraEnv,
	})
	if err != nil {
		return err
	}

	if installDryRun {
		out, err := json.MarshalIndent(map[string]any{
			"command": entry.Command,
			"args":    entry.Args,
			"env":     entry.Env,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", entry.Name, out)
		return nil
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	cfg, err := reconciler.Load(path)
	if err != nil {
		return err
	}
	reconciler.Apply(cfg, entry)

	if report := reconciler.Validate(cfg); report.HasErrors() {
		printFindings(report)
		return fmt.Errorf("refusing to write an invalid config")
	}

	if backup, err := reconciler.Backup(path); err != nil {
		logger.Warn("backup failed", "err", err)
	} else if backup != "" {
		logger.Debug("config backed up", "path", backup)
	}
	if err := reconciler.Persist(cfg, path); err != nil {
		return err
	}

	fmt.Println(successStyle.Render("Installed " + entry.Name + "."))
	if len(d.EnvVars) > 0 && len(entry.Env) == 0 {
		fmt.Println(warningStyle.Render("Note: this server expects environment variables; see 'pg info " + d.ID + "'."))
	}
	fmt.Println("Restart Claude Desktop for changes to take effect.")
	return nil
}

// parsePairs turns repeated name=value flags into a map.
func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected name=value, got %q", p)
		}
		m[name] = value
	}
	return m, nil
}

func printFindings(report reconciler.ValidationReport) {
	for _, f := range report {
		line := fmt.Sprintf("  %s: %s", f.Entry, f.Message)
		if f.Severity == reconciler.SeverityError {
			fmt.Println(errorStyle.Render("error" + line))
		} else {
			fmt.Println(warningStyle.Render("warning" + line))
		}
	}
}
