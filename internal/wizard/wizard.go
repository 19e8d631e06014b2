// Package wizard implements the interactive first-run setup flow:
// dependency checks, guided server selection, and configuration.
package wizard

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"golang.org/x/term"

	"github.com/pgctl/pgctl/pkg/reconciler"
	"github.com/pgctl/pgctl/pkg/registry"
)

// presetIDs are the servers offered by the guided setup, in menu order.
var presetIDs = []string{"filesystem", "memory", "brave-search", "github", "sqlite", "fetch", "time"}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Wizard walks a user through dependency checks and installing a first
// set of servers.
type Wizard struct {
	Registry   *registry.Registry
	ConfigPath string
	Quick      bool

	In     io.Reader
	Out    io.Writer
	Logger *log.Logger

	scanner *bufio.Scanner

	// readSecret is overridable for tests; the default reads without
	// terminal echo.
	readSecret func() (string, error)
}

// New creates a wizard bound to stdin/stdout.
func New(reg *registry.Registry, configPath string, quick bool, logger *log.Logger) *Wizard {
	return &Wizard{
		Registry:   reg,
		ConfigPath: configPath,
		Quick:      quick,
		In:         os.Stdin,
		Out:        os.Stdout,
		Logger:     logger,
		readSecret: func() (string, error) {
			b, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			return string(b), err
		},
	}
}

// Run executes the full flow. It returns the number of servers
// installed; a zero count with nil error means the user declined
// everything, which is fine.
func (w *Wizard) Run() (int, error) {
	fmt.Fprintln(w.Out, titleStyle.Render("pg setup"))
	fmt.Fprintln(w.Out, "This wizard checks your environment and configures MCP servers for Claude Desktop.")
	fmt.Fprintln(w.Out)

	ok := w.checkDependencies()
	if !ok && !w.confirm("Some required dependencies are missing. Continue anyway?") {
		return 0, nil
	}

	cfg, err := reconciler.Load(w.ConfigPath)
	if err != nil {
		return 0, err
	}

	installed := 0
	for _, id := range presetIDs {
		d, err := w.Registry.Lookup(id)
		if err != nil {
			w.Logger.Warn("preset unavailable", "id", id, "err", err)
			continue
		}
		if w.Quick && (len(d.RequiredArgs) > 0 || len(d.EnvVars) > 0) {
			// Quick mode only installs servers that need no input.
			continue
		}
		if !w.confirm(fmt.Sprintf("Install %s (%s)?", d.Name, d.Description)) {
			continue
		}

		entry, err := w.configure(d)
		if err != nil {
			fmt.Fprintln(w.Out, failStyle.Render("  skipped: "+err.Error()))
			continue
		}
		reconciler.Apply(cfg, entry)
		installed++
		fmt.Fprintln(w.Out, okStyle.Render("  added "+entry.Name))
	}

	if installed == 0 {
		fmt.Fprintln(w.Out, "Nothing to do.")
		return 0, nil
	}

	if report := reconciler.Validate(cfg); report.HasErrors() {
		for _, f := range report.Errors() {
			fmt.Fprintln(w.Out, failStyle.Render(fmt.Sprintf("  %s: %s", f.Entry, f.Message)))
		}
		return 0, fmt.Errorf("configuration failed validation")
	}

	if _, err := reconciler.Backup(w.ConfigPath); err != nil {
		w.Logger.Warn("backup failed", "err", err)
	}
	if err := reconciler.Persist(cfg, w.ConfigPath); err != nil {
		return 0, err
	}

	fmt.Fprintln(w.Out)
	fmt.Fprintf(w.Out, "%s Installed %d server(s). Restart Claude Desktop for changes to take effect.\n",
		okStyle.Render("Done."), installed)
	return installed, nil
}

// checkDependencies prints the probe table and reports whether all
// required dependencies are satisfied.
func (w *Wizard) checkDependencies() bool {
	fmt.Fprintln(w.Out, titleStyle.Render("Dependencies"))
	allOK := true
	for _, st := range Check(Defaults()) {
		switch {
		case st.Satisfied:
			fmt.Fprintf(w.Out, "  %s %s %s\n", okStyle.Render("ok"), st.Name, st.Version)
		case st.Optional:
			fmt.Fprintf(w.Out, "  %s %s (%s) - %s\n", warnStyle.Render("--"), st.Name, st.Detail, st.InstallHint)
		default:
			fmt.Fprintf(w.Out, "  %s %s (%s) - %s\n", failStyle.Render("!!"), st.Name, st.Detail, st.InstallHint)
			allOK = false
		}
	}
	fmt.Fprintln(w.Out)
	return allOK
}

// configure collects arguments and env values for one descriptor and
// resolves it into an entry.
func (w *Wizard) configure(d *registry.Descriptor) (*reconciler.ServerEntry, error) {
	args := make(map[string]string)
	for _, name := range d.RequiredArgs {
		value := w.prompt(fmt.Sprintf("  %s (%s)", name, d.SetupHelp))
		if value == "" {
			return nil, fmt.Errorf("required argument %s not provided", name)
		}
		args[name] = value
	}
	for _, name := range d.OptionalArgs {
		if value := w.prompt(fmt.Sprintf("  %s (optional, empty to skip)", name)); value != "" {
			args[name] = value
		}
	}

	env := make(map[string]string)
	for _, key := range sortedEnvKeys(d.EnvVars) {
		desc := d.EnvVars[key]
		var value string
		if isSecretVar(key) {
			fmt.Fprintf(w.Out, "  %s (%s, hidden): ", key, desc)
			secret, err := w.readSecret()
			if err != nil {
				return nil, err
			}
			value = strings.TrimSpace(secret)
		} else {
			value = w.prompt(fmt.Sprintf("  %s (%s, empty to skip)", key, desc))
		}
		if value != "" {
			env[key] = value
		}
	}

	return reconciler.Resolve(d, args, env, reconciler.ResolveOptions{})
}

func (w *Wizard) prompt(label string) string {
	fmt.Fprintf(w.Out, "%s: ", label)
	if w.scanner == nil {
		w.scanner = bufio.NewScanner(w.In)
	}
	if !w.scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(w.scanner.Text())
}

func (w *Wizard) confirm(question string) bool {
	answer := strings.ToLower(w.prompt(question + " [y/N]"))
	return answer == "y" || answer == "yes"
}

// isSecretVar guesses whether an env var holds a credential and should
// be read without echo.
func isSecretVar(name string) bool {
	upper := strings.ToUpper(name)
	for _, marker := range []string{"TOKEN", "KEY", "SECRET", "PASSWORD", "CREDENTIAL"} {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

func sortedEnvKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
