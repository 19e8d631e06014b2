package reconciler

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/pgctl/pgctl/pkg/registry"
)

// placeholderRE matches <name> tokens awaiting substitution.
var placeholderRE = regexp.MustCompile(`<[a-zA-Z0-9_-]+>`)

// ResolveOptions adjusts how a descriptor is resolved into an entry.
type ResolveOptions struct {
	// Name overrides the entry name; empty means the descriptor id.
	Name string

	// AllowExtraEnv passes through supplied env vars the descriptor
	// does not declare. Without it, undeclared vars are filtered out.
	// Env var names are open-ended, unlike positional args, so extras
	// are opt-in rather than an error.
	AllowExtraEnv bool
}

// Resolve turns a descriptor plus user-supplied arguments into a
// concrete server entry. It has no side effects on the config: the
// caller decides whether to Apply and Persist the result.
//
// Every required argument must be supplied, supplied arguments must be
// declared by the descriptor, and the resolved args never contain
// placeholder syntax.
func Resolve(d *registry.Descriptor, args map[string]string, env map[string]string, opts ResolveOptions) (*ServerEntry, error) {
	for _, name := range sortedKeys(args) {
		if !d.AcceptsArg(name) {
			return nil, &UnknownArgError{Arg: name}
		}
	}
	for _, name := range d.RequiredArgs {
		if _, ok := args[name]; !ok {
			return nil, &MissingRequiredArgError{Arg: name}
		}
	}

	command := d.Command
	template := d.ArgsTemplate
	if d.Method == registry.MethodScript && d.Script != nil {
		launch, err := scriptLaunch(d)
		if err != nil {
			return nil, err
		}
		command = launch.Command
		template = launch.Args
	}

	resolved, err := substitute(template, args, d)
	if err != nil {
		return nil, err
	}

	entry := &ServerEntry{
		Name:    d.ID,
		Command: command,
		Args:    resolved,
		Env:     filterEnv(env, d, opts.AllowExtraEnv),
	}
	if opts.Name != "" {
		entry.Name = opts.Name
	}
	return entry, nil
}

// substitute walks the template left to right. A token that is exactly
// one placeholder is replaced by the supplied value, or dropped when it
// names an unsupplied optional argument. Tokens mixing literal text and
// placeholders get in-place substring substitution. Any placeholder
// left standing afterwards fails the resolution.
func substitute(template []string, args map[string]string, d *registry.Descriptor) ([]string, error) {
	resolved := make([]string, 0, len(template))
	for _, token := range template {
		if name, ok := exactPlaceholder(token); ok {
			value, supplied := args[name]
			if !supplied {
				if d.IsRequiredArg(name) {
					return nil, &MissingRequiredArgError{Arg: name}
				}
				// Unsupplied optional argument: drop the token.
				continue
			}
			resolved = append(resolved, value)
			continue
		}

		out := placeholderRE.ReplaceAllStringFunc(token, func(match string) string {
			name := match[1 : len(match)-1]
			if value, ok := args[name]; ok {
				return value
			}
			return match
		})
		if placeholderRE.MatchString(out) {
			return nil, &UnresolvedPlaceholderError{Token: out}
		}
		resolved = append(resolved, out)
	}
	return resolved, nil
}

// exactPlaceholder reports whether token is a single bare placeholder
// and returns its name.
func exactPlaceholder(token string) (string, bool) {
	if len(token) > 2 && strings.HasPrefix(token, "<") && strings.HasSuffix(token, ">") &&
		placeholderRE.FindString(token) == token {
		return token[1 : len(token)-1], true
	}
	return "", false
}

// filterEnv keeps supplied env vars the descriptor declares, plus
// everything when extras are allowed.
func filterEnv(env map[string]string, d *registry.Descriptor, allowExtra bool) map[string]string {
	out := make(map[string]string)
	for k, v := range env {
		if _, declared := d.EnvVars[k]; declared || allowExtra {
			out[k] = v
		}
	}
	return out
}

// scriptLaunch picks the platform launch block for the current OS and
// locates the installed executable among the candidate paths.
func scriptLaunch(d *registry.Descriptor) (*resolvedLaunch, error) {
	launch, ok := d.Script.Platforms[runtime.GOOS]
	if !ok {
		return nil, fmt.Errorf("server %q has no launch definition for platform %s", d.ID, runtime.GOOS)
	}

	exe := findExecutable(launch.CandidatePaths)
	if exe == "" {
		return nil, fmt.Errorf("server %q: installed executable not found; run its install script first (see: %s)", d.ID, d.SetupHelp)
	}

	args := make([]string, 0, len(launch.ArgsTemplate))
	for _, tok := range launch.ArgsTemplate {
		args = append(args, strings.ReplaceAll(expandPathVars(tok), "{executable_path}", exe))
	}
	return &resolvedLaunch{Command: launch.Command, Args: args}, nil
}

type resolvedLaunch struct {
	Command string
	Args    []string
}

// findExecutable returns the first candidate path that exists, after
// env placeholder expansion and glob matching.
func findExecutable(candidates []string) string {
	for _, c := range candidates {
		path := expandPathVars(c)
		if strings.Contains(path, "*") {
			matches, err := filepath.Glob(path)
			if err != nil {
				continue
			}
			for _, m := range matches {
				if fileExists(m) {
					return m
				}
			}
			continue
		}
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// expandPathVars expands the {VAR} placeholders used in candidate
// paths: {HOME}, {USERPROFILE}, {APPDATA}, {LOCALAPPDATA}.
func expandPathVars(path string) string {
	for _, v := range []string{"HOME", "USERPROFILE", "APPDATA", "LOCALAPPDATA"} {
		marker := "{" + v + "}"
		if !strings.Contains(path, marker) {
			continue
		}
		value := os.Getenv(v)
		if value == "" && (v == "HOME" || v == "USERPROFILE") {
			if home, err := os.UserHomeDir(); err == nil {
				value = home
			}
		}
		path = strings.ReplaceAll(path, marker, value)
	}
	return path
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
