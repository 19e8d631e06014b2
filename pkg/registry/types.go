package registry

import (
	"fmt"
	"regexp"
	"strings"
)

// idPattern validates server identifiers used as config map keys.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// placeholderPattern matches <name> tokens inside argument templates.
var placeholderPattern = regexp.MustCompile(`<([a-zA-Z0-9_-]+)>`)

// Category classifies where a server definition comes from.
type Category string

const (
	CategoryOfficial  Category = "official"
	CategoryCommunity Category = "community"
	CategoryCustom    Category = "custom"
)

// InstallMethod identifies how a server package is obtained.
type InstallMethod string

const (
	MethodNPM    InstallMethod = "npm"
	MethodGit    InstallMethod = "git"
	MethodUVX    InstallMethod = "uvx"
	MethodDocker InstallMethod = "docker"
	MethodScript InstallMethod = "script"
	MethodManual InstallMethod = "manual"
)

// Descriptor is an immutable template describing how to construct a
// runnable server entry. Method-specific details live in exactly one of
// Git, Docker, or Script depending on Method.
type Descriptor struct {
	ID           string            `json:"id" yaml:"id"`
	Name         string            `json:"name" yaml:"name"`
	Description  string            `json:"description" yaml:"description"`
	Category     Category          `json:"category" yaml:"category"`
	Method       InstallMethod     `json:"installMethod" yaml:"installMethod"`
	Package      string            `json:"package,omitempty" yaml:"package,omitempty"`
	Command      string            `json:"command" yaml:"command"`
	ArgsTemplate []string          `json:"argsTemplate" yaml:"argsTemplate"`
	RequiredArgs []string          `json:"requiredArgs,omitempty" yaml:"requiredArgs,omitempty"`
	OptionalArgs []string          `json:"optionalArgs,omitempty" yaml:"optionalArgs,omitempty"`
	EnvVars      map[string]string `json:"envVars,omitempty" yaml:"envVars,omitempty"`
	SetupHelp    string            `json:"setupHelp,omitempty" yaml:"setupHelp,omitempty"`
	ExampleUsage string            `json:"exampleUsage,omitempty" yaml:"exampleUsage,omitempty"`
	Homepage     string            `json:"homepage,omitempty" yaml:"homepage,omitempty"`

	Git    *GitSpec    `json:"git,omitempty" yaml:"git,omitempty"`
	Docker *DockerSpec `json:"docker,omitempty" yaml:"docker,omitempty"`
	Script *ScriptSpec `json:"script,omitempty" yaml:"script,omitempty"`
}

// GitSpec carries details for servers installed from a git repository.
type GitSpec struct {
	URL            string   `json:"url" yaml:"url"`
	BuildCommands  []string `json:"buildCommands,omitempty" yaml:"buildCommands,omitempty"`
	ExecutablePath string   `json:"executablePath,omitempty" yaml:"executablePath,omitempty"`
}

// DockerSpec carries details for servers run as containers.
type DockerSpec struct {
	Image string `json:"image" yaml:"image"`
}

// ScriptSpec carries per-platform launch details for script-installed
// servers whose executable location is discovered at install time.
type ScriptSpec struct {
	Platforms map[string]PlatformLaunch `json:"platforms" yaml:"platforms"`
}

// PlatformLaunch describes how to launch a script-installed server on
// one platform. CandidatePaths may contain env placeholders like
// {HOME} or {LOCALAPPDATA} and glob wildcards.
type PlatformLaunch struct {
	Command        string   `json:"command" yaml:"command"`
	ArgsTemplate   []string `json:"argsTemplate,omitempty" yaml:"argsTemplate,omitempty"`
	CandidatePaths []string `json:"candidatePaths,omitempty" yaml:"candidatePaths,omitempty"`
}

// Placeholders returns the placeholder names appearing in the
// descriptor's argument template, in template order without duplicates.
func (d *Descriptor) Placeholders() []string {
	seen := map[string]bool{}
	var names []string
	for _, tok := range d.ArgsTemplate {
		for _, m := range placeholderPattern.FindAllStringSubmatch(tok, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				names = append(names, m[1])
			}
		}
	}
	return names
}

// AcceptsArg reports whether name is a declared required or optional
// argument of the descriptor.
func (d *Descriptor) AcceptsArg(name string) bool {
	for _, a := range d.RequiredArgs {
		if a == name {
			return true
		}
	}
	for _, a := range d.OptionalArgs {
		if a == name {
			return true
		}
	}
	return false
}

// IsRequiredArg reports whether name is a required argument.
func (d *Descriptor) IsRequiredArg(name string) bool {
	for _, a := range d.RequiredArgs {
		if a == name {
			return true
		}
	}
	return false
}

// Validate checks a Descriptor for structural correctness. Lookup and
// Search only ever return descriptors that pass validation.
func (d *Descriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("id is required")
	}
	if !idPattern.MatchString(d.ID) {
		return fmt.Errorf("id %q must match %s", d.ID, idPattern.String())
	}
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if err := validateCategory(&d.Category); err != nil {
		return err
	}
	if err := d.validateMethod(); err != nil {
		return err
	}
	if d.Command == "" && d.Script == nil {
		return fmt.Errorf("command is required")
	}
	// Every placeholder in the template must be a declared argument.
	for _, name := range d.Placeholders() {
		if !d.AcceptsArg(name) {
			return fmt.Errorf("template placeholder <%s> is not declared in requiredArgs or optionalArgs", name)
		}
	}
	for _, name := range append(append([]string{}, d.RequiredArgs...), d.OptionalArgs...) {
		if name == "" {
			return fmt.Errorf("argument names must be non-empty")
		}
		if strings.ContainsAny(name, "<>") {
			return fmt.Errorf("argument name %q must not contain angle brackets", name)
		}
	}
	return nil
}

// validateMethod enforces the tagged-variant rule: the detail block for
// the descriptor's method must be present, and no other detail block
// may be set.
func (d *Descriptor) validateMethod() error {
	switch d.Method {
	case MethodNPM, MethodUVX, MethodManual:
	case MethodGit:
		if d.Git == nil {
			return fmt.Errorf("installMethod git requires a git detail block")
		}
		if d.Git.URL == "" {
			return fmt.Errorf("git.url is required")
		}
	case MethodDocker:
		if d.Docker == nil {
			return fmt.Errorf("installMethod docker requires a docker detail block")
		}
		if d.Docker.Image == "" {
			return fmt.Errorf("docker.image is required")
		}
	case MethodScript:
		if d.Script == nil {
			return fmt.Errorf("installMethod script requires a script detail block")
		}
		if len(d.Script.Platforms) == 0 {
			return fmt.Errorf("script.platforms must not be empty")
		}
	default:
		return fmt.Errorf("installMethod %q must be one of: npm, git, uvx, docker, script, manual", d.Method)
	}
	if d.Method != MethodGit && d.Git != nil {
		return fmt.Errorf("git detail block is only valid for installMethod git")
	}
	if d.Method != MethodDocker && d.Docker != nil {
		return fmt.Errorf("docker detail block is only valid for installMethod docker")
	}
	if d.Method != MethodScript && d.Script != nil {
		return fmt.Errorf("script detail block is only valid for installMethod script")
	}
	return nil
}

// validateCategory checks the category, defaulting to custom if empty.
func validateCategory(c *Category) error {
	switch *c {
	case "":
		*c = CategoryCustom
	case CategoryOfficial, CategoryCommunity, CategoryCustom:
		// valid
	default:
		return fmt.Errorf("category %q must be one of: official, community, custom", *c)
	}
	return nil
}
