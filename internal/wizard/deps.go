package wizard

import (
	"os/exec"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Dependency is one external tool the wizard probes for. MinVersion is
// a semver constraint string; empty means presence is enough.
type Dependency struct {
	Name        string
	Command     string
	VersionArgs []string
	MinVersion  string
	Optional    bool
	InstallHint string
}

// Status is the probe result for one dependency.
type Status struct {
	Dependency
	Found     bool
	Version   string
	Satisfied bool
	Detail    string
}

// Defaults returns the dependencies MCP servers commonly need. Node and
// Python are required for the npm/uvx install methods; the rest only
// matter for specific servers.
func Defaults() []Dependency {
	return []Dependency{
		{Name: "Node.js", Command: "node", VersionArgs: []string{"--version"}, MinVersion: ">= 16.0.0",
			InstallHint: "Install from https://nodejs.org or via your package manager"},
		{Name: "npm", Command: "npm", VersionArgs: []string{"--version"},
			InstallHint: "Ships with Node.js"},
		{Name: "Python", Command: "python3", VersionArgs: []string{"--version"}, MinVersion: ">= 3.9.0",
			InstallHint: "Install from https://python.org"},
		{Name: "uvx", Command: "uvx", VersionArgs: []string{"--version"}, Optional: true,
			InstallHint: "pip install uv"},
		{Name: "Docker", Command: "docker", VersionArgs: []string{"--version"}, Optional: true,
			InstallHint: "Install from https://docker.com"},
		{Name: "Git", Command: "git", VersionArgs: []string{"--version"}, Optional: true,
			InstallHint: "Install from https://git-scm.com"},
	}
}

// Overridable for tests.
var (
	lookPath = exec.LookPath

	runVersion = func(command string, args []string) (string, error) {
		out, err := exec.Command(command, args...).CombinedOutput()
		return string(out), err
	}
)

// Check probes every dependency and reports its status.
func Check(deps []Dependency) []Status {
	statuses := make([]Status, 0, len(deps))
	for _, dep := range deps {
		statuses = append(statuses, checkOne(dep))
	}
	return statuses
}

func checkOne(dep Dependency) Status {
	st := Status{Dependency: dep}

	if _, err := lookPath(dep.Command); err != nil {
		st.Detail = "not found in PATH"
		return st
	}
	st.Found = true

	out, err := runVersion(dep.Command, dep.VersionArgs)
	if err != nil {
		st.Detail = "version probe failed"
		return st
	}
	st.Version = extractVersion(out)

	if dep.MinVersion == "" {
		st.Satisfied = true
		return st
	}
	if st.Version == "" {
		st.Detail = "could not parse version from output"
		return st
	}

	constraint, err := semver.NewConstraint(dep.MinVersion)
	if err != nil {
		st.Detail = "invalid version constraint"
		return st
	}
	v, err := semver.NewVersion(st.Version)
	if err != nil {
		st.Detail = "could not parse version " + st.Version
		return st
	}
	st.Satisfied = constraint.Check(v)
	if !st.Satisfied {
		st.Detail = "requires " + dep.MinVersion
	}
	return st
}

// versionRe pulls a dotted version out of probe output like
// "v18.19.0", "Python 3.11.2", or "Docker version 27.3.1, build ...".
var versionRe = regexp.MustCompile(`(\d+\.\d+(?:\.\d+)?)`)

func extractVersion(output string) string {
	return versionRe.FindString(strings.TrimSpace(output))
}
