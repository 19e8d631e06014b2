package reconciler

import (
	"fmt"
	"os"
	"path/filepath"
)

// statFn is a variable to allow test overrides of filesystem checks.
var statFn = os.Stat

// Severity grades a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one validation result for one entry.
type Finding struct {
	Entry    string   `json:"entry"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// ValidationReport collects findings across a config. It never carries
// a Go error: callers decide whether warnings block an operation.
type ValidationReport []Finding

// HasErrors reports whether any finding is an error.
func (r ValidationReport) HasErrors() bool {
	for _, f := range r {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity findings.
func (r ValidationReport) Errors() ValidationReport {
	return r.filter(SeverityError)
}

// Warnings returns only the warning-severity findings.
func (r ValidationReport) Warnings() ValidationReport {
	return r.filter(SeverityWarning)
}

func (r ValidationReport) filter(sev Severity) ValidationReport {
	var out ValidationReport
	for _, f := range r {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}

// Validate checks every entry in the config. Structural problems
// (missing command, dangling placeholder syntax) are errors.
// Filesystem checks are best-effort warnings only: the config may be
// edited on a machine other than where the server ultimately runs.
func Validate(cfg *Config) ValidationReport {
	var report ValidationReport
	for _, name := range cfg.Names() {
		entry := cfg.Servers[name]
		if entry.Command == "" {
			report = append(report, Finding{
				Entry:    name,
				Severity: SeverityError,
				Message:  "command is empty",
			})
		}
		for _, arg := range entry.Args {
			if placeholderRE.MatchString(arg) {
				report = append(report, Finding{
					Entry:    name,
					Severity: SeverityError,
					Message:  fmt.Sprintf("argument %q contains an unresolved placeholder", arg),
				})
			}
			if filepath.IsAbs(arg) && !dirExists(filepath.Dir(arg)) {
				report = append(report, Finding{
					Entry:    name,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("parent directory of %q does not exist", arg),
				})
			}
		}
	}
	return report
}

func dirExists(path string) bool {
	info, err := statFn(path)
	return err == nil && info.IsDir()
}
