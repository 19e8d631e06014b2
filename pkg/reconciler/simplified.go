package reconciler

import (
	"encoding/json"
	"fmt"
	"os"
)

// SimplifiedEntry is the human-editable projection of one server.
// Enabled is a pointer so an omitted key can be told apart from an
// explicit false: deleting the "enabled" line from the file must not
// uninstall the server.
type SimplifiedEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
	Enabled *bool             `json:"enabled,omitempty"`
}

// IsEnabled reports the effective enabled state; an absent key means
// enabled.
func (se SimplifiedEntry) IsEnabled() bool {
	return se.Enabled == nil || *se.Enabled
}

// Simplified is the flattened, editable projection of a host config:
// server names mapping directly to command/args/env/enabled. It is
// lossy on unrecognized top-level keys, which are restored from the
// base config on the way back.
type Simplified map[string]SimplifiedEntry

// ToSimplified projects a host config into the simplified format.
// Every present entry is marked enabled; disabling is an edit the user
// makes before applying the file back.
func ToSimplified(cfg *Config) Simplified {
	out := make(Simplified, len(cfg.Servers))
	for name, entry := range cfg.Servers {
		enabled := true
		se := SimplifiedEntry{
			Command: entry.Command,
			Args:    []string{},
			Env:     map[string]string{},
			Enabled: &enabled,
		}
		if entry.Args != nil {
			se.Args = append([]string{}, entry.Args...)
		}
		for k, v := range entry.Env {
			se.Env[k] = v
		}
		out[name] = se
	}
	return out
}

// FromSimplified merges an edited simplified config into base and
// returns the result; base is not modified. Enabled entries are
// upserted, entries explicitly disabled are removed if present, and
// entries omitted from the simplified file are left unchanged. Base's
// unrecognized top-level keys survive untouched, and an upsert over an
// existing entry carries that entry's unmodeled fields forward.
func FromSimplified(s Simplified, base *Config) *Config {
	out := base.Clone()
	for name, se := range s {
		if !se.IsEnabled() {
			delete(out.Servers, name)
			continue
		}
		entry := &ServerEntry{
			Name:    name,
			Command: se.Command,
		}
		if len(se.Args) > 0 {
			entry.Args = append([]string{}, se.Args...)
		}
		if len(se.Env) > 0 {
			entry.Env = make(map[string]string, len(se.Env))
			for k, v := range se.Env {
				entry.Env[k] = v
			}
		}
		if prev, ok := out.Servers[name]; ok && prev.extra != nil {
			entry.extra = make(map[string]any, len(prev.extra))
			for k, v := range prev.extra {
				entry.extra[k] = v
			}
		}
		out.Servers[name] = entry
	}
	return out
}

// LoadSimplified reads a simplified config file. Unlike Load, a missing
// file is an error here: applying a file that does not exist is a
// caller mistake, not an empty edit.
func LoadSimplified(path string) (Simplified, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading simplified config: %w", err)
	}

	data, _, err := parseJSON(raw)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	// Re-marshal through the typed structure for field validation.
	buf, err := json.Marshal(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	var s Simplified
	if err := json.Unmarshal(buf, &s); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return s, nil
}

// SaveSimplified writes a simplified config with the same atomic
// discipline as Persist.
func SaveSimplified(s Simplified, path string) error {
	data := make(map[string]any, len(s))
	for name, se := range s {
		data[name] = map[string]any{
			"command": se.Command,
			"args":    se.Args,
			"env":     se.Env,
			"enabled": se.IsEnabled(),
		}
	}
	return writeJSONFile(path, data)
}
