package reconciler

import (
	"fmt"
	"os"
	"sort"
)

// serversKey is the top-level key holding the server map in Claude
// Desktop's config file.
const serversKey = "mcpServers"

// ServerEntry is one installed server instance. Fields the tool does
// not model (for example "type" or "url" on SSE entries) are retained
// in extra and written back unchanged.
type ServerEntry struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string

	extra map[string]any
}

// Config is the host configuration: the server map plus every
// unrecognized top-level key, preserved across read-modify-write.
type Config struct {
	Servers map[string]*ServerEntry

	// Extra holds top-level keys other than the server map.
	Extra map[string]any

	// HadComments is set when the source file contained JSONC comments
	// or trailing commas, which are lost on write.
	HadComments bool
}

// NewConfig returns an empty config with an empty server map.
func NewConfig() *Config {
	return &Config{
		Servers: make(map[string]*ServerEntry),
		Extra:   make(map[string]any),
	}
}

// Load reads the host config at path. A missing file is not an error:
// the tool must be usable before Claude Desktop has ever run, so it
// returns an empty config. Malformed content is surfaced as a
// ParseError and never repaired.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	data, hadComments, err := parseJSON(raw)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	cfg := NewConfig()
	cfg.HadComments = hadComments
	for key, value := range data {
		if key != serversKey {
			cfg.Extra[key] = value
			continue
		}
		servers, ok := value.(map[string]any)
		if !ok {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("%q is not an object", serversKey)}
		}
		for name, sv := range servers {
			entry, err := entryFromMap(name, sv)
			if err != nil {
				return nil, &ParseError{Path: path, Err: err}
			}
			cfg.Servers[name] = entry
		}
	}
	return cfg, nil
}

// Apply upserts entry into the config's server map, keyed by the
// entry's name. Replacement is whole-entry; everything else in the
// config is untouched.
func Apply(cfg *Config, entry *ServerEntry) {
	if cfg.Servers == nil {
		cfg.Servers = make(map[string]*ServerEntry)
	}
	cfg.Servers[entry.Name] = entry
}

// Remove deletes the named entry. Removing a name that is not present
// is an explicit ErrServerNotFound, not a no-op.
func Remove(cfg *Config, name string) error {
	if _, ok := cfg.Servers[name]; !ok {
		return fmt.Errorf("%q: %w", name, ErrServerNotFound)
	}
	delete(cfg.Servers, name)
	return nil
}

// Persist writes the config to path atomically (temp file plus rename
// in the same directory). The server map key is always written, even
// when empty, so a fresh config round-trips to itself.
func Persist(cfg *Config, path string) error {
	data := make(map[string]any, len(cfg.Extra)+1)
	for k, v := range cfg.Extra {
		data[k] = v
	}
	servers := make(map[string]any, len(cfg.Servers))
	for name, entry := range cfg.Servers {
		servers[name] = entry.toMap()
	}
	data[serversKey] = servers

	return writeJSONFile(path, data)
}

// Names returns the server names in the config, sorted.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the config's server map with a shallow
// copy of the unrecognized top-level keys.
func (c *Config) Clone() *Config {
	out := NewConfig()
	out.HadComments = c.HadComments
	for k, v := range c.Extra {
		out.Extra[k] = v
	}
	for name, entry := range c.Servers {
		out.Servers[name] = entry.Clone()
	}
	return out
}

// Clone returns a deep copy of the entry.
func (e *ServerEntry) Clone() *ServerEntry {
	out := &ServerEntry{
		Name:    e.Name,
		Command: e.Command,
	}
	if e.Args != nil {
		out.Args = append([]string(nil), e.Args...)
	}
	if e.Env != nil {
		out.Env = make(map[string]string, len(e.Env))
		for k, v := range e.Env {
			out.Env[k] = v
		}
	}
	if e.extra != nil {
		out.extra = make(map[string]any, len(e.extra))
		for k, v := range e.extra {
			out.extra[k] = v
		}
	}
	return out
}

// entryFromMap converts one raw server object into a typed entry,
// retaining unmodeled fields.
func entryFromMap(name string, value any) (*ServerEntry, error) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("server %q: definition is not an object", name)
	}

	entry := &ServerEntry{Name: name}
	for key, v := range m {
		switch key {
		case "command":
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("server %q: command is not a string", name)
			}
			entry.Command = s
		case "args":
			list, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("server %q: args is not an array", name)
			}
			for i, item := range list {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("server %q: args[%d] is not a string", name, i)
				}
				entry.Args = append(entry.Args, s)
			}
		case "env":
			obj, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("server %q: env is not an object", name)
			}
			entry.Env = make(map[string]string, len(obj))
			for k, ev := range obj {
				s, ok := ev.(string)
				if !ok {
					return nil, fmt.Errorf("server %q: env[%s] is not a string", name, k)
				}
				entry.Env[k] = s
			}
		default:
			if entry.extra == nil {
				entry.extra = make(map[string]any)
			}
			entry.extra[key] = v
		}
	}
	return entry, nil
}

// toMap converts the entry back to its host-config object, restoring
// unmodeled fields.
func (e *ServerEntry) toMap() map[string]any {
	m := make(map[string]any, len(e.extra)+3)
	for k, v := range e.extra {
		m[k] = v
	}
	m["command"] = e.Command
	if len(e.Args) > 0 {
		args := make([]any, len(e.Args))
		for i, a := range e.Args {
			args[i] = a
		}
		m["args"] = args
	}
	if len(e.Env) > 0 {
		env := make(map[string]any, len(e.Env))
		for k, v := range e.Env {
			env[k] = v
		}
		m["env"] = env
	}
	return m
}
