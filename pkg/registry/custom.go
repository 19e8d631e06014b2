package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// DefaultCustomDirs returns the directories scanned for user-supplied
// server definitions, in load order. Later directories win on id
// collision.
func DefaultCustomDirs() []string {
	var dirs []string
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "pg", "servers"))
	}
	dirs = append(dirs, "/etc/pg/servers")
	return dirs
}

// LoadCustomDir merges descriptor definitions from dir into the
// registry. Files may be YAML or JSON (comments and trailing commas
// tolerated), each holding either a single descriptor or a map of
// id -> descriptor. A missing directory is not an error; individual
// invalid files are skipped with a warning so one bad definition never
// hides the rest.
func (r *Registry) LoadCustomDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading custom server dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		descriptors, err := readDescriptorFile(path)
		if err != nil {
			r.logger.Warn("skipping custom server file", "path", path, "err", err)
			continue
		}
		for id, d := range descriptors {
			d.ID = id
			if d.Category == "" {
				d.Category = CategoryCustom
			}
			if err := d.Validate(); err != nil {
				r.logger.Warn("skipping invalid custom server", "path", path, "id", id, "err", err)
				continue
			}
			r.servers[id] = d
		}
	}
	return nil
}

// readDescriptorFile parses one definition file into id -> descriptor.
// A file whose top level looks like a single descriptor (has a command
// or script block) is keyed by its filename stem.
func readDescriptorFile(path string) (map[string]*Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".json") {
		ast, err := hujson.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing JSON: %w", err)
		}
		ast.Standardize()
		raw = ast.Pack()
		unmarshal = json.Unmarshal
	}

	// Try a single descriptor first.
	var single Descriptor
	if err := unmarshal(raw, &single); err == nil && single.Command != "" {
		id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return map[string]*Descriptor{id: &single}, nil
	}

	var many map[string]*Descriptor
	if err := unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("parsing descriptors: %w", err)
	}
	return many, nil
}
