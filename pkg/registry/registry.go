package registry

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

// ErrNotFound is returned when a server id is not in the registry.
var ErrNotFound = errors.New("not found")

//go:embed servers.json
var builtinServers []byte

// Registry is an immutable lookup table of server descriptors. The
// built-in table is embedded at compile time; custom descriptors can be
// layered on top from user directories (see LoadCustomDir).
type Registry struct {
	servers map[string]*Descriptor
	logger  *log.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for non-fatal load warnings.
func WithLogger(logger *log.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// New builds a registry from the embedded built-in server table.
func New(opts ...Option) (*Registry, error) {
	r := &Registry{
		servers: make(map[string]*Descriptor),
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	var builtin map[string]*Descriptor
	if err := json.Unmarshal(builtinServers, &builtin); err != nil {
		return nil, fmt.Errorf("parsing built-in server table: %w", err)
	}
	for id, d := range builtin {
		d.ID = id
		r.servers[id] = d
	}
	return r, nil
}

// Add registers a descriptor, replacing any existing descriptor with
// the same id. The descriptor is validated first.
func (r *Registry) Add(d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("descriptor %q: %w", d.ID, err)
	}
	r.servers[d.ID] = d
	return nil
}

// Lookup returns the descriptor for id. Descriptors that fail
// validation are rejected here rather than at use time, so a malformed
// table entry can never produce a broken config entry.
func (r *Registry) Lookup(id string) (*Descriptor, error) {
	d, ok := r.servers[id]
	if !ok {
		return nil, fmt.Errorf("server %q: %w", id, ErrNotFound)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("server %q has an invalid definition: %w", id, err)
	}
	return d, nil
}

// All returns every valid descriptor, ordered by ascending id.
func (r *Registry) All() []*Descriptor {
	return r.Search("", "")
}

// Categories returns the categories present in the registry, sorted.
func (r *Registry) Categories() []Category {
	seen := map[Category]bool{}
	for _, d := range r.servers {
		seen[d.Category] = true
	}
	cats := make([]Category, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

// ByCategory returns all valid descriptors in the given category,
// ordered by ascending id.
func (r *Registry) ByCategory(cat Category) []*Descriptor {
	return r.Search("", cat)
}

// Search returns descriptors matching query, ordered by relevance with
// ties broken by ascending id. Matching is a case-insensitive substring
// test against id, name, and description. An empty query matches
// everything. A non-empty category restricts results to that category.
// Descriptors that fail validation are skipped.
func (r *Registry) Search(query string, category Category) []*Descriptor {
	q := strings.ToLower(query)

	type scored struct {
		d     *Descriptor
		score int
	}
	var results []scored
	for _, d := range r.servers {
		if category != "" && d.Category != category {
			continue
		}
		if err := d.Validate(); err != nil {
			r.logger.Warn("skipping invalid registry entry", "id", d.ID, "err", err)
			continue
		}
		s := relevance(d, q)
		if q != "" && s == 0 {
			continue
		}
		results = append(results, scored{d, s})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].d.ID < results[j].d.ID
	})

	out := make([]*Descriptor, len(results))
	for i, s := range results {
		out[i] = s.d
	}
	return out
}

// relevance scores a descriptor against a lowercased query. Exact id
// matches rank above id substrings, then name, then description.
func relevance(d *Descriptor, q string) int {
	if q == "" {
		return 0
	}
	switch {
	case q == strings.ToLower(d.ID):
		return 100
	case strings.Contains(strings.ToLower(d.ID), q):
		return 50
	case strings.Contains(strings.ToLower(d.Name), q):
		return 30
	case strings.Contains(strings.ToLower(d.Description), q):
		return 10
	}
	return 0
}
