package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pgctl/pgctl/pkg/registry"
)

// handleRegistry routes all /api/registry/ requests.
func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/registry/")

	switch {
	case path == "servers":
		s.handleRegistryServers(w, r)
	case path == "categories":
		s.handleRegistryCategories(w, r)
	case strings.HasPrefix(path, "servers/"):
		s.handleRegistryServer(w, r, strings.TrimPrefix(path, "servers/"))
	default:
		http.NotFound(w, r)
	}
}

// handleRegistryServers lists or searches descriptors.
// GET /api/registry/servers[?q=&category=]
func (s *Server) handleRegistryServers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query().Get("q")
	category := registry.Category(r.URL.Query().Get("category"))

	var servers []*registry.Descriptor
	if query == "" && category == "" {
		servers = s.registry.All()
	} else {
		servers = s.registry.Search(query, category)
	}
	if servers == nil {
		servers = []*registry.Descriptor{}
	}
	writeJSON(w, servers)
}

// handleRegistryServer returns one descriptor by id.
// GET /api/registry/servers/{id}
func (s *Server) handleRegistryServer(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	d, err := s.registry.Lookup(id)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeJSONError(w, "Server not found: "+id, http.StatusNotFound)
		} else {
			writeJSONError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, d)
}

// handleRegistryCategories lists the categories present in the table.
// GET /api/registry/categories
func (s *Server) handleRegistryCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cats := s.registry.Categories()
	if cats == nil {
		cats = []registry.Category{}
	}
	writeJSON(w, cats)
}
