package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/pgctl/pgctl/pkg/reconciler"
	"github.com/pgctl/pgctl/pkg/registry"
)

// configView is the JSON shape returned by GET /api/config. Entries are
// projected through the simplified format so the GUI gets a stable,
// editable view regardless of unrecognized config content.
type configView struct {
	Path    string                `json:"path"`
	Exists  bool                  `json:"exists"`
	Servers reconciler.Simplified `json:"servers"`
}

// installRequest is the body of POST /api/config/servers.
type installRequest struct {
	ID   string            `json:"id"`
	Name string            `json:"name,omitempty"`
	Args map[string]string `json:"args,omitempty"`
	Env  map[string]string `json:"env,omitempty"`
}

// handleConfig returns the current configuration.
// GET /api/config
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg, err := reconciler.Load(s.configPath)
	if err != nil {
		writeJSONError(w, "Failed to load config: "+err.Error(), http.StatusInternalServerError)
		return
	}
	_, statErr := os.Stat(s.configPath)
	writeJSON(w, configView{
		Path:    s.configPath,
		Exists:  statErr == nil,
		Servers: reconciler.ToSimplified(cfg),
	})
}

// handleConfigSub routes /api/config/validate and /api/config/servers.
func (s *Server) handleConfigSub(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/config/")

	switch {
	case path == "validate":
		s.handleConfigValidate(w, r)
	case path == "servers":
		s.handleConfigInstall(w, r)
	case strings.HasPrefix(path, "servers/"):
		s.handleConfigRemove(w, r, strings.TrimPrefix(path, "servers/"))
	default:
		http.NotFound(w, r)
	}
}

// handleConfigValidate runs validation over the on-disk config.
// GET /api/config/validate
func (s *Server) handleConfigValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg, err := reconciler.Load(s.configPath)
	if err != nil {
		writeJSONError(w, "Failed to load config: "+err.Error(), http.StatusInternalServerError)
		return
	}
	report := reconciler.Validate(cfg)
	if report == nil {
		report = reconciler.ValidationReport{}
	}
	writeJSON(w, map[string]any{
		"valid":    !report.HasErrors(),
		"findings": report,
	})
}

// handleConfigInstall resolves a registry entry and persists it.
// POST /api/config/servers
func (s *Server) handleConfigInstall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req installRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		writeJSONError(w, "Missing server id", http.StatusBadRequest)
		return
	}

	d, err := s.registry.Lookup(req.ID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeJSONError(w, "Server not found: "+req.ID, http.StatusNotFound)
		} else {
			writeJSONError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	entry, err := reconciler.Resolve(d, req.Args, req.Env, reconciler.ResolveOptions{Name: req.Name})
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	cfg, err := reconciler.Load(s.configPath)
	if err != nil {
		writeJSONError(w, "Failed to load config: "+err.Error(), http.StatusInternalServerError)
		return
	}
	reconciler.Apply(cfg, entry)

	if _, err := reconciler.Backup(s.configPath); err != nil {
		s.logger.Warn("backup failed", "err", err)
	}
	if err := reconciler.Persist(cfg, s.configPath); err != nil {
		writeJSONError(w, "Failed to save config: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, entry)
}

// handleConfigRemove deletes one entry from the config.
// DELETE /api/config/servers/{name}
func (s *Server) handleConfigRemove(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg, err := reconciler.Load(s.configPath)
	if err != nil {
		writeJSONError(w, "Failed to load config: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := reconciler.Remove(cfg, name); err != nil {
		if errors.Is(err, reconciler.ErrServerNotFound) {
			writeJSONError(w, "Entry not found: "+name, http.StatusNotFound)
		} else {
			writeJSONError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if _, err := reconciler.Backup(s.configPath); err != nil {
		s.logger.Warn("backup failed", "err", err)
	}
	if err := reconciler.Persist(cfg, s.configPath); err != nil {
		writeJSONError(w, "Failed to save config: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStatus returns summary counts for the GUI dashboard.
// GET /api/status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	installed := 0
	if cfg, err := reconciler.Load(s.configPath); err == nil {
		installed = len(cfg.Servers)
	}
	writeJSON(w, map[string]any{
		"registryServers":  len(s.registry.All()),
		"installedServers": installed,
		"configPath":       s.configPath,
	})
}
