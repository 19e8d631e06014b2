// Package api serves the local HTTP JSON API consumed by the desktop
// GUI. It exposes read access to the server registry and read/write
// access to the Claude Desktop configuration. The listener binds to
// localhost only; there is no authentication layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/pgctl/pgctl/pkg/registry"
)

// Server wires the registry and the config path behind HTTP handlers.
type Server struct {
	registry   *registry.Registry
	configPath string
	logger     *log.Logger

	httpServer *http.Server
	watcher    *fsnotify.Watcher
}

// NewServer creates an API server. The registry may not be nil; the
// config file at configPath may not exist yet.
func NewServer(reg *registry.Registry, configPath string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		registry:   reg,
		configPath: configPath,
		logger:     logger,
	}
}

// Handler returns the routing handler, wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/registry/", s.handleRegistry)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/config/", s.handleConfigSub)
	mux.HandleFunc("/api/status", s.handleStatus)
	return s.logRequests(mux)
}

// Serve starts the HTTP listener and blocks until ctx is cancelled or
// the listener fails. addr must resolve to a loopback address.
func (s *Server) Serve(ctx context.Context, addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if ip := net.ParseIP(host); host != "localhost" && (ip == nil || !ip.IsLoopback()) {
		return fmt.Errorf("refusing to listen on non-loopback address %q", addr)
	}

	if err := s.watchConfig(); err != nil {
		s.logger.Warn("config watch unavailable", "err", err)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", "addr", addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)
		s.closeWatcher()
		return err
	case err := <-errCh:
		s.closeWatcher()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// watchConfig logs external edits to the config file. The GUI polls
// /api/config; the log line is for the operator. Watching the parent
// directory survives the atomic rename that Persist performs.
func (s *Server) watchConfig() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.configPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	s.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != s.configPath {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					s.logger.Info("config file changed on disk", "path", event.Name, "op", event.Op.String())
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("config watch error", "err", err)
			}
		}
	}()
	return nil
}

func (s *Server) closeWatcher() {
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
}

// logRequests tags every request with a uuid and logs method, path,
// status and duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
