// Package server provides the read-only preview HTTP server.
//
// The server exposes published bundles to the front-end: a listing
// endpoint, bundle lookup by ID or map name, and a density stats
// endpoint. It never mutates the store.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/maplab/flatland/pkg/buildinfo"
	"github.com/maplab/flatland/pkg/errors"
	"github.com/maplab/flatland/pkg/store"
)

// Server serves published bundles over HTTP.
type Server struct {
	store  store.Store
	logger *log.Logger
	http   *http.Server
}

// Options configures the server.
type Options struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Logger receives request logs. Defaults to log.Default().
	Logger *log.Logger
}

// New creates a server backed by the given store.
func New(s store.Store, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	srv := &Server{store: s, logger: opts.Logger}
	srv.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv
}

// Routes builds the HTTP router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/bundles", s.handleListBundles)
		r.Get("/bundles/{id}", s.handleGetBundle)
		r.Get("/maps/{name}", s.handleGetMap)
		r.Get("/maps/{name}/stats", s.handleGetStats)
	})
	return r
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("preview server listening", "addr", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.Wrap(errors.ErrCodeNetwork, err, "server failed")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

func (s *Server) handleListBundles(w http.ResponseWriter, r *http.Request) {
	infos, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"bundles": infos})
}

func (s *Server) handleGetBundle(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, bundle)
}

func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.store.GetByMap(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, bundle)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.store.GetByMap(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if bundle.Stats == nil {
		s.writeError(w, errors.New(errors.ErrCodeNotFound, "map has no density stats"))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"map_name": bundle.MapName,
		"params":   bundle.Params,
		"stats":    bundle.Stats,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrCodeBundleNotFound), errors.Is(err, errors.ErrCodeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errors.ErrCodeInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, errors.ErrCodeNetwork), errors.Is(err, errors.ErrCodeTimeout):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": errors.UserMessage(err)})
}
