// Package server exposes a read-only HTTP view of the run catalog and the
// generated PDFs.
package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TaylorHo/gerador-de-simulados-do-EUF/internal/store"
)

// Server holds shared dependencies for HTTP handlers.
type Server struct {
	store     *store.Store
	outputDir string
}

// New creates a new Server over the given catalog and output directory.
func New(s *store.Store, outputDir string) *Server {
	return &Server{store: s, outputDir: outputDir}
}

// Routes registers all HTTP routes.
func (s *Server) Routes(r chi.Router) {
	r.Get("/api/runs", s.handleListRuns)
	r.Get("/api/runs/{runID}", s.handleGetRun)
	r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(s.outputDir))))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run, err := s.store.GetRun(runID)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, run)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
