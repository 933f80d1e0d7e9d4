// Package server exposes the operational HTTP surface: export, backup,
// refresh triggers, graph and library inspection, the schema ontology, and
// the note parser.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ch-sander/zotero-rdf-server/notes"
	"github.com/ch-sander/zotero-rdf-server/rdf"
	"github.com/ch-sander/zotero-rdf-server/refresh"
	"github.com/ch-sander/zotero-rdf-server/store"
)

// Server wires the HTTP handlers to the running components.
type Server struct {
	logger      *slog.Logger
	gateway     store.Gateway
	scheduler   *refresh.Scheduler
	notes       *notes.Parser
	backupDir   string
	schemaGraph rdf.IRI
}

// New creates the server. schemaGraph may be empty when no ontology was
// loaded.
func New(gateway store.Gateway, scheduler *refresh.Scheduler, backupDir string, schemaGraph rdf.IRI, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:      logger,
		gateway:     gateway,
		scheduler:   scheduler,
		notes:       notes.NewParser(),
		backupDir:   backupDir,
		schemaGraph: schemaGraph,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /export", s.handleExport)
	mux.HandleFunc("POST /backup", s.handleBackup)
	mux.HandleFunc("POST /optimize", s.handleOptimize)
	mux.HandleFunc("POST /refresh", s.handleRefresh)
	mux.HandleFunc("GET /graphs", s.handleGraphs)
	mux.HandleFunc("GET /libs", s.handleLibs)
	mux.HandleFunc("GET /schema", s.handleSchema)
	mux.HandleFunc("POST /parse_notes", s.handleParseNotes)
	return s.logRequests(mux)
}

// ListenAndServe runs until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleExport streams the store, or one graph, in the requested format.
// Single-graph formats without a graph parameter are a client error.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := store.ParseFormat(defaultStr(r.URL.Query().Get("format"), "trig"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	graph := rdf.IRI(r.URL.Query().Get("graph"))

	body, err := s.gateway.Export(r.Context(), format, graph)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrGraphRequired) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "export"+format.Extension()))
	if _, err := io.Copy(w, body); err != nil {
		s.logger.Warn("export stream aborted", "error", err)
	}
}

// handleBackup dumps the store to a fixed destination, replacing the
// previous backup.
func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	dest := filepath.Join(s.backupDir, "backup.nq")
	if err := s.gateway.Backup(r.Context(), dest); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info("backup written", "path", dest)
	writeJSON(w, http.StatusOK, map[string]string{"backup": dest})
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	if err := s.gateway.Optimize(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "optimized"})
}

// handleRefresh triggers one library, or all when no library parameter is
// given. The refresh itself runs asynchronously; 202 means accepted.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	library := r.URL.Query().Get("library")
	if err := s.scheduler.Trigger(library); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh triggered"})
}

func (s *Server) handleGraphs(w http.ResponseWriter, r *http.Request) {
	graphs, err := s.gateway.NamedGraphs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	type graphInfo struct {
		Graph   string `json:"graph"`
		Triples int    `json:"triples"`
	}
	out := make([]graphInfo, 0, len(graphs))
	for _, g := range graphs {
		n, err := s.gateway.GraphSize(r.Context(), g)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		out = append(out, graphInfo{Graph: string(g), Triples: n})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLibs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.scheduler.Statuses())
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	if s.schemaGraph == "" {
		writeError(w, http.StatusNotFound, errors.New("no schema ontology loaded"))
		return
	}
	format, err := store.ParseFormat(defaultStr(r.URL.Query().Get("format"), "ttl"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	body, err := s.gateway.Export(r.Context(), format, s.schemaGraph)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	defer body.Close()
	w.Header().Set("Content-Type", format.ContentType())
	io.Copy(w, body)
}

// handleParseNotes converts posted note HTML and returns the parsed form,
// the same boundary the pipeline uses for automatic note parsing.
func (s *Server) handleParseNotes(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	note, err := s.notes.Parse(string(body))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method, "path", r.URL.Path, "elapsed", time.Since(started))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func defaultStr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
