package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/websight/internal/export"
	"github.com/JakeFAU/websight/internal/metrics"
	"github.com/JakeFAU/websight/internal/probe"
)

// Prober runs one probe and stores its record.
type Prober interface {
	Probe(ctx context.Context, rawURL string) (probe.Record, error)
}

// Exporter writes the session's records to the configured destination.
type Exporter interface {
	Export(ctx context.Context) (string, error)
}

// Session exposes the records gathered so far.
type Session interface {
	ID() string
	Snapshot() []probe.Record
}

// Options tunes the server.
type Options struct {
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the orchestrator, record store, and exporter.
type Server struct {
	router   chi.Router
	prober   Prober
	session  Session
	exporter Exporter
	clock    probe.Clock
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	prober Prober,
	session Session,
	exporter Exporter,
	clock probe.Clock,
	opts Options,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	s := &Server{
		prober:   prober,
		session:  session,
		exporter: exporter,
		clock:    clock,
		logger:   logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(opts.RequestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/probes", func(r chi.Router) {
			r.Post("/", s.runProbe)
			r.Get("/", s.listProbes)
		})
		r.Route("/exports", func(r chi.Router) {
			r.Post("/", s.runExport)
			r.Get("/csv", s.downloadCSV)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// Everything the server needs is in-process.
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type probeRequest struct {
	URL string `json:"url"`
}

type stageFailure struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}

type probeResponse struct {
	Record   probe.Record   `json:"record"`
	Failures []stageFailure `json:"failures"`
}

func (s *Server) runProbe(w http.ResponseWriter, r *http.Request) {
	var req probeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		s.writeError(w, http.StatusBadRequest, "url required")
		return
	}

	record, err := s.prober.Probe(r.Context(), req.URL)
	if errors.Is(err, probe.ErrEmptyURL) {
		s.writeError(w, http.StatusBadRequest, "url required")
		return
	}
	resp := probeResponse{Record: record, Failures: []stageFailure{}}
	for _, se := range probe.FailedStages(err) {
		resp.Failures = append(resp.Failures, stageFailure{Stage: string(se.Stage), Error: se.Err.Error()})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listProbes(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": s.session.ID(),
		"records":    s.session.Snapshot(),
	})
}

func (s *Server) runExport(w http.ResponseWriter, r *http.Request) {
	msg, err := s.exporter.Export(r.Context())
	if err != nil {
		s.logger.Error("export failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (s *Server) downloadCSV(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, s.session.Snapshot()); err != nil {
		s.logger.Error("render csv failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "render csv failed")
		return
	}
	name := export.FileName(s.clock.Now().Format(export.FileTimeLayout))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Warn("csv write failed", zap.Error(err))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
