// Package server exposes the decision pipeline over HTTP: decision runs with
// optional server-sent event streaming, decision history, and report
// downloads.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/smallnest/decisionflow/log"
	"github.com/smallnest/decisionflow/memory"
	"github.com/smallnest/decisionflow/pipeline"
	"github.com/smallnest/decisionflow/report"
	"github.com/smallnest/decisionflow/store"
)

// Runner executes one decision pipeline run.
type Runner interface {
	Run(ctx context.Context, question string, opts ...pipeline.RunOption) (*pipeline.DecisionRecord, error)
}

// DecisionLog serves the decision history.
type DecisionLog interface {
	ListDecisions(ctx context.Context, limit int) ([]memory.Summary, error)
	GetDecision(ctx context.Context, id string) (*pipeline.DecisionRecord, error)
}

// Config assembles a Server. Runner is required; the rest is optional.
type Config struct {
	Runner    Runner
	Decisions DecisionLog
	Threads   store.ThreadStore
	Reports   *report.Renderer
	Logger    log.Logger
}

// Server is the HTTP front end of the decision pipeline.
type Server struct {
	runner    Runner
	decisions DecisionLog
	threads   store.ThreadStore
	reports   *report.Renderer
	logger    log.Logger
}

// New creates a Server from the config.
func New(cfg Config) (*Server, error) {
	if cfg.Runner == nil {
		return nil, errors.New("server requires a Runner")
	}
	if cfg.Reports == nil {
		cfg.Reports = report.NewRenderer(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = &log.NoOpLogger{}
	}
	return &Server{
		runner:    cfg.Runner,
		decisions: cfg.Decisions,
		threads:   cfg.Threads,
		reports:   cfg.Reports,
		logger:    cfg.Logger,
	}, nil
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/decisions", func(r chi.Router) {
		r.Post("/", s.handleCreateDecision)
		r.Get("/", s.handleListDecisions)
		r.Get("/{id}", s.handleGetDecision)
		r.Get("/{id}/report", s.handleReport)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createDecisionRequest struct {
	Question string `json:"question"`
	ThreadID string `json:"thread_id,omitempty"`
}

func (s *Server) handleCreateDecision(w http.ResponseWriter, r *http.Request) {
	var req createDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if wantsEventStream(r) {
		s.streamDecision(w, r, req)
		return
	}

	rec, err := s.runner.Run(r.Context(), req.Question)
	if err != nil {
		writeError(w, runStatus(err), err.Error())
		return
	}
	s.persistThread(r.Context(), req.ThreadID, rec)

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) streamDecision(w http.ResponseWriter, r *http.Request, req createDecisionRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	obs := newSSEObserver(w, flusher)

	rec, err := s.runner.Run(r.Context(), req.Question, pipeline.WithObserver(obs))
	if err != nil {
		obs.event("error", map[string]string{"error": err.Error()})
		return
	}
	s.persistThread(r.Context(), req.ThreadID, rec)

	obs.event("decision", rec)
}

// persistThread appends the run's messages to the session thread. Thread
// persistence is best-effort: a storage failure is logged, not surfaced.
func (s *Server) persistThread(ctx context.Context, threadID string, rec *pipeline.DecisionRecord) {
	if s.threads == nil {
		return
	}
	if threadID == "" {
		threadID = rec.ID
	}

	thread := &store.Thread{ID: threadID}
	if existing, err := s.threads.LoadThread(ctx, threadID); err == nil {
		thread = existing
	}
	thread.Messages = append(thread.Messages, rec.Messages...)
	thread.UpdatedAt = time.Now().UTC()

	if err := s.threads.SaveThread(ctx, thread); err != nil {
		s.logger.Warn("failed to persist thread %s: %v", threadID, err)
	}
}

func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	if s.decisions == nil {
		writeJSON(w, http.StatusOK, []memory.Summary{})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	summaries, err := s.decisions.ListDecisions(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summaries == nil {
		summaries = []memory.Summary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadDecision(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.loadDecision(w, r)
	if !ok {
		return
	}

	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.reports.Render(r.Context(), rec, format)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, report.ErrConverterNotConfigured) {
			status = http.StatusNotImplemented
		}
		writeError(w, status, err.Error())
		return
	}

	w.Header().Set("Content-Type", report.ContentType(format))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

func (s *Server) loadDecision(w http.ResponseWriter, r *http.Request) (*pipeline.DecisionRecord, bool) {
	if s.decisions == nil {
		writeError(w, http.StatusNotFound, "decision history not configured")
		return nil, false
	}

	id := chi.URLParam(r, "id")
	rec, err := s.decisions.GetDecision(r.Context(), id)
	if err != nil {
		if errors.Is(err, memory.ErrDecisionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return rec, true
}

func wantsEventStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// runStatus maps run failures onto HTTP status codes. Validation errors are
// the client's fault; everything else is an upstream failure.
func runStatus(err error) int {
	if errors.Is(err, pipeline.ErrEmptyQuestion) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
