// Package httpapi exposes the reputation engine over HTTP. Lookup endpoints
// mirror the facade contract: they always answer 200 with a usable
// reputation, never an error body.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/haukened/domrep/internal/rep/common/log"
	"github.com/haukened/domrep/internal/rep/domain"
	"github.com/haukened/domrep/internal/rep/services/reputation"
)

// maxBatchSize caps one batch request; larger batches should be split by
// the caller.
const maxBatchSize = 500

// ReputationService is the slice of the facade the API needs.
type ReputationService interface {
	Lookup(ctx context.Context, rawURL string) domain.Reputation
	LookupBatch(ctx context.Context, rawURLs []string) []domain.Reputation
	UpdateRecords(ctx context.Context, records []domain.Record, sourceID string) (int, error)
	TriggerUpdate(ctx context.Context) error
	Statistics() reputation.Stats
}

// Server serves the HTTP API.
type Server struct {
	svc    ReputationService
	logger log.Logger
	http   *http.Server
}

type Options struct {
	Addr    string
	Service ReputationService
	Logger  log.Logger
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	s := &Server{svc: opts.Service, logger: opts.Logger}
	s.http = &http.Server{Addr: opts.Addr, Handler: s.router()}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/reputation", s.handleLookup)
		r.Post("/reputation/batch", s.handleBatch)
		r.Post("/records", s.handleRecords)
		r.Post("/update", s.handleUpdate)
		r.Get("/stats", s.handleStats)
	})
	return r
}

// ListenAndServe blocks until the server stops. http.ErrServerClosed is
// swallowed; it is the normal shutdown signal.
func (s *Server) ListenAndServe() error {
	s.logger.Info(map[string]any{"addr": s.http.Addr}, "HTTP API listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler returns the route tree. Test hook.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing url query parameter")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Lookup(r.Context(), raw))
}

type batchRequest struct {
	URLs []string `json:"urls"`
}

type batchResponse struct {
	Results []domain.Reputation `json:"results"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls must not be empty")
		return
	}
	if len(req.URLs) > maxBatchSize {
		writeError(w, http.StatusRequestEntityTooLarge, "too many urls in one batch")
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Results: s.svc.LookupBatch(r.Context(), req.URLs)})
}

type recordsRequest struct {
	Source  string          `json:"source,omitempty"`
	Records []domain.Record `json:"records"`
}

type recordsResponse struct {
	Applied int `json:"applied"`
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	var req recordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	n, err := s.svc.UpdateRecords(r.Context(), req.Records, req.Source)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Error(map[string]any{"error": err.Error()}, "Record update failed")
		writeError(w, http.StatusInternalServerError, "record update failed")
		return
	}
	writeJSON(w, http.StatusOK, recordsResponse{Applied: n})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.TriggerUpdate(r.Context()); err != nil {
		s.logger.Error(map[string]any{"error": err.Error()}, "Update cycle failed")
		writeError(w, http.StatusBadGateway, "update cycle failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Statistics())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
