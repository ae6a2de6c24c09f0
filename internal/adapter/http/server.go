package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/forecast-hub-etl/internal/domain"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// SubmissionValidator runs a single submission through conversion and
// validation without touching Kafka.
type SubmissionValidator interface {
	Validate(ctx context.Context, raw domain.RawSubmission) (domain.SubmissionResult, error)
}

// Server exposes health, readiness, metrics, and ad-hoc validation HTTP
// endpoints.
type Server struct {
	httpServer *http.Server
	validator  SubmissionValidator
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /v1/validate routes.
func NewServer(addr string, ready ReadinessChecker, validator SubmissionValidator, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		validator: validator,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/validate", s.handleValidate)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleValidate runs one CSV forecast file, posted as the request body,
// through the same conversion and validation path the pipeline uses. The
// format comes from the "format" query parameter. A failed validation is a
// 200 with the error report in the body; only malformed requests are 4xx.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "missing required query parameter: format",
		})
		return
	}
	if _, err := domain.ParseFormat(format); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read request body: " + err.Error()})
		return
	}

	raw := domain.RawSubmission{
		Value: body,
		Headers: map[string]string{
			"format": format,
			"source": r.URL.Query().Get("source"),
		},
	}

	result, err := s.validator.Validate(r.Context(), raw)
	if err != nil {
		s.logger.Error("ad-hoc validation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, validateResponse{
		ID:     result.ID,
		Format: string(result.Format),
		Valid:  result.Valid(),
		Errors: result.Errors,
	})
}

type validateResponse struct {
	ID     string   `json:"id"`
	Format string   `json:"format"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
