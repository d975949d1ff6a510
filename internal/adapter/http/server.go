package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/geomag-nowcast-service/internal/inference"
	"github.com/couchcryptid/geomag-nowcast-service/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxRequestBytes bounds a POST /infer body.
const maxRequestBytes = 8 << 20

// Server exposes the inference API plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	service    *inference.Service
	metrics    *observability.Metrics
	logger     *slog.Logger
}

type healthResponse struct {
	OK           bool   `json:"ok"`
	ModelVersion string `json:"modelVersion"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates an HTTP server with GET /health, POST /infer, the
// /healthz, /readyz and /metrics probes, and a JSON 404 for everything else.
func NewServer(addr string, service *inference.Service, ready sharedobs.ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service: service,
		metrics: metrics,
		logger:  logger,
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /infer", s.handleInfer)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("/", handleNotFound)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr, "model_version", s.service.ModelVersion())
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
	writeJSON(w, http.StatusOK, healthResponse{OK: true, ModelVersion: s.service.ModelVersion()})
}

func (s *Server) handleInfer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		s.rejectInfer(w, &inference.RequestError{Message: err.Error(), Err: err})
		return
	}

	fc, err := s.service.Infer(body)
	if err != nil {
		s.rejectInfer(w, err)
		return
	}

	data, err := json.Marshal(fc)
	if err != nil {
		s.rejectInfer(w, &inference.RequestError{Message: "encode forecast: " + err.Error(), Err: err})
		return
	}

	s.metrics.InferenceRequests.WithLabelValues(observability.OutcomeSuccess).Inc()
	s.metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	s.metrics.ForecastSteps.Observe(float64(len(fc.Predictions)))
	writeBody(w, http.StatusOK, data)
}

// rejectInfer renders any inference failure as 400 {"error": message}.
func (s *Server) rejectInfer(w http.ResponseWriter, err error) {
	msg := err.Error()
	var reqErr *inference.RequestError
	if errors.As(err, &reqErr) {
		msg = reqErr.Message
	}

	s.metrics.InferenceRequests.WithLabelValues(observability.OutcomeBadInput).Inc()
	s.logger.Debug("inference request rejected", "error", err)
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
}

// writeJSON encodes v before committing the status so an encode failure
// becomes a 500 instead of an empty response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeBody(w, http.StatusInternalServerError, []byte(`{"error":"internal error"}`))
		return
	}
	writeBody(w, status, data)
}

func writeBody(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n')) //nolint:errcheck // client may have gone away
}
