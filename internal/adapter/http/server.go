package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fasalneeti/yield-service/internal/domain"
	"github.com/fasalneeti/yield-service/internal/prediction"
)

// PredictionService is the application surface the API exposes.
type PredictionService interface {
	Predict(ctx context.Context, req domain.PredictionRequest, ownerID string) (prediction.Response, error)
	Recent(ctx context.Context, ownerID string, limit int) ([]domain.Prediction, error)
	Factors(ctx context.Context, loc domain.Location) domain.EnvironmentalFactors
	CheckReadiness(ctx context.Context) error
}

// Server exposes the prediction API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer     *http.Server
	svc            PredictionService
	auth           *Authenticator
	requestTimeout time.Duration
	logger         *slog.Logger
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(addr string, svc PredictionService, auth *Authenticator, requestTimeout time.Duration, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: requestTimeout + 5*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:            svc,
		auth:           auth,
		requestTimeout: requestTimeout,
		logger:         logger,
	}

	mux.HandleFunc("POST /api/predict-yield", s.handlePredict)
	mux.HandleFunc("GET /api/predictions", s.handleRecent)
	mux.HandleFunc("GET /api/districts", s.handleDistricts)
	mux.HandleFunc("GET /api/weather/{district}", s.handleWeather)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

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

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
