// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/logger"
)

// Registry is the read-only view of live connections the HTTP handlers need.
type Registry interface {
	Snapshot(ctx context.Context, role model.Role) []model.Connection
	Count(ctx context.Context, role model.Role) int
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]any
}

// Server wires HTTP routes for the relay's read-only endpoints.
type Server struct {
	statusHandler  *StatusHandler
	debugHandler   *DebugHandler
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	metricsHandler http.Handler
	logger         logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(registry Registry, statsProvider StatsProvider, now func() time.Time) *Server {
	if now == nil {
		now = time.Now
	}
	return &Server{
		statusHandler:  NewStatusHandler(registry, now),
		debugHandler:   NewDebugHandler(registry),
		healthHandler:  NewHealthHandler(registry, now),
		statsHandler:   NewStatsHandler(statsProvider),
		metricsHandler: NewMetricsHandler(),
		logger:         logger.Get().Named("http"),
	}
}

// Register attaches all HTTP routes to mux. The status page owns exactly "/",
// leaving the rest of the tree to static assets.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", MetricsMiddleware(s.statusHandler.HandleStatus, "status"))
	mux.HandleFunc("GET /debug", MetricsMiddleware(s.debugHandler.HandleDebug, "debug"))
	mux.HandleFunc("GET /health", MetricsMiddleware(s.healthHandler.HandleHealth, "health"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.Handle("GET /metrics", s.metricsHandler)

	s.logger.Debug(ctx, "http routes registered")
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
