package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/model"
	"github.com/Sarava33/snow-globe-interactive-art/internal/domain/types"
	"github.com/Sarava33/snow-globe-interactive-art/pkg/metrics"
)

const healthyStatus = "healthy"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status            string `json:"status"`
	ConnectedUsers    int    `json:"connectedUsers"`
	ConnectedDisplays int    `json:"connectedDisplays"`
	Timestamp         string `json:"timestamp"`
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	registry Registry
	now      func() time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(registry Registry, now func() time.Time) *HealthHandler {
	return &HealthHandler{registry: registry, now: now}
}

// HandleHealth handles GET /health requests. ConnectedUsers counts controllers.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:            healthyStatus,
		ConnectedUsers:    h.registry.Count(ctx, model.RoleController),
		ConnectedDisplays: h.registry.Count(ctx, model.RoleDisplay),
		Timestamp:         types.Timestamp(h.now()),
	})
}

// NewMetricsHandler serves the relay's Prometheus registry.
func NewMetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
