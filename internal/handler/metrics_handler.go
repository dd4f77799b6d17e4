package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-absence-alerts/internal/service"
	appErrors "github.com/noah-isme/sma-absence-alerts/pkg/errors"
	"github.com/noah-isme/sma-absence-alerts/pkg/response"
)

// ReadinessCheck probes one dependency.
type ReadinessCheck func(ctx context.Context) error

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	checks  map[string]ReadinessCheck
}

// NewMetricsHandler constructs a metrics handler. checks back the readiness probe.
func NewMetricsHandler(metrics *service.MetricsService, checks map[string]ReadinessCheck) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, checks: checks}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Summary godoc
// @Summary Process counters snapshot
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /metrics/summary [get]
func (h *MetricsHandler) Summary(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot())
}

// Health responds OK while the process is serving.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready runs every readiness check and reports 503 if any fails.
func (h *MetricsHandler) Ready(c *gin.Context) {
	results := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(c.Request.Context()); err != nil {
			results[name] = err.Error()
			healthy = false
			continue
		}
		results[name] = "ok"
	}
	if !healthy {
		appErr := appErrors.New("NOT_READY", http.StatusServiceUnavailable, "dependencies unavailable")
		c.JSON(http.StatusServiceUnavailable, response.Envelope{Error: appErr, Meta: map[string]interface{}{"checks": results}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": results})
}
