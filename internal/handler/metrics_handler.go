package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sena-nova/nova-api/internal/service"
	"github.com/sena-nova/nova-api/pkg/response"
)

// MetricsHandler exposes Prometheus scraping and runtime snapshots.
type MetricsHandler struct {
	service *service.MetricsService
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(svc *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{service: svc}
}

// Prometheus serves the Prometheus exposition endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.service.Handler().ServeHTTP(c.Writer, c.Request)
}

// Snapshot godoc
// @Summary Runtime metrics snapshot
// @Description Aggregated request and cache metrics for the admin dashboard
// @Tags Metrics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /metricas [get]
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Snapshot(), nil)
}
