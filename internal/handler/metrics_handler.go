package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduplat/timetable-api/internal/service"
	"github.com/eduplat/timetable-api/pkg/response"
)

// MetricsHandler serves the admin metrics snapshot. The raw Prometheus
// endpoint is mounted separately via service.MetricsService.Handler.
type MetricsHandler struct {
	metrics *service.MetricsService
}

// NewMetricsHandler constructs the handler.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Snapshot godoc
// @Summary Engine activity snapshot
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/metrics [get]
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
