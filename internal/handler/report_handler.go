package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sena-nova/nova-api/internal/service"
	"github.com/sena-nova/nova-api/pkg/response"
)

// ReportHandler handles cross-resource report endpoints.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new report handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// General godoc
// @Summary General report
// @Description Platform-wide totals across users, projects and evaluations
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reportes/general [get]
func (h *ReportHandler) General(c *gin.Context) {
	report, err := h.service.General(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Evaluations godoc
// @Summary Evaluations report
// @Description Evaluation counts per lifecycle state
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reportes/evaluaciones [get]
func (h *ReportHandler) Evaluations(c *gin.Context) {
	report, err := h.service.Evaluations(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ExportGeneral godoc
// @Summary Export general report
// @Description Download the general report as CSV or PDF
// @Tags Reports
// @Produce text/csv
// @Param formato query string false "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Router /reportes/general/exportar [get]
func (h *ReportHandler) ExportGeneral(c *gin.Context) {
	format := service.ReportFormat(c.DefaultQuery("formato", "csv"))

	out, contentType, err := h.service.ExportGeneral(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=reporte-general.%s", format))
	c.Data(http.StatusOK, contentType, out)
}

// ExportEvaluations godoc
// @Summary Export evaluations report
// @Description Download the evaluations report as CSV or PDF
// @Tags Reports
// @Produce text/csv
// @Param formato query string false "Export format (csv or pdf)"
// @Success 200 {file} binary
// @Router /reportes/evaluaciones/exportar [get]
func (h *ReportHandler) ExportEvaluations(c *gin.Context) {
	format := service.ReportFormat(c.DefaultQuery("formato", "csv"))

	out, contentType, err := h.service.ExportEvaluations(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=reporte-evaluaciones.%s", format))
	c.Data(http.StatusOK, contentType, out)
}
