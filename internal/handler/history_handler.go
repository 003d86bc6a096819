package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sena-nova/nova-api/internal/models"
	"github.com/sena-nova/nova-api/internal/service"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
	"github.com/sena-nova/nova-api/pkg/response"
)

// HistoryHandler handles activity log endpoints.
type HistoryHandler struct {
	service *service.HistoryService
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(svc *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{service: svc}
}

// List godoc
// @Summary List history
// @Description List activity entries, non-administrators only see their own
// @Tags History
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param usuario query string false "User filter"
// @Param proyecto query string false "Project filter"
// @Param evaluacion query string false "Evaluation filter"
// @Param accion query string false "Action filter"
// @Success 200 {object} response.Envelope
// @Router /historial [get]
func (h *HistoryHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.HistoryFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.UserID = c.Query("usuario")
	filter.ProjectID = c.Query("proyecto")
	filter.EvaluationID = c.Query("evaluacion")
	filter.Action = c.Query("accion")
	if since := c.Query("desde"); since != "" {
		if ts, err := time.Parse(time.RFC3339, since); err == nil {
			filter.Since = &ts
		}
	}

	entries, pagination, err := h.service.List(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, pagination)
}

// ListMine godoc
// @Summary My activity
// @Description List the caller's own activity entries
// @Tags History
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /historial/mio [get]
func (h *HistoryHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, pageSize := pageParams(c)
	entries, pagination, err := h.service.ListMine(c.Request.Context(), claims.UserID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, pagination)
}

// ListByUser godoc
// @Summary Activity of a user
// @Tags History
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /historial/usuario/{id} [get]
func (h *HistoryHandler) ListByUser(c *gin.Context) {
	h.listWith(c, models.HistoryFilter{UserID: c.Param("id")})
}

// ListByProject godoc
// @Summary Activity of a project
// @Tags History
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /historial/proyecto/{id} [get]
func (h *HistoryHandler) ListByProject(c *gin.Context) {
	h.listWith(c, models.HistoryFilter{ProjectID: c.Param("id")})
}

// ListByEvaluation godoc
// @Summary Activity of an evaluation
// @Tags History
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 200 {object} response.Envelope
// @Router /historial/evaluacion/{id} [get]
func (h *HistoryHandler) ListByEvaluation(c *gin.Context) {
	h.listWith(c, models.HistoryFilter{EvaluationID: c.Param("id")})
}

func (h *HistoryHandler) listWith(c *gin.Context, filter models.HistoryFilter) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter.Page, filter.PageSize = pageParams(c)

	entries, pagination, err := h.service.List(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// ListRecent godoc
// @Summary Recent activity
// @Description Latest platform-wide activity entries
// @Tags History
// @Produce json
// @Param limit query int false "Max entries"
// @Success 200 {object} response.Envelope
// @Router /historial/reciente [get]
func (h *HistoryHandler) ListRecent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	entries, err := h.service.ListRecent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Statistics godoc
// @Summary History statistics
// @Description Aggregate activity counts by action and user
// @Tags History
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /historial/estadisticas [get]
func (h *HistoryHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Purge godoc
// @Summary Purge old history
// @Description Drop entries older than the configured retention window
// @Tags History
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /historial/purgar [post]
func (h *HistoryHandler) Purge(c *gin.Context) {
	purged, err := h.service.Purge(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"eliminadas": purged}, nil)
}
