package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sena-nova/nova-api/internal/models"
	"github.com/sena-nova/nova-api/internal/service"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
	"github.com/sena-nova/nova-api/pkg/response"
)

// GradeHandler handles per-criterion grade endpoints.
type GradeHandler struct {
	service *service.GradeService
}

// NewGradeHandler creates a new grade handler.
func NewGradeHandler(svc *service.GradeService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// Record godoc
// @Summary Record grade
// @Description Record one criterion score for an evaluation
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body models.RecordGradeRequest true "Grade payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /calificaciones [post]
func (h *GradeHandler) Record(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.RecordGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	grade, err := h.service.Record(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, grade)
}

// BulkRecord godoc
// @Summary Record grades in bulk
// @Description Record many criterion scores, each entry succeeds or fails independently
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body models.BulkGradeRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /calificaciones/masivo [post]
func (h *GradeHandler) BulkRecord(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.BulkGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.service.BulkRecord(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List grades
// @Description List grades with pagination and filtering
// @Tags Grades
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param evaluacion query string false "Evaluation filter"
// @Success 200 {object} response.Envelope
// @Router /calificaciones [get]
func (h *GradeHandler) List(c *gin.Context) {
	var filter models.GradeFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.EvaluationID = c.Query("evaluacion")
	filter.GradedByID = c.Query("calificador")

	grades, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, grades, pagination)
}

// ListMine godoc
// @Summary List my recorded grades
// @Description Grades recorded by the authenticated grader
// @Tags Grades
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calificaciones/mis-calificaciones [get]
func (h *GradeHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.GradeFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.GradedByID = claims.UserID

	grades, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, pagination)
}

// Get godoc
// @Summary Get grade
// @Description Get grade detail
// @Tags Grades
// @Produce json
// @Param id path string true "Grade ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /calificaciones/{id} [get]
func (h *GradeHandler) Get(c *gin.Context) {
	grade, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// ListByEvaluation godoc
// @Summary List grades of an evaluation
// @Description All recorded criterion scores for one evaluation
// @Tags Grades
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 200 {object} response.Envelope
// @Router /calificaciones/evaluacion/{id} [get]
func (h *GradeHandler) ListByEvaluation(c *gin.Context) {
	grades, err := h.service.ListByEvaluation(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// Average godoc
// @Summary Evaluation average
// @Description Normalized percentage average of all grades for one evaluation
// @Tags Grades
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 200 {object} response.Envelope
// @Router /calificaciones/evaluacion/{id}/promedio [get]
func (h *GradeHandler) Average(c *gin.Context) {
	average, err := h.service.Average(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, average, nil)
}

// Statistics godoc
// @Summary Evaluation grade statistics
// @Description Aggregate score sums and percentage for one evaluation
// @Tags Grades
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 200 {object} response.Envelope
// @Router /calificaciones/evaluacion/{id}/estadisticas [get]
func (h *GradeHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Update godoc
// @Summary Update grade
// @Description Patch a recorded grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Grade ID"
// @Param payload body models.UpdateGradeRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /calificaciones/{id} [put]
func (h *GradeHandler) Update(c *gin.Context) {
	var req models.UpdateGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	grade, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, grade, nil)
}

// Delete godoc
// @Summary Delete grade
// @Description Remove one recorded grade
// @Tags Grades
// @Produce json
// @Param id path string true "Grade ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /calificaciones/{id} [delete]
func (h *GradeHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// DeleteByEvaluation godoc
// @Summary Delete evaluation grades
// @Description Remove every grade recorded for one evaluation
// @Tags Grades
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 200 {object} response.Envelope
// @Router /calificaciones/evaluacion/{id} [delete]
func (h *GradeHandler) DeleteByEvaluation(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	deleted, err := h.service.DeleteByEvaluation(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"eliminadas": deleted}, nil)
}
