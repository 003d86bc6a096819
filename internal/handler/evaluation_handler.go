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

// EvaluationHandler handles evaluation lifecycle endpoints.
type EvaluationHandler struct {
	service *service.EvaluationService
}

// NewEvaluationHandler creates a new evaluation handler.
func NewEvaluationHandler(svc *service.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{service: svc}
}

// List godoc
// @Summary List evaluations
// @Description List evaluations with pagination and filtering
// @Tags Evaluations
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param estado query string false "State filter"
// @Param tipo query string false "Type filter"
// @Param evaluador query string false "Evaluator filter"
// @Param estudiante query string false "Assigned student filter"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /evaluaciones [get]
func (h *EvaluationHandler) List(c *gin.Context) {
	var filter models.EvaluationFilter
	filter.Page, filter.PageSize = pageParams(c)

	filter.EvaluatorID = c.Query("evaluador")
	filter.StudentID = c.Query("estudiante")
	if state := c.Query("estado"); state != "" {
		s := models.EvaluationState(state)
		filter.State = &s
	}
	if evalType := c.Query("tipo"); evalType != "" {
		t := models.EvaluationType(evalType)
		filter.Type = &t
	}
	if active := c.Query("activa"); active != "" {
		if val, err := strconv.ParseBool(active); err == nil {
			filter.Active = &val
		}
	}
	if after := c.Query("desde"); after != "" {
		if ts, err := time.Parse(time.RFC3339, after); err == nil {
			filter.StartAfter = &ts
		}
	}
	if before := c.Query("hasta"); before != "" {
		if ts, err := time.Parse(time.RFC3339, before); err == nil {
			filter.EndBefore = &ts
		}
	}
	filter.Search = c.Query("search")
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	evaluations, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, evaluations, pagination)
}

// ListActive godoc
// @Summary List active evaluations
// @Description List published evaluations currently inside their window
// @Tags Evaluations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /evaluaciones/activas [get]
func (h *EvaluationHandler) ListActive(c *gin.Context) {
	evaluations, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluations, nil)
}

// ListOverdue godoc
// @Summary List overdue evaluations
// @Description List evaluations past their end date that never finished
// @Tags Evaluations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /evaluaciones/vencidas [get]
func (h *EvaluationHandler) ListOverdue(c *gin.Context) {
	evaluations, err := h.service.ListOverdue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluations, nil)
}

// ListMine godoc
// @Summary List my evaluations
// @Description List evaluations owned by the authenticated evaluator
// @Tags Evaluations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /evaluaciones/mis-evaluaciones [get]
func (h *EvaluationHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.EvaluationFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.EvaluatorID = claims.UserID

	evaluations, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluations, pagination)
}

// ListByStudent godoc
// @Summary List evaluations of a student
// @Description Evaluations where the student is assigned
// @Tags Evaluations
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /evaluaciones/estudiante/{id} [get]
func (h *EvaluationHandler) ListByStudent(c *gin.Context) {
	var filter models.EvaluationFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.StudentID = c.Param("id")

	evaluations, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluations, pagination)
}

// ListByEvaluator godoc
// @Summary List evaluations of an evaluator
// @Description Evaluations owned by one evaluator
// @Tags Evaluations
// @Produce json
// @Param id path string true "Evaluator ID"
// @Success 200 {object} response.Envelope
// @Router /evaluaciones/evaluador/{id} [get]
func (h *EvaluationHandler) ListByEvaluator(c *gin.Context) {
	var filter models.EvaluationFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.EvaluatorID = c.Param("id")

	evaluations, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluations, pagination)
}

// Get godoc
// @Summary Get evaluation
// @Description Get evaluation detail
// @Tags Evaluations
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /evaluaciones/{id} [get]
func (h *EvaluationHandler) Get(c *gin.Context) {
	evaluation, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluation, nil)
}

// Create godoc
// @Summary Create evaluation
// @Description Create a new evaluation in draft state
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param payload body models.CreateEvaluationRequest true "Create payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /evaluaciones [post]
func (h *EvaluationHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	evaluation, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, evaluation)
}

// Update godoc
// @Summary Update evaluation
// @Description Patch evaluation attributes, restricted by its current state
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param id path string true "Evaluation ID"
// @Param payload body models.UpdateEvaluationRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /evaluaciones/{id} [put]
func (h *EvaluationHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	evaluation, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, evaluation, nil)
}

// ChangeState godoc
// @Summary Change evaluation state
// @Description Transition an evaluation along its lifecycle graph
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param id path string true "Evaluation ID"
// @Param payload body models.ChangeEvaluationStateRequest true "Target state"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /evaluaciones/{id}/estado [patch]
func (h *EvaluationHandler) ChangeState(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ChangeEvaluationStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	evaluation, err := h.service.ChangeState(c.Request.Context(), c.Param("id"), req.State, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, evaluation, nil)
}

// AssignStudents godoc
// @Summary Assign students
// @Description Replace the assigned-student set of an evaluation
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param id path string true "Evaluation ID"
// @Param payload body models.AssignStudentsRequest true "Student ids"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /evaluaciones/{id}/estudiantes [put]
func (h *EvaluationHandler) AssignStudents(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.AssignStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	evaluation, err := h.service.AssignStudents(c.Request.Context(), c.Param("id"), req.StudentIDs, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, evaluation, nil)
}

// Delete godoc
// @Summary Delete evaluation
// @Description Delete an evaluation unless it is in progress or finished
// @Tags Evaluations
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /evaluaciones/{id} [delete]
func (h *EvaluationHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Statistics godoc
// @Summary Evaluation statistics
// @Description Aggregate evaluation counts and averages
// @Tags Evaluations
// @Produce json
// @Param evaluador query string false "Scope to one evaluator"
// @Success 200 {object} response.Envelope
// @Router /evaluaciones/estadisticas [get]
func (h *EvaluationHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context(), c.Query("evaluador"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Dashboard godoc
// @Summary Evaluation dashboard
// @Description Cached platform-wide evaluation activity summary
// @Tags Evaluations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /evaluaciones/dashboard [get]
func (h *EvaluationHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}

// EvaluatorMetrics godoc
// @Summary Evaluator metrics
// @Description Per-evaluator workload and completion summary
// @Tags Evaluations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /evaluaciones/dashboard/metricas-evaluador [get]
func (h *EvaluationHandler) EvaluatorMetrics(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	evaluatorID := c.Param("id")
	if evaluatorID == "" {
		evaluatorID = claims.UserID
	}

	metrics, err := h.service.EvaluatorMetrics(c.Request.Context(), evaluatorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, metrics, nil)
}
