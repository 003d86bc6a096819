package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sena-nova/nova-api/internal/models"
	"github.com/sena-nova/nova-api/internal/service"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
	"github.com/sena-nova/nova-api/pkg/response"
)

// AssignmentHandler handles project assignment endpoints.
type AssignmentHandler struct {
	service *service.AssignmentService
}

// NewAssignmentHandler creates a new assignment handler.
func NewAssignmentHandler(svc *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// Create godoc
// @Summary Create assignment
// @Description Bind a project to one evaluator and one student
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body models.CreateAssignmentRequest true "Create payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /asignaciones [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	assignment, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, assignment)
}

// List godoc
// @Summary List assignments
// @Description List assignments with pagination and filtering
// @Tags Assignments
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param proyecto query string false "Project filter"
// @Param evaluador query string false "Evaluator filter"
// @Param estudiante query string false "Student filter"
// @Param estado query string false "State filter"
// @Success 200 {object} response.Envelope
// @Router /asignaciones [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	var filter models.AssignmentFilter
	filter.Page, filter.PageSize = pageParams(c)

	filter.ProjectID = c.Query("proyecto")
	filter.EvaluatorID = c.Query("evaluador")
	filter.StudentID = c.Query("estudiante")
	if state := c.Query("estado"); state != "" {
		s := models.AssignmentState(state)
		filter.State = &s
	}

	assignments, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignments, pagination)
}

// ListMineEvaluator godoc
// @Summary My assignments as evaluator
// @Description Assignments bound to the authenticated evaluator
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /asignaciones/mis-asignaciones [get]
func (h *AssignmentHandler) ListMineEvaluator(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	h.listWith(c, models.AssignmentFilter{EvaluatorID: claims.UserID})
}

// ListMineStudent godoc
// @Summary My assignments as student
// @Description Assignments bound to the authenticated student
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /asignaciones/estudiante/mis-asignaciones [get]
func (h *AssignmentHandler) ListMineStudent(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	h.listWith(c, models.AssignmentFilter{StudentID: claims.UserID})
}

// ListByEvaluator godoc
// @Summary Assignments of an evaluator
// @Tags Assignments
// @Produce json
// @Param id path string true "Evaluator ID"
// @Success 200 {object} response.Envelope
// @Router /asignaciones/evaluador/{id} [get]
func (h *AssignmentHandler) ListByEvaluator(c *gin.Context) {
	h.listWith(c, models.AssignmentFilter{EvaluatorID: c.Param("id")})
}

// ListByStudent godoc
// @Summary Assignments of a student
// @Tags Assignments
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /asignaciones/estudiante/{id} [get]
func (h *AssignmentHandler) ListByStudent(c *gin.Context) {
	h.listWith(c, models.AssignmentFilter{StudentID: c.Param("id")})
}

// ListByProject godoc
// @Summary Assignments of a project
// @Tags Assignments
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /asignaciones/proyecto/{id} [get]
func (h *AssignmentHandler) ListByProject(c *gin.Context) {
	h.listWith(c, models.AssignmentFilter{ProjectID: c.Param("id")})
}

func (h *AssignmentHandler) listWith(c *gin.Context, filter models.AssignmentFilter) {
	filter.Page, filter.PageSize = pageParams(c)

	assignments, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, pagination)
}

// Get godoc
// @Summary Get assignment
// @Description Get assignment detail with project and participants expanded
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /asignaciones/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	assignment, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Update godoc
// @Summary Update assignment
// @Description Patch assignment state or observations
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body models.UpdateAssignmentRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /asignaciones/{id} [put]
func (h *AssignmentHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	assignment, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignment, nil)
}

// Complete godoc
// @Summary Complete assignment
// @Description Mark an assignment completed with an optional evaluation link
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body models.CompleteAssignmentRequest true "Completion payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /asignaciones/{id}/completar [patch]
func (h *AssignmentHandler) Complete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CompleteAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	assignment, err := h.service.Complete(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, assignment, nil)
}

// Delete godoc
// @Summary Delete assignment
// @Description Remove an assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 204 {object} response.Envelope
// @Router /asignaciones/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
