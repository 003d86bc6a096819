package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sena-nova/nova-api/internal/models"
	"github.com/sena-nova/nova-api/internal/service"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
	"github.com/sena-nova/nova-api/pkg/response"
)

// ProjectHandler handles project lifecycle endpoints.
type ProjectHandler struct {
	service *service.ProjectService
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(svc *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: svc}
}

// List godoc
// @Summary List projects
// @Description List projects with pagination and filtering
// @Tags Projects
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param estado query string false "State filter"
// @Param creador query string false "Creator filter"
// @Param evaluador query string false "Assigned evaluator filter"
// @Param ficha query string false "Cohort filter"
// @Success 200 {object} response.Envelope
// @Router /proyectos [get]
func (h *ProjectHandler) List(c *gin.Context) {
	var filter models.ProjectFilter
	filter.Page, filter.PageSize = pageParams(c)

	filter.CreatorID = c.Query("creador")
	filter.EvaluatorID = c.Query("evaluador")
	filter.CohortID = c.Query("ficha")
	filter.InstructorID = c.Query("instructor")
	if state := c.Query("estado"); state != "" {
		s := models.ProjectState(state)
		filter.State = &s
	}
	filter.Search = c.Query("search")
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	projects, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, projects, pagination)
}

// ListAvailable godoc
// @Summary List available projects
// @Description Active projects without an assigned evaluator
// @Tags Projects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /proyectos/disponibles [get]
func (h *ProjectHandler) ListAvailable(c *gin.Context) {
	projects, err := h.service.ListAvailable(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, nil)
}

// ListMine godoc
// @Summary List my projects
// @Description Projects created by the authenticated user
// @Tags Projects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /proyectos/mis-proyectos [get]
func (h *ProjectHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.ProjectFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.CreatorID = claims.UserID

	projects, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, pagination)
}

// ListAssigned godoc
// @Summary List assigned projects
// @Description Projects where the authenticated evaluator is assigned
// @Tags Projects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /proyectos/asignados [get]
func (h *ProjectHandler) ListAssigned(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.ProjectFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.EvaluatorID = claims.UserID

	projects, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, pagination)
}

// ListByState godoc
// @Summary List projects by state
// @Description Projects currently in one lifecycle state
// @Tags Projects
// @Produce json
// @Param estado path string true "Project state"
// @Success 200 {object} response.Envelope
// @Router /proyectos/estado/{estado} [get]
func (h *ProjectHandler) ListByState(c *gin.Context) {
	var filter models.ProjectFilter
	filter.Page, filter.PageSize = pageParams(c)
	state := models.ProjectState(c.Param("estado"))
	filter.State = &state

	projects, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, pagination)
}

// Instructors godoc
// @Summary List project instructors
// @Description Instructor references linked to a project
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Router /proyectos/{id}/instructores [get]
func (h *ProjectHandler) Instructors(c *gin.Context) {
	project, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"instructoresIds":     project.InstructorIDs,
		"instructoresNombres": project.InstructorNames,
	}, nil)
}

// Get godoc
// @Summary Get project
// @Description Get project detail
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /proyectos/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project, nil)
}

// Create godoc
// @Summary Create project
// @Description Create a new project in draft state
// @Tags Projects
// @Accept json
// @Produce json
// @Param payload body models.CreateProjectRequest true "Create payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /proyectos [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	project, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, project)
}

// Update godoc
// @Summary Update project
// @Description Patch a draft project
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body models.UpdateProjectRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /proyectos/{id} [put]
func (h *ProjectHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	project, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, project, nil)
}

// ChangeState godoc
// @Summary Change project state
// @Description Transition a project along its lifecycle graph
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body models.ChangeProjectStateRequest true "Target state"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /proyectos/{id}/estado [patch]
func (h *ProjectHandler) ChangeState(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ChangeProjectStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	project, err := h.service.ChangeState(c.Request.Context(), c.Param("id"), req.State, claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, project, nil)
}

// AssignEvaluator godoc
// @Summary Assign evaluator
// @Description Bind an evaluator to a project
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body models.AssignEvaluatorRequest true "Evaluator id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /proyectos/{id}/evaluador [patch]
func (h *ProjectHandler) AssignEvaluator(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.AssignEvaluatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	project, err := h.service.AssignEvaluator(c.Request.Context(), c.Param("id"), req.EvaluatorID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, project, nil)
}

// AddInstructor godoc
// @Summary Add instructor
// @Description Link an instructor reference to a project
// @Tags Projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body models.AddInstructorRequest true "Instructor payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /proyectos/{id}/instructores [post]
func (h *ProjectHandler) AddInstructor(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.AddInstructorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	project, err := h.service.AddInstructor(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, project, nil)
}

// RemoveInstructor godoc
// @Summary Remove instructor
// @Description Unlink an instructor reference from a project
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Param instructorId path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /proyectos/{id}/instructores/{instructorId} [delete]
func (h *ProjectHandler) RemoveInstructor(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	project, err := h.service.RemoveInstructor(c.Request.Context(), c.Param("id"), c.Param("instructorId"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, project, nil)
}

// Delete godoc
// @Summary Delete project
// @Description Delete a project unless it is active or completed
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /proyectos/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
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
// @Summary Project statistics
// @Description Aggregate project counts
// @Tags Projects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /proyectos/estadisticas [get]
func (h *ProjectHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Dashboard godoc
// @Summary Project dashboard
// @Description Platform-wide project activity summary
// @Tags Projects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /proyectos/dashboard [get]
func (h *ProjectHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dashboard, nil)
}
