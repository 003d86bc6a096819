package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sena-nova/nova-api/internal/models"
	"github.com/sena-nova/nova-api/internal/service"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
	"github.com/sena-nova/nova-api/pkg/response"
)

// CohortHandler handles ficha endpoints.
type CohortHandler struct {
	service *service.CohortService
}

// NewCohortHandler creates a new cohort handler.
func NewCohortHandler(svc *service.CohortService) *CohortHandler {
	return &CohortHandler{service: svc}
}

// Create godoc
// @Summary Create cohort
// @Description Register a new ficha
// @Tags Cohorts
// @Accept json
// @Produce json
// @Param payload body models.CreateCohortRequest true "Create payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fichas [post]
func (h *CohortHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateCohortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	cohort, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, cohort)
}

// List godoc
// @Summary List cohorts
// @Description List fichas with pagination and filtering
// @Tags Cohorts
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param programa query string false "Program filter"
// @Param nivel query string false "Level filter"
// @Param modalidad query string false "Modality filter"
// @Param activa query bool false "Active filter"
// @Success 200 {object} response.Envelope
// @Router /fichas [get]
func (h *CohortHandler) List(c *gin.Context) {
	var filter models.CohortFilter
	filter.Page, filter.PageSize = pageParams(c)

	filter.Program = c.Query("programa")
	filter.Level = c.Query("nivel")
	filter.Modality = c.Query("modalidad")
	if active := c.Query("activa"); active != "" {
		if val, err := strconv.ParseBool(active); err == nil {
			filter.Active = &val
		}
	}

	cohorts, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, cohorts, pagination)
}

// ListActive godoc
// @Summary List active cohorts
// @Description List fichas currently marked active
// @Tags Cohorts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fichas/activas [get]
func (h *CohortHandler) ListActive(c *gin.Context) {
	cohorts, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cohorts, nil)
}

// Get godoc
// @Summary Get cohort
// @Description Get ficha detail
// @Tags Cohorts
// @Produce json
// @Param id path string true "Cohort ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fichas/{id} [get]
func (h *CohortHandler) Get(c *gin.Context) {
	cohort, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cohort, nil)
}

// GetByNumber godoc
// @Summary Get cohort by number
// @Description Get ficha detail by its public number
// @Tags Cohorts
// @Produce json
// @Param numero path string true "Cohort number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fichas/numero/{numero} [get]
func (h *CohortHandler) GetByNumber(c *gin.Context) {
	cohort, err := h.service.GetByNumber(c.Request.Context(), c.Param("numero"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cohort, nil)
}

// Update godoc
// @Summary Update cohort
// @Description Patch ficha attributes, the number is immutable
// @Tags Cohorts
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body models.UpdateCohortRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /fichas/{id} [put]
func (h *CohortHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateCohortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	cohort, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, cohort, nil)
}

// AddStudent godoc
// @Summary Enroll student
// @Description Enroll a student into a ficha, enforcing capacity
// @Tags Cohorts
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body models.CohortMemberRequest true "Member payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fichas/{id}/estudiantes [post]
func (h *CohortHandler) AddStudent(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CohortMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	cohort, err := h.service.AddStudent(c.Request.Context(), c.Param("id"), req.UserID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, cohort, nil)
}

// RemoveStudent godoc
// @Summary Withdraw student
// @Description Withdraw a student from a ficha
// @Tags Cohorts
// @Produce json
// @Param id path string true "Cohort ID"
// @Param usuarioId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fichas/{id}/estudiantes/{usuarioId} [delete]
func (h *CohortHandler) RemoveStudent(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	cohort, err := h.service.RemoveStudent(c.Request.Context(), c.Param("id"), c.Param("usuarioId"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, cohort, nil)
}

// AddInstructor godoc
// @Summary Link instructor
// @Description Link an instructor to a ficha
// @Tags Cohorts
// @Accept json
// @Produce json
// @Param id path string true "Cohort ID"
// @Param payload body models.CohortMemberRequest true "Member payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fichas/{id}/instructores [post]
func (h *CohortHandler) AddInstructor(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CohortMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	cohort, err := h.service.AddInstructor(c.Request.Context(), c.Param("id"), req.UserID, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, cohort, nil)
}

// RemoveInstructor godoc
// @Summary Unlink instructor
// @Description Unlink an instructor from a ficha
// @Tags Cohorts
// @Produce json
// @Param id path string true "Cohort ID"
// @Param usuarioId path string true "Instructor ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fichas/{id}/instructores/{usuarioId} [delete]
func (h *CohortHandler) RemoveInstructor(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	cohort, err := h.service.RemoveInstructor(c.Request.Context(), c.Param("id"), c.Param("usuarioId"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, cohort, nil)
}

// Delete godoc
// @Summary Delete cohort
// @Description Remove a ficha without enrolled students
// @Tags Cohorts
// @Produce json
// @Param id path string true "Cohort ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fichas/{id} [delete]
func (h *CohortHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Statistics godoc
// @Summary Cohort statistics
// @Description Aggregate ficha counts
// @Tags Cohorts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fichas/estadisticas [get]
func (h *CohortHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
