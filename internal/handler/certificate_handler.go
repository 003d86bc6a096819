package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sena-nova/nova-api/internal/models"
	"github.com/sena-nova/nova-api/internal/service"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
	"github.com/sena-nova/nova-api/pkg/response"
)

// CertificateHandler handles certificate endpoints.
type CertificateHandler struct {
	service *service.CertificateService
}

// NewCertificateHandler creates a new certificate handler.
func NewCertificateHandler(svc *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{service: svc}
}

// Issue godoc
// @Summary Issue certificate
// @Description Issue a certificate for a student and an evaluation
// @Tags Certificates
// @Accept json
// @Produce json
// @Param payload body models.IssueCertificateRequest true "Issue payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /certificados [post]
func (h *CertificateHandler) Issue(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.IssueCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	cert, err := h.service.Issue(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, cert)
}

// List godoc
// @Summary List certificates
// @Description List certificates with pagination and filtering
// @Tags Certificates
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param estudiante query string false "Student filter"
// @Param evaluacion query string false "Evaluation filter"
// @Param estado query string false "State filter"
// @Success 200 {object} response.Envelope
// @Router /certificados [get]
func (h *CertificateHandler) List(c *gin.Context) {
	var filter models.CertificateFilter
	filter.Page, filter.PageSize = pageParams(c)

	filter.StudentID = c.Query("estudiante")
	filter.EvaluationID = c.Query("evaluacion")
	if state := c.Query("estado"); state != "" {
		s := models.CertificateState(state)
		filter.State = &s
	}

	certs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, certs, pagination)
}

// ListMine godoc
// @Summary My certificates
// @Description Certificates issued to the authenticated student
// @Tags Certificates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /certificados/mis-certificados [get]
func (h *CertificateHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	h.listWith(c, models.CertificateFilter{StudentID: claims.UserID})
}

// ListByStudent godoc
// @Summary Certificates of a student
// @Tags Certificates
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /certificados/estudiante/{id} [get]
func (h *CertificateHandler) ListByStudent(c *gin.Context) {
	h.listWith(c, models.CertificateFilter{StudentID: c.Param("id")})
}

// ListByEvaluation godoc
// @Summary Certificates of an evaluation
// @Tags Certificates
// @Produce json
// @Param id path string true "Evaluation ID"
// @Success 200 {object} response.Envelope
// @Router /certificados/evaluacion/{id} [get]
func (h *CertificateHandler) ListByEvaluation(c *gin.Context) {
	h.listWith(c, models.CertificateFilter{EvaluationID: c.Param("id")})
}

func (h *CertificateHandler) listWith(c *gin.Context, filter models.CertificateFilter) {
	filter.Page, filter.PageSize = pageParams(c)

	certs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, certs, pagination)
}

// Get godoc
// @Summary Get certificate
// @Description Get certificate detail
// @Tags Certificates
// @Produce json
// @Param id path string true "Certificate ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificados/{id} [get]
func (h *CertificateHandler) Get(c *gin.Context) {
	cert, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cert, nil)
}

// Update godoc
// @Summary Update certificate
// @Description Patch certificate metadata, the number is immutable
// @Tags Certificates
// @Accept json
// @Produce json
// @Param id path string true "Certificate ID"
// @Param payload body models.UpdateCertificateRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /certificados/{id} [put]
func (h *CertificateHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	cert, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, cert, nil)
}

// ChangeState godoc
// @Summary Change certificate state
// @Description Move a certificate between states
// @Tags Certificates
// @Accept json
// @Produce json
// @Param id path string true "Certificate ID"
// @Param payload body models.ChangeCertificateStateRequest true "Target state"
// @Success 200 {object} response.Envelope
// @Router /certificados/{id}/estado [patch]
func (h *CertificateHandler) ChangeState(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ChangeCertificateStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	cert, err := h.service.ChangeState(c.Request.Context(), c.Param("id"), req.State, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, cert, nil)
}

// Verify godoc
// @Summary Verify certificate
// @Description Public lookup of a certificate by its number. Authenticated callers receive the full record.
// @Tags Certificates
// @Accept json
// @Produce json
// @Param payload body models.VerifyCertificateRequest true "Certificate number"
// @Success 200 {object} response.Envelope
// @Router /certificados/verificar [post]
func (h *CertificateHandler) Verify(c *gin.Context) {
	var req models.VerifyCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "certificate number required"))
		return
	}

	verification, err := h.service.Verify(c.Request.Context(), req.Number)
	if err != nil {
		response.Error(c, err)
		return
	}

	// Anonymous callers only learn the verdict, not the record.
	if claimsFromContext(c) == nil {
		verification.Certificate = nil
	}

	response.JSON(c, http.StatusOK, verification, nil)
}

// Download godoc
// @Summary Download certificate PDF
// @Description Render a certificate as a printable PDF
// @Tags Certificates
// @Produce application/pdf
// @Param id path string true "Certificate ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /certificados/{id}/pdf [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	out, err := h.service.Render(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=certificado-%s.pdf", c.Param("id")))
	c.Data(http.StatusOK, "application/pdf", out)
}

// Delete godoc
// @Summary Delete certificate
// @Description Remove a certificate
// @Tags Certificates
// @Produce json
// @Param id path string true "Certificate ID"
// @Success 204 {object} response.Envelope
// @Router /certificados/{id} [delete]
func (h *CertificateHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Statistics godoc
// @Summary Certificate statistics
// @Description Aggregate certificate counts by state
// @Tags Certificates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /certificados/estadisticas [get]
func (h *CertificateHandler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
