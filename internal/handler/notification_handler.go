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

// NotificationHandler handles in-app notification endpoints.
type NotificationHandler struct {
	service *service.NotificationService
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// Create godoc
// @Summary Create notification
// @Description Deliver a notification to one user
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body models.CreateNotificationRequest true "Notification payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /notificaciones [post]
func (h *NotificationHandler) Create(c *gin.Context) {
	var req models.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	notification, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, notification)
}

// SendMass godoc
// @Summary Send mass notification
// @Description Fan a notification out to many users asynchronously
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body models.MassNotificationRequest true "Mass payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /notificaciones/masiva [post]
func (h *NotificationHandler) SendMass(c *gin.Context) {
	var req models.MassNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	queued, err := h.service.SendMass(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusAccepted, gin.H{"destinatarios": queued}, nil)
}

// List godoc
// @Summary List my notifications
// @Description List the authenticated user's notifications
// @Tags Notifications
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param leida query bool false "Read filter"
// @Param tipo query string false "Type filter"
// @Success 200 {object} response.Envelope
// @Router /notificaciones [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.NotificationFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.UserID = claims.UserID
	if read := c.Query("leida"); read != "" {
		if val, err := strconv.ParseBool(read); err == nil {
			filter.Read = &val
		}
	}
	if notifType := c.Query("tipo"); notifType != "" {
		t := models.NotificationType(notifType)
		filter.Type = &t
	}

	notifications, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, notifications, pagination)
}

// ListAll godoc
// @Summary List notifications
// @Description Administrative listing across users
// @Tags Notifications
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param usuario query string false "User filter"
// @Success 200 {object} response.Envelope
// @Router /notificaciones [get]
func (h *NotificationHandler) ListAll(c *gin.Context) {
	var filter models.NotificationFilter
	filter.Page, filter.PageSize = pageParams(c)
	filter.UserID = c.Query("usuario")
	if read := c.Query("leida"); read != "" {
		if val, err := strconv.ParseBool(read); err == nil {
			filter.Read = &val
		}
	}

	notifications, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, notifications, pagination)
}

// ListUnread godoc
// @Summary List unread notifications
// @Description List the authenticated user's unread notifications
// @Tags Notifications
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /notificaciones/no-leidas [get]
func (h *NotificationHandler) ListUnread(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, pageSize := pageParams(c)
	notifications, pagination, err := h.service.ListUnread(c.Request.Context(), claims.UserID, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, notifications, pagination)
}

// ListRecent godoc
// @Summary Recent notifications
// @Description List the authenticated user's notifications from the last 24 hours
// @Tags Notifications
// @Produce json
// @Param limit query int false "Max notifications"
// @Success 200 {object} response.Envelope
// @Router /notificaciones/recientes [get]
func (h *NotificationHandler) ListRecent(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	notifications, err := h.service.ListRecent(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, notifications, nil)
}

// UnreadCount godoc
// @Summary Unread count
// @Description Count the authenticated user's unread notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notificaciones/contador [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, count, nil)
}

// MarkRead godoc
// @Summary Mark notification read
// @Description Mark one of the caller's notifications as read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notificaciones/{id}/leer [patch]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// MarkManyRead godoc
// @Summary Mark notifications read
// @Description Mark a set of the caller's notifications as read
// @Tags Notifications
// @Accept json
// @Produce json
// @Param payload body models.MarkReadRequest true "Notification ids"
// @Success 200 {object} response.Envelope
// @Router /notificaciones/leer [patch]
func (h *NotificationHandler) MarkManyRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	marked, err := h.service.MarkManyRead(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"marcadas": marked}, nil)
}

// MarkAllRead godoc
// @Summary Mark all notifications read
// @Description Mark every unread notification of the caller as read
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notificaciones/leer-todas [patch]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	marked, err := h.service.MarkAllRead(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"marcadas": marked}, nil)
}

// Delete godoc
// @Summary Delete notification
// @Description Remove one of the caller's notifications
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /notificaciones/{id} [delete]
func (h *NotificationHandler) Delete(c *gin.Context) {
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

// Purge godoc
// @Summary Purge read notifications
// @Description Drop read notifications older than the configured retention window
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notificaciones/purgar [post]
func (h *NotificationHandler) Purge(c *gin.Context) {
	purged, err := h.service.Purge(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"eliminadas": purged}, nil)
}
