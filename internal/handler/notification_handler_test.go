package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sena-nova/nova-api/internal/middleware"
	"github.com/sena-nova/nova-api/internal/models"
	"github.com/sena-nova/nova-api/internal/service"
	"github.com/sena-nova/nova-api/pkg/jobs"
)

type notificationRepoStub struct {
	lastFilter models.NotificationFilter
	recent     []models.Notification
	purged     int64
}

func (s *notificationRepoStub) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	return nil, sql.ErrNoRows
}

func (s *notificationRepoStub) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	s.lastFilter = filter
	return []models.Notification{{ID: "n1", UserID: filter.UserID, Title: "Nueva evaluación"}}, 1, nil
}

func (s *notificationRepoStub) ListRecent(ctx context.Context, userID string, since time.Time, limit int) ([]models.Notification, error) {
	return s.recent, nil
}

func (s *notificationRepoStub) CountUnread(ctx context.Context, userID string) (int, error) {
	return 0, nil
}

func (s *notificationRepoStub) Create(ctx context.Context, notification *models.Notification) error {
	return nil
}

func (s *notificationRepoStub) MarkRead(ctx context.Context, id, userID string, readAt time.Time) (int64, error) {
	return 0, nil
}

func (s *notificationRepoStub) MarkAllRead(ctx context.Context, userID string, readAt time.Time) (int64, error) {
	return 0, nil
}

func (s *notificationRepoStub) Delete(ctx context.Context, id string) error {
	return nil
}

func (s *notificationRepoStub) PurgeRead(ctx context.Context, before time.Time) (int64, error) {
	return s.purged, nil
}

func newNotificationHandler(stub *notificationRepoStub) *NotificationHandler {
	svc := service.NewNotificationService(stub, 90*24*time.Hour, validator.New(), zap.NewNop(), jobs.QueueConfig{Workers: 1})
	return NewNotificationHandler(svc)
}

func TestNotificationHandlerListUnreadReturnsUnreadList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &notificationRepoStub{}
	handler := newNotificationHandler(stub)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/notificaciones/no-leidas", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent})

	handler.ListUnread(c)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "u1", stub.lastFilter.UserID)
	require.NotNil(t, stub.lastFilter.Read)
	assert.False(t, *stub.lastFilter.Read)
}

func TestNotificationHandlerListUnreadRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newNotificationHandler(&notificationRepoStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/notificaciones/no-leidas", nil)
	c.Request = req

	handler.ListUnread(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNotificationHandlerListRecent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &notificationRepoStub{recent: []models.Notification{
		{ID: "n1", UserID: "u1", Title: "Calificación publicada"},
	}}
	handler := newNotificationHandler(stub)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/notificaciones/recientes", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent})

	handler.ListRecent(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Calificación publicada")
}

func TestNotificationHandlerPurgeReportsCount(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newNotificationHandler(&notificationRepoStub{purged: 3})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/notificaciones/purgar", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdministrator})

	handler.Purge(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"eliminadas":3`)
}
