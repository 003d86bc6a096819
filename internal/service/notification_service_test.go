package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sena-nova/nova-api/internal/models"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
	"github.com/sena-nova/nova-api/pkg/jobs"
)

type mockNotificationRepo struct {
	mu          sync.Mutex
	items       map[string]*models.Notification
	unread      int
	purged      int64
	lastFilter  models.NotificationFilter
	recent      []models.Notification
	recentSince time.Time
	recentLimit int
	purgeCutoff time.Time
	purgeCalls  int
}

func (m *mockNotificationRepo) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.items[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockNotificationRepo) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter
	return nil, 0, nil
}

func (m *mockNotificationRepo) ListRecent(ctx context.Context, userID string, since time.Time, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recentSince = since
	m.recentLimit = limit
	return m.recent, nil
}

func (m *mockNotificationRepo) CountUnread(ctx context.Context, userID string) (int, error) {
	return m.unread, nil
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]*models.Notification)
	}
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	cp := *notification
	m.items[notification.ID] = &cp
	return nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, userID string, readAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.items[id]; ok && n.UserID == userID {
		n.Read = true
		n.ReadAt = &readAt
		return 1, nil
	}
	return 0, nil
}

func (m *mockNotificationRepo) MarkAllRead(ctx context.Context, userID string, readAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var affected int64
	for _, n := range m.items {
		if n.UserID == userID && !n.Read {
			n.Read = true
			affected++
		}
	}
	return affected, nil
}

func (m *mockNotificationRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *mockNotificationRepo) PurgeRead(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeCalls++
	m.purgeCutoff = before
	return m.purged, nil
}

func (m *mockNotificationRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func newNotificationService(repo *mockNotificationRepo) *NotificationService {
	return NewNotificationService(repo, 90*24*time.Hour, validator.New(), zap.NewNop(), jobs.QueueConfig{Workers: 1})
}

func TestNotificationServiceSendMassFansOut(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := newNotificationService(repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Queue().Start(ctx)
	defer svc.Queue().Stop()

	queued, err := svc.SendMass(context.Background(), models.MassNotificationRequest{
		Title:   "Mantenimiento programado",
		Message: "La plataforma estará fuera de línea el sábado",
		Type:    models.NotificationTypeWarning,
		UserIDs: []string{"u1", "u2", "u3"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, queued)

	require.Eventually(t, func() bool {
		return repo.count() == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNotificationServiceSendMassRequiresStartedQueue(t *testing.T) {
	svc := newNotificationService(&mockNotificationRepo{})

	_, err := svc.SendMass(context.Background(), models.MassNotificationRequest{
		Title:   "Mantenimiento programado",
		Message: "La plataforma estará fuera de línea el sábado",
		Type:    models.NotificationTypeWarning,
		UserIDs: []string{"u1"},
	})
	require.Error(t, err)
}

func TestNotificationServiceMarkReadIsOwnerScoped(t *testing.T) {
	repo := &mockNotificationRepo{items: map[string]*models.Notification{
		"n1": {ID: "n1", UserID: "u1", Title: "Hola"},
	}}
	svc := newNotificationService(repo)

	err := svc.MarkRead(context.Background(), "n1", "u2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.MarkRead(context.Background(), "n1", "u1"))
	n, err := repo.FindByID(context.Background(), "n1")
	require.NoError(t, err)
	assert.True(t, n.Read)
}

func TestNotificationServiceMarkManyReadCountsChanges(t *testing.T) {
	repo := &mockNotificationRepo{items: map[string]*models.Notification{
		"n1": {ID: "n1", UserID: "u1"},
		"n2": {ID: "n2", UserID: "u1"},
		"n3": {ID: "n3", UserID: "u2"},
	}}
	svc := newNotificationService(repo)

	marked, err := svc.MarkManyRead(context.Background(), models.MarkReadRequest{IDs: []string{"n1", "n2", "n3"}}, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, marked)
}

func TestNotificationServiceListUnreadFiltersReadState(t *testing.T) {
	repo := &mockNotificationRepo{}
	svc := newNotificationService(repo)

	_, pagination, err := svc.ListUnread(context.Background(), "u1", 1, 20)
	require.NoError(t, err)
	require.NotNil(t, pagination)

	assert.Equal(t, "u1", repo.lastFilter.UserID)
	require.NotNil(t, repo.lastFilter.Read)
	assert.False(t, *repo.lastFilter.Read)
}

func TestNotificationServiceListRecentUsesDayWindow(t *testing.T) {
	repo := &mockNotificationRepo{recent: []models.Notification{
		{ID: "n1", UserID: "u1", Title: "Nueva calificación"},
	}}
	svc := newNotificationService(repo)

	notifications, err := svc.ListRecent(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, notifications, 1)

	assert.Equal(t, 10, repo.recentLimit)
	assert.WithinDuration(t, time.Now().UTC().Add(-24*time.Hour), repo.recentSince, time.Minute)
}

func TestNotificationServicePurgeUsesRetention(t *testing.T) {
	repo := &mockNotificationRepo{purged: 4}
	svc := newNotificationService(repo)

	purged, err := svc.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, purged)
	assert.WithinDuration(t, time.Now().UTC().Add(-90*24*time.Hour), repo.purgeCutoff, time.Minute)
}

func TestNotificationServicePurgeDisabledWithoutRetention(t *testing.T) {
	repo := &mockNotificationRepo{purged: 4}
	svc := NewNotificationService(repo, 0, validator.New(), zap.NewNop(), jobs.QueueConfig{Workers: 1})

	purged, err := svc.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, purged)
	assert.Equal(t, 0, repo.purgeCalls)
}

func TestNotificationServiceDeleteRequiresOwnerOrAdmin(t *testing.T) {
	repo := &mockNotificationRepo{items: map[string]*models.Notification{
		"n1": {ID: "n1", UserID: "u1"},
		"n2": {ID: "n2", UserID: "u1"},
	}}
	svc := newNotificationService(repo)

	err := svc.Delete(context.Background(), "n1", &models.JWTClaims{UserID: "u2", Role: models.RoleStudent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), "n1", &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}))
	require.NoError(t, svc.Delete(context.Background(), "n2", adminClaims()))
}
