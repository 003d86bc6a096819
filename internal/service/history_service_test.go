package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sena-nova/nova-api/internal/models"
)

type mockHistoryRepo struct {
	entries    []models.HistoryEntry
	lastFilter models.HistoryFilter
	lastLimit  int
	purgeCut   time.Time
	purged     int64
}

func (m *mockHistoryRepo) Create(ctx context.Context, entry *models.HistoryEntry) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockHistoryRepo) List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, int, error) {
	m.lastFilter = filter
	return m.entries, len(m.entries), nil
}

func (m *mockHistoryRepo) ListRecent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	m.lastLimit = limit
	return m.entries, nil
}

func (m *mockHistoryRepo) Statistics(ctx context.Context) (*models.HistoryStatistics, error) {
	return &models.HistoryStatistics{Total: len(m.entries)}, nil
}

func (m *mockHistoryRepo) PurgeOlderThan(ctx context.Context, before time.Time) (int64, error) {
	m.purgeCut = before
	return m.purged, nil
}

func TestHistoryServiceListScopesNonAdmins(t *testing.T) {
	repo := &mockHistoryRepo{}
	svc := NewHistoryService(repo, 0, zap.NewNop())

	_, _, err := svc.List(context.Background(), models.HistoryFilter{UserID: "someone-else"}, evaluatorClaims("ev-1"))
	require.NoError(t, err)
	assert.Equal(t, "ev-1", repo.lastFilter.UserID)

	_, _, err = svc.List(context.Background(), models.HistoryFilter{UserID: "someone-else"}, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "someone-else", repo.lastFilter.UserID)
}

func TestHistoryServiceListRecentClampsLimit(t *testing.T) {
	repo := &mockHistoryRepo{}
	svc := NewHistoryService(repo, 0, zap.NewNop())

	_, err := svc.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 20, repo.lastLimit)

	_, err = svc.ListRecent(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, 20, repo.lastLimit)

	_, err = svc.ListRecent(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastLimit)
}

func TestHistoryServicePurgeUsesRetention(t *testing.T) {
	repo := &mockHistoryRepo{purged: 7}
	svc := NewHistoryService(repo, 30*24*time.Hour, zap.NewNop())

	purged, err := svc.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, purged)
	assert.WithinDuration(t, time.Now().UTC().Add(-30*24*time.Hour), repo.purgeCut, time.Minute)
}

func TestHistoryServicePurgeDisabledWithoutRetention(t *testing.T) {
	repo := &mockHistoryRepo{purged: 7}
	svc := NewHistoryService(repo, 0, zap.NewNop())

	purged, err := svc.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, purged)
	assert.True(t, repo.purgeCut.IsZero())
}
