package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sena-nova/nova-api/internal/models"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
)

type historyRepository interface {
	Create(ctx context.Context, entry *models.HistoryEntry) error
	List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, int, error)
	ListRecent(ctx context.Context, limit int) ([]models.HistoryEntry, error)
	Statistics(ctx context.Context) (*models.HistoryStatistics, error)
	PurgeOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// HistoryService exposes the platform activity log.
type HistoryService struct {
	repo      historyRepository
	retention time.Duration
	logger    *zap.Logger
}

// NewHistoryService constructs a HistoryService. Retention bounds how far
// back entries are kept when Purge runs.
func NewHistoryService(repo historyRepository, retention time.Duration, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryService{repo: repo, retention: retention, logger: logger}
}

// Create appends an activity entry.
func (s *HistoryService) Create(ctx context.Context, entry *models.HistoryEntry) error {
	if err := s.repo.Create(ctx, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record history entry")
	}
	return nil
}

// List returns entries matching the filter. Non-administrators only see
// their own activity.
func (s *HistoryService) List(ctx context.Context, filter models.HistoryFilter, caller *models.JWTClaims) ([]models.HistoryEntry, *models.Pagination, error) {
	if caller != nil && caller.Role != models.RoleAdministrator {
		filter.UserID = caller.UserID
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list history")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return entries, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ListMine returns the caller's own activity.
func (s *HistoryService) ListMine(ctx context.Context, userID string, page, pageSize int) ([]models.HistoryEntry, *models.Pagination, error) {
	filter := models.HistoryFilter{UserID: userID, Page: page, PageSize: pageSize}
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list history")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return entries, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ListRecent returns the latest platform-wide entries.
func (s *HistoryService) ListRecent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	entries, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recent history")
	}
	return entries, nil
}

// Statistics aggregates activity counts by action and user.
func (s *HistoryService) Statistics(ctx context.Context) (*models.HistoryStatistics, error) {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate history")
	}
	return stats, nil
}

// Purge drops entries older than the configured retention window.
func (s *HistoryService) Purge(ctx context.Context) (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-s.retention)
	purged, err := s.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge history")
	}
	if purged > 0 {
		s.logger.Info("history purged", zap.Int64("entries", purged), zap.Time("cutoff", cutoff))
	}
	return int(purged), nil
}
