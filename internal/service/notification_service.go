package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sena-nova/nova-api/internal/models"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
	"github.com/sena-nova/nova-api/pkg/jobs"
)

const massNotificationJobType = "notification.mass"

// recentNotificationWindow bounds how far back ListRecent looks.
const recentNotificationWindow = 24 * time.Hour

type notificationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	ListRecent(ctx context.Context, userID string, since time.Time, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	Create(ctx context.Context, notification *models.Notification) error
	MarkRead(ctx context.Context, id, userID string, readAt time.Time) (int64, error)
	MarkAllRead(ctx context.Context, userID string, readAt time.Time) (int64, error)
	Delete(ctx context.Context, id string) error
	PurgeRead(ctx context.Context, before time.Time) (int64, error)
}

type massNotificationPayload struct {
	Title   string
	Message string
	Type    models.NotificationType
	UserIDs []string
	Link    *string
}

// NotificationService delivers in-app notifications. Mass sends are fanned
// out through a background worker queue so the request returns immediately.
type NotificationService struct {
	repo      notificationRepository
	queue     *jobs.Queue
	retention time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewNotificationService constructs a NotificationService. Call Queue to
// obtain the worker queue that must be started before mass sends. Retention
// bounds how long read notifications are kept when Purge runs.
func NewNotificationService(repo notificationRepository, retention time.Duration, validate *validator.Validate, logger *zap.Logger, cfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	s := &NotificationService{repo: repo, retention: retention, validator: validate, logger: logger}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	s.queue = jobs.NewQueue("notifications", s.handleJob, cfg)
	return s
}

// Queue exposes the background queue for lifecycle management.
func (s *NotificationService) Queue() *jobs.Queue {
	return s.queue
}

// Create delivers a single notification to one user.
func (s *NotificationService) Create(ctx context.Context, req models.CreateNotificationRequest) (*models.Notification, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification payload")
	}

	notification := &models.Notification{
		Title:    req.Title,
		Message:  req.Message,
		Type:     req.Type,
		UserID:   req.UserID,
		Link:     req.Link,
		Metadata: req.Meta,
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notification")
	}
	return notification, nil
}

// SendMass enqueues a fan-out to every listed user. Delivery is best effort
// and happens asynchronously; a failed recipient does not block the rest.
func (s *NotificationService) SendMass(ctx context.Context, req models.MassNotificationRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mass notification payload")
	}

	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: massNotificationJobType,
		Payload: massNotificationPayload{
			Title:   req.Title,
			Message: req.Message,
			Type:    req.Type,
			UserIDs: req.UserIDs,
			Link:    req.Link,
		},
	}

	if err := s.queue.Enqueue(job); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue mass notification")
	}
	return len(req.UserIDs), nil
}

// List returns the caller's notifications.
func (s *NotificationService) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	notifications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return notifications, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ListUnread returns the caller's unread notifications, newest first.
func (s *NotificationService) ListUnread(ctx context.Context, userID string, page, pageSize int) ([]models.Notification, *models.Pagination, error) {
	unread := false
	return s.List(ctx, models.NotificationFilter{UserID: userID, Read: &unread, Page: page, PageSize: pageSize})
}

// ListRecent returns the caller's notifications from the last 24 hours.
func (s *NotificationService) ListRecent(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	since := time.Now().UTC().Add(-recentNotificationWindow)
	notifications, err := s.repo.ListRecent(ctx, userID, since, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list recent notifications")
	}
	return notifications, nil
}

// UnreadCount reports how many unread notifications a user has.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (*models.UnreadCount, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread notifications")
	}
	return &models.UnreadCount{UserID: userID, Count: count}, nil
}

// MarkRead marks one notification as read. Only the owner may do so.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	affected, err := s.repo.MarkRead(ctx, id, userID, time.Now().UTC())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// MarkManyRead marks a set of the caller's notifications as read and returns
// how many actually changed.
func (s *NotificationService) MarkManyRead(ctx context.Context, req models.MarkReadRequest, userID string) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mark read payload")
	}

	now := time.Now().UTC()
	marked := 0
	for _, id := range req.IDs {
		affected, err := s.repo.MarkRead(ctx, id, userID, now)
		if err != nil {
			return marked, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
		}
		marked += int(affected)
	}
	return marked, nil
}

// MarkAllRead marks every unread notification of the user as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	affected, err := s.repo.MarkAllRead(ctx, userID, time.Now().UTC())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return int(affected), nil
}

// Delete removes a notification. Only the owner or an administrator may
// delete it.
func (s *NotificationService) Delete(ctx context.Context, id string, caller *models.JWTClaims) error {
	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
	}

	if err := requireOwnerOrAdmin(caller, notification.UserID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notification")
	}
	return nil
}

// Purge drops read notifications older than the configured retention window.
func (s *NotificationService) Purge(ctx context.Context) (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-s.retention)
	purged, err := s.repo.PurgeRead(ctx, cutoff)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge notifications")
	}
	if purged > 0 {
		s.logger.Info("read notifications purged", zap.Int64("entries", purged), zap.Time("cutoff", cutoff))
	}
	return int(purged), nil
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(massNotificationPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for job %s", job.Payload, job.ID)
	}

	var failed int
	for _, userID := range payload.UserIDs {
		notification := &models.Notification{
			Title:   payload.Title,
			Message: payload.Message,
			Type:    payload.Type,
			UserID:  userID,
			Link:    payload.Link,
		}
		if err := s.repo.Create(ctx, notification); err != nil {
			failed++
			s.logger.Warn("mass notification delivery failed",
				zap.String("job_id", job.ID), zap.String("user_id", userID), zap.Error(err))
		}
	}

	s.logger.Info("mass notification processed",
		zap.String("job_id", job.ID),
		zap.Int("recipients", len(payload.UserIDs)),
		zap.Int("failed", failed))
	return nil
}
