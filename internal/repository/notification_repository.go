package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sena-nova/nova-api/internal/models"
)

// NotificationRepository handles notification persistence.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = `id, titulo, mensaje, tipo, usuario_id, leida, enlace, metadatos, fecha_creacion, fecha_leida`

// FindByID returns a notification by identifier.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	query := fmt.Sprintf(`SELECT %s FROM notificaciones WHERE id = $1 LIMIT 1`, notificationColumns)
	var notification models.Notification
	if err := r.db.GetContext(ctx, &notification, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find notification by id: %w", err)
	}
	return &notification, nil
}

// List returns notifications matching the filter with total count.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	baseQuery := `FROM notificaciones WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("usuario_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("tipo = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.Read != nil {
		conditions = append(conditions, fmt.Sprintf("leida = $%d", len(args)+1))
		args = append(args, *filter.Read)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY fecha_creacion DESC LIMIT %d OFFSET %d", notificationColumns, baseQuery, pageSize, offset)

	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	return notifications, total, nil
}

// ListRecent returns a user's notifications created since the cutoff, newest
// first.
func (r *NotificationRepository) ListRecent(ctx context.Context, userID string, since time.Time, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT %s FROM notificaciones WHERE usuario_id = $1 AND fecha_creacion >= $2 ORDER BY fecha_creacion DESC LIMIT %d`, notificationColumns, limit)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, userID, since); err != nil {
		return nil, fmt.Errorf("list recent notifications: %w", err)
	}
	return notifications, nil
}

// CountUnread returns the number of unread notifications for a user.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM notificaciones WHERE usuario_id = $1 AND leida = FALSE`
	var total int
	if err := r.db.GetContext(ctx, &total, query, userID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return total, nil
}

// Create inserts a new notification.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notificaciones (id, titulo, mensaje, tipo, usuario_id, leida, enlace, metadatos, fecha_creacion, fecha_leida)
        VALUES (:id, :titulo, :mensaje, :tipo, :usuario_id, :leida, :enlace, :metadatos, :fecha_creacion, :fecha_leida)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// MarkRead marks one notification read, scoped to its owner.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string, readAt time.Time) (int64, error) {
	const query = `UPDATE notificaciones SET leida = TRUE, fecha_leida = $3 WHERE id = $1 AND usuario_id = $2 AND leida = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, userID, readAt)
	if err != nil {
		return 0, fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark notification read rows: %w", err)
	}
	return affected, nil
}

// MarkAllRead marks every unread notification of a user read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string, readAt time.Time) (int64, error) {
	const query = `UPDATE notificaciones SET leida = TRUE, fecha_leida = $2 WHERE usuario_id = $1 AND leida = FALSE`
	res, err := r.db.ExecContext(ctx, query, userID, readAt)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all read rows: %w", err)
	}
	return affected, nil
}

// Delete removes a notification.
func (r *NotificationRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM notificaciones WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

// PurgeRead removes read notifications older than the cutoff.
func (r *NotificationRepository) PurgeRead(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM notificaciones WHERE leida = TRUE AND fecha_creacion < $1`
	res, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("purge read notifications: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge read rows: %w", err)
	}
	return affected, nil
}
