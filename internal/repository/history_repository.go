package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sena-nova/nova-api/internal/models"
)

// HistoryRepository handles append-only activity records.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

const historyColumns = `id, accion, descripcion, usuario_id, proyecto_id, evaluacion_id, metadatos, fecha_accion`

// Create appends a history entry.
func (r *HistoryRepository) Create(ctx context.Context, entry *models.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	const query = `INSERT INTO historial (id, accion, descripcion, usuario_id, proyecto_id, evaluacion_id, metadatos, fecha_accion)
        VALUES (:id, :accion, :descripcion, :usuario_id, :proyecto_id, :evaluacion_id, :metadatos, :fecha_accion)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create history entry: %w", err)
	}
	return nil
}

// List returns history entries matching the filter with total count.
func (r *HistoryRepository) List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, int, error) {
	baseQuery := `FROM historial WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("usuario_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.ProjectID != "" {
		conditions = append(conditions, fmt.Sprintf("proyecto_id = $%d", len(args)+1))
		args = append(args, filter.ProjectID)
	}
	if filter.EvaluationID != "" {
		conditions = append(conditions, fmt.Sprintf("evaluacion_id = $%d", len(args)+1))
		args = append(args, filter.EvaluationID)
	}
	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("accion = $%d", len(args)+1))
		args = append(args, filter.Action)
	}
	if filter.Since != nil {
		conditions = append(conditions, fmt.Sprintf("fecha_accion >= $%d", len(args)+1))
		args = append(args, *filter.Since)
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY fecha_accion DESC LIMIT %d OFFSET %d", historyColumns, baseQuery, pageSize, offset)

	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	return entries, total, nil
}

// ListRecent returns the most recent entries across all users.
func (r *HistoryRepository) ListRecent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM historial ORDER BY fecha_accion DESC LIMIT %d`, historyColumns, limit)
	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list recent history: %w", err)
	}
	return entries, nil
}

// Statistics aggregates activity counts by action and user.
func (r *HistoryRepository) Statistics(ctx context.Context) (*models.HistoryStatistics, error) {
	stats := &models.HistoryStatistics{
		ByAction: make(map[string]int),
		ByUser:   make(map[string]int),
	}

	const query = `SELECT accion, usuario_id, COUNT(*) AS total FROM historial GROUP BY accion, usuario_id`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("history statistics: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var action, userID string
		var total int
		if err := rows.Scan(&action, &userID, &total); err != nil {
			return nil, fmt.Errorf("scan history count: %w", err)
		}
		stats.ByAction[action] += total
		stats.ByUser[userID] += total
		stats.Total += total
	}
	return stats, rows.Err()
}

// PurgeOlderThan removes entries before the cutoff, honoring retention.
func (r *HistoryRepository) PurgeOlderThan(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM historial WHERE fecha_accion < $1`
	res, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("purge history: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge history rows: %w", err)
	}
	return affected, nil
}
