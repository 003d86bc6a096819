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

// AssignmentRepository handles project assignment persistence.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const assignmentColumns = `id, proyecto_id, evaluador_id, estudiante_id, estado, observaciones, evaluacion_id,
        fecha_completado, created_at, updated_at`

// FindByID returns an assignment by identifier.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM asignaciones WHERE id = $1 LIMIT 1`, assignmentColumns)
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment by id: %w", err)
	}
	return &assignment, nil
}

// List returns assignments matching the filter with total count.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	baseQuery := `FROM asignaciones WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.ProjectID != "" {
		conditions = append(conditions, fmt.Sprintf("proyecto_id = $%d", len(args)+1))
		args = append(args, filter.ProjectID)
	}
	if filter.EvaluatorID != "" {
		conditions = append(conditions, fmt.Sprintf("evaluador_id = $%d", len(args)+1))
		args = append(args, filter.EvaluatorID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("estudiante_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.State != nil {
		conditions = append(conditions, fmt.Sprintf("estado = $%d", len(args)+1))
		args = append(args, *filter.State)
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", assignmentColumns, baseQuery, pageSize, offset)

	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}

	return assignments, total, nil
}

// Create inserts a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	assignment.UpdatedAt = now

	const query = `INSERT INTO asignaciones (id, proyecto_id, evaluador_id, estudiante_id, estado, observaciones,
        evaluacion_id, fecha_completado, created_at, updated_at)
        VALUES (:id, :proyecto_id, :evaluador_id, :estudiante_id, :estado, :observaciones, :evaluacion_id,
        :fecha_completado, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Update persists mutable assignment fields.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE asignaciones SET estado = :estado, observaciones = :observaciones,
        evaluacion_id = :evaluacion_id, fecha_completado = :fecha_completado, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM asignaciones WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}
