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

// ProjectRepository handles project persistence.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, nombre, descripcion, instructores_ids, instructores_nombres, fecha_entrega, formato,
        estado, creador_id, evaluador_asignado_id, ficha_id, evaluaciones_ids, created_at, updated_at`

// FindByID returns a project by identifier.
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM proyectos WHERE id = $1 LIMIT 1`, projectColumns)
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find project by id: %w", err)
	}
	return &project, nil
}

// FindByIDs returns projects keyed by identifier for read-side fan-out.
func (r *ProjectRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Project, error) {
	if len(ids) == 0 {
		return map[string]models.Project{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s FROM proyectos WHERE id IN (%s)`, projectColumns, strings.Join(placeholders, ","))
	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, fmt.Errorf("find projects by ids: %w", err)
	}
	result := make(map[string]models.Project, len(projects))
	for _, p := range projects {
		result[p.ID] = p
	}
	return result, nil
}

// List returns projects matching the filter with total count.
func (r *ProjectRepository) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error) {
	baseQuery := `FROM proyectos WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.CreatorID != "" {
		conditions = append(conditions, fmt.Sprintf("creador_id = $%d", len(args)+1))
		args = append(args, filter.CreatorID)
	}
	if filter.EvaluatorID != "" {
		conditions = append(conditions, fmt.Sprintf("evaluador_asignado_id = $%d", len(args)+1))
		args = append(args, filter.EvaluatorID)
	}
	if filter.CohortID != "" {
		conditions = append(conditions, fmt.Sprintf("ficha_id = $%d", len(args)+1))
		args = append(args, filter.CohortID)
	}
	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(instructores_ids)", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	if filter.State != nil {
		conditions = append(conditions, fmt.Sprintf("estado = $%d", len(args)+1))
		args = append(args, *filter.State)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(nombre) LIKE $%d OR LOWER(descripcion) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"nombre":        true,
		"fecha_entrega": true,
		"created_at":    true,
		"updated_at":    true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", projectColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list projects: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count projects: %w", err)
	}

	return projects, total, nil
}

// ListUnassigned returns active projects without an evaluator.
func (r *ProjectRepository) ListUnassigned(ctx context.Context) ([]models.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM proyectos WHERE evaluador_asignado_id IS NULL AND estado = $1 ORDER BY fecha_entrega ASC`, projectColumns)
	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query, models.ProjectStateActive); err != nil {
		return nil, fmt.Errorf("list unassigned projects: %w", err)
	}
	return projects, nil
}

// Create inserts a new project.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now

	const query = `INSERT INTO proyectos (id, nombre, descripcion, instructores_ids, instructores_nombres,
        fecha_entrega, formato, estado, creador_id, evaluador_asignado_id, ficha_id, evaluaciones_ids, created_at, updated_at)
        VALUES (:id, :nombre, :descripcion, :instructores_ids, :instructores_nombres, :fecha_entrega, :formato,
        :estado, :creador_id, :evaluador_asignado_id, :ficha_id, :evaluaciones_ids, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// Update persists mutable project fields.
func (r *ProjectRepository) Update(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now().UTC()
	const query = `UPDATE proyectos SET nombre = :nombre, descripcion = :descripcion,
        instructores_ids = :instructores_ids, instructores_nombres = :instructores_nombres,
        fecha_entrega = :fecha_entrega, formato = :formato, estado = :estado,
        evaluador_asignado_id = :evaluador_asignado_id, ficha_id = :ficha_id,
        evaluaciones_ids = :evaluaciones_ids, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return nil
}

// UpdateState sets the lifecycle state of a project.
func (r *ProjectRepository) UpdateState(ctx context.Context, id string, state models.ProjectState) error {
	const query = `UPDATE proyectos SET estado = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, state, time.Now().UTC()); err != nil {
		return fmt.Errorf("update project state: %w", err)
	}
	return nil
}

// Delete removes a project.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM proyectos WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// Statistics aggregates project counts per state.
func (r *ProjectRepository) Statistics(ctx context.Context) (*models.ProjectStatistics, error) {
	stats := &models.ProjectStatistics{ByState: make(map[models.ProjectState]int)}

	const stateQuery = `SELECT estado, COUNT(*) AS total FROM proyectos GROUP BY estado`
	rows, err := r.db.QueryxContext(ctx, stateQuery)
	if err != nil {
		return nil, fmt.Errorf("project state counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var state models.ProjectState
		var total int
		if err := rows.Scan(&state, &total); err != nil {
			return nil, fmt.Errorf("scan project count: %w", err)
		}
		stats.ByState[state] = total
		stats.Total += total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const assignedQuery = `SELECT COUNT(*) FROM proyectos WHERE evaluador_asignado_id IS NOT NULL`
	if err := r.db.GetContext(ctx, &stats.WithEvaluator, assignedQuery); err != nil {
		return nil, fmt.Errorf("count assigned projects: %w", err)
	}

	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.ByState[models.ProjectStateCompleted]) / float64(stats.Total) * 100
	}

	return stats, nil
}

// CountCreatedSince counts projects created at or after the given time.
func (r *ProjectRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM proyectos WHERE created_at >= $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, since); err != nil {
		return 0, fmt.Errorf("count projects since: %w", err)
	}
	return total, nil
}

// CountUnassigned counts active projects without an evaluator.
func (r *ProjectRepository) CountUnassigned(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM proyectos WHERE evaluador_asignado_id IS NULL AND estado = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, models.ProjectStateActive); err != nil {
		return 0, fmt.Errorf("count unassigned projects: %w", err)
	}
	return total, nil
}
