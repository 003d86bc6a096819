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

// EvaluationRepository handles evaluation persistence.
type EvaluationRepository struct {
	db *sqlx.DB
}

// NewEvaluationRepository creates a new evaluation repository.
func NewEvaluationRepository(db *sqlx.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

const evaluationColumns = `id, titulo, descripcion, tipo, estado, fecha_inicio, fecha_fin, duracion_minutos,
        puntaje_maximo, puntaje_minimo, evaluador_id, estudiantes_asignados, instrucciones, configuracion,
        etiquetas, observaciones, activa, creado_por, modificado_por, created_at, updated_at`

// FindByID returns an evaluation by identifier.
func (r *EvaluationRepository) FindByID(ctx context.Context, id string) (*models.Evaluation, error) {
	query := fmt.Sprintf(`SELECT %s FROM evaluaciones WHERE id = $1 LIMIT 1`, evaluationColumns)
	var ev models.Evaluation
	if err := r.db.GetContext(ctx, &ev, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find evaluation by id: %w", err)
	}
	return &ev, nil
}

// ExistsByTitleAndEvaluator reports whether the evaluator already owns an
// evaluation with the given title.
func (r *EvaluationRepository) ExistsByTitleAndEvaluator(ctx context.Context, title, evaluatorID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM evaluaciones WHERE LOWER(titulo) = LOWER($1) AND evaluador_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, title, evaluatorID); err != nil {
		return false, fmt.Errorf("check evaluation title: %w", err)
	}
	return exists, nil
}

// List returns evaluations matching the filter with total count.
func (r *EvaluationRepository) List(ctx context.Context, filter models.EvaluationFilter) ([]models.Evaluation, int, error) {
	baseQuery := `FROM evaluaciones WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.EvaluatorID != "" {
		conditions = append(conditions, fmt.Sprintf("evaluador_id = $%d", len(args)+1))
		args = append(args, filter.EvaluatorID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(estudiantes_asignados)", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.State != nil {
		conditions = append(conditions, fmt.Sprintf("estado = $%d", len(args)+1))
		args = append(args, *filter.State)
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("tipo = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("activa = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(titulo) LIKE $%d OR LOWER(descripcion) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.StartAfter != nil {
		conditions = append(conditions, fmt.Sprintf("fecha_inicio >= $%d", len(args)+1))
		args = append(args, *filter.StartAfter)
	}
	if filter.EndBefore != nil {
		conditions = append(conditions, fmt.Sprintf("fecha_fin <= $%d", len(args)+1))
		args = append(args, *filter.EndBefore)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"titulo":       true,
		"fecha_inicio": true,
		"fecha_fin":    true,
		"created_at":   true,
		"updated_at":   true,
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", evaluationColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var evaluations []models.Evaluation
	if err := r.db.SelectContext(ctx, &evaluations, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list evaluations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count evaluations: %w", err)
	}

	return evaluations, total, nil
}

// ListActive returns published evaluations currently inside their window.
func (r *EvaluationRepository) ListActive(ctx context.Context, now time.Time) ([]models.Evaluation, error) {
	query := fmt.Sprintf(`SELECT %s FROM evaluaciones
        WHERE estado = $1 AND activa = TRUE AND fecha_inicio <= $2 AND fecha_fin >= $2
        ORDER BY fecha_fin ASC`, evaluationColumns)
	var evaluations []models.Evaluation
	if err := r.db.SelectContext(ctx, &evaluations, query, models.EvaluationStatePublished, now); err != nil {
		return nil, fmt.Errorf("list active evaluations: %w", err)
	}
	return evaluations, nil
}

// ListOverdue returns evaluations past their end date that never finished.
func (r *EvaluationRepository) ListOverdue(ctx context.Context, now time.Time) ([]models.Evaluation, error) {
	query := fmt.Sprintf(`SELECT %s FROM evaluaciones
        WHERE fecha_fin < $1 AND estado NOT IN ($2, $3)
        ORDER BY fecha_fin ASC`, evaluationColumns)
	var evaluations []models.Evaluation
	if err := r.db.SelectContext(ctx, &evaluations, query, now, models.EvaluationStateFinished, models.EvaluationStateCancelled); err != nil {
		return nil, fmt.Errorf("list overdue evaluations: %w", err)
	}
	return evaluations, nil
}

// ListRecentByEvaluator returns the evaluator's most recent evaluations.
func (r *EvaluationRepository) ListRecentByEvaluator(ctx context.Context, evaluatorID string, limit int) ([]models.Evaluation, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT %s FROM evaluaciones WHERE evaluador_id = $1 ORDER BY created_at DESC LIMIT %d`, evaluationColumns, limit)
	var evaluations []models.Evaluation
	if err := r.db.SelectContext(ctx, &evaluations, query, evaluatorID); err != nil {
		return nil, fmt.Errorf("list recent evaluations: %w", err)
	}
	return evaluations, nil
}

// Create inserts a new evaluation.
func (r *EvaluationRepository) Create(ctx context.Context, ev *models.Evaluation) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	ev.UpdatedAt = now

	const query = `INSERT INTO evaluaciones (id, titulo, descripcion, tipo, estado, fecha_inicio, fecha_fin,
        duracion_minutos, puntaje_maximo, puntaje_minimo, evaluador_id, estudiantes_asignados, instrucciones,
        configuracion, etiquetas, observaciones, activa, creado_por, modificado_por, created_at, updated_at)
        VALUES (:id, :titulo, :descripcion, :tipo, :estado, :fecha_inicio, :fecha_fin, :duracion_minutos,
        :puntaje_maximo, :puntaje_minimo, :evaluador_id, :estudiantes_asignados, :instrucciones, :configuracion,
        :etiquetas, :observaciones, :activa, :creado_por, :modificado_por, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, ev); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create evaluation: %w", err)
	}
	return nil
}

// Update persists mutable evaluation fields.
func (r *EvaluationRepository) Update(ctx context.Context, ev *models.Evaluation) error {
	ev.UpdatedAt = time.Now().UTC()
	const query = `UPDATE evaluaciones SET titulo = :titulo, descripcion = :descripcion, tipo = :tipo,
        fecha_inicio = :fecha_inicio, fecha_fin = :fecha_fin, duracion_minutos = :duracion_minutos,
        puntaje_maximo = :puntaje_maximo, puntaje_minimo = :puntaje_minimo,
        estudiantes_asignados = :estudiantes_asignados, instrucciones = :instrucciones,
        configuracion = :configuracion, etiquetas = :etiquetas, observaciones = :observaciones,
        activa = :activa, modificado_por = :modificado_por, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, ev); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("update evaluation: %w", err)
	}
	return nil
}

// UpdateState sets the lifecycle state of an evaluation.
func (r *EvaluationRepository) UpdateState(ctx context.Context, id string, state models.EvaluationState, modifiedBy string) error {
	const query = `UPDATE evaluaciones SET estado = $2, modificado_por = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, state, modifiedBy, time.Now().UTC()); err != nil {
		return fmt.Errorf("update evaluation state: %w", err)
	}
	return nil
}

// Delete removes an evaluation.
func (r *EvaluationRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM evaluaciones WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete evaluation: %w", err)
	}
	return nil
}

// evaluationAggregateRow backs the averages query.
type evaluationAggregateRow struct {
	AvgStudents float64 `db:"avg_estudiantes"`
	AvgDuration float64 `db:"avg_duracion"`
	AvgMaxScore float64 `db:"avg_puntaje"`
}

// Statistics aggregates evaluation counts and averages, optionally scoped to
// one evaluator.
func (r *EvaluationRepository) Statistics(ctx context.Context, evaluatorID string) (*models.EvaluationStatistics, error) {
	stats := &models.EvaluationStatistics{
		ByState: make(map[models.EvaluationState]int),
		ByType:  make(map[models.EvaluationType]int),
	}

	where := ""
	var args []interface{}
	if evaluatorID != "" {
		where = " WHERE evaluador_id = $1"
		args = append(args, evaluatorID)
	}

	stateQuery := fmt.Sprintf(`SELECT estado, COUNT(*) AS total FROM evaluaciones%s GROUP BY estado`, where)
	rows, err := r.db.QueryxContext(ctx, stateQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("evaluation state counts: %w", err)
	}
	for rows.Next() {
		var state models.EvaluationState
		var total int
		if err := rows.Scan(&state, &total); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan state count: %w", err)
		}
		stats.ByState[state] = total
		stats.Total += total
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	typeQuery := fmt.Sprintf(`SELECT tipo, COUNT(*) AS total FROM evaluaciones%s GROUP BY tipo`, where)
	rows, err = r.db.QueryxContext(ctx, typeQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("evaluation type counts: %w", err)
	}
	for rows.Next() {
		var typ models.EvaluationType
		var total int
		if err := rows.Scan(&typ, &total); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan type count: %w", err)
		}
		stats.ByType[typ] = total
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	avgQuery := fmt.Sprintf(`SELECT COALESCE(AVG(COALESCE(ARRAY_LENGTH(estudiantes_asignados, 1), 0)), 0) AS avg_estudiantes,
        COALESCE(AVG(duracion_minutos), 0) AS avg_duracion,
        COALESCE(AVG(puntaje_maximo), 0) AS avg_puntaje
        FROM evaluaciones%s`, where)
	var agg evaluationAggregateRow
	if err := r.db.GetContext(ctx, &agg, avgQuery, args...); err != nil {
		return nil, fmt.Errorf("evaluation averages: %w", err)
	}
	stats.AvgStudents = agg.AvgStudents
	stats.AvgDuration = agg.AvgDuration
	stats.AvgMaxScore = agg.AvgMaxScore

	return stats, nil
}

// CountCreatedSince counts evaluations created at or after the given time,
// optionally scoped to one evaluator.
func (r *EvaluationRepository) CountCreatedSince(ctx context.Context, since time.Time, evaluatorID string) (int, error) {
	query := `SELECT COUNT(*) FROM evaluaciones WHERE created_at >= $1`
	args := []interface{}{since}
	if evaluatorID != "" {
		query += " AND evaluador_id = $2"
		args = append(args, evaluatorID)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count evaluations since: %w", err)
	}
	return total, nil
}

// CountActive counts published evaluations currently inside their window.
func (r *EvaluationRepository) CountActive(ctx context.Context, now time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM evaluaciones WHERE estado = $1 AND activa = TRUE AND fecha_inicio <= $2 AND fecha_fin >= $2`
	var total int
	if err := r.db.GetContext(ctx, &total, query, models.EvaluationStatePublished, now); err != nil {
		return 0, fmt.Errorf("count active evaluations: %w", err)
	}
	return total, nil
}

// CountOverdue counts evaluations past their end date that never finished.
func (r *EvaluationRepository) CountOverdue(ctx context.Context, now time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM evaluaciones WHERE fecha_fin < $1 AND estado NOT IN ($2, $3)`
	var total int
	if err := r.db.GetContext(ctx, &total, query, now, models.EvaluationStateFinished, models.EvaluationStateCancelled); err != nil {
		return 0, fmt.Errorf("count overdue evaluations: %w", err)
	}
	return total, nil
}
