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

// GradeRepository handles per-criterion score persistence.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

const gradeColumns = `id, evaluacion_id, criterio, puntaje, puntaje_maximo, comentarios, calificado_por_id, created_at, updated_at`

// FindByID returns a grade by identifier.
func (r *GradeRepository) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	query := fmt.Sprintf(`SELECT %s FROM calificaciones WHERE id = $1 LIMIT 1`, gradeColumns)
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find grade by id: %w", err)
	}
	return &grade, nil
}

// ExistsByCriterion reports whether the evaluation already carries the
// given criterion.
func (r *GradeRepository) ExistsByCriterion(ctx context.Context, evaluationID, criterion string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM calificaciones WHERE evaluacion_id = $1 AND LOWER(criterio) = LOWER($2))`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, evaluationID, criterion); err != nil {
		return false, fmt.Errorf("check grade criterion: %w", err)
	}
	return exists, nil
}

// List returns grades matching the filter with total count.
func (r *GradeRepository) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, int, error) {
	baseQuery := `FROM calificaciones WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.EvaluationID != "" {
		conditions = append(conditions, fmt.Sprintf("evaluacion_id = $%d", len(args)+1))
		args = append(args, filter.EvaluationID)
	}
	if filter.GradedByID != "" {
		conditions = append(conditions, fmt.Sprintf("calificado_por_id = $%d", len(args)+1))
		args = append(args, filter.GradedByID)
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", gradeColumns, baseQuery, pageSize, offset)

	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list grades: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count grades: %w", err)
	}

	return grades, total, nil
}

// ListByEvaluation returns every grade recorded for one evaluation.
func (r *GradeRepository) ListByEvaluation(ctx context.Context, evaluationID string) ([]models.Grade, error) {
	query := fmt.Sprintf(`SELECT %s FROM calificaciones WHERE evaluacion_id = $1 ORDER BY criterio`, gradeColumns)
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, evaluationID); err != nil {
		return nil, fmt.Errorf("list grades by evaluation: %w", err)
	}
	return grades, nil
}

// Create inserts a new grade.
func (r *GradeRepository) Create(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now

	const query = `INSERT INTO calificaciones (id, evaluacion_id, criterio, puntaje, puntaje_maximo, comentarios, calificado_por_id, created_at, updated_at)
        VALUES (:id, :evaluacion_id, :criterio, :puntaje, :puntaje_maximo, :comentarios, :calificado_por_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create grade: %w", err)
	}
	return nil
}

// Update persists mutable grade fields.
func (r *GradeRepository) Update(ctx context.Context, grade *models.Grade) error {
	grade.UpdatedAt = time.Now().UTC()
	const query = `UPDATE calificaciones SET criterio = :criterio, puntaje = :puntaje, puntaje_maximo = :puntaje_maximo,
        comentarios = :comentarios, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("update grade: %w", err)
	}
	return nil
}

// Delete removes a single grade.
func (r *GradeRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM calificaciones WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return nil
}

// DeleteByEvaluation removes every grade tied to one evaluation and returns
// the number of rows removed.
func (r *GradeRepository) DeleteByEvaluation(ctx context.Context, evaluationID string) (int64, error) {
	const query = `DELETE FROM calificaciones WHERE evaluacion_id = $1`
	res, err := r.db.ExecContext(ctx, query, evaluationID)
	if err != nil {
		return 0, fmt.Errorf("delete grades by evaluation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted grades: %w", err)
	}
	return affected, nil
}

// AverageForEvaluation computes AVG(puntaje / puntaje_maximo) * 100 across
// all grades of one evaluation. Zero when no grades exist.
func (r *GradeRepository) AverageForEvaluation(ctx context.Context, evaluationID string) (float64, int, error) {
	const query = `SELECT COALESCE(AVG(puntaje / NULLIF(puntaje_maximo, 0)) * 100, 0) AS promedio, COUNT(*) AS total
        FROM calificaciones WHERE evaluacion_id = $1`
	var row struct {
		Promedio float64 `db:"promedio"`
		Total    int     `db:"total"`
	}
	if err := r.db.GetContext(ctx, &row, query, evaluationID); err != nil {
		return 0, 0, fmt.Errorf("average for evaluation: %w", err)
	}
	return row.Promedio, row.Total, nil
}

// StatisticsForEvaluation aggregates the raw scores of one evaluation.
func (r *GradeRepository) StatisticsForEvaluation(ctx context.Context, evaluationID string) (*models.GradeStatistics, error) {
	const query = `SELECT COUNT(*) AS total,
        COALESCE(AVG(puntaje), 0) AS media,
        COALESCE(MIN(puntaje), 0) AS minimo,
        COALESCE(MAX(puntaje), 0) AS maximo,
        COALESCE(SUM(puntaje), 0) AS suma_obtenida,
        COALESCE(SUM(puntaje_maximo), 0) AS suma_posible
        FROM calificaciones WHERE evaluacion_id = $1`
	var row struct {
		Total       int     `db:"total"`
		Media       float64 `db:"media"`
		Minimo      float64 `db:"minimo"`
		Maximo      float64 `db:"maximo"`
		SumObtained float64 `db:"suma_obtenida"`
		SumPossible float64 `db:"suma_posible"`
	}
	if err := r.db.GetContext(ctx, &row, query, evaluationID); err != nil {
		return nil, fmt.Errorf("grade statistics: %w", err)
	}
	return &models.GradeStatistics{
		EvaluationID: evaluationID,
		Count:        row.Total,
		Mean:         row.Media,
		Min:          row.Minimo,
		Max:          row.Maximo,
		SumObtained:  row.SumObtained,
		SumPossible:  row.SumPossible,
	}, nil
}
