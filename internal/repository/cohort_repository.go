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

// CohortRepository handles ficha persistence.
type CohortRepository struct {
	db *sqlx.DB
}

// NewCohortRepository creates a new cohort repository.
func NewCohortRepository(db *sqlx.DB) *CohortRepository {
	return &CohortRepository{db: db}
}

const cohortColumns = `id, numero, programa, nivel, modalidad, duracion_meses, fecha_inicio, fecha_fin, activa,
        coordinador_id, instructores_ids, estudiantes_ids, capacidad_maxima, sede, jornada, created_at, updated_at`

// FindByID returns a cohort by identifier.
func (r *CohortRepository) FindByID(ctx context.Context, id string) (*models.Cohort, error) {
	query := fmt.Sprintf(`SELECT %s FROM fichas WHERE id = $1 LIMIT 1`, cohortColumns)
	var cohort models.Cohort
	if err := r.db.GetContext(ctx, &cohort, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find cohort by id: %w", err)
	}
	return &cohort, nil
}

// FindByNumber returns a cohort by its public number.
func (r *CohortRepository) FindByNumber(ctx context.Context, number string) (*models.Cohort, error) {
	query := fmt.Sprintf(`SELECT %s FROM fichas WHERE numero = $1 LIMIT 1`, cohortColumns)
	var cohort models.Cohort
	if err := r.db.GetContext(ctx, &cohort, query, number); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find cohort by number: %w", err)
	}
	return &cohort, nil
}

// List returns cohorts matching the filter with total count.
func (r *CohortRepository) List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, int, error) {
	baseQuery := `FROM fichas WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Program != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(programa) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Program)+"%")
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("nivel = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.Modality != "" {
		conditions = append(conditions, fmt.Sprintf("modalidad = $%d", len(args)+1))
		args = append(args, filter.Modality)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("activa = $%d", len(args)+1))
		args = append(args, *filter.Active)
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY numero ASC LIMIT %d OFFSET %d", cohortColumns, baseQuery, pageSize, offset)

	var cohorts []models.Cohort
	if err := r.db.SelectContext(ctx, &cohorts, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list cohorts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count cohorts: %w", err)
	}

	return cohorts, total, nil
}

// ListActive returns active cohorts ordered by number.
func (r *CohortRepository) ListActive(ctx context.Context) ([]models.Cohort, error) {
	query := fmt.Sprintf(`SELECT %s FROM fichas WHERE activa = TRUE ORDER BY numero ASC`, cohortColumns)
	var cohorts []models.Cohort
	if err := r.db.SelectContext(ctx, &cohorts, query); err != nil {
		return nil, fmt.Errorf("list active cohorts: %w", err)
	}
	return cohorts, nil
}

// Create inserts a new cohort.
func (r *CohortRepository) Create(ctx context.Context, cohort *models.Cohort) error {
	if cohort.ID == "" {
		cohort.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cohort.CreatedAt.IsZero() {
		cohort.CreatedAt = now
	}
	cohort.UpdatedAt = now

	const query = `INSERT INTO fichas (id, numero, programa, nivel, modalidad, duracion_meses, fecha_inicio,
        fecha_fin, activa, coordinador_id, instructores_ids, estudiantes_ids, capacidad_maxima, sede, jornada,
        created_at, updated_at)
        VALUES (:id, :numero, :programa, :nivel, :modalidad, :duracion_meses, :fecha_inicio, :fecha_fin, :activa,
        :coordinador_id, :instructores_ids, :estudiantes_ids, :capacidad_maxima, :sede, :jornada, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cohort); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create cohort: %w", err)
	}
	return nil
}

// Update persists mutable cohort fields, membership sets included.
func (r *CohortRepository) Update(ctx context.Context, cohort *models.Cohort) error {
	cohort.UpdatedAt = time.Now().UTC()
	const query = `UPDATE fichas SET programa = :programa, nivel = :nivel, modalidad = :modalidad,
        duracion_meses = :duracion_meses, fecha_inicio = :fecha_inicio, fecha_fin = :fecha_fin, activa = :activa,
        coordinador_id = :coordinador_id, instructores_ids = :instructores_ids, estudiantes_ids = :estudiantes_ids,
        capacidad_maxima = :capacidad_maxima, sede = :sede, jornada = :jornada, updated_at = :updated_at
        WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, cohort); err != nil {
		return fmt.Errorf("update cohort: %w", err)
	}
	return nil
}

// Delete removes a cohort.
func (r *CohortRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM fichas WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete cohort: %w", err)
	}
	return nil
}

// Statistics aggregates cohort counts per level and modality.
func (r *CohortRepository) Statistics(ctx context.Context) (*models.CohortStatistics, error) {
	stats := &models.CohortStatistics{
		ByLevel:    make(map[string]int),
		ByModality: make(map[string]int),
	}

	const query = `SELECT nivel, modalidad, activa, COALESCE(ARRAY_LENGTH(estudiantes_ids, 1), 0) AS estudiantes FROM fichas`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("cohort statistics: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var level, modality string
		var active bool
		var students int
		if err := rows.Scan(&level, &modality, &active, &students); err != nil {
			return nil, fmt.Errorf("scan cohort row: %w", err)
		}
		stats.Total++
		if active {
			stats.Active++
		}
		stats.ByLevel[level]++
		stats.ByModality[modality]++
		stats.Students += students
	}
	return stats, rows.Err()
}
