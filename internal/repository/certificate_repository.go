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

// CertificateRepository handles certificate persistence.
type CertificateRepository struct {
	db *sqlx.DB
}

// NewCertificateRepository creates a new certificate repository.
func NewCertificateRepository(db *sqlx.DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

const certificateColumns = `id, estudiante_id, evaluacion_id, numero_certificado, fecha_emision, fecha_vencimiento,
        estado, descripcion, institucion, calificacion_final, created_at, updated_at`

// FindByID returns a certificate by identifier.
func (r *CertificateRepository) FindByID(ctx context.Context, id string) (*models.Certificate, error) {
	query := fmt.Sprintf(`SELECT %s FROM certificados WHERE id = $1 LIMIT 1`, certificateColumns)
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find certificate by id: %w", err)
	}
	return &cert, nil
}

// FindByNumber returns a certificate by its public number.
func (r *CertificateRepository) FindByNumber(ctx context.Context, number string) (*models.Certificate, error) {
	query := fmt.Sprintf(`SELECT %s FROM certificados WHERE numero_certificado = $1 LIMIT 1`, certificateColumns)
	var cert models.Certificate
	if err := r.db.GetContext(ctx, &cert, query, number); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find certificate by number: %w", err)
	}
	return &cert, nil
}

// ExistsForStudentAndEvaluation reports whether a certificate was already
// issued for the pair.
func (r *CertificateRepository) ExistsForStudentAndEvaluation(ctx context.Context, studentID, evaluationID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM certificados WHERE estudiante_id = $1 AND evaluacion_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, evaluationID); err != nil {
		return false, fmt.Errorf("check certificate pair: %w", err)
	}
	return exists, nil
}

// List returns certificates matching the filter with total count.
func (r *CertificateRepository) List(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, int, error) {
	baseQuery := `FROM certificados WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("estudiante_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.EvaluationID != "" {
		conditions = append(conditions, fmt.Sprintf("evaluacion_id = $%d", len(args)+1))
		args = append(args, filter.EvaluationID)
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY fecha_emision DESC LIMIT %d OFFSET %d", certificateColumns, baseQuery, pageSize, offset)

	var certs []models.Certificate
	if err := r.db.SelectContext(ctx, &certs, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list certificates: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count certificates: %w", err)
	}

	return certs, total, nil
}

// Create inserts a new certificate.
func (r *CertificateRepository) Create(ctx context.Context, cert *models.Certificate) error {
	if cert.ID == "" {
		cert.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cert.CreatedAt.IsZero() {
		cert.CreatedAt = now
	}
	cert.UpdatedAt = now

	const query = `INSERT INTO certificados (id, estudiante_id, evaluacion_id, numero_certificado, fecha_emision,
        fecha_vencimiento, estado, descripcion, institucion, calificacion_final, created_at, updated_at)
        VALUES (:id, :estudiante_id, :evaluacion_id, :numero_certificado, :fecha_emision, :fecha_vencimiento,
        :estado, :descripcion, :institucion, :calificacion_final, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

// Update persists mutable certificate fields. The number never changes.
func (r *CertificateRepository) Update(ctx context.Context, cert *models.Certificate) error {
	cert.UpdatedAt = time.Now().UTC()
	const query = `UPDATE certificados SET fecha_vencimiento = :fecha_vencimiento, estado = :estado,
        descripcion = :descripcion, institucion = :institucion, calificacion_final = :calificacion_final,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, cert); err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	return nil
}

// UpdateState sets the certificate state.
func (r *CertificateRepository) UpdateState(ctx context.Context, id string, state models.CertificateState) error {
	const query = `UPDATE certificados SET estado = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, state, time.Now().UTC()); err != nil {
		return fmt.Errorf("update certificate state: %w", err)
	}
	return nil
}

// Delete removes a certificate.
func (r *CertificateRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM certificados WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	return nil
}

// Statistics aggregates certificate counts by state.
func (r *CertificateRepository) Statistics(ctx context.Context) (*models.CertificateStatistics, error) {
	stats := &models.CertificateStatistics{ByState: make(map[models.CertificateState]int)}
	const query = `SELECT estado, COUNT(*) AS total FROM certificados GROUP BY estado`
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("certificate state counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var state models.CertificateState
		var total int
		if err := rows.Scan(&state, &total); err != nil {
			return nil, fmt.Errorf("scan certificate count: %w", err)
		}
		stats.ByState[state] = total
		stats.Total += total
	}
	return stats, rows.Err()
}
