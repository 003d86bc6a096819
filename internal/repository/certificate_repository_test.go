package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sena-nova/nova-api/internal/models"
)

func certificateRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "estudiante_id", "evaluacion_id", "numero_certificado", "fecha_emision", "fecha_vencimiento", "estado", "descripcion", "institucion", "calificacion_final", "created_at", "updated_at"}).
		AddRow("c1", "st-1", "ev-1", "CERT-2026-0001", now, nil, string(models.CertificateStateActive), nil, "SENA", 87.5, now, now)
}

func TestCertificateFindByNumber(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCertificateRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM certificados WHERE numero_certificado = $1 LIMIT 1")).
		WithArgs("CERT-2026-0001").
		WillReturnRows(certificateRows(now))

	cert, err := repo.FindByNumber(context.Background(), "CERT-2026-0001")
	require.NoError(t, err)
	assert.Equal(t, "CERT-2026-0001", cert.Number)
	assert.Equal(t, models.CertificateStateActive, cert.State)
	assert.Nil(t, cert.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateExistsForPair(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCertificateRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM certificados WHERE estudiante_id = $1 AND evaluacion_id = $2)")).
		WithArgs("st-1", "ev-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsForStudentAndEvaluation(context.Background(), "st-1", "ev-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateListFiltersByState(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCertificateRepository(db)

	state := models.CertificateStateActive
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM certificados WHERE 1=1 AND estado = $1 ORDER BY fecha_emision DESC")).
		WithArgs(state).
		WillReturnRows(certificateRows(now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM certificados WHERE 1=1 AND estado = $1")).
		WithArgs(state).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	certs, total, err := repo.List(context.Background(), models.CertificateFilter{State: &state})
	require.NoError(t, err)
	assert.Len(t, certs, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCertificateRepository(db)

	mock.ExpectExec("INSERT INTO certificados").WillReturnResult(sqlmock.NewResult(1, 1))

	cert := &models.Certificate{
		StudentID:    "st-1",
		EvaluationID: "ev-1",
		Number:       "CERT-2026-0002",
		IssuedAt:     time.Now(),
		State:        models.CertificateStateActive,
		Institution:  "SENA",
		FinalScore:   91.25,
	}
	require.NoError(t, repo.Create(context.Background(), cert))
	assert.NotEmpty(t, cert.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateUpdateState(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCertificateRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE certificados SET estado = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("c1", models.CertificateStateInactive, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateState(context.Background(), "c1", models.CertificateStateInactive))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificateStatistics(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCertificateRepository(db)

	rows := sqlmock.NewRows([]string{"estado", "total"}).
		AddRow(string(models.CertificateStateActive), 4).
		AddRow(string(models.CertificateStateInactive), 1)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT estado, COUNT(*) AS total FROM certificados GROUP BY estado")).
		WillReturnRows(rows)

	stats, err := repo.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 4, stats.ByState[models.CertificateStateActive])
	assert.NoError(t, mock.ExpectationsWereMet())
}
