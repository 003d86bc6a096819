package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sena-nova/nova-api/internal/models"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
	"github.com/sena-nova/nova-api/pkg/export"
)

type certificateRepository interface {
	FindByID(ctx context.Context, id string) (*models.Certificate, error)
	FindByNumber(ctx context.Context, number string) (*models.Certificate, error)
	ExistsForStudentAndEvaluation(ctx context.Context, studentID, evaluationID string) (bool, error)
	List(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, int, error)
	Create(ctx context.Context, cert *models.Certificate) error
	Update(ctx context.Context, cert *models.Certificate) error
	UpdateState(ctx context.Context, id string, state models.CertificateState) error
	Delete(ctx context.Context, id string) error
	Statistics(ctx context.Context) (*models.CertificateStatistics, error)
}

type certificateUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CertificateConfig carries issuing defaults.
type CertificateConfig struct {
	Institution     string
	DefaultValidity time.Duration
}

// CertificateService issues and verifies certificates.
type CertificateService struct {
	repo        certificateRepository
	evaluations evaluationReader
	users       certificateUserReader
	history     historyWriter
	pdf         *export.PDFExporter
	cfg         CertificateConfig
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCertificateService constructs a CertificateService.
func NewCertificateService(repo certificateRepository, evaluations evaluationReader, users certificateUserReader, history historyWriter, pdf *export.PDFExporter, cfg CertificateConfig, validate *validator.Validate, logger *zap.Logger) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &CertificateService{
		repo:        repo,
		evaluations: evaluations,
		users:       users,
		history:     history,
		pdf:         pdf,
		cfg:         cfg,
		validator:   validate,
		logger:      logger,
	}
}

// Issue creates a certificate for a student and an evaluation. At most one
// certificate may exist per pair.
func (s *CertificateService) Issue(ctx context.Context, req models.IssueCertificateRequest, issuerID string) (*models.Certificate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid certificate payload")
	}

	if _, err := s.evaluations.FindByID(ctx, req.EvaluationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "certificates are issued to students only")
	}

	exists, err := s.repo.ExistsForStudentAndEvaluation(ctx, req.StudentID, req.EvaluationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing certificate")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a certificate already exists for this student and evaluation")
	}

	now := time.Now().UTC()
	expiresAt := req.ExpiresAt
	if expiresAt == nil && s.cfg.DefaultValidity > 0 {
		expiry := now.Add(s.cfg.DefaultValidity)
		expiresAt = &expiry
	}

	institution := s.cfg.Institution
	if req.Institution != nil && *req.Institution != "" {
		institution = *req.Institution
	}

	cert := &models.Certificate{
		StudentID:    req.StudentID,
		EvaluationID: req.EvaluationID,
		Number:       generateCertificateNumber(),
		IssuedAt:     now,
		ExpiresAt:    expiresAt,
		State:        models.CertificateStateActive,
		Description:  req.Description,
		Institution:  institution,
		FinalScore:   round2(req.FinalScore),
	}

	if err := s.repo.Create(ctx, cert); err != nil {
		if isUnique(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a certificate already exists for this student and evaluation")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue certificate")
	}

	s.emit(ctx, models.HistoryActionCertificateIssue,
		fmt.Sprintf("certificado %s emitido", cert.Number), issuerID, &cert.EvaluationID)

	return cert, nil
}

// Get returns one certificate by id.
func (s *CertificateService) Get(ctx context.Context, id string) (*models.Certificate, error) {
	cert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}
	return cert, nil
}

// List returns certificates matching the filter.
func (s *CertificateService) List(ctx context.Context, filter models.CertificateFilter) ([]models.Certificate, *models.Pagination, error) {
	certs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list certificates")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return certs, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Update patches certificate metadata. The certificate number never changes.
func (s *CertificateService) Update(ctx context.Context, id string, req models.UpdateCertificateRequest, callerID string) (*models.Certificate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid certificate patch")
	}

	cert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ExpiresAt != nil {
		cert.ExpiresAt = req.ExpiresAt
	}
	if req.Description != nil {
		cert.Description = req.Description
	}
	if req.Institution != nil {
		cert.Institution = *req.Institution
	}
	if req.FinalScore != nil {
		cert.FinalScore = round2(*req.FinalScore)
	}

	if err := s.repo.Update(ctx, cert); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update certificate")
	}

	return cert, nil
}

// ChangeState moves a certificate between states. All transitions are allowed.
func (s *CertificateService) ChangeState(ctx context.Context, id string, newState models.CertificateState, callerID string) (*models.Certificate, error) {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateState(ctx, id, newState); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change certificate state")
	}

	previous := cert.State
	cert.State = newState

	s.emit(ctx, models.HistoryActionCertificateState,
		fmt.Sprintf("certificado %s pasó de %s a %s", cert.Number, previous, newState), callerID, &cert.EvaluationID)

	return cert, nil
}

// Verify looks a certificate up by its public number and reports whether it
// can currently be trusted.
func (s *CertificateService) Verify(ctx context.Context, number string) (*models.CertificateVerification, error) {
	cert, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.CertificateVerification{Valid: false, Reason: "certificado no encontrado"}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify certificate")
	}

	now := time.Now().UTC()
	switch {
	case cert.State == models.CertificateStateInactive:
		return &models.CertificateVerification{Valid: false, Certificate: cert, Reason: "certificado inactivo"}, nil
	case cert.State == models.CertificateStateExpired || cert.Expired(now):
		return &models.CertificateVerification{Valid: false, Certificate: cert, Reason: "certificado vencido"}, nil
	}

	return &models.CertificateVerification{Valid: true, Certificate: cert}, nil
}

// Render produces a printable PDF for a certificate.
func (s *CertificateService) Render(ctx context.Context, id string) ([]byte, error) {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	studentName := cert.StudentID
	if s.users != nil {
		if student, err := s.users.FindByID(ctx, cert.StudentID); err == nil {
			studentName = fmt.Sprintf("%s %s", student.FirstName, student.LastName)
		}
	}

	expires := "sin vencimiento"
	if cert.ExpiresAt != nil {
		expires = cert.ExpiresAt.Format("2006-01-02")
	}

	dataset := export.Dataset{
		Headers: []string{"Campo", "Valor"},
		Rows: [][]string{
			{"Número", cert.Number},
			{"Estudiante", studentName},
			{"Institución", cert.Institution},
			{"Calificación final", fmt.Sprintf("%.2f", cert.FinalScore)},
			{"Fecha de emisión", cert.IssuedAt.Format("2006-01-02")},
			{"Fecha de vencimiento", expires},
			{"Estado", string(cert.State)},
		},
	}

	out, err := s.pdf.Render(dataset, "Certificado de participación")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}
	return out, nil
}

// Delete removes a certificate.
func (s *CertificateService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete certificate")
	}
	return nil
}

// Statistics returns aggregate certificate counts.
func (s *CertificateService) Statistics(ctx context.Context) (*models.CertificateStatistics, error) {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate certificates")
	}
	return stats, nil
}

func (s *CertificateService) emit(ctx context.Context, action, description, userID string, evaluationID *string) {
	if s.history == nil {
		return
	}
	if err := s.history.Create(ctx, &models.HistoryEntry{
		Action:       action,
		Description:  description,
		UserID:       userID,
		EvaluationID: evaluationID,
	}); err != nil {
		s.logger.Warn("failed to record history entry", zap.String("action", action), zap.Error(err))
	}
}

func generateCertificateNumber() string {
	return fmt.Sprintf("CERT-%d-%d", time.Now().UnixMilli(), rand.Intn(1000))
}
