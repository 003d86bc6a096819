package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sena-nova/nova-api/internal/models"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
)

type gradeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Grade, error)
	ExistsByCriterion(ctx context.Context, evaluationID, criterion string) (bool, error)
	List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, int, error)
	ListByEvaluation(ctx context.Context, evaluationID string) ([]models.Grade, error)
	Create(ctx context.Context, grade *models.Grade) error
	Update(ctx context.Context, grade *models.Grade) error
	Delete(ctx context.Context, id string) error
	DeleteByEvaluation(ctx context.Context, evaluationID string) (int64, error)
	AverageForEvaluation(ctx context.Context, evaluationID string) (float64, int, error)
	StatisticsForEvaluation(ctx context.Context, evaluationID string) (*models.GradeStatistics, error)
}

type evaluationReader interface {
	FindByID(ctx context.Context, id string) (*models.Evaluation, error)
}

// GradeService records and aggregates per-criterion scores.
type GradeService struct {
	repo        gradeRepository
	evaluations evaluationReader
	history     historyWriter
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewGradeService constructs a GradeService.
func NewGradeService(repo gradeRepository, evaluations evaluationReader, history historyWriter, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GradeService{repo: repo, evaluations: evaluations, history: history, validator: validate, logger: logger}
}

// Record validates and persists one criterion score.
func (s *GradeService) Record(ctx context.Context, req models.RecordGradeRequest, graderID string) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	if req.Score > req.MaxScore {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score must not exceed max score")
	}

	if _, err := s.evaluations.FindByID(ctx, req.EvaluationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}

	exists, err := s.repo.ExistsByCriterion(ctx, req.EvaluationID, req.Criterion)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check criterion")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "criterion already graded for this evaluation")
	}

	grade := &models.Grade{
		EvaluationID: req.EvaluationID,
		Criterion:    req.Criterion,
		Score:        req.Score,
		MaxScore:     req.MaxScore,
		Comments:     req.Comments,
		GradedByID:   graderID,
	}

	if err := s.repo.Create(ctx, grade); err != nil {
		if isUnique(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "criterion already graded for this evaluation")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}

	s.emit(ctx, models.HistoryActionGradeRecord,
		fmt.Sprintf("calificación registrada para criterio %q", grade.Criterion), graderID, &grade.EvaluationID)

	return grade, nil
}

// BulkRecord applies Record per entry. Entries succeed or fail independently;
// the batch is intentionally not transactional.
func (s *GradeService) BulkRecord(ctx context.Context, req models.BulkGradeRequest, graderID string) (*models.BulkGradeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk grade payload")
	}

	result := &models.BulkGradeResult{}
	for _, entry := range req.Entries {
		grade, err := s.Record(ctx, models.RecordGradeRequest{
			EvaluationID: req.EvaluationID,
			Criterion:    entry.Criterion,
			Score:        entry.Score,
			MaxScore:     entry.MaxScore,
			Comments:     entry.Comments,
		}, graderID)
		if err != nil {
			result.Failed = append(result.Failed, models.BulkGradeFailure{
				Criterion: entry.Criterion,
				Error:     err.Error(),
			})
			continue
		}
		result.Recorded = append(result.Recorded, *grade)
	}

	return result, nil
}

// Get returns one grade by id.
func (s *GradeService) Get(ctx context.Context, id string) (*models.Grade, error) {
	grade, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade")
	}
	return grade, nil
}

// List returns grades matching the filter.
func (s *GradeService) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, *models.Pagination, error) {
	grades, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return grades, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ListByEvaluation returns every grade recorded for one evaluation.
func (s *GradeService) ListByEvaluation(ctx context.Context, evaluationID string) ([]models.Grade, error) {
	grades, err := s.repo.ListByEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluation grades")
	}
	return grades, nil
}

// Update patches one grade, keeping score within bounds.
func (s *GradeService) Update(ctx context.Context, id string, req models.UpdateGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade patch")
	}

	grade, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Criterion != nil && *req.Criterion != grade.Criterion {
		exists, err := s.repo.ExistsByCriterion(ctx, grade.EvaluationID, *req.Criterion)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check criterion")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "criterion already graded for this evaluation")
		}
		grade.Criterion = *req.Criterion
	}

	score := grade.Score
	maxScore := grade.MaxScore
	if req.Score != nil {
		score = *req.Score
	}
	if req.MaxScore != nil {
		maxScore = *req.MaxScore
	}
	if score > maxScore {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score must not exceed max score")
	}
	grade.Score = score
	grade.MaxScore = maxScore
	if req.Comments != nil {
		grade.Comments = req.Comments
	}

	if err := s.repo.Update(ctx, grade); err != nil {
		if isUnique(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "criterion already graded for this evaluation")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade")
	}

	return grade, nil
}

// Delete removes one grade. No evaluation-state gate applies.
func (s *GradeService) Delete(ctx context.Context, id string, callerID string) error {
	grade, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade")
	}

	s.emit(ctx, models.HistoryActionGradeDelete,
		fmt.Sprintf("calificación del criterio %q eliminada", grade.Criterion), callerID, &grade.EvaluationID)

	return nil
}

// DeleteByEvaluation removes every grade tied to one evaluation.
func (s *GradeService) DeleteByEvaluation(ctx context.Context, evaluationID string, callerID string) (int64, error) {
	deleted, err := s.repo.DeleteByEvaluation(ctx, evaluationID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete evaluation grades")
	}

	if deleted > 0 {
		s.emit(ctx, models.HistoryActionGradeDelete,
			fmt.Sprintf("%d calificaciones eliminadas de la evaluación", deleted), callerID, &evaluationID)
	}

	return deleted, nil
}

// Average computes the aggregate percentage for an evaluation. An evaluation
// with no grades averages exactly 0.
func (s *GradeService) Average(ctx context.Context, evaluationID string) (*models.EvaluationAverage, error) {
	avg, count, err := s.repo.AverageForEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to average grades")
	}
	return &models.EvaluationAverage{
		EvaluationID: evaluationID,
		Average:      round2(avg),
		GradeCount:   count,
	}, nil
}

// Statistics aggregates the raw scores of one evaluation and derives the
// overall percentage as sum(obtained)/sum(possible).
func (s *GradeService) Statistics(ctx context.Context, evaluationID string) (*models.GradeStatistics, error) {
	stats, err := s.repo.StatisticsForEvaluation(ctx, evaluationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate grades")
	}
	stats.Mean = round2(stats.Mean)
	if stats.SumPossible > 0 {
		stats.Percentage = round2(stats.SumObtained / stats.SumPossible * 100)
	}
	return stats, nil
}

func (s *GradeService) emit(ctx context.Context, action, description, userID string, evaluationID *string) {
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
