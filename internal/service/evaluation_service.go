package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sena-nova/nova-api/internal/models"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
)

const (
	evaluationMaxHorizon = 2 * 365 * 24 * time.Hour
	defaultMinPassing    = 60.0
	dashboardCacheKey    = "nova:dashboard:evaluaciones"
)

type evaluationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Evaluation, error)
	ExistsByTitleAndEvaluator(ctx context.Context, title, evaluatorID string) (bool, error)
	List(ctx context.Context, filter models.EvaluationFilter) ([]models.Evaluation, int, error)
	ListActive(ctx context.Context, now time.Time) ([]models.Evaluation, error)
	ListOverdue(ctx context.Context, now time.Time) ([]models.Evaluation, error)
	ListRecentByEvaluator(ctx context.Context, evaluatorID string, limit int) ([]models.Evaluation, error)
	Create(ctx context.Context, ev *models.Evaluation) error
	Update(ctx context.Context, ev *models.Evaluation) error
	UpdateState(ctx context.Context, id string, state models.EvaluationState, modifiedBy string) error
	Delete(ctx context.Context, id string) error
	Statistics(ctx context.Context, evaluatorID string) (*models.EvaluationStatistics, error)
	CountCreatedSince(ctx context.Context, since time.Time, evaluatorID string) (int, error)
	CountActive(ctx context.Context, now time.Time) (int, error)
	CountOverdue(ctx context.Context, now time.Time) (int, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// EvaluationService enforces the evaluation lifecycle rules.
type EvaluationService struct {
	repo      evaluationRepository
	history   historyWriter
	cache     dashboardCache
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewEvaluationService constructs an EvaluationService.
func NewEvaluationService(repo evaluationRepository, history historyWriter, cache dashboardCache, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *EvaluationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &EvaluationService{repo: repo, history: history, cache: cache, validator: validate, logger: logger, cacheTTL: cacheTTL}
}

// Create validates and persists a new evaluation in draft state.
func (s *EvaluationService) Create(ctx context.Context, req models.CreateEvaluationRequest, caller *models.JWTClaims) (*models.Evaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}

	title := strings.TrimSpace(req.Title)
	if len(title) < 3 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title must be at least 3 characters")
	}

	now := time.Now().UTC()
	if err := validateEvaluationWindow(req.StartDate, req.EndDate, now); err != nil {
		return nil, err
	}

	config := models.EvaluationConfig{MaxRetries: 1}
	if req.Config != nil {
		config = *req.Config
	}
	if config.MaxRetries < 1 || config.MaxRetries > 10 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "max retry count must be between 1 and 10")
	}

	exists, err := s.repo.ExistsByTitleAndEvaluator(ctx, title, caller.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check title uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an evaluation with this title already exists for the evaluator")
	}

	minPassing := defaultMinPassing
	if req.MinPassingScore != nil {
		minPassing = *req.MinPassingScore
	}

	ev := &models.Evaluation{
		Title:            title,
		Description:      req.Description,
		Type:             req.Type,
		State:            models.EvaluationStateDraft,
		StartDate:        req.StartDate.UTC(),
		EndDate:          req.EndDate.UTC(),
		DurationMinutes:  req.DurationMinutes,
		MaxScore:         req.MaxScore,
		MinPassingScore:  minPassing,
		EvaluatorID:      caller.UserID,
		AssignedStudents: pq.StringArray(req.AssignedStudents),
		Instructions:     pq.StringArray(req.Instructions),
		Config:           config,
		Tags:             pq.StringArray(req.Tags),
		Observations:     req.Observations,
		Active:           true,
		CreatedBy:        caller.UserID,
	}

	if err := s.repo.Create(ctx, ev); err != nil {
		if isUnique(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an evaluation with this title already exists for the evaluator")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create evaluation")
	}

	s.emit(ctx, models.HistoryActionEvaluationCreate, fmt.Sprintf("evaluación %q creada", ev.Title), caller.UserID, &ev.ID)
	s.invalidateDashboard(ctx)

	return ev, nil
}

// Get returns one evaluation by id.
func (s *EvaluationService) Get(ctx context.Context, id string) (*models.Evaluation, error) {
	ev, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}
	return ev, nil
}

// List returns evaluations matching the filter.
func (s *EvaluationService) List(ctx context.Context, filter models.EvaluationFilter) ([]models.Evaluation, *models.Pagination, error) {
	evaluations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluations")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return evaluations, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ListActive returns published evaluations currently inside their window.
func (s *EvaluationService) ListActive(ctx context.Context) ([]models.Evaluation, error) {
	evaluations, err := s.repo.ListActive(ctx, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active evaluations")
	}
	return evaluations, nil
}

// ListOverdue returns evaluations past their end date that never finished.
func (s *EvaluationService) ListOverdue(ctx context.Context) ([]models.Evaluation, error) {
	evaluations, err := s.repo.ListOverdue(ctx, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list overdue evaluations")
	}
	return evaluations, nil
}

// Update applies a patch honoring the per-state mutability rules.
func (s *EvaluationService) Update(ctx context.Context, id string, req models.UpdateEvaluationRequest, caller *models.JWTClaims) (*models.Evaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation patch")
	}

	ev, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := requireOwnerOrAdmin(caller, ev.EvaluatorID); err != nil {
		return nil, err
	}

	if ev.State == models.EvaluationStateFinished {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "finished evaluations are immutable")
	}

	if ev.State == models.EvaluationStateInProgress {
		if req.Title != nil || req.Type != nil || req.StartDate != nil || req.EndDate != nil ||
			req.DurationMinutes != nil || req.MaxScore != nil || req.MinPassingScore != nil ||
			req.Config != nil || req.Tags != nil || req.Observations != nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "only description and instructions may change while in progress")
		}
	}

	now := time.Now().UTC()

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if len(title) < 3 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "title must be at least 3 characters")
		}
		if !strings.EqualFold(title, ev.Title) {
			exists, err := s.repo.ExistsByTitleAndEvaluator(ctx, title, ev.EvaluatorID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check title uniqueness")
			}
			if exists {
				return nil, appErrors.Clone(appErrors.ErrConflict, "an evaluation with this title already exists for the evaluator")
			}
		}
		ev.Title = title
	}
	if req.Description != nil {
		ev.Description = *req.Description
	}
	if req.Type != nil {
		ev.Type = *req.Type
	}

	start := ev.StartDate
	end := ev.EndDate
	if req.StartDate != nil {
		start = req.StartDate.UTC()
	}
	if req.EndDate != nil {
		end = req.EndDate.UTC()
	}
	if req.StartDate != nil || req.EndDate != nil {
		if err := validateEvaluationWindow(start, end, now); err != nil {
			return nil, err
		}
		ev.StartDate = start
		ev.EndDate = end
	}

	if req.DurationMinutes != nil {
		ev.DurationMinutes = *req.DurationMinutes
	}
	if req.MaxScore != nil {
		ev.MaxScore = *req.MaxScore
	}
	if req.MinPassingScore != nil {
		ev.MinPassingScore = *req.MinPassingScore
	}
	if req.Instructions != nil {
		ev.Instructions = pq.StringArray(req.Instructions)
	}
	if req.Config != nil {
		if req.Config.MaxRetries < 1 || req.Config.MaxRetries > 10 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "max retry count must be between 1 and 10")
		}
		ev.Config = *req.Config
	}
	if req.Tags != nil {
		ev.Tags = pq.StringArray(req.Tags)
	}
	if req.Observations != nil {
		ev.Observations = req.Observations
	}
	ev.ModifiedBy = &caller.UserID

	if err := s.repo.Update(ctx, ev); err != nil {
		if isUnique(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "an evaluation with this title already exists for the evaluator")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update evaluation")
	}

	s.emit(ctx, models.HistoryActionEvaluationUpdate, fmt.Sprintf("evaluación %q actualizada", ev.Title), caller.UserID, &ev.ID)
	s.invalidateDashboard(ctx)

	return ev, nil
}

// ChangeState transitions an evaluation along the fixed lifecycle graph.
func (s *EvaluationService) ChangeState(ctx context.Context, id string, newState models.EvaluationState, caller *models.JWTClaims) (*models.Evaluation, error) {
	ev, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := requireOwnerOrAdmin(caller, ev.EvaluatorID); err != nil {
		return nil, err
	}

	if !models.CanTransition(ev.State, newState) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot transition from %s to %s", ev.State, newState))
	}

	if err := s.repo.UpdateState(ctx, id, newState, caller.UserID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change evaluation state")
	}

	previous := ev.State
	ev.State = newState
	ev.ModifiedBy = &caller.UserID

	s.emit(ctx, models.HistoryActionEvaluationState,
		fmt.Sprintf("evaluación %q pasó de %s a %s", ev.Title, previous, newState), caller.UserID, &ev.ID)
	s.invalidateDashboard(ctx)

	return ev, nil
}

// AssignStudents replaces the assigned-student set. Only id well-formedness
// is checked.
func (s *EvaluationService) AssignStudents(ctx context.Context, id string, studentIDs []string, caller *models.JWTClaims) (*models.Evaluation, error) {
	ev, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := requireOwnerOrAdmin(caller, ev.EvaluatorID); err != nil {
		return nil, err
	}

	if ev.State == models.EvaluationStateFinished {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "finished evaluations are immutable")
	}

	for _, sid := range studentIDs {
		if strings.TrimSpace(sid) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student ids must not be empty")
		}
	}

	ev.AssignedStudents = pq.StringArray(studentIDs)
	ev.ModifiedBy = &caller.UserID

	if err := s.repo.Update(ctx, ev); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign students")
	}

	return ev, nil
}

// Delete removes an evaluation unless it is in progress or finished.
func (s *EvaluationService) Delete(ctx context.Context, id string, caller *models.JWTClaims) error {
	ev, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := requireOwnerOrAdmin(caller, ev.EvaluatorID); err != nil {
		return err
	}

	if ev.State == models.EvaluationStateInProgress || ev.State == models.EvaluationStateFinished {
		return appErrors.Clone(appErrors.ErrConflict, "evaluations in progress or finished cannot be deleted")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete evaluation")
	}

	s.emit(ctx, models.HistoryActionEvaluationDelete, fmt.Sprintf("evaluación %q eliminada", ev.Title), caller.UserID, &ev.ID)
	s.invalidateDashboard(ctx)

	return nil
}

// Statistics returns aggregate counts, optionally scoped to one evaluator.
func (s *EvaluationService) Statistics(ctx context.Context, evaluatorID string) (*models.EvaluationStatistics, error) {
	stats, err := s.repo.Statistics(ctx, evaluatorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate evaluations")
	}
	stats.AvgStudents = round2(stats.AvgStudents)
	stats.AvgDuration = round2(stats.AvgDuration)
	stats.AvgMaxScore = round2(stats.AvgMaxScore)
	return stats, nil
}

// Dashboard returns the platform-wide evaluation summary, cached in Redis.
func (s *EvaluationService) Dashboard(ctx context.Context) (*models.EvaluationDashboard, error) {
	if s.cache != nil {
		var cached models.EvaluationDashboard
		if err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	now := time.Now().UTC()
	stats, err := s.Statistics(ctx, "")
	if err != nil {
		return nil, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	weekStart := now.AddDate(0, 0, -7)

	newMonth, err := s.repo.CountCreatedSince(ctx, monthStart, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count monthly evaluations")
	}
	newWeek, err := s.repo.CountCreatedSince(ctx, weekStart, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count weekly evaluations")
	}
	activeNow, err := s.repo.CountActive(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count active evaluations")
	}
	overdue, err := s.repo.CountOverdue(ctx, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count overdue evaluations")
	}

	dashboard := &models.EvaluationDashboard{
		Total:        stats.Total,
		NewThisMonth: newMonth,
		NewThisWeek:  newWeek,
		ActiveNow:    activeNow,
		Overdue:      overdue,
		ByState:      stats.ByState,
		ByType:       stats.ByType,
		AvgStudents:  stats.AvgStudents,
		AvgDuration:  stats.AvgDuration,
		GeneratedAt:  now,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, dashboard, s.cacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}

	return dashboard, nil
}

// EvaluatorMetrics summarises one evaluator's activity.
func (s *EvaluationService) EvaluatorMetrics(ctx context.Context, evaluatorID string) (*models.EvaluatorMetrics, error) {
	stats, err := s.repo.Statistics(ctx, evaluatorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate evaluator activity")
	}

	metrics := &models.EvaluatorMetrics{
		EvaluatorID: evaluatorID,
		Created:     stats.Total,
		Finished:    stats.ByState[models.EvaluationStateFinished],
		AvgStudents: round2(stats.AvgStudents),
	}
	metrics.Active = stats.ByState[models.EvaluationStatePublished] + stats.ByState[models.EvaluationStateInProgress]
	if stats.Total > 0 {
		metrics.CompletionRate = round2(float64(metrics.Finished) / float64(stats.Total) * 100)
	}

	recent, err := s.repo.ListRecentByEvaluator(ctx, evaluatorID, 5)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recent evaluations")
	}
	metrics.Recent = recent

	return metrics, nil
}

func (s *EvaluationService) emit(ctx context.Context, action, description, userID string, evaluationID *string) {
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

func (s *EvaluationService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "nova:dashboard:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

// validateEvaluationWindow checks the schedule invariants shared by create
// and update.
func validateEvaluationWindow(start, end, now time.Time) error {
	if !start.Before(end) {
		return appErrors.Clone(appErrors.ErrValidation, "start date must be before end date")
	}
	if start.Before(now) {
		return appErrors.Clone(appErrors.ErrValidation, "start date must not be in the past")
	}
	if end.After(now.Add(evaluationMaxHorizon)) {
		return appErrors.Clone(appErrors.ErrValidation, "end date must be within two years")
	}
	return nil
}

// requireOwnerOrAdmin allows the owning evaluator or any administrator.
func requireOwnerOrAdmin(caller *models.JWTClaims, ownerID string) error {
	if caller == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing caller identity")
	}
	if caller.Role == models.RoleAdministrator || caller.UserID == ownerID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "caller is not the owning evaluator")
}
