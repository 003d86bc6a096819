package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sena-nova/nova-api/internal/models"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
)

type assignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error
}

type assignmentUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

type assignmentProjectReader interface {
	FindByID(ctx context.Context, id string) (*models.Project, error)
}

// AssignmentService manages project assignments.
type AssignmentService struct {
	repo      assignmentRepository
	users     assignmentUserReader
	projects  assignmentProjectReader
	history   historyWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(repo assignmentRepository, users assignmentUserReader, projects assignmentProjectReader, history historyWriter, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AssignmentService{repo: repo, users: users, projects: projects, history: history, validator: validate, logger: logger}
}

// Create binds a project to an evaluator and a student.
func (s *AssignmentService) Create(ctx context.Context, req models.CreateAssignmentRequest, creatorID string) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	if _, err := s.projects.FindByID(ctx, req.ProjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}

	evaluator, err := s.users.FindByID(ctx, req.EvaluatorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluator not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluator")
	}
	if evaluator.Role != models.RoleEvaluator && evaluator.Role != models.RoleAdministrator {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignee must be an evaluator or administrator")
	}

	student, err := s.users.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target must be a student")
	}

	assignment := &models.Assignment{
		ProjectID:    req.ProjectID,
		EvaluatorID:  req.EvaluatorID,
		StudentID:    req.StudentID,
		State:        models.AssignmentStatePending,
		Observations: req.Observations,
	}

	if err := s.repo.Create(ctx, assignment); err != nil {
		if isUnique(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "assignment already exists for this project, evaluator and student")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	s.emit(ctx, models.HistoryActionAssignmentCreate,
		fmt.Sprintf("asignación creada para el proyecto %s", assignment.ProjectID), creatorID, &assignment.ProjectID)

	return assignment, nil
}

// Get returns an assignment with its project, evaluator and student expanded.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	s.expand(ctx, assignment)

	return assignment, nil
}

// List returns assignments matching the filter.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, *models.Pagination, error) {
	assignments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return assignments, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Update patches an assignment's state or observations.
func (s *AssignmentService) Update(ctx context.Context, id string, req models.UpdateAssignmentRequest, caller *models.JWTClaims) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment patch")
	}

	assignment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := requireOwnerOrAdmin(caller, assignment.EvaluatorID); err != nil {
		return nil, err
	}

	if assignment.State == models.AssignmentStateCompleted {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "completed assignments can no longer change")
	}

	if req.State != nil {
		if *req.State == models.AssignmentStateCompleted {
			return nil, appErrors.Clone(appErrors.ErrValidation, "use the completion endpoint to finish an assignment")
		}
		assignment.State = *req.State
	}
	if req.Observations != nil {
		assignment.Observations = req.Observations
	}

	if err := s.repo.Update(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}

	return assignment, nil
}

// Complete marks an assignment as done, stamping the completion time and the
// optional evaluation that closed it. Only the bound evaluator or an
// administrator may complete it.
func (s *AssignmentService) Complete(ctx context.Context, id string, req models.CompleteAssignmentRequest, caller *models.JWTClaims) (*models.Assignment, error) {
	assignment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := requireOwnerOrAdmin(caller, assignment.EvaluatorID); err != nil {
		return nil, err
	}

	if assignment.State == models.AssignmentStateCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "assignment is already completed")
	}

	now := time.Now().UTC()
	assignment.State = models.AssignmentStateCompleted
	assignment.CompletedAt = &now
	if req.EvaluationID != nil {
		assignment.EvaluationID = req.EvaluationID
	}
	if req.Observations != nil {
		assignment.Observations = req.Observations
	}

	if err := s.repo.Update(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete assignment")
	}

	s.emit(ctx, models.HistoryActionAssignmentDone,
		fmt.Sprintf("asignación %s completada", assignment.ID), caller.UserID, &assignment.ProjectID)

	return assignment, nil
}

// Delete removes an assignment.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	return nil
}

func (s *AssignmentService) expand(ctx context.Context, assignment *models.Assignment) {
	if s.projects != nil {
		if project, err := s.projects.FindByID(ctx, assignment.ProjectID); err == nil {
			assignment.Project = project
		}
	}
	if s.users == nil {
		return
	}
	users, err := s.users.FindByIDs(ctx, []string{assignment.EvaluatorID, assignment.StudentID})
	if err != nil {
		s.logger.Warn("failed to expand assignment participants", zap.String("id", assignment.ID), zap.Error(err))
		return
	}
	if evaluator, ok := users[assignment.EvaluatorID]; ok {
		assignment.Evaluator = &evaluator
	}
	if student, ok := users[assignment.StudentID]; ok {
		assignment.Student = &student
	}
}

func (s *AssignmentService) emit(ctx context.Context, action, description, userID string, projectID *string) {
	if s.history == nil {
		return
	}
	if err := s.history.Create(ctx, &models.HistoryEntry{
		Action:      action,
		Description: description,
		UserID:      userID,
		ProjectID:   projectID,
	}); err != nil {
		s.logger.Warn("failed to record history entry", zap.String("action", action), zap.Error(err))
	}
}
