package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sena-nova/nova-api/internal/models"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
)

type projectRepository interface {
	FindByID(ctx context.Context, id string) (*models.Project, error)
	List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error)
	ListUnassigned(ctx context.Context) ([]models.Project, error)
	Create(ctx context.Context, project *models.Project) error
	Update(ctx context.Context, project *models.Project) error
	UpdateState(ctx context.Context, id string, state models.ProjectState) error
	Delete(ctx context.Context, id string) error
	Statistics(ctx context.Context) (*models.ProjectStatistics, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
	CountUnassigned(ctx context.Context) (int, error)
}

type projectUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// ProjectService enforces the project lifecycle rules.
type ProjectService struct {
	repo      projectRepository
	users     projectUserReader
	history   historyWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProjectService constructs a ProjectService.
func NewProjectService(repo projectRepository, users projectUserReader, history historyWriter, validate *validator.Validate, logger *zap.Logger) *ProjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProjectService{repo: repo, users: users, history: history, validator: validate, logger: logger}
}

// Create persists a new project in draft state.
func (s *ProjectService) Create(ctx context.Context, req models.CreateProjectRequest, creatorID string) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project payload")
	}

	now := time.Now().UTC()
	if req.DeliveryDate.Before(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "delivery date must be in the future")
	}
	if req.DeliveryDate.After(now.Add(evaluationMaxHorizon)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "delivery date must be within two years")
	}

	project := &models.Project{
		Name:            req.Name,
		Description:     req.Description,
		InstructorIDs:   pq.StringArray(req.InstructorIDs),
		InstructorNames: pq.StringArray(req.InstructorNames),
		DeliveryDate:    req.DeliveryDate.UTC(),
		Format:          req.Format,
		State:           models.ProjectStateDraft,
		CreatorID:       creatorID,
		CohortID:        req.CohortID,
		EvaluationIDs:   pq.StringArray{},
	}

	if err := s.repo.Create(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create project")
	}

	s.emit(ctx, models.HistoryActionProjectCreate, fmt.Sprintf("proyecto %q creado", project.Name), creatorID, &project.ID)

	return project, nil
}

// Get returns one project by id.
func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "project not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load project")
	}
	return project, nil
}

// List returns projects matching the filter.
func (s *ProjectService) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, *models.Pagination, error) {
	projects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list projects")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return projects, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ListAvailable returns active projects without an assigned evaluator.
func (s *ProjectService) ListAvailable(ctx context.Context) ([]models.Project, error) {
	projects, err := s.repo.ListUnassigned(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list available projects")
	}
	return projects, nil
}

// Update patches a project. Projects are editable only while in draft.
func (s *ProjectService) Update(ctx context.Context, id string, req models.UpdateProjectRequest, caller *models.JWTClaims) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid project patch")
	}

	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := requireOwnerOrAdmin(caller, project.CreatorID); err != nil {
		return nil, err
	}

	if project.State != models.ProjectStateDraft {
		return nil, appErrors.Clone(appErrors.ErrConflict, "projects are editable only while in draft")
	}

	now := time.Now().UTC()
	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.InstructorNames != nil {
		project.InstructorNames = pq.StringArray(req.InstructorNames)
	}
	if req.DeliveryDate != nil {
		if req.DeliveryDate.Before(now) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "delivery date must be in the future")
		}
		project.DeliveryDate = req.DeliveryDate.UTC()
	}
	if req.Format != nil {
		project.Format = *req.Format
	}
	if req.CohortID != nil {
		project.CohortID = req.CohortID
	}

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update project")
	}

	s.emit(ctx, models.HistoryActionProjectUpdate, fmt.Sprintf("proyecto %q actualizado", project.Name), caller.UserID, &project.ID)

	return project, nil
}

// ChangeState transitions a project along its lifecycle graph.
func (s *ProjectService) ChangeState(ctx context.Context, id string, newState models.ProjectState, caller *models.JWTClaims) (*models.Project, error) {
	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := requireOwnerOrAdmin(caller, project.CreatorID); err != nil {
		return nil, err
	}

	if !models.CanTransitionProject(project.State, newState) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot transition from %s to %s", project.State, newState))
	}

	if err := s.repo.UpdateState(ctx, id, newState); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change project state")
	}

	previous := project.State
	project.State = newState

	s.emit(ctx, models.HistoryActionProjectState,
		fmt.Sprintf("proyecto %q pasó de %s a %s", project.Name, previous, newState), caller.UserID, &project.ID)

	return project, nil
}

// AssignEvaluator binds an evaluator to a project. The target must be an
// active evaluator or administrator.
func (s *ProjectService) AssignEvaluator(ctx context.Context, id, evaluatorID string, callerID string) (*models.Project, error) {
	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	evaluator, err := s.users.FindByID(ctx, evaluatorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluator not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluator")
	}
	if evaluator.Role != models.RoleEvaluator && evaluator.Role != models.RoleAdministrator {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignee must be an evaluator or administrator")
	}
	if !evaluator.Active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "assignee account is inactive")
	}

	project.AssignedEvaluatorID = &evaluator.ID

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign evaluator")
	}

	s.emit(ctx, models.HistoryActionProjectUpdate,
		fmt.Sprintf("evaluador asignado al proyecto %q", project.Name), callerID, &project.ID)

	return project, nil
}

// AddInstructor appends an instructor reference to a project.
func (s *ProjectService) AddInstructor(ctx context.Context, id string, req models.AddInstructorRequest, callerID string) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instructor payload")
	}

	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, existing := range project.InstructorIDs {
		if existing == req.InstructorID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "instructor already linked to project")
		}
	}

	project.InstructorIDs = append(project.InstructorIDs, req.InstructorID)
	project.InstructorNames = append(project.InstructorNames, req.InstructorName)

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add instructor")
	}

	return project, nil
}

// RemoveInstructor drops an instructor reference from a project.
func (s *ProjectService) RemoveInstructor(ctx context.Context, id, instructorID string, callerID string) (*models.Project, error) {
	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, existing := range project.InstructorIDs {
		if existing == instructorID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not linked to project")
	}

	project.InstructorIDs = append(project.InstructorIDs[:idx], project.InstructorIDs[idx+1:]...)
	if idx < len(project.InstructorNames) {
		project.InstructorNames = append(project.InstructorNames[:idx], project.InstructorNames[idx+1:]...)
	}

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove instructor")
	}

	return project, nil
}

// Delete removes a project unless it is active or completed.
func (s *ProjectService) Delete(ctx context.Context, id string, caller *models.JWTClaims) error {
	project, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := requireOwnerOrAdmin(caller, project.CreatorID); err != nil {
		return err
	}

	if project.State == models.ProjectStateActive || project.State == models.ProjectStateCompleted {
		return appErrors.Clone(appErrors.ErrConflict, "active or completed projects cannot be deleted")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete project")
	}

	s.emit(ctx, models.HistoryActionProjectDelete, fmt.Sprintf("proyecto %q eliminado", project.Name), caller.UserID, &project.ID)

	return nil
}

// Statistics returns aggregate project counts.
func (s *ProjectService) Statistics(ctx context.Context) (*models.ProjectStatistics, error) {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate projects")
	}
	stats.CompletionRate = round2(stats.CompletionRate)
	return stats, nil
}

// Dashboard summarises platform-wide project activity.
func (s *ProjectService) Dashboard(ctx context.Context) (*models.ProjectDashboard, error) {
	now := time.Now().UTC()
	stats, err := s.Statistics(ctx)
	if err != nil {
		return nil, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	newMonth, err := s.repo.CountCreatedSince(ctx, monthStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count monthly projects")
	}
	unassigned, err := s.repo.CountUnassigned(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unassigned projects")
	}

	return &models.ProjectDashboard{
		Total:        stats.Total,
		NewThisMonth: newMonth,
		ByState:      stats.ByState,
		Unassigned:   unassigned,
		GeneratedAt:  now,
	}, nil
}

func (s *ProjectService) emit(ctx context.Context, action, description, userID string, projectID *string) {
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
