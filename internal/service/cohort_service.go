package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sena-nova/nova-api/internal/models"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
)

type cohortRepository interface {
	FindByID(ctx context.Context, id string) (*models.Cohort, error)
	FindByNumber(ctx context.Context, number string) (*models.Cohort, error)
	List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, int, error)
	ListActive(ctx context.Context) ([]models.Cohort, error)
	Create(ctx context.Context, cohort *models.Cohort) error
	Update(ctx context.Context, cohort *models.Cohort) error
	Delete(ctx context.Context, id string) error
	Statistics(ctx context.Context) (*models.CohortStatistics, error)
}

type cohortUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CohortService manages fichas and their membership.
type CohortService struct {
	repo      cohortRepository
	users     cohortUserReader
	history   historyWriter
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCohortService constructs a CohortService.
func NewCohortService(repo cohortRepository, users cohortUserReader, history historyWriter, validate *validator.Validate, logger *zap.Logger) *CohortService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CohortService{repo: repo, users: users, history: history, validator: validate, logger: logger}
}

// Create registers a new cohort. Numbers are unique across the platform.
func (s *CohortService) Create(ctx context.Context, req models.CreateCohortRequest, creatorID string) (*models.Cohort, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cohort payload")
	}

	if !req.EndDate.After(req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}

	if existing, err := s.repo.FindByNumber(ctx, req.Number); err == nil && existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a cohort with this number already exists")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check cohort number")
	}

	cohort := &models.Cohort{
		Number:         req.Number,
		Program:        req.Program,
		Level:          req.Level,
		Modality:       req.Modality,
		DurationMonths: req.DurationMonths,
		StartDate:      req.StartDate.UTC(),
		EndDate:        req.EndDate.UTC(),
		Active:         true,
		CoordinatorID:  req.CoordinatorID,
		InstructorIDs:  pq.StringArray{},
		StudentIDs:     pq.StringArray{},
		MaxCapacity:    req.MaxCapacity,
		Campus:         req.Campus,
		Shift:          req.Shift,
	}

	if err := s.repo.Create(ctx, cohort); err != nil {
		if isUnique(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a cohort with this number already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create cohort")
	}

	s.emit(ctx, models.HistoryActionCohortCreate, fmt.Sprintf("ficha %s creada", cohort.Number), creatorID)

	return cohort, nil
}

// Get returns one cohort by id.
func (s *CohortService) Get(ctx context.Context, id string) (*models.Cohort, error) {
	cohort, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}
	return cohort, nil
}

// GetByNumber returns one cohort by its public number.
func (s *CohortService) GetByNumber(ctx context.Context, number string) (*models.Cohort, error) {
	cohort, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "cohort not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}
	return cohort, nil
}

// List returns cohorts matching the filter.
func (s *CohortService) List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, *models.Pagination, error) {
	cohorts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cohorts")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return cohorts, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// ListActive returns active cohorts.
func (s *CohortService) ListActive(ctx context.Context) ([]models.Cohort, error) {
	cohorts, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active cohorts")
	}
	return cohorts, nil
}

// Update patches a cohort. The number never changes once assigned.
func (s *CohortService) Update(ctx context.Context, id string, req models.UpdateCohortRequest, callerID string) (*models.Cohort, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cohort patch")
	}

	cohort, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Program != nil {
		cohort.Program = *req.Program
	}
	if req.Level != nil {
		cohort.Level = *req.Level
	}
	if req.Modality != nil {
		cohort.Modality = *req.Modality
	}
	if req.DurationMonths != nil {
		cohort.DurationMonths = *req.DurationMonths
	}
	if req.StartDate != nil {
		cohort.StartDate = req.StartDate.UTC()
	}
	if req.EndDate != nil {
		cohort.EndDate = req.EndDate.UTC()
	}
	if !cohort.EndDate.After(cohort.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must be after start date")
	}
	if req.Active != nil {
		cohort.Active = *req.Active
	}
	if req.CoordinatorID != nil {
		cohort.CoordinatorID = req.CoordinatorID
	}
	if req.MaxCapacity != nil {
		if *req.MaxCapacity > 0 && len(cohort.StudentIDs) > *req.MaxCapacity {
			return nil, appErrors.Clone(appErrors.ErrValidation, "capacity cannot drop below current enrolment")
		}
		cohort.MaxCapacity = *req.MaxCapacity
	}
	if req.Campus != nil {
		cohort.Campus = *req.Campus
	}
	if req.Shift != nil {
		cohort.Shift = *req.Shift
	}

	if err := s.repo.Update(ctx, cohort); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update cohort")
	}

	return cohort, nil
}

// AddStudent enrolls a student, enforcing capacity and uniqueness.
func (s *CohortService) AddStudent(ctx context.Context, id, userID string, callerID string) (*models.Cohort, error) {
	cohort, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrValidation, "member must be a student")
	}

	for _, existing := range cohort.StudentIDs {
		if existing == userID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student already enrolled in cohort")
		}
	}
	if cohort.MaxCapacity > 0 && len(cohort.StudentIDs) >= cohort.MaxCapacity {
		return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, "cohort is at maximum capacity")
	}

	cohort.StudentIDs = append(cohort.StudentIDs, userID)

	if err := s.repo.Update(ctx, cohort); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enroll student")
	}

	s.emit(ctx, models.HistoryActionCohortMemberAdd,
		fmt.Sprintf("estudiante agregado a la ficha %s", cohort.Number), callerID)

	return cohort, nil
}

// RemoveStudent withdraws a student from a cohort.
func (s *CohortService) RemoveStudent(ctx context.Context, id, userID string, callerID string) (*models.Cohort, error) {
	cohort, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	idx := indexOf(cohort.StudentIDs, userID)
	if idx == -1 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in cohort")
	}
	cohort.StudentIDs = append(cohort.StudentIDs[:idx], cohort.StudentIDs[idx+1:]...)

	if err := s.repo.Update(ctx, cohort); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw student")
	}

	s.emit(ctx, models.HistoryActionCohortMemberDrop,
		fmt.Sprintf("estudiante retirado de la ficha %s", cohort.Number), callerID)

	return cohort, nil
}

// AddInstructor links an instructor to a cohort.
func (s *CohortService) AddInstructor(ctx context.Context, id, userID string, callerID string) (*models.Cohort, error) {
	cohort, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleEvaluator && user.Role != models.RoleAdministrator {
		return nil, appErrors.Clone(appErrors.ErrValidation, "instructor must be an evaluator or administrator")
	}

	for _, existing := range cohort.InstructorIDs {
		if existing == userID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "instructor already linked to cohort")
		}
	}
	cohort.InstructorIDs = append(cohort.InstructorIDs, userID)

	if err := s.repo.Update(ctx, cohort); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link instructor")
	}

	s.emit(ctx, models.HistoryActionCohortMemberAdd,
		fmt.Sprintf("instructor agregado a la ficha %s", cohort.Number), callerID)

	return cohort, nil
}

// RemoveInstructor unlinks an instructor from a cohort.
func (s *CohortService) RemoveInstructor(ctx context.Context, id, userID string, callerID string) (*models.Cohort, error) {
	cohort, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	idx := indexOf(cohort.InstructorIDs, userID)
	if idx == -1 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not linked to cohort")
	}
	cohort.InstructorIDs = append(cohort.InstructorIDs[:idx], cohort.InstructorIDs[idx+1:]...)

	if err := s.repo.Update(ctx, cohort); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unlink instructor")
	}

	s.emit(ctx, models.HistoryActionCohortMemberDrop,
		fmt.Sprintf("instructor retirado de la ficha %s", cohort.Number), callerID)

	return cohort, nil
}

// Delete removes a cohort. Cohorts with enrolled students cannot be deleted.
func (s *CohortService) Delete(ctx context.Context, id string) error {
	cohort, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if len(cohort.StudentIDs) > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "cohorts with enrolled students cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete cohort")
	}
	return nil
}

// Statistics returns aggregate cohort counts.
func (s *CohortService) Statistics(ctx context.Context) (*models.CohortStatistics, error) {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate cohorts")
	}
	return stats, nil
}

func (s *CohortService) loadUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user account is inactive")
	}
	return user, nil
}

func (s *CohortService) emit(ctx context.Context, action, description, userID string) {
	if s.history == nil {
		return
	}
	if err := s.history.Create(ctx, &models.HistoryEntry{
		Action:      action,
		Description: description,
		UserID:      userID,
	}); err != nil {
		s.logger.Warn("failed to record history entry", zap.String("action", action), zap.Error(err))
	}
}

func indexOf(values pq.StringArray, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return -1
}
