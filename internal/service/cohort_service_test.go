package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sena-nova/nova-api/internal/models"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
)

type mockCohortRepo struct {
	items    map[string]*models.Cohort
	byNumber map[string]*models.Cohort
}

func (m *mockCohortRepo) FindByID(ctx context.Context, id string) (*models.Cohort, error) {
	if c, ok := m.items[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCohortRepo) FindByNumber(ctx context.Context, number string) (*models.Cohort, error) {
	if c, ok := m.byNumber[number]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCohortRepo) List(ctx context.Context, filter models.CohortFilter) ([]models.Cohort, int, error) {
	return nil, 0, nil
}

func (m *mockCohortRepo) ListActive(ctx context.Context) ([]models.Cohort, error) {
	return nil, nil
}

func (m *mockCohortRepo) Create(ctx context.Context, cohort *models.Cohort) error {
	if m.items == nil {
		m.items = make(map[string]*models.Cohort)
	}
	if m.byNumber == nil {
		m.byNumber = make(map[string]*models.Cohort)
	}
	if cohort.ID == "" {
		cohort.ID = uuid.NewString()
	}
	cp := *cohort
	m.items[cohort.ID] = &cp
	m.byNumber[cohort.Number] = &cp
	return nil
}

func (m *mockCohortRepo) Update(ctx context.Context, cohort *models.Cohort) error {
	cp := *cohort
	m.items[cohort.ID] = &cp
	return nil
}

func (m *mockCohortRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func (m *mockCohortRepo) Statistics(ctx context.Context) (*models.CohortStatistics, error) {
	return &models.CohortStatistics{}, nil
}

type mockCohortUserReader struct {
	items map[string]*models.User
}

func (m *mockCohortUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.items[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func newCohortService(repo *mockCohortRepo) *CohortService {
	users := &mockCohortUserReader{items: map[string]*models.User{
		"st-1": {ID: "st-1", Role: models.RoleStudent, Active: true},
		"st-2": {ID: "st-2", Role: models.RoleStudent, Active: true},
		"st-3": {ID: "st-3", Role: models.RoleStudent, Active: false},
		"ev-1": {ID: "ev-1", Role: models.RoleEvaluator, Active: true},
	}}
	return NewCohortService(repo, users, &mockHistory{}, validator.New(), zap.NewNop())
}

func validCreateCohortRequest() models.CreateCohortRequest {
	return models.CreateCohortRequest{
		Number:         "2826503",
		Program:        "Análisis y Desarrollo de Software",
		Level:          "tecnólogo",
		Modality:       "presencial",
		DurationMonths: 24,
		StartDate:      time.Now().Add(24 * time.Hour),
		EndDate:        time.Now().Add(730 * 24 * time.Hour),
		MaxCapacity:    30,
	}
}

func TestCohortServiceCreate(t *testing.T) {
	repo := &mockCohortRepo{}
	svc := newCohortService(repo)

	cohort, err := svc.Create(context.Background(), validCreateCohortRequest(), "admin-1")
	require.NoError(t, err)
	assert.True(t, cohort.Active)
	assert.Equal(t, "2826503", cohort.Number)
}

func TestCohortServiceCreateDuplicateNumber(t *testing.T) {
	repo := &mockCohortRepo{byNumber: map[string]*models.Cohort{
		"2826503": {ID: "f1", Number: "2826503"},
	}}
	svc := newCohortService(repo)

	_, err := svc.Create(context.Background(), validCreateCohortRequest(), "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCohortServiceCreateRejectsInvertedDates(t *testing.T) {
	svc := newCohortService(&mockCohortRepo{})

	req := validCreateCohortRequest()
	req.EndDate = req.StartDate.Add(-time.Hour)

	_, err := svc.Create(context.Background(), req, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCohortServiceAddStudentEnforcesCapacity(t *testing.T) {
	repo := &mockCohortRepo{items: map[string]*models.Cohort{
		"f1": {ID: "f1", Number: "2826503", Active: true, MaxCapacity: 1, StudentIDs: []string{"st-1"}},
	}}
	svc := newCohortService(repo)

	_, err := svc.AddStudent(context.Background(), "f1", "st-2", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, appErrors.FromError(err).Code)
}

func TestCohortServiceAddStudentRejectsDuplicateAndInactive(t *testing.T) {
	repo := &mockCohortRepo{items: map[string]*models.Cohort{
		"f1": {ID: "f1", Number: "2826503", Active: true, MaxCapacity: 30, StudentIDs: []string{"st-1"}},
	}}
	svc := newCohortService(repo)

	_, err := svc.AddStudent(context.Background(), "f1", "st-1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.AddStudent(context.Background(), "f1", "st-3", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.AddStudent(context.Background(), "f1", "ev-1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	cohort, err := svc.AddStudent(context.Background(), "f1", "st-2", "admin-1")
	require.NoError(t, err)
	assert.Len(t, cohort.StudentIDs, 2)
}

func TestCohortServiceUpdateCapacityBelowEnrolment(t *testing.T) {
	repo := &mockCohortRepo{items: map[string]*models.Cohort{
		"f1": {ID: "f1", Number: "2826503", Active: true, MaxCapacity: 30, StudentIDs: []string{"st-1", "st-2"}},
	}}
	svc := newCohortService(repo)

	capacity := 1
	_, err := svc.Update(context.Background(), "f1", models.UpdateCohortRequest{MaxCapacity: &capacity}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCohortServiceAddInstructorRequiresEvaluatorRole(t *testing.T) {
	repo := &mockCohortRepo{items: map[string]*models.Cohort{
		"f1": {ID: "f1", Number: "2826503", Active: true},
	}}
	svc := newCohortService(repo)

	_, err := svc.AddInstructor(context.Background(), "f1", "st-1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	cohort, err := svc.AddInstructor(context.Background(), "f1", "ev-1", "admin-1")
	require.NoError(t, err)
	assert.Contains(t, cohort.InstructorIDs, "ev-1")
}

func TestCohortServiceDeleteBlockedWithStudents(t *testing.T) {
	repo := &mockCohortRepo{items: map[string]*models.Cohort{
		"f1": {ID: "f1", Number: "2826503", StudentIDs: []string{"st-1"}},
		"f2": {ID: "f2", Number: "2826504"},
	}}
	svc := newCohortService(repo)

	err := svc.Delete(context.Background(), "f1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), "f2"))
}

func TestCohortServiceRemoveStudent(t *testing.T) {
	repo := &mockCohortRepo{items: map[string]*models.Cohort{
		"f1": {ID: "f1", Number: "2826503", Active: true, StudentIDs: []string{"st-1", "st-2"}},
	}}
	svc := newCohortService(repo)

	cohort, err := svc.RemoveStudent(context.Background(), "f1", "st-1", "admin-1")
	require.NoError(t, err)
	require.Len(t, cohort.StudentIDs, 1)
	assert.Equal(t, "st-2", cohort.StudentIDs[0])

	_, err = svc.RemoveStudent(context.Background(), "f1", "st-9", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
