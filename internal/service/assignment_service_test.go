package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sena-nova/nova-api/internal/models"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
)

type mockAssignmentRepo struct {
	items map[string]*models.Assignment
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if a, ok := m.items[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) List(ctx context.Context, filter models.AssignmentFilter) ([]models.Assignment, int, error) {
	return nil, 0, nil
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	if m.items == nil {
		m.items = make(map[string]*models.Assignment)
	}
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	cp := *assignment
	m.items[assignment.ID] = &cp
	return nil
}

func (m *mockAssignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	cp := *assignment
	m.items[assignment.ID] = &cp
	return nil
}

func (m *mockAssignmentRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type mockAssignmentUserReader struct {
	items map[string]*models.User
}

func (m *mockAssignmentUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.items[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentUserReader) FindByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User)
	for _, id := range ids {
		if u, ok := m.items[id]; ok {
			out[id] = *u
		}
	}
	return out, nil
}

type mockAssignmentProjectReader struct {
	items map[string]*models.Project
}

func (m *mockAssignmentProjectReader) FindByID(ctx context.Context, id string) (*models.Project, error) {
	if p, ok := m.items[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func newAssignmentService(repo *mockAssignmentRepo) *AssignmentService {
	users := &mockAssignmentUserReader{items: map[string]*models.User{
		"ev-1": {ID: "ev-1", Role: models.RoleEvaluator, Active: true, FirstName: "Luis"},
		"st-1": {ID: "st-1", Role: models.RoleStudent, Active: true, FirstName: "Ana"},
	}}
	projects := &mockAssignmentProjectReader{items: map[string]*models.Project{
		"p1": {ID: "p1", Name: "Inventario", State: models.ProjectStateActive},
	}}
	return NewAssignmentService(repo, users, projects, &mockHistory{}, validator.New(), zap.NewNop())
}

func TestAssignmentServiceCreate(t *testing.T) {
	repo := &mockAssignmentRepo{}
	svc := newAssignmentService(repo)

	assignment, err := svc.Create(context.Background(), models.CreateAssignmentRequest{
		ProjectID:   "p1",
		EvaluatorID: "ev-1",
		StudentID:   "st-1",
	}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatePending, assignment.State)
}

func TestAssignmentServiceCreateValidatesParticipants(t *testing.T) {
	svc := newAssignmentService(&mockAssignmentRepo{})

	_, err := svc.Create(context.Background(), models.CreateAssignmentRequest{
		ProjectID:   "missing",
		EvaluatorID: "ev-1",
		StudentID:   "st-1",
	}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), models.CreateAssignmentRequest{
		ProjectID:   "p1",
		EvaluatorID: "st-1",
		StudentID:   "st-1",
	}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), models.CreateAssignmentRequest{
		ProjectID:   "p1",
		EvaluatorID: "ev-1",
		StudentID:   "ev-1",
	}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceGetExpandsParticipants(t *testing.T) {
	repo := &mockAssignmentRepo{items: map[string]*models.Assignment{
		"a1": {ID: "a1", ProjectID: "p1", EvaluatorID: "ev-1", StudentID: "st-1", State: models.AssignmentStatePending},
	}}
	svc := newAssignmentService(repo)

	assignment, err := svc.Get(context.Background(), "a1")
	require.NoError(t, err)
	require.NotNil(t, assignment.Project)
	assert.Equal(t, "Inventario", assignment.Project.Name)
	require.NotNil(t, assignment.Evaluator)
	assert.Equal(t, "Luis", assignment.Evaluator.FirstName)
	require.NotNil(t, assignment.Student)
	assert.Equal(t, "Ana", assignment.Student.FirstName)
}

func TestAssignmentServiceUpdateRejectsCompletionShortcut(t *testing.T) {
	repo := &mockAssignmentRepo{items: map[string]*models.Assignment{
		"a1": {ID: "a1", ProjectID: "p1", EvaluatorID: "ev-1", StudentID: "st-1", State: models.AssignmentStatePending},
	}}
	svc := newAssignmentService(repo)

	completed := models.AssignmentStateCompleted
	_, err := svc.Update(context.Background(), "a1", models.UpdateAssignmentRequest{State: &completed}, evaluatorClaims("ev-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	inProcess := models.AssignmentStateInProcess
	assignment, err := svc.Update(context.Background(), "a1", models.UpdateAssignmentRequest{State: &inProcess}, evaluatorClaims("ev-1"))
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStateInProcess, assignment.State)
}

func TestAssignmentServiceComplete(t *testing.T) {
	repo := &mockAssignmentRepo{items: map[string]*models.Assignment{
		"a1": {ID: "a1", ProjectID: "p1", EvaluatorID: "ev-1", StudentID: "st-1", State: models.AssignmentStateInProcess},
	}}
	svc := newAssignmentService(repo)

	evaluationID := "e1"
	assignment, err := svc.Complete(context.Background(), "a1", models.CompleteAssignmentRequest{EvaluationID: &evaluationID}, evaluatorClaims("ev-1"))
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStateCompleted, assignment.State)
	require.NotNil(t, assignment.CompletedAt)
	require.NotNil(t, assignment.EvaluationID)
	assert.Equal(t, "e1", *assignment.EvaluationID)

	_, err = svc.Complete(context.Background(), "a1", models.CompleteAssignmentRequest{}, evaluatorClaims("ev-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceCompleteRequiresBoundEvaluator(t *testing.T) {
	repo := &mockAssignmentRepo{items: map[string]*models.Assignment{
		"a1": {ID: "a1", ProjectID: "p1", EvaluatorID: "ev-1", StudentID: "st-1", State: models.AssignmentStatePending},
	}}
	svc := newAssignmentService(repo)

	_, err := svc.Complete(context.Background(), "a1", models.CompleteAssignmentRequest{}, evaluatorClaims("ev-9"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceUpdateCompletedIsFinalized(t *testing.T) {
	repo := &mockAssignmentRepo{items: map[string]*models.Assignment{
		"a1": {ID: "a1", ProjectID: "p1", EvaluatorID: "ev-1", StudentID: "st-1", State: models.AssignmentStateCompleted},
	}}
	svc := newAssignmentService(repo)

	obs := "revisión final"
	_, err := svc.Update(context.Background(), "a1", models.UpdateAssignmentRequest{Observations: &obs}, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFinalized.Code, appErrors.FromError(err).Code)
}
