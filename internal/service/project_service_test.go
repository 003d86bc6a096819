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

type mockProjectRepo struct {
	items   map[string]*models.Project
	deleted []string
}

func (m *mockProjectRepo) FindByID(ctx context.Context, id string) (*models.Project, error) {
	if p, ok := m.items[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockProjectRepo) List(ctx context.Context, filter models.ProjectFilter) ([]models.Project, int, error) {
	return nil, 0, nil
}

func (m *mockProjectRepo) ListUnassigned(ctx context.Context) ([]models.Project, error) {
	return nil, nil
}

func (m *mockProjectRepo) Create(ctx context.Context, project *models.Project) error {
	if m.items == nil {
		m.items = make(map[string]*models.Project)
	}
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	cp := *project
	m.items[project.ID] = &cp
	return nil
}

func (m *mockProjectRepo) Update(ctx context.Context, project *models.Project) error {
	cp := *project
	m.items[project.ID] = &cp
	return nil
}

func (m *mockProjectRepo) UpdateState(ctx context.Context, id string, state models.ProjectState) error {
	if p, ok := m.items[id]; ok {
		p.State = state
	}
	return nil
}

func (m *mockProjectRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func (m *mockProjectRepo) Statistics(ctx context.Context) (*models.ProjectStatistics, error) {
	return &models.ProjectStatistics{}, nil
}

func (m *mockProjectRepo) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	return 0, nil
}

func (m *mockProjectRepo) CountUnassigned(ctx context.Context) (int, error) {
	return 0, nil
}

type mockProjectUserReader struct {
	items map[string]*models.User
}

func (m *mockProjectUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.items[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func newProjectService(repo *mockProjectRepo) *ProjectService {
	users := &mockProjectUserReader{items: map[string]*models.User{
		"ev-1": {ID: "ev-1", Role: models.RoleEvaluator, Active: true},
		"ev-2": {ID: "ev-2", Role: models.RoleEvaluator, Active: false},
		"st-1": {ID: "st-1", Role: models.RoleStudent, Active: true},
	}}
	return NewProjectService(repo, users, &mockHistory{}, validator.New(), zap.NewNop())
}

func validCreateProjectRequest() models.CreateProjectRequest {
	return models.CreateProjectRequest{
		Name:         "Sistema de inventario",
		Description:  "Proyecto formativo del trimestre",
		DeliveryDate: time.Now().Add(30 * 24 * time.Hour),
		Format:       "digital",
	}
}

func TestProjectServiceCreateStartsAsDraft(t *testing.T) {
	repo := &mockProjectRepo{}
	svc := newProjectService(repo)

	project, err := svc.Create(context.Background(), validCreateProjectRequest(), "st-1")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStateDraft, project.State)
	assert.Equal(t, "st-1", project.CreatorID)
}

func TestProjectServiceCreateRejectsPastDelivery(t *testing.T) {
	svc := newProjectService(&mockProjectRepo{})

	req := validCreateProjectRequest()
	req.DeliveryDate = time.Now().Add(-time.Hour)

	_, err := svc.Create(context.Background(), req, "st-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestProjectServiceUpdateOnlyInDraft(t *testing.T) {
	repo := &mockProjectRepo{items: map[string]*models.Project{
		"p1": {ID: "p1", Name: "Inventario", State: models.ProjectStateActive, CreatorID: "st-1"},
	}}
	svc := newProjectService(repo)

	name := "Inventario v2"
	_, err := svc.Update(context.Background(), "p1", models.UpdateProjectRequest{Name: &name}, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestProjectServiceChangeStateFollowsLifecycle(t *testing.T) {
	repo := &mockProjectRepo{items: map[string]*models.Project{
		"p1": {ID: "p1", Name: "Inventario", State: models.ProjectStateDraft, CreatorID: "st-1"},
	}}
	svc := newProjectService(repo)

	project, err := svc.ChangeState(context.Background(), "p1", models.ProjectStateActive, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStateActive, project.State)

	_, err = svc.ChangeState(context.Background(), "p1", models.ProjectStateDraft, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestProjectServiceAssignEvaluator(t *testing.T) {
	repo := &mockProjectRepo{items: map[string]*models.Project{
		"p1": {ID: "p1", Name: "Inventario", State: models.ProjectStateActive, CreatorID: "st-1"},
	}}
	svc := newProjectService(repo)

	project, err := svc.AssignEvaluator(context.Background(), "p1", "ev-1", "admin-1")
	require.NoError(t, err)
	require.NotNil(t, project.AssignedEvaluatorID)
	assert.Equal(t, "ev-1", *project.AssignedEvaluatorID)
}

func TestProjectServiceAssignEvaluatorRejectsStudentAndInactive(t *testing.T) {
	repo := &mockProjectRepo{items: map[string]*models.Project{
		"p1": {ID: "p1", Name: "Inventario", State: models.ProjectStateActive, CreatorID: "st-1"},
	}}
	svc := newProjectService(repo)

	_, err := svc.AssignEvaluator(context.Background(), "p1", "st-1", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.AssignEvaluator(context.Background(), "p1", "ev-2", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestProjectServiceAddInstructorRejectsDuplicate(t *testing.T) {
	repo := &mockProjectRepo{items: map[string]*models.Project{
		"p1": {ID: "p1", Name: "Inventario", State: models.ProjectStateDraft, CreatorID: "st-1",
			InstructorIDs: []string{"in-1"}, InstructorNames: []string{"Carlos Pérez"}},
	}}
	svc := newProjectService(repo)

	_, err := svc.AddInstructor(context.Background(), "p1", models.AddInstructorRequest{
		InstructorID:   "in-1",
		InstructorName: "Carlos Pérez",
	}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	project, err := svc.AddInstructor(context.Background(), "p1", models.AddInstructorRequest{
		InstructorID:   "in-2",
		InstructorName: "Lucía Gómez",
	}, "admin-1")
	require.NoError(t, err)
	assert.Len(t, project.InstructorIDs, 2)
	assert.Len(t, project.InstructorNames, 2)
}

func TestProjectServiceRemoveInstructorKeepsSlicesAligned(t *testing.T) {
	repo := &mockProjectRepo{items: map[string]*models.Project{
		"p1": {ID: "p1", Name: "Inventario", State: models.ProjectStateDraft, CreatorID: "st-1",
			InstructorIDs: []string{"in-1", "in-2"}, InstructorNames: []string{"Carlos Pérez", "Lucía Gómez"}},
	}}
	svc := newProjectService(repo)

	project, err := svc.RemoveInstructor(context.Background(), "p1", "in-1", "admin-1")
	require.NoError(t, err)
	require.Len(t, project.InstructorIDs, 1)
	assert.Equal(t, "in-2", project.InstructorIDs[0])
	require.Len(t, project.InstructorNames, 1)
	assert.Equal(t, "Lucía Gómez", project.InstructorNames[0])
}

func TestProjectServiceDeleteGates(t *testing.T) {
	repo := &mockProjectRepo{items: map[string]*models.Project{
		"draft":  {ID: "draft", Name: "Borrador", State: models.ProjectStateDraft, CreatorID: "st-1"},
		"active": {ID: "active", Name: "Activo", State: models.ProjectStateActive, CreatorID: "st-1"},
		"done":   {ID: "done", Name: "Completado", State: models.ProjectStateCompleted, CreatorID: "st-1"},
	}}
	svc := newProjectService(repo)

	require.NoError(t, svc.Delete(context.Background(), "draft", adminClaims()))

	err := svc.Delete(context.Background(), "active", adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), "done", adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
