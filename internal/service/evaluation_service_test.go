package service

import (
	"context"
	"database/sql"
	"errors"
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

type mockEvaluationRepo struct {
	items       map[string]*models.Evaluation
	titleIndex  map[string]bool
	listResult  []models.Evaluation
	listTotal   int
	stats       *models.EvaluationStatistics
	deleted     []string
	stateChange []models.EvaluationState
}

func (m *mockEvaluationRepo) FindByID(ctx context.Context, id string) (*models.Evaluation, error) {
	if ev, ok := m.items[id]; ok {
		cp := *ev
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEvaluationRepo) ExistsByTitleAndEvaluator(ctx context.Context, title, evaluatorID string) (bool, error) {
	return m.titleIndex[title], nil
}

func (m *mockEvaluationRepo) List(ctx context.Context, filter models.EvaluationFilter) ([]models.Evaluation, int, error) {
	return m.listResult, m.listTotal, nil
}

func (m *mockEvaluationRepo) ListActive(ctx context.Context, now time.Time) ([]models.Evaluation, error) {
	return m.listResult, nil
}

func (m *mockEvaluationRepo) ListOverdue(ctx context.Context, now time.Time) ([]models.Evaluation, error) {
	return m.listResult, nil
}

func (m *mockEvaluationRepo) ListRecentByEvaluator(ctx context.Context, evaluatorID string, limit int) ([]models.Evaluation, error) {
	return m.listResult, nil
}

func (m *mockEvaluationRepo) Create(ctx context.Context, ev *models.Evaluation) error {
	if m.items == nil {
		m.items = make(map[string]*models.Evaluation)
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	cp := *ev
	m.items[ev.ID] = &cp
	return nil
}

func (m *mockEvaluationRepo) Update(ctx context.Context, ev *models.Evaluation) error {
	cp := *ev
	m.items[ev.ID] = &cp
	return nil
}

func (m *mockEvaluationRepo) UpdateState(ctx context.Context, id string, state models.EvaluationState, modifiedBy string) error {
	m.stateChange = append(m.stateChange, state)
	if ev, ok := m.items[id]; ok {
		ev.State = state
	}
	return nil
}

func (m *mockEvaluationRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func (m *mockEvaluationRepo) Statistics(ctx context.Context, evaluatorID string) (*models.EvaluationStatistics, error) {
	if m.stats != nil {
		return m.stats, nil
	}
	return &models.EvaluationStatistics{}, nil
}

func (m *mockEvaluationRepo) CountCreatedSince(ctx context.Context, since time.Time, evaluatorID string) (int, error) {
	return 0, nil
}

func (m *mockEvaluationRepo) CountActive(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

func (m *mockEvaluationRepo) CountOverdue(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

type mockHistory struct {
	entries []models.HistoryEntry
}

func (m *mockHistory) Create(ctx context.Context, entry *models.HistoryEntry) error {
	m.entries = append(m.entries, *entry)
	return nil
}

type mockCache struct {
	store map[string][]byte
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (m *mockCache) DeleteByPattern(ctx context.Context, pattern string) error {
	return nil
}

func evaluatorClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleEvaluator}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdministrator}
}

func validCreateEvaluationRequest() models.CreateEvaluationRequest {
	start := time.Now().Add(24 * time.Hour)
	return models.CreateEvaluationRequest{
		Title:           "Parcial de estructuras",
		Description:     "Evaluación del segundo corte",
		Type:            models.EvaluationTypeExam,
		StartDate:       start,
		EndDate:         start.Add(2 * time.Hour),
		DurationMinutes: 90,
		MaxScore:        100,
	}
}

func TestEvaluationServiceCreateStartsAsDraft(t *testing.T) {
	repo := &mockEvaluationRepo{}
	history := &mockHistory{}
	svc := NewEvaluationService(repo, history, &mockCache{}, validator.New(), zap.NewNop(), 0)

	ev, err := svc.Create(context.Background(), validCreateEvaluationRequest(), evaluatorClaims("ev-1"))
	require.NoError(t, err)
	assert.Equal(t, models.EvaluationStateDraft, ev.State)
	assert.Equal(t, "ev-1", ev.EvaluatorID)
	assert.Equal(t, defaultMinPassing, ev.MinPassingScore)
	assert.Len(t, history.entries, 1)
}

func TestEvaluationServiceCreateRejectsPastStart(t *testing.T) {
	svc := NewEvaluationService(&mockEvaluationRepo{}, nil, &mockCache{}, validator.New(), zap.NewNop(), 0)

	req := validCreateEvaluationRequest()
	req.StartDate = time.Now().Add(-time.Hour)
	req.EndDate = time.Now().Add(time.Hour)

	_, err := svc.Create(context.Background(), req, evaluatorClaims("ev-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEvaluationServiceCreateRejectsDistantEnd(t *testing.T) {
	svc := NewEvaluationService(&mockEvaluationRepo{}, nil, &mockCache{}, validator.New(), zap.NewNop(), 0)

	req := validCreateEvaluationRequest()
	req.EndDate = time.Now().Add(3 * 365 * 24 * time.Hour)

	_, err := svc.Create(context.Background(), req, evaluatorClaims("ev-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEvaluationServiceCreateDuplicateTitle(t *testing.T) {
	repo := &mockEvaluationRepo{titleIndex: map[string]bool{"Parcial de estructuras": true}}
	svc := NewEvaluationService(repo, nil, &mockCache{}, validator.New(), zap.NewNop(), 0)

	_, err := svc.Create(context.Background(), validCreateEvaluationRequest(), evaluatorClaims("ev-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEvaluationServiceChangeStateFollowsLifecycle(t *testing.T) {
	repo := &mockEvaluationRepo{items: map[string]*models.Evaluation{
		"e1": {ID: "e1", Title: "Parcial", State: models.EvaluationStateDraft, EvaluatorID: "ev-1"},
	}}
	svc := NewEvaluationService(repo, &mockHistory{}, &mockCache{}, validator.New(), zap.NewNop(), 0)

	ev, err := svc.ChangeState(context.Background(), "e1", models.EvaluationStatePublished, evaluatorClaims("ev-1"))
	require.NoError(t, err)
	assert.Equal(t, models.EvaluationStatePublished, ev.State)

	_, err = svc.ChangeState(context.Background(), "e1", models.EvaluationStateDraft, evaluatorClaims("ev-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestEvaluationServiceChangeStateCancelledReturnsToDraft(t *testing.T) {
	repo := &mockEvaluationRepo{items: map[string]*models.Evaluation{
		"e1": {ID: "e1", Title: "Parcial", State: models.EvaluationStateCancelled, EvaluatorID: "ev-1"},
	}}
	svc := NewEvaluationService(repo, nil, &mockCache{}, validator.New(), zap.NewNop(), 0)

	ev, err := svc.ChangeState(context.Background(), "e1", models.EvaluationStateDraft, evaluatorClaims("ev-1"))
	require.NoError(t, err)
	assert.Equal(t, models.EvaluationStateDraft, ev.State)
}

func TestEvaluationServiceChangeStateFinishedIsTerminal(t *testing.T) {
	repo := &mockEvaluationRepo{items: map[string]*models.Evaluation{
		"e1": {ID: "e1", Title: "Parcial", State: models.EvaluationStateFinished, EvaluatorID: "ev-1"},
	}}
	svc := NewEvaluationService(repo, nil, &mockCache{}, validator.New(), zap.NewNop(), 0)

	for _, target := range []models.EvaluationState{
		models.EvaluationStateDraft,
		models.EvaluationStatePublished,
		models.EvaluationStateInProgress,
		models.EvaluationStateCancelled,
	} {
		_, err := svc.ChangeState(context.Background(), "e1", target, evaluatorClaims("ev-1"))
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	}
}

func TestEvaluationServiceUpdateRequiresOwnership(t *testing.T) {
	repo := &mockEvaluationRepo{items: map[string]*models.Evaluation{
		"e1": {ID: "e1", Title: "Parcial", State: models.EvaluationStateDraft, EvaluatorID: "ev-1"},
	}}
	svc := NewEvaluationService(repo, nil, &mockCache{}, validator.New(), zap.NewNop(), 0)

	desc := "Descripción corregida del parcial"
	_, err := svc.Update(context.Background(), "e1", models.UpdateEvaluationRequest{Description: &desc}, evaluatorClaims("ev-2"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	updated, err := svc.Update(context.Background(), "e1", models.UpdateEvaluationRequest{Description: &desc}, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, desc, updated.Description)
}

func TestEvaluationServiceUpdateFinishedIsImmutable(t *testing.T) {
	repo := &mockEvaluationRepo{items: map[string]*models.Evaluation{
		"e1": {ID: "e1", Title: "Parcial", State: models.EvaluationStateFinished, EvaluatorID: "ev-1"},
	}}
	svc := NewEvaluationService(repo, nil, &mockCache{}, validator.New(), zap.NewNop(), 0)

	desc := "Descripción corregida del parcial"
	_, err := svc.Update(context.Background(), "e1", models.UpdateEvaluationRequest{Description: &desc}, evaluatorClaims("ev-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFinalized.Code, appErrors.FromError(err).Code)
}

func TestEvaluationServiceUpdateInProgressAllowsOnlyDescription(t *testing.T) {
	repo := &mockEvaluationRepo{items: map[string]*models.Evaluation{
		"e1": {ID: "e1", Title: "Parcial", State: models.EvaluationStateInProgress, EvaluatorID: "ev-1"},
	}}
	svc := NewEvaluationService(repo, nil, &mockCache{}, validator.New(), zap.NewNop(), 0)

	score := 80.0
	_, err := svc.Update(context.Background(), "e1", models.UpdateEvaluationRequest{MaxScore: &score}, evaluatorClaims("ev-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	desc := "Descripción corregida del parcial"
	updated, err := svc.Update(context.Background(), "e1", models.UpdateEvaluationRequest{Description: &desc}, evaluatorClaims("ev-1"))
	require.NoError(t, err)
	assert.Equal(t, desc, updated.Description)
}

func TestEvaluationServiceDeleteGates(t *testing.T) {
	repo := &mockEvaluationRepo{items: map[string]*models.Evaluation{
		"draft":    {ID: "draft", Title: "Borrador", State: models.EvaluationStateDraft, EvaluatorID: "ev-1"},
		"running":  {ID: "running", Title: "En curso", State: models.EvaluationStateInProgress, EvaluatorID: "ev-1"},
		"finished": {ID: "finished", Title: "Cerrada", State: models.EvaluationStateFinished, EvaluatorID: "ev-1"},
	}}
	svc := NewEvaluationService(repo, &mockHistory{}, &mockCache{}, validator.New(), zap.NewNop(), 0)

	require.NoError(t, svc.Delete(context.Background(), "draft", evaluatorClaims("ev-1")))

	err := svc.Delete(context.Background(), "running", evaluatorClaims("ev-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), "finished", evaluatorClaims("ev-1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEvaluationServiceGetNotFound(t *testing.T) {
	svc := NewEvaluationService(&mockEvaluationRepo{}, nil, &mockCache{}, validator.New(), zap.NewNop(), 0)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
