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

type mockGradeRepo struct {
	items   map[string]*models.Grade
	byCrit  map[string]bool
	avg     float64
	count   int
	stats   *models.GradeStatistics
	deleted int64
}

func (m *mockGradeRepo) FindByID(ctx context.Context, id string) (*models.Grade, error) {
	if g, ok := m.items[id]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGradeRepo) ExistsByCriterion(ctx context.Context, evaluationID, criterion string) (bool, error) {
	return m.byCrit[evaluationID+"/"+criterion], nil
}

func (m *mockGradeRepo) List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, int, error) {
	return nil, 0, nil
}

func (m *mockGradeRepo) ListByEvaluation(ctx context.Context, evaluationID string) ([]models.Grade, error) {
	return nil, nil
}

func (m *mockGradeRepo) Create(ctx context.Context, grade *models.Grade) error {
	if m.items == nil {
		m.items = make(map[string]*models.Grade)
	}
	if m.byCrit == nil {
		m.byCrit = make(map[string]bool)
	}
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	cp := *grade
	m.items[grade.ID] = &cp
	m.byCrit[grade.EvaluationID+"/"+grade.Criterion] = true
	return nil
}

func (m *mockGradeRepo) Update(ctx context.Context, grade *models.Grade) error {
	cp := *grade
	m.items[grade.ID] = &cp
	return nil
}

func (m *mockGradeRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func (m *mockGradeRepo) DeleteByEvaluation(ctx context.Context, evaluationID string) (int64, error) {
	return m.deleted, nil
}

func (m *mockGradeRepo) AverageForEvaluation(ctx context.Context, evaluationID string) (float64, int, error) {
	return m.avg, m.count, nil
}

func (m *mockGradeRepo) StatisticsForEvaluation(ctx context.Context, evaluationID string) (*models.GradeStatistics, error) {
	if m.stats != nil {
		return m.stats, nil
	}
	return &models.GradeStatistics{EvaluationID: evaluationID}, nil
}

type mockEvaluationReader struct {
	items map[string]*models.Evaluation
}

func (m *mockEvaluationReader) FindByID(ctx context.Context, id string) (*models.Evaluation, error) {
	if ev, ok := m.items[id]; ok {
		return ev, nil
	}
	return nil, sql.ErrNoRows
}

func newGradeService(repo *mockGradeRepo, evaluations *mockEvaluationReader, history historyWriter) *GradeService {
	return NewGradeService(repo, evaluations, history, validator.New(), zap.NewNop())
}

func knownEvaluations(ids ...string) *mockEvaluationReader {
	items := make(map[string]*models.Evaluation)
	for _, id := range ids {
		items[id] = &models.Evaluation{ID: id, State: models.EvaluationStateInProgress}
	}
	return &mockEvaluationReader{items: items}
}

func TestGradeServiceRecord(t *testing.T) {
	repo := &mockGradeRepo{}
	history := &mockHistory{}
	svc := newGradeService(repo, knownEvaluations("e1"), history)

	grade, err := svc.Record(context.Background(), models.RecordGradeRequest{
		EvaluationID: "e1",
		Criterion:    "documentación",
		Score:        45,
		MaxScore:     50,
	}, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "ev-1", grade.GradedByID)
	assert.Len(t, repo.items, 1)
	assert.Len(t, history.entries, 1)
}

func TestGradeServiceRecordWithoutHistorySink(t *testing.T) {
	repo := &mockGradeRepo{}
	svc := newGradeService(repo, knownEvaluations("e1"), nil)

	grade, err := svc.Record(context.Background(), models.RecordGradeRequest{
		EvaluationID: "e1",
		Criterion:    "documentación",
		Score:        45,
		MaxScore:     50,
	}, "ev-1")
	require.NoError(t, err)
	require.NotNil(t, grade)
	assert.Len(t, repo.items, 1)
}

func TestGradeServiceRecordScoreAboveMax(t *testing.T) {
	svc := newGradeService(&mockGradeRepo{}, knownEvaluations("e1"), nil)

	_, err := svc.Record(context.Background(), models.RecordGradeRequest{
		EvaluationID: "e1",
		Criterion:    "documentación",
		Score:        60,
		MaxScore:     50,
	}, "ev-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestGradeServiceRecordUnknownEvaluation(t *testing.T) {
	svc := newGradeService(&mockGradeRepo{}, knownEvaluations(), nil)

	_, err := svc.Record(context.Background(), models.RecordGradeRequest{
		EvaluationID: "missing",
		Criterion:    "documentación",
		Score:        10,
		MaxScore:     50,
	}, "ev-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGradeServiceRecordDuplicateCriterion(t *testing.T) {
	repo := &mockGradeRepo{byCrit: map[string]bool{"e1/documentación": true}}
	svc := newGradeService(repo, knownEvaluations("e1"), nil)

	_, err := svc.Record(context.Background(), models.RecordGradeRequest{
		EvaluationID: "e1",
		Criterion:    "documentación",
		Score:        10,
		MaxScore:     50,
	}, "ev-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestGradeServiceBulkRecordPartialFailure(t *testing.T) {
	repo := &mockGradeRepo{byCrit: map[string]bool{"e1/sustentación": true}}
	svc := newGradeService(repo, knownEvaluations("e1"), &mockHistory{})

	result, err := svc.BulkRecord(context.Background(), models.BulkGradeRequest{
		EvaluationID: "e1",
		Entries: []models.BulkGradeEntry{
			{Criterion: "documentación", Score: 40, MaxScore: 50},
			{Criterion: "sustentación", Score: 30, MaxScore: 50},
			{Criterion: "código", Score: 80, MaxScore: 50},
		},
	}, "ev-1")
	require.NoError(t, err)
	assert.Len(t, result.Recorded, 1)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, "sustentación", result.Failed[0].Criterion)
	assert.Equal(t, "código", result.Failed[1].Criterion)
}

func TestGradeServiceUpdateKeepsScoreWithinBounds(t *testing.T) {
	repo := &mockGradeRepo{items: map[string]*models.Grade{
		"g1": {ID: "g1", EvaluationID: "e1", Criterion: "documentación", Score: 40, MaxScore: 50},
	}}
	svc := newGradeService(repo, knownEvaluations("e1"), nil)

	newMax := 30.0
	_, err := svc.Update(context.Background(), "g1", models.UpdateGradeRequest{MaxScore: &newMax})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	newScore := 25.0
	updated, err := svc.Update(context.Background(), "g1", models.UpdateGradeRequest{Score: &newScore, MaxScore: &newMax})
	require.NoError(t, err)
	assert.Equal(t, 25.0, updated.Score)
	assert.Equal(t, 30.0, updated.MaxScore)
}

func TestGradeServiceAverageRoundsToTwoDecimals(t *testing.T) {
	repo := &mockGradeRepo{avg: 70.004999, count: 2}
	svc := newGradeService(repo, knownEvaluations("e1"), nil)

	avg, err := svc.Average(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, 70.0, avg.Average)
	assert.Equal(t, 2, avg.GradeCount)
}

func TestGradeServiceAverageEmptyIsZero(t *testing.T) {
	svc := newGradeService(&mockGradeRepo{}, knownEvaluations("e1"), nil)

	avg, err := svc.Average(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg.Average)
	assert.Equal(t, 0, avg.GradeCount)
}

func TestGradeServiceStatisticsDerivesPercentage(t *testing.T) {
	repo := &mockGradeRepo{stats: &models.GradeStatistics{
		EvaluationID: "e1",
		Count:        2,
		Mean:         35,
		SumObtained:  140,
		SumPossible:  200,
	}}
	svc := newGradeService(repo, knownEvaluations("e1"), nil)

	stats, err := svc.Statistics(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, 70.0, stats.Percentage)
}

func TestGradeServiceDeleteByEvaluation(t *testing.T) {
	repo := &mockGradeRepo{deleted: 3}
	history := &mockHistory{}
	svc := newGradeService(repo, knownEvaluations("e1"), history)

	deleted, err := svc.DeleteByEvaluation(context.Background(), "e1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.Len(t, history.entries, 1)
}
