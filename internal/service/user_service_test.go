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
	"golang.org/x/crypto/bcrypt"

	"github.com/sena-nova/nova-api/internal/models"
	appErrors "github.com/sena-nova/nova-api/pkg/errors"
)

type mockUserRepo struct {
	items      map[string]*models.User
	emailIndex map[string]string
	revoked    []string
	deleted    []string
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if id, ok := m.emailIndex[email]; ok {
		return m.items[id], nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.items[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	return nil, 0, nil
}

func (m *mockUserRepo) ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error) {
	var out []models.User
	for _, u := range m.items {
		if u.Role == role && u.Active {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.items == nil {
		m.items = make(map[string]*models.User)
	}
	if m.emailIndex == nil {
		m.emailIndex = make(map[string]string)
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	cp := *user
	m.items[user.ID] = &cp
	m.emailIndex[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	cp := *user
	m.items[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	if u, ok := m.items[id]; ok {
		u.Active = false
	}
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func TestUserServiceCreateHashesPassword(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewUserService(repo, &mockHistory{}, validator.New(), zap.NewNop())

	user, err := svc.Create(context.Background(), models.CreateUserRequest{
		Email:     "ana@nova.edu.co",
		Password:  "secreto123",
		FirstName: "Ana",
		LastName:  "Mora",
		Role:      models.RoleStudent,
	}, "admin-1")
	require.NoError(t, err)
	assert.True(t, user.Active)
	assert.NotEqual(t, "secreto123", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secreto123")))
}

func TestUserServiceCreateDuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewUserService(repo, nil, validator.New(), zap.NewNop())

	req := models.CreateUserRequest{
		Email:     "ana@nova.edu.co",
		Password:  "secreto123",
		FirstName: "Ana",
		LastName:  "Mora",
		Role:      models.RoleStudent,
	}
	_, err := svc.Create(context.Background(), req, "admin-1")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), req, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUserServiceCreateRejectsInvalidRole(t *testing.T) {
	svc := NewUserService(&mockUserRepo{}, nil, validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), models.CreateUserRequest{
		Email:     "ana@nova.edu.co",
		Password:  "secreto123",
		FirstName: "Ana",
		LastName:  "Mora",
		Role:      "INSTRUCTOR",
	}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUserServiceSelfUpdateCannotEscalate(t *testing.T) {
	repo := &mockUserRepo{items: map[string]*models.User{
		"u1": {ID: "u1", Email: "ana@nova.edu.co", Role: models.RoleStudent, Active: true},
	}}
	svc := NewUserService(repo, nil, validator.New(), zap.NewNop())

	caller := &models.JWTClaims{UserID: "u1", Role: models.RoleStudent}
	admin := models.RoleAdministrator
	_, err := svc.Update(context.Background(), "u1", models.UpdateUserRequest{Role: &admin}, caller)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	name := "Ana María"
	user, err := svc.Update(context.Background(), "u1", models.UpdateUserRequest{FirstName: &name}, caller)
	require.NoError(t, err)
	assert.Equal(t, "Ana María", user.FirstName)
}

func TestUserServiceUpdateOtherUserRequiresAdmin(t *testing.T) {
	repo := &mockUserRepo{items: map[string]*models.User{
		"u1": {ID: "u1", Email: "ana@nova.edu.co", Role: models.RoleStudent, Active: true},
	}}
	svc := NewUserService(repo, nil, validator.New(), zap.NewNop())

	name := "Ana María"
	_, err := svc.Update(context.Background(), "u1", models.UpdateUserRequest{FirstName: &name}, &models.JWTClaims{UserID: "u2", Role: models.RoleStudent})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	inactive := false
	user, err := svc.Update(context.Background(), "u1", models.UpdateUserRequest{Active: &inactive}, adminClaims())
	require.NoError(t, err)
	assert.False(t, user.Active)
}

func TestUserServiceDeleteDeactivatesAndRevokesSessions(t *testing.T) {
	repo := &mockUserRepo{items: map[string]*models.User{
		"u1": {ID: "u1", Email: "ana@nova.edu.co", Role: models.RoleStudent, Active: true},
	}}
	history := &mockHistory{}
	svc := NewUserService(repo, history, validator.New(), zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "u1", "admin-1"))
	assert.Equal(t, []string{"u1"}, repo.deleted)
	assert.Equal(t, []string{"u1"}, repo.revoked)
	assert.Len(t, history.entries, 1)
}
