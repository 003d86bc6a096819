package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sena-nova/nova-api/internal/models"
	"github.com/sena-nova/nova-api/internal/service"
)

type authRepoStub struct {
	user   *models.User
	tokens map[string]*models.RefreshToken
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user != nil && s.user.Email == email {
		cp := *s.user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		cp := *s.user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) Create(ctx context.Context, user *models.User) error { return nil }

func (s *authRepoStub) UpdateLastAccess(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (s *authRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return nil
}

func (s *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error { return nil }

func (s *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	s.tokens[token.Token] = token
	return nil
}

func (s *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := s.tokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	return nil
}

func authServiceWithToken(t *testing.T) (*service.AuthService, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secreto123"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &authRepoStub{
		user: &models.User{
			ID:           "u1",
			Email:        "ana@nova.edu.co",
			PasswordHash: string(hash),
			FirstName:    "Ana",
			LastName:     "García",
			Role:         models.RoleStudent,
			Active:       true,
		},
		tokens: make(map[string]*models.RefreshToken),
	}
	svc := service.NewAuthService(repo, nil, nil, nil, service.AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "nova-test",
	})

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@nova.edu.co", Password: "secreto123"})
	require.NoError(t, err)
	return svc, resp.AccessToken
}

func optionalRouter(svc *service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/abierto", OptionalJWT(svc), func(c *gin.Context) {
		if _, ok := c.Get(ContextUserKey); ok {
			c.String(http.StatusOK, "autenticado")
			return
		}
		c.String(http.StatusOK, "anonimo")
	})
	return r
}

func TestOptionalJWTAttachesClaimsWhenTokenValid(t *testing.T) {
	svc, token := authServiceWithToken(t)
	r := optionalRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/abierto", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "autenticado", w.Body.String())
}

func TestOptionalJWTAllowsAnonymous(t *testing.T) {
	svc, _ := authServiceWithToken(t)
	r := optionalRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/abierto", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonimo", w.Body.String())
}

func TestOptionalJWTIgnoresInvalidToken(t *testing.T) {
	svc, _ := authServiceWithToken(t)
	r := optionalRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/abierto", nil)
	req.Header.Set("Authorization", "Bearer no-es-un-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonimo", w.Body.String())
}
