package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/sena-nova/nova-api/internal/models"
)

func rbacRouter(claims *models.JWTClaims, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/recurso/:id", func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}, RBAC(allowed...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRBACAllowsMatchingRole(t *testing.T) {
	r := rbacRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleAdministrator}, string(models.RoleAdministrator))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/recurso/otro", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRBACRejectsOtherRole(t *testing.T) {
	r := rbacRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, string(models.RoleAdministrator))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/recurso/otro", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRBACAllowsSelfAccess(t *testing.T) {
	r := rbacRouter(&models.JWTClaims{UserID: "u1", Role: models.RoleStudent}, string(models.RoleAdministrator), "SELF")

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/recurso/u1", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w2 := httptest.NewRecorder()
	req2, _ := http.NewRequest(http.MethodGet, "/recurso/u2", nil)
	r.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusForbidden, w2.Code)
}

func TestRBACRequiresAuthentication(t *testing.T) {
	r := rbacRouter(nil, string(models.RoleAdministrator))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/recurso/u1", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
