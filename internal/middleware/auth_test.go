package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/mealkiosk/internal/services"
	"github.com/huangang/mealkiosk/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret-for-middleware-testing")
}

type stubSessions struct {
	session *services.AdminSession
	err     error
}

func (s stubSessions) CurrentSession(context.Context) (*services.AdminSession, error) {
	return s.session, s.err
}

func protectedRouter(sessions SessionSource) *gin.Engine {
	router := gin.New()
	router.Use(AuthRequired(sessions))
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(200, gin.H{"admin_id": GetAdminID(c), "username": GetUsername(c)})
	})
	return router
}

func serve(router *gin.Engine, target, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", target, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestAuthRequired_NoHeader(t *testing.T) {
	w := serve(protectedRouter(nil), "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequired_InvalidFormat(t *testing.T) {
	router := protectedRouter(nil)
	for _, header := range []string{"InvalidToken", "Basic token123", "Bearer", "Bearer "} {
		w := serve(router, "/protected", header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestAuthRequired_InvalidToken(t *testing.T) {
	w := serve(protectedRouter(nil), "/protected", "Bearer not.a.jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequired_ValidToken(t *testing.T) {
	token, err := utils.GenerateToken(7, "admin", "Canteen Admin", 1)
	require.NoError(t, err)

	w := serve(protectedRouter(nil), "/protected", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"admin_id":7,"username":"admin"}`, w.Body.String())
}

func TestAuthRequired_QueryToken(t *testing.T) {
	token, err := utils.GenerateToken(7, "admin", "Canteen Admin", 1)
	require.NoError(t, err)

	w := serve(protectedRouter(nil), "/protected?token="+token, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired_Session(t *testing.T) {
	token, err := utils.GenerateToken(7, "admin", "Canteen Admin", 1)
	require.NoError(t, err)
	header := "Bearer " + token

	tests := []struct {
		name     string
		sessions stubSessions
		expected int
	}{
		{"matching session", stubSessions{session: &services.AdminSession{ID: 7}}, http.StatusOK},
		{"logged out", stubSessions{}, http.StatusUnauthorized},
		{"other admin signed in", stubSessions{session: &services.AdminSession{ID: 8}}, http.StatusUnauthorized},
		{"store failure", stubSessions{err: errors.New("disk full")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(protectedRouter(tt.sessions), "/protected", header)
			assert.Equal(t, tt.expected, w.Code)
		})
	}
}

func TestGetAdminID_NotSet(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, uint(0), GetAdminID(c))
	assert.Equal(t, "", GetUsername(c))
}
