package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_LoginAndSession(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)
	require.NotEmpty(t, token)

	w := env.do("GET", "/api/auth/session", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var session struct {
		Authenticated bool `json:"authenticated"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &session))
	assert.True(t, session.Authenticated)
	assert.NotContains(t, w.Body.String(), "admin", "identity stays behind auth")

	w = env.do("GET", "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"admin"`)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestAuth_BadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	w := env.do("POST", "/api/auth/login", map[string]string{"username": "admin", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do("POST", "/api/auth/login", map[string]string{"username": "admin"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuth_LogoutInvalidatesToken(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t)

	w := env.do("POST", "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do("GET", "/api/auth/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do("GET", "/api/auth/session", nil, "")
	assert.Contains(t, w.Body.String(), `"authenticated":false`)
}
