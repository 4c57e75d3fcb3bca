package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/mealkiosk/internal/middleware"
	"github.com/huangang/mealkiosk/internal/services"
	"github.com/huangang/mealkiosk/pkg/response"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login signs an admin in on this kiosk.
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		services.LogWarning("auth", "login", "failed login for "+req.Username, nil, c.ClientIP(), c.Request.UserAgent(), nil)
		respondError(c, err)
		return
	}

	services.LogInfo("auth", "login", result.Admin.Username+" logged in", &result.Admin.ID, c.ClientIP(), c.Request.UserAgent(), nil)
	response.Success(c, result)
}

// GetSession reports whether an admin is signed in on this kiosk. Who it is
// is only available from /api/auth/me.
// GET /api/auth/session
func (h *AuthHandler) GetSession(c *gin.Context) {
	session, err := h.auth.CurrentSession(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"authenticated": session != nil})
}

// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	admin, err := h.auth.GetAdminByID(c.Request.Context(), middleware.GetAdminID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, admin)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "logged out"})
}

// PUT /api/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), middleware.GetAdminID(c), &req); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "password updated"})
}
