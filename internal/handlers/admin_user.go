package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/mealkiosk/internal/middleware"
	"github.com/huangang/mealkiosk/internal/services"
	"github.com/huangang/mealkiosk/pkg/response"
)

type AdminUserHandler struct {
	admins *services.AdminUserService
}

func NewAdminUserHandler(admins *services.AdminUserService) *AdminUserHandler {
	return &AdminUserHandler{admins: admins}
}

// GET /api/admin/admins
func (h *AdminUserHandler) List(c *gin.Context) {
	admins, err := h.admins.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, admins)
}

// POST /api/admin/admins
func (h *AdminUserHandler) Create(c *gin.Context) {
	var req services.CreateAdminUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	admin, err := h.admins.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, admin)
}

// PUT /api/admin/admins/:id
func (h *AdminUserHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req services.UpdateAdminUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	admin, err := h.admins.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, admin)
}

// DELETE /api/admin/admins/:id
func (h *AdminUserHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.admins.Delete(c.Request.Context(), id, middleware.GetAdminID(c)); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "admin deleted"})
}
