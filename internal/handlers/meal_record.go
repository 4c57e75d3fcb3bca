package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/mealkiosk/internal/services"
	"github.com/huangang/mealkiosk/pkg/response"
)

type MealRecordHandler struct {
	records *services.MealRecordService
}

func NewMealRecordHandler(records *services.MealRecordService) *MealRecordHandler {
	return &MealRecordHandler{records: records}
}

// GET /api/admin/meal-records
func (h *MealRecordHandler) List(c *gin.Context) {
	var req services.MealRecordListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	resp, err := h.records.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// GET /api/admin/meal-records/:id
func (h *MealRecordHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	record, err := h.records.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, record)
}

// Delete removes a mistaken registration.
// DELETE /api/admin/meal-records/:id
func (h *MealRecordHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.records.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "meal record deleted"})
}
