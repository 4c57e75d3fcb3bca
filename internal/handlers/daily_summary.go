package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/mealkiosk/internal/middleware"
	"github.com/huangang/mealkiosk/internal/services"
	"github.com/huangang/mealkiosk/pkg/response"
)

type DailySummaryHandler struct {
	summaries *services.DailySummaryService
}

func NewDailySummaryHandler(summaries *services.DailySummaryService) *DailySummaryHandler {
	return &DailySummaryHandler{summaries: summaries}
}

// GET /api/admin/daily-summaries
func (h *DailySummaryHandler) List(c *gin.Context) {
	var req services.DailySummaryListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	list, err := h.summaries.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, list)
}

// GET /api/admin/daily-summaries/:date
func (h *DailySummaryHandler) Get(c *gin.Context) {
	summary, err := h.summaries.Get(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, summary)
}

// Generate rebuilds one day synchronously.
// POST /api/admin/daily-summaries/:date
func (h *DailySummaryHandler) Generate(c *gin.Context) {
	summary, err := h.summaries.Generate(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, summary)
}

type regenerateRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

// Regenerate queues a rebuild for every day in a range.
// POST /api/admin/daily-summaries/regenerate
func (h *DailySummaryHandler) Regenerate(c *gin.Context) {
	var req regenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	n, err := h.summaries.Regenerate(req.StartDate, req.EndDate, middleware.GetAdminID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Accepted(c, "summary rebuild queued", gin.H{"queued": n})
}
