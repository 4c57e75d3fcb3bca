package handlers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/huangang/mealkiosk/internal/services"
	"github.com/huangang/mealkiosk/pkg/logger"
	"github.com/huangang/mealkiosk/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler serves meal statistics and spreadsheet exports.
type ReportHandler struct {
	reports *services.ReportService
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// GetSummary returns totals, per-group and per-day counts for a date range
// (current month by default).
// GET /api/admin/reports/summary
func (h *ReportHandler) GetSummary(c *gin.Context) {
	var req services.ReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	summary, err := h.reports.Summary(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, summary)
}

// ExportSummary downloads the per-day summary as .xlsx.
// GET /api/admin/reports/summary/export
func (h *ReportHandler) ExportSummary(c *gin.Context) {
	h.export(c, "meal-summary", h.reports.SummaryTable)
}

// ExportRecords downloads every matching meal record as .xlsx.
// GET /api/admin/reports/records/export
func (h *ReportHandler) ExportRecords(c *gin.Context) {
	h.export(c, "meal-records", h.reports.RecordsTable)
}

type tableBuilder func(ctx context.Context, req *services.ReportRequest) (*services.ExportTable, error)

func (h *ReportHandler) export(c *gin.Context, name string, build tableBuilder) {
	var req services.ReportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	table, err := build(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := name
	for _, part := range []string{req.StartDate, req.EndDate} {
		if part != "" {
			filename += "_" + part
		}
	}
	filename += ".xlsx"
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	if err := services.WriteXLSX(c.Writer, table); err != nil {
		logger.Error().Err(err).Str("export", name).Msg("write xlsx")
	}
}
