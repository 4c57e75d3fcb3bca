package services

import (
	"context"
	"fmt"
	"time"

	"github.com/huangang/mealkiosk/internal/models"
	"gorm.io/gorm"
)

type ReportService struct {
	db       *gorm.DB
	records  *MealRecordService
	calendar *WorkdayCalendar
	loc      *time.Location
	now      func() time.Time
}

func NewReportService(db *gorm.DB, calendar *WorkdayCalendar, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &ReportService{
		db:       db,
		records:  NewMealRecordService(db),
		calendar: calendar,
		loc:      loc,
		now:      time.Now,
	}
}

type ReportRequest struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	GroupType string `form:"group_type"`
	MealType  string `form:"meal_type"`
}

// MealCounts splits a set of meal records by slot and by visitor status.
type MealCounts struct {
	Total      int64 `json:"total"`
	Breakfast  int64 `json:"breakfast"`
	Lunch      int64 `json:"lunch"`
	Visitors   int64 `json:"visitors"`
	Registered int64 `json:"registered"`
}

type GroupCount struct {
	GroupType string `json:"group_type"`
	Breakfast int64  `json:"breakfast"`
	Lunch     int64  `json:"lunch"`
	Total     int64  `json:"total"`
}

type DailyCount struct {
	Date      string `json:"date"`
	Breakfast int64  `json:"breakfast"`
	Lunch     int64  `json:"lunch"`
	Total     int64  `json:"total"`
	IsWorkday bool   `json:"is_workday"`
}

type ReportSummary struct {
	StartDate     string       `json:"start_date"`
	EndDate       string       `json:"end_date"`
	Counts        MealCounts   `json:"counts"`
	ByGroup       []GroupCount `json:"by_group"`
	Daily         []DailyCount `json:"daily"`
	Workdays      int          `json:"workdays"`
	AvgPerWorkday float64      `json:"avg_per_workday"`
}

const slotSums = "COUNT(*) AS total, " +
	"COALESCE(SUM(CASE WHEN meal_type = 'breakfast' THEN 1 ELSE 0 END), 0) AS breakfast, " +
	"COALESCE(SUM(CASE WHEN meal_type = 'lunch' THEN 1 ELSE 0 END), 0) AS lunch"

// resolveRange defaults to the current month up to today and rejects
// malformed, reversed or overlong ranges.
func (s *ReportService) resolveRange(req *ReportRequest) (time.Time, time.Time, error) {
	today := s.now().In(s.loc)
	start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, s.loc)
	end := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, s.loc)

	var err error
	if req.StartDate != "" {
		if start, err = time.ParseInLocation(models.DateLayout, req.StartDate, s.loc); err != nil {
			return start, end, fmt.Errorf("%w: start_date must be YYYY-MM-DD", ErrValidation)
		}
	}
	if req.EndDate != "" {
		if end, err = time.ParseInLocation(models.DateLayout, req.EndDate, s.loc); err != nil {
			return start, end, fmt.Errorf("%w: end_date must be YYYY-MM-DD", ErrValidation)
		}
	}
	if end.Before(start) {
		return start, end, fmt.Errorf("%w: end_date is before start_date", ErrValidation)
	}
	if start.AddDate(0, 0, maxRangeDays).Before(end) {
		return start, end, fmt.Errorf("%w: at most %d days per report", ErrValidation, maxRangeDays)
	}
	return start, end, nil
}

// CountMeals aggregates records between two dates (inclusive).
func (s *ReportService) CountMeals(ctx context.Context, startDate, endDate, groupType string) (MealCounts, error) {
	var counts MealCounts
	err := s.records.filtered(ctx, startDate, endDate, "", groupType).
		Select(slotSums + ", " +
			"COALESCE(SUM(CASE WHEN user_id IS NULL THEN 1 ELSE 0 END), 0) AS visitors, " +
			"COALESCE(SUM(CASE WHEN user_id IS NOT NULL THEN 1 ELSE 0 END), 0) AS registered").
		Scan(&counts).Error
	return counts, err
}

func (s *ReportService) CountByGroup(ctx context.Context, startDate, endDate string) ([]GroupCount, error) {
	groups := make([]GroupCount, 0)
	err := s.records.filtered(ctx, startDate, endDate, "", "").
		Select("group_type, " + slotSums).
		Group("group_type").
		Order("total DESC, group_type ASC").
		Scan(&groups).Error
	return groups, err
}

func (s *ReportService) countByDate(ctx context.Context, startDate, endDate, groupType string) (map[string]DailyCount, error) {
	var rows []DailyCount
	err := s.records.filtered(ctx, startDate, endDate, "", groupType).
		Select("meal_date AS date, " + slotSums).
		Group("meal_date").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]DailyCount, len(rows))
	for _, r := range rows {
		byDate[r.Date] = r
	}
	return byDate, nil
}

// Summary aggregates the requested range. Days without records still appear
// in Daily so charts have a continuous axis.
func (s *ReportService) Summary(ctx context.Context, req *ReportRequest) (*ReportSummary, error) {
	start, end, err := s.resolveRange(req)
	if err != nil {
		return nil, err
	}
	startDate, endDate := start.Format(models.DateLayout), end.Format(models.DateLayout)

	counts, err := s.CountMeals(ctx, startDate, endDate, req.GroupType)
	if err != nil {
		return nil, err
	}

	var byGroup []GroupCount
	if req.GroupType == "" {
		if byGroup, err = s.CountByGroup(ctx, startDate, endDate); err != nil {
			return nil, err
		}
	} else {
		byGroup = []GroupCount{{GroupType: req.GroupType, Breakfast: counts.Breakfast, Lunch: counts.Lunch, Total: counts.Total}}
	}

	byDate, err := s.countByDate(ctx, startDate, endDate, req.GroupType)
	if err != nil {
		return nil, err
	}

	summary := &ReportSummary{
		StartDate: startDate,
		EndDate:   endDate,
		Counts:    counts,
		ByGroup:   byGroup,
		Daily:     make([]DailyCount, 0),
	}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(models.DateLayout)
		row := byDate[key]
		row.Date = key
		row.IsWorkday = s.calendar.IsWorkday(d)
		if row.IsWorkday {
			summary.Workdays++
		}
		summary.Daily = append(summary.Daily, row)
	}
	if summary.Workdays > 0 {
		summary.AvgPerWorkday = float64(counts.Total) / float64(summary.Workdays)
	}
	return summary, nil
}

// SummaryTable lays the per-day summary out for export.
func (s *ReportService) SummaryTable(ctx context.Context, req *ReportRequest) (*ExportTable, error) {
	summary, err := s.Summary(ctx, req)
	if err != nil {
		return nil, err
	}

	table := &ExportTable{
		Title:    "Meal summary",
		Subtitle: fmt.Sprintf("%s to %s, %d meals over %d working days", summary.StartDate, summary.EndDate, summary.Counts.Total, summary.Workdays),
		Columns: []ExportColumn{
			{Key: "date", Title: "Date", Width: 14},
			{Key: "workday", Title: "Working day", Width: 12},
			{Key: "breakfast", Title: "Breakfast"},
			{Key: "lunch", Title: "Lunch"},
			{Key: "total", Title: "Total"},
		},
	}
	for _, d := range summary.Daily {
		workday := "no"
		if d.IsWorkday {
			workday = "yes"
		}
		table.Rows = append(table.Rows, map[string]interface{}{
			"date": d.Date, "workday": workday, "breakfast": d.Breakfast, "lunch": d.Lunch, "total": d.Total,
		})
	}
	return table, nil
}

// RecordsTable lists individual meal records for export.
func (s *ReportService) RecordsTable(ctx context.Context, req *ReportRequest) (*ExportTable, error) {
	start, end, err := s.resolveRange(req)
	if err != nil {
		return nil, err
	}
	startDate, endDate := start.Format(models.DateLayout), end.Format(models.DateLayout)

	records, err := s.records.Range(ctx, startDate, endDate, req.MealType, req.GroupType)
	if err != nil {
		return nil, err
	}

	table := &ExportTable{
		Title:    "Meal records",
		Subtitle: fmt.Sprintf("%s to %s, %d records", startDate, endDate, len(records)),
		Columns: []ExportColumn{
			{Key: "date", Title: "Date", Width: 14},
			{Key: "time", Title: "Time", Width: 10},
			{Key: "meal", Title: "Meal", Width: 12},
			{Key: "name", Title: "Name", Width: 24},
			{Key: "group", Title: "Group", Width: 16},
			{Key: "company", Title: "Company", Width: 20},
			{Key: "visitor", Title: "Visitor", Width: 10},
		},
	}
	for _, r := range records {
		visitor := "no"
		if r.IsVisitor() {
			visitor = "yes"
		}
		table.Rows = append(table.Rows, map[string]interface{}{
			"date": r.MealDate, "time": r.MealTime, "meal": r.MealType, "name": r.UserName,
			"group": r.GroupType, "company": r.Company, "visitor": visitor,
		})
	}
	return table, nil
}
