package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/huangang/mealkiosk/internal/models"
	"github.com/huangang/mealkiosk/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	dailySummaryJob     = "daily_summary"
	maxRangeDays        = 366
	dailySummaryLockTTL = time.Hour
)

// DailySummaryService writes one aggregate row per day, on a cron schedule
// and on demand through the task queue.
type DailySummaryService struct {
	db          *gorm.DB
	reports     *ReportService
	calendar    *WorkdayCalendar
	locker      *JobLocker
	queue       TaskQueue
	summaryTime string
	loc         *time.Location
	now         func() time.Time
	cron        *cron.Cron
	log         zerolog.Logger
}

func NewDailySummaryService(db *gorm.DB, reports *ReportService, calendar *WorkdayCalendar, summaryTime string, loc *time.Location) *DailySummaryService {
	if loc == nil {
		loc = time.Local
	}
	return &DailySummaryService{
		db:          db,
		reports:     reports,
		calendar:    calendar,
		locker:      NewJobLocker(db),
		summaryTime: summaryTime,
		loc:         loc,
		now:         time.Now,
		log:         logger.With("daily_summary"),
	}
}

// SetQueue wires the queue used by Regenerate.
func (s *DailySummaryService) SetQueue(queue TaskQueue) {
	s.queue = queue
}

// cronSpec turns "HH:MM" into a daily cron expression, defaulting to 21:00.
func cronSpec(summaryTime string) string {
	m := ParseClock(summaryTime)
	if m == nil {
		return "0 21 * * *"
	}
	return fmt.Sprintf("%d %d * * *", *m%60, *m/60)
}

func (s *DailySummaryService) StartScheduler() error {
	s.cron = cron.New(cron.WithLocation(s.loc))
	spec := cronSpec(s.summaryTime)
	if _, err := s.cron.AddFunc(spec, s.runScheduled); err != nil {
		return fmt.Errorf("schedule daily summary: %w", err)
	}
	s.cron.Start()
	s.log.Info().Str("cron", spec).Msg("daily summary scheduler started")
	return nil
}

func (s *DailySummaryService) StopScheduler() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *DailySummaryService) runScheduled() {
	ctx := context.Background()
	date := s.now().In(s.loc).Format(models.DateLayout)

	ok, err := s.locker.TryAcquire(ctx, dailySummaryJob, date, dailySummaryLockTTL)
	if err != nil {
		s.log.Error().Err(err).Str("date", date).Msg("claim daily summary run")
		return
	}
	if !ok {
		s.log.Info().Str("date", date).Msg("daily summary already claimed by another server")
		return
	}

	if _, err := s.Generate(ctx, date); err != nil {
		s.log.Error().Err(err).Str("date", date).Msg("generate daily summary")
	}
}

// Generate builds and upserts the summary row for date (YYYY-MM-DD).
func (s *DailySummaryService) Generate(ctx context.Context, date string) (*models.DailySummary, error) {
	day, err := time.ParseInLocation(models.DateLayout, date, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}

	counts, err := s.reports.CountMeals(ctx, date, date, "")
	if err != nil {
		return nil, err
	}
	groups, err := s.reports.CountByGroup(ctx, date, date)
	if err != nil {
		return nil, err
	}
	breakdown := make(map[string]int64, len(groups))
	for _, g := range groups {
		breakdown[g.GroupType] = g.Total
	}
	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return nil, err
	}

	summary := models.DailySummary{
		SummaryDate:     date,
		BreakfastCount:  counts.Breakfast,
		LunchCount:      counts.Lunch,
		VisitorCount:    counts.Visitors,
		RegisteredCount: counts.Registered,
		GroupBreakdown:  string(breakdownJSON),
		IsWorkday:       s.calendar.IsWorkday(day),
		GeneratedAt:     s.now(),
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "summary_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"breakfast_count", "lunch_count", "visitor_count", "registered_count",
			"group_breakdown", "is_workday", "generated_at", "updated_at",
		}),
	}).Create(&summary).Error
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("date", date).
		Int64("breakfast", counts.Breakfast).
		Int64("lunch", counts.Lunch).
		Msg("daily summary generated")
	return s.Get(ctx, date)
}

// ProcessTask is the task queue entry point.
func (s *DailySummaryService) ProcessTask(ctx context.Context, task *SummaryTask) error {
	_, err := s.Generate(ctx, task.Date)
	return err
}

// Regenerate queues one task per date in [startDate, endDate].
func (s *DailySummaryService) Regenerate(startDate, endDate string, requestedBy uint) (int, error) {
	if s.queue == nil {
		return 0, errors.New("task queue not configured")
	}
	start, err := time.ParseInLocation(models.DateLayout, startDate, s.loc)
	if err != nil {
		return 0, fmt.Errorf("%w: start_date must be YYYY-MM-DD", ErrValidation)
	}
	end, err := time.ParseInLocation(models.DateLayout, endDate, s.loc)
	if err != nil {
		return 0, fmt.Errorf("%w: end_date must be YYYY-MM-DD", ErrValidation)
	}
	if end.Before(start) {
		return 0, fmt.Errorf("%w: end_date is before start_date", ErrValidation)
	}
	if end.Sub(start) > maxRangeDays*24*time.Hour {
		return 0, fmt.Errorf("%w: at most %d days per request", ErrValidation, maxRangeDays)
	}

	n := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if err := s.queue.Enqueue(&SummaryTask{Date: d.Format(models.DateLayout), RequestedBy: requestedBy}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *DailySummaryService) Get(ctx context.Context, date string) (*models.DailySummary, error) {
	var summary models.DailySummary
	err := s.db.WithContext(ctx).Where("summary_date = ?", date).First(&summary).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

type DailySummaryListRequest struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Limit     int    `form:"limit"`
}

func (s *DailySummaryService) List(ctx context.Context, req *DailySummaryListRequest) ([]models.DailySummary, error) {
	if req.Limit <= 0 || req.Limit > maxRangeDays {
		req.Limit = 31
	}
	query := s.db.WithContext(ctx).Model(&models.DailySummary{})
	if req.StartDate != "" {
		query = query.Where("summary_date >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("summary_date <= ?", req.EndDate)
	}
	summaries := make([]models.DailySummary, 0)
	err := query.Order("summary_date DESC").Limit(req.Limit).Find(&summaries).Error
	return summaries, err
}
