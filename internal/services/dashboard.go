package services

import (
	"context"
	"time"

	"github.com/huangang/mealkiosk/internal/models"
	"gorm.io/gorm"
)

type DashboardService struct {
	db      *gorm.DB
	reports *ReportService
	queue   *OfflineQueue
	conn    *Connectivity
	loc     *time.Location
	now     func() time.Time
}

func NewDashboardService(db *gorm.DB, reports *ReportService, queue *OfflineQueue, conn *Connectivity, loc *time.Location) *DashboardService {
	if loc == nil {
		loc = time.Local
	}
	return &DashboardService{db: db, reports: reports, queue: queue, conn: conn, loc: loc, now: time.Now}
}

type DashboardResponse struct {
	Date           string              `json:"date"`
	Today          MealCounts          `json:"today"`
	ByGroup        []GroupCount        `json:"by_group"`
	RecentMeals    []models.MealRecord `json:"recent_meals"`
	ActiveUsers    int64               `json:"active_users"`
	PendingOffline int                 `json:"pending_offline"`
	BackendOnline  bool                `json:"backend_online"`
}

func (s *DashboardService) GetStats(ctx context.Context) (*DashboardResponse, error) {
	today := s.now().In(s.loc).Format(models.DateLayout)

	counts, err := s.reports.CountMeals(ctx, today, today, "")
	if err != nil {
		return nil, err
	}
	byGroup, err := s.reports.CountByGroup(ctx, today, today)
	if err != nil {
		return nil, err
	}

	resp := &DashboardResponse{
		Date:          today,
		Today:         counts,
		ByGroup:       byGroup,
		BackendOnline: s.conn.Online(),
	}

	s.db.WithContext(ctx).Model(&models.User{}).Where("active = ?", true).Count(&resp.ActiveUsers)
	s.db.WithContext(ctx).
		Where("meal_date = ?", today).
		Order("meal_time DESC").
		Limit(10).
		Find(&resp.RecentMeals)

	if pending, err := s.queue.PendingCount(ctx); err == nil {
		resp.PendingOffline = pending
	}
	return resp, nil
}
