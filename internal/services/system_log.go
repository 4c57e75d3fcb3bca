package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/huangang/mealkiosk/internal/models"
	"github.com/huangang/mealkiosk/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

var auditDB *gorm.DB

// InitSystemLogger sets the backend that audit entries are written to.
func InitSystemLogger(db *gorm.DB) {
	auditDB = db
}

func LogInfo(module, action, message string, adminID *uint, ip, userAgent string, extra interface{}) {
	writeLog("info", module, action, message, adminID, ip, userAgent, extra)
}

func LogWarning(module, action, message string, adminID *uint, ip, userAgent string, extra interface{}) {
	writeLog("warning", module, action, message, adminID, ip, userAgent, extra)
}

func LogError(module, action, message string, adminID *uint, ip, userAgent string, extra interface{}) {
	writeLog("error", module, action, message, adminID, ip, userAgent, extra)
}

func writeLog(level, module, action, message string, adminID *uint, ip, userAgent string, extra interface{}) {
	if auditDB == nil {
		return
	}

	var extraStr string
	if extra != nil {
		if b, err := json.Marshal(extra); err == nil {
			extraStr = string(b)
		}
	}

	entry := &models.SystemLog{
		Level:     level,
		Module:    module,
		Action:    action,
		Message:   message,
		AdminID:   adminID,
		IP:        ip,
		UserAgent: userAgent,
		Extra:     extraStr,
		CreatedAt: time.Now(),
	}
	if err := auditDB.Create(entry).Error; err != nil {
		// The backend may be down; the line still reaches stdout.
		logger.Warn().Err(err).Str("module", module).Str("action", action).Msg("system log not persisted")
	}
}

type SystemLogService struct {
	db   *gorm.DB
	now  func() time.Time
	cron *cron.Cron
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db, now: time.Now}
}

type SystemLogListRequest struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	Level     string `form:"level"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Search    string `form:"search"`
}

type SystemLogListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Items    []models.SystemLog `json:"items"`
}

func (s *SystemLogService) List(ctx context.Context, req *SystemLogListRequest) (*SystemLogListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.SystemLog{})
	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.StartDate != "" {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	logs := make([]models.SystemLog, 0)
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	return &SystemLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

func (s *SystemLogService) GetModules(ctx context.Context) ([]string, error) {
	modules := make([]string, 0)
	if err := s.db.WithContext(ctx).Model(&models.SystemLog{}).Distinct("module").Order("module").Pluck("module", &modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

// CleanupOldLogs deletes entries older than retentionDays and returns how
// many were removed. A non-positive retention keeps everything.
func (s *SystemLogService) CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// StartCleanupScheduler prunes old entries now and then daily at 03:30.
func (s *SystemLogService) StartCleanupScheduler(retentionDays int) error {
	if retentionDays <= 0 {
		logger.Info().Msg("system log cleanup disabled")
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc("30 3 * * *", func() { s.runCleanup(retentionDays) }); err != nil {
		return err
	}
	s.cron.Start()
	go s.runCleanup(retentionDays)
	return nil
}

func (s *SystemLogService) StopCleanupScheduler() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *SystemLogService) runCleanup(retentionDays int) {
	deleted, err := s.CleanupOldLogs(context.Background(), retentionDays)
	if err != nil {
		logger.Error().Err(err).Msg("system log cleanup failed")
		return
	}
	if deleted > 0 {
		logger.Info().Int64("deleted", deleted).Int("retention_days", retentionDays).Msg("system logs cleaned up")
	}
}
