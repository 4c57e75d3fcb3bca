package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/huangang/mealkiosk/internal/models"
	"gorm.io/gorm"
)

// MealRecordStore is the slice of the backend the registration flow and the
// offline queue write through.
type MealRecordStore interface {
	// FindMealRecord returns nil, nil when no record matches.
	FindMealRecord(ctx context.Context, userID uint, mealType, mealDate string) (*models.MealRecord, error)
	InsertMealRecord(ctx context.Context, record *models.MealRecord) error
}

type MealRecordService struct {
	db *gorm.DB
}

func NewMealRecordService(db *gorm.DB) *MealRecordService {
	return &MealRecordService{db: db}
}

func (s *MealRecordService) FindMealRecord(ctx context.Context, userID uint, mealType, mealDate string) (*models.MealRecord, error) {
	var record models.MealRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND meal_type = ? AND meal_date = ?", userID, mealType, mealDate).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *MealRecordService) InsertMealRecord(ctx context.Context, record *models.MealRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

type MealRecordListRequest struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	MealType  string `form:"meal_type"`
	GroupType string `form:"group_type"`
	Visitor   *bool  `form:"visitor"`
	Search    string `form:"search"`
}

type MealRecordListResponse struct {
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
	Items    []models.MealRecord `json:"items"`
}

func (s *MealRecordService) List(ctx context.Context, req *MealRecordListRequest) (*MealRecordListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 200 {
		req.PageSize = 20
	}

	var records []models.MealRecord
	var total int64

	query := s.filtered(ctx, req.StartDate, req.EndDate, req.MealType, req.GroupType)
	if req.Visitor != nil {
		if *req.Visitor {
			query = query.Where("user_id IS NULL")
		} else {
			query = query.Where("user_id IS NOT NULL")
		}
	}
	if req.Search != "" {
		query = query.Where("user_name LIKE ? OR company LIKE ?", "%"+req.Search+"%", "%"+req.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("meal_date DESC, meal_time DESC").Offset(offset).Limit(req.PageSize).Find(&records).Error; err != nil {
		return nil, err
	}

	return &MealRecordListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    records,
	}, nil
}

// Range returns every record between two dates inclusive, oldest first.
func (s *MealRecordService) Range(ctx context.Context, startDate, endDate, mealType, groupType string) ([]models.MealRecord, error) {
	var records []models.MealRecord
	err := s.filtered(ctx, startDate, endDate, mealType, groupType).
		Order("meal_date ASC, meal_time ASC").
		Find(&records).Error
	return records, err
}

func (s *MealRecordService) filtered(ctx context.Context, startDate, endDate, mealType, groupType string) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.MealRecord{})
	if startDate != "" {
		query = query.Where("meal_date >= ?", startDate)
	}
	if endDate != "" {
		query = query.Where("meal_date <= ?", endDate)
	}
	if mealType != "" {
		query = query.Where("meal_type = ?", mealType)
	}
	if groupType != "" {
		query = query.Where("group_type = ?", groupType)
	}
	return query
}

func (s *MealRecordService) GetByID(ctx context.Context, id uint) (*models.MealRecord, error) {
	var record models.MealRecord
	if err := s.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (s *MealRecordService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.MealRecord{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete meal record %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ MealRecordStore = (*MealRecordService)(nil)
