package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/huangang/mealkiosk/internal/models"
	"gorm.io/gorm"
)

// UserDirectory lists active users for the kiosk picker.
type UserDirectory interface {
	ListActiveUsers(ctx context.Context, groupType string) ([]models.User, error)
}

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type UserListRequest struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	Name      string `form:"name"`
	GroupType string `form:"group_type"`
	Active    *bool  `form:"active"`
}

type UserListResponse struct {
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Items    []models.User `json:"items"`
}

type CreateUserRequest struct {
	Name      string `json:"name" binding:"required"`
	GroupType string `json:"group_type" binding:"required"`
}

type UpdateUserRequest struct {
	Name      string `json:"name"`
	GroupType string `json:"group_type"`
	Active    *bool  `json:"active"`
}

func (s *UserService) ListActiveUsers(ctx context.Context, groupType string) ([]models.User, error) {
	query := s.db.WithContext(ctx).Where("active = ?", true)
	if groupType != "" {
		query = query.Where("group_type = ?", groupType)
	}
	var users []models.User
	if err := query.Order("name ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s *UserService) List(ctx context.Context, req *UserListRequest) (*UserListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 200 {
		req.PageSize = 20
	}

	var users []models.User
	var total int64

	query := s.db.WithContext(ctx).Model(&models.User{})
	if req.Name != "" {
		query = query.Where("name LIKE ?", "%"+req.Name+"%")
	}
	if req.GroupType != "" {
		query = query.Where("group_type = ?", req.GroupType)
	}
	if req.Active != nil {
		query = query.Where("active = ?", *req.Active)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("name ASC").Offset(offset).Limit(req.PageSize).Find(&users).Error; err != nil {
		return nil, err
	}

	return &UserListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    users,
	}, nil
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) Create(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.GroupType == "" {
		return nil, fmt.Errorf("%w: name and group are required", ErrValidation)
	}

	user := models.User{Name: name, GroupType: req.GroupType, Active: true}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) Update(ctx context.Context, id uint, req *UpdateUserRequest) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if name := strings.TrimSpace(req.Name); name != "" {
		updates["name"] = name
	}
	if req.GroupType != "" {
		updates["group_type"] = req.GroupType
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Deactivate hides the user from the kiosk while keeping their history.
func (s *UserService) Deactivate(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the user row. Meal records keep the stored name.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert creates an active user or reactivates an existing one with the same
// name and group. created is false when a row already existed.
func (s *UserService) Upsert(ctx context.Context, name, groupType string) (user *models.User, created bool, err error) {
	name = strings.TrimSpace(name)
	if name == "" || groupType == "" {
		return nil, false, fmt.Errorf("%w: name and group are required", ErrValidation)
	}

	var existing models.User
	err = s.db.WithContext(ctx).Where("name = ? AND group_type = ?", name, groupType).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		u, err := s.Create(ctx, &CreateUserRequest{Name: name, GroupType: groupType})
		return u, err == nil, err
	}
	if err != nil {
		return nil, false, err
	}
	if !existing.Active {
		if err := s.db.WithContext(ctx).Model(&existing).Update("active", true).Error; err != nil {
			return nil, false, err
		}
	}
	return &existing, false, nil
}

var _ UserDirectory = (*UserService)(nil)
