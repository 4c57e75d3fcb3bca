package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/huangang/mealkiosk/internal/models"
	"github.com/huangang/mealkiosk/internal/utils"
	"gorm.io/gorm"
)

type AdminUserService struct {
	db *gorm.DB
}

func NewAdminUserService(db *gorm.DB) *AdminUserService {
	return &AdminUserService{db: db}
}

type CreateAdminUserRequest struct {
	Username string `json:"username" binding:"required"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"required,min=6"`
}

type UpdateAdminUserRequest struct {
	Name     string `json:"name"`
	Active   *bool  `json:"active"`
	Password string `json:"password" binding:"omitempty,min=6"`
}

func (s *AdminUserService) List(ctx context.Context) ([]models.AdminUser, error) {
	var admins []models.AdminUser
	if err := s.db.WithContext(ctx).Order("username ASC").Find(&admins).Error; err != nil {
		return nil, err
	}
	return admins, nil
}

func (s *AdminUserService) Create(ctx context.Context, req *CreateAdminUserRequest) (*models.AdminUser, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}

	var count int64
	s.db.WithContext(ctx).Model(&models.AdminUser{}).Where("username = ?", username).Count(&count)
	if count > 0 {
		return nil, fmt.Errorf("%w: username %q is taken", ErrConflict, username)
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	admin := models.AdminUser{
		Username:     username,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hashed,
		Active:       true,
	}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

func (s *AdminUserService) Update(ctx context.Context, id uint, req *UpdateAdminUserRequest) (*models.AdminUser, error) {
	var admin models.AdminUser
	if err := s.db.WithContext(ctx).First(&admin, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = strings.TrimSpace(req.Name)
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if req.Password != "" {
		hashed, err := utils.HashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hashed
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&admin).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &admin, nil
}

// Delete removes an admin account. Admins cannot delete themselves.
func (s *AdminUserService) Delete(ctx context.Context, id, currentAdminID uint) error {
	if id == currentAdminID {
		return fmt.Errorf("%w: cannot delete your own account", ErrConflict)
	}
	result := s.db.WithContext(ctx).Delete(&models.AdminUser{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
