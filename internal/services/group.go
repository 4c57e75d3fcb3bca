package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/huangang/mealkiosk/internal/models"
	"gorm.io/gorm"
)

var groupNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,99}$`)

type GroupService struct {
	db *gorm.DB
}

func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{db: db}
}

type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required"`
	DisplayName string `json:"display_name" binding:"required"`
	Color       string `json:"color"`
	SortOrder   int    `json:"sort_order"`
}

type UpdateGroupRequest struct {
	DisplayName string `json:"display_name"`
	Color       string `json:"color"`
	SortOrder   *int   `json:"sort_order"`
	Active      *bool  `json:"active"`
}

// List returns groups ordered for display. activeOnly hides deactivated groups.
func (s *GroupService) List(ctx context.Context, activeOnly bool) ([]models.Group, error) {
	query := s.db.WithContext(ctx).Model(&models.Group{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	var groups []models.Group
	if err := query.Order("sort_order ASC, name ASC").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *GroupService) GetByID(ctx context.Context, id uint) (*models.Group, error) {
	var group models.Group
	if err := s.db.WithContext(ctx).First(&group, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &group, nil
}

func (s *GroupService) Create(ctx context.Context, req *CreateGroupRequest) (*models.Group, error) {
	name := strings.ToLower(strings.TrimSpace(req.Name))
	if !groupNamePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: group name must be lowercase letters, digits, '-' or '_'", ErrValidation)
	}

	var count int64
	s.db.WithContext(ctx).Model(&models.Group{}).Where("name = ?", name).Count(&count)
	if count > 0 {
		return nil, fmt.Errorf("%w: group %q already exists", ErrConflict, name)
	}

	group := models.Group{
		Name:        name,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Color:       req.Color,
		SortOrder:   req.SortOrder,
		Active:      true,
	}
	if group.Color == "" {
		group.Color = "#1677ff"
	}
	if err := s.db.WithContext(ctx).Create(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

func (s *GroupService) Update(ctx context.Context, id uint, req *UpdateGroupRequest) (*models.Group, error) {
	group, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.DisplayName != "" {
		updates["display_name"] = strings.TrimSpace(req.DisplayName)
	}
	if req.Color != "" {
		updates["color"] = req.Color
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}
	if len(updates) == 0 {
		return group, nil
	}

	if err := s.db.WithContext(ctx).Model(group).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *GroupService) Deactivate(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Model(&models.Group{}).Where("id = ?", id).Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a group that no active user belongs to.
func (s *GroupService) Delete(ctx context.Context, id uint) error {
	group, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	var active int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("group_type = ? AND active = ?", group.Name, true).
		Count(&active).Error; err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("%w: %d active users still belong to %q", ErrConflict, active, group.Name)
	}

	return s.db.WithContext(ctx).Delete(group).Error
}
