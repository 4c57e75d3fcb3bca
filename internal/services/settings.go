package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/huangang/mealkiosk/internal/localstore"
	"github.com/huangang/mealkiosk/internal/models"
	"github.com/huangang/mealkiosk/pkg/logger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// SettingsService owns the singleton settings row and mirrors the last good
// read into the local store so the window gate works offline.
type SettingsService struct {
	db    *gorm.DB
	store localstore.Store
	log   zerolog.Logger
}

func NewSettingsService(db *gorm.DB, store localstore.Store) *SettingsService {
	return &SettingsService{db: db, store: store, log: logger.With("settings")}
}

type UpdateSettingsRequest struct {
	BreakfastStartTime *string `json:"breakfast_start_time"`
	BreakfastDeadline  *string `json:"breakfast_deadline"`
	LunchStartTime     *string `json:"lunch_start_time"`
	LunchDeadline      *string `json:"lunch_deadline"`
}

// Get reads the settings row from the backend and refreshes the local mirror.
func (s *SettingsService) Get(ctx context.Context) (*models.SystemSettings, error) {
	var settings models.SystemSettings
	err := s.db.WithContext(ctx).First(&settings, models.SystemSettingsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := localstore.SetJSON(ctx, s.store, localstore.KeySystemSettings, &settings); err != nil {
		s.log.Warn().Err(err).Msg("mirror settings locally")
	}
	return &settings, nil
}

// Current returns backend settings, or the local mirror when the backend is
// unreachable. It returns nil when neither is available.
func (s *SettingsService) Current(ctx context.Context) (settings *models.SystemSettings, fromCache bool) {
	settings, err := s.Get(ctx)
	if err == nil {
		return settings, false
	}
	s.log.Warn().Err(err).Msg("settings unavailable from backend, using local copy")

	var cached models.SystemSettings
	ok, cerr := localstore.GetJSON(ctx, s.store, localstore.KeySystemSettings, &cached)
	if cerr != nil || !ok {
		return nil, true
	}
	return &cached, true
}

func (s *SettingsService) Update(ctx context.Context, req *UpdateSettingsRequest) (*models.SystemSettings, error) {
	updates := make(map[string]interface{})
	fields := []struct {
		column string
		value  *string
	}{
		{"breakfast_start_time", req.BreakfastStartTime},
		{"breakfast_deadline", req.BreakfastDeadline},
		{"lunch_start_time", req.LunchStartTime},
		{"lunch_deadline", req.LunchDeadline},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		v := strings.TrimSpace(*f.value)
		if v != "" && ParseClock(v) == nil {
			return nil, fmt.Errorf("%w: %s must be HH:MM", ErrValidation, f.column)
		}
		updates[f.column] = v
	}

	if len(updates) > 0 {
		var settings models.SystemSettings
		err := s.db.WithContext(ctx).FirstOrCreate(&settings, models.SystemSettings{ID: models.SystemSettingsID}).Error
		if err != nil {
			return nil, err
		}
		if err := s.db.WithContext(ctx).Model(&settings).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(ctx)
}
