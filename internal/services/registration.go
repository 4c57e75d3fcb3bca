package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangang/mealkiosk/internal/models"
	"github.com/huangang/mealkiosk/pkg/logger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Outcome of a registration that passed validation.
type Outcome string

const (
	OutcomeSaved  Outcome = "saved"
	OutcomeQueued Outcome = "queued"
	OutcomeFailed Outcome = "failed"
)

type RegisterRequest struct {
	GroupType string `json:"group_type"`
	Name      string `json:"name"`
	Company   string `json:"company"`
	UserID    *uint  `json:"user_id"`
	MealType  string `json:"meal_type"`
}

// RegisterResult carries the tagged outcome. Record is set when saved,
// Queued when stored locally, Err when failed.
type RegisterResult struct {
	Outcome Outcome            `json:"outcome"`
	Record  *models.MealRecord `json:"record,omitempty"`
	Queued  *OfflineMealRecord `json:"queued,omitempty"`
	Err     error              `json:"-"`
}

// SettingsSource supplies the registration windows.
type SettingsSource interface {
	Current(ctx context.Context) (*models.SystemSettings, bool)
}

type RegistrationService struct {
	remote   MealRecordStore
	queue    *OfflineQueue
	settings SettingsSource
	conn     *Connectivity
	hub      *SSEHub
	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger
}

func NewRegistrationService(remote MealRecordStore, queue *OfflineQueue, settings SettingsSource, conn *Connectivity, hub *SSEHub, loc *time.Location) *RegistrationService {
	if loc == nil {
		loc = time.Local
	}
	return &RegistrationService{
		remote:   remote,
		queue:    queue,
		settings: settings,
		conn:     conn,
		hub:      hub,
		loc:      loc,
		now:      time.Now,
		log:      logger.With("registration"),
	}
}

// Register validates, gates on the meal window, rejects duplicates for
// registered users, then writes to the backend or falls back to the offline
// queue. Rejections come back as errors wrapping ErrValidation,
// ErrOutsideWindow or ErrDuplicateMeal; everything after that is reported
// through the result outcome.
func (s *RegistrationService) Register(ctx context.Context, req *RegisterRequest) (*RegisterResult, error) {
	groupType := strings.TrimSpace(req.GroupType)
	name := strings.TrimSpace(req.Name)
	if groupType == "" || name == "" {
		return nil, fmt.Errorf("%w: group and name are required", ErrValidation)
	}
	if !models.IsValidMealType(req.MealType) {
		return nil, fmt.Errorf("%w: unknown meal type %q", ErrValidation, req.MealType)
	}

	now := s.now().In(s.loc)
	settings, _ := s.settings.Current(ctx)
	if !IsMealWindowOpen(settings, req.MealType, now) {
		return nil, fmt.Errorf("%w: %s", ErrOutsideWindow, req.MealType)
	}

	record := &models.MealRecord{
		UserID:    req.UserID,
		UserName:  name,
		GroupType: groupType,
		MealType:  req.MealType,
		MealDate:  now.Format(models.DateLayout),
		MealTime:  now.Format(models.TimeLayout),
	}
	if req.UserID == nil {
		record.Company = strings.TrimSpace(req.Company)
	}

	online := s.conn == nil || s.conn.Online()

	if req.UserID != nil {
		if err := s.checkDuplicate(ctx, *req.UserID, record, online); err != nil {
			return nil, err
		}
	}

	if online {
		err := s.remote.InsertMealRecord(ctx, record)
		if err == nil {
			s.publish(EventMealSaved, record)
			return &RegisterResult{Outcome: OutcomeSaved, Record: record}, nil
		}
		// Another terminal won the race past the duplicate check.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s on %s", ErrDuplicateMeal, record.MealType, record.MealDate)
		}
		s.log.Warn().Err(err).Str("meal_type", record.MealType).Msg("backend write failed, queueing locally")
		if s.conn != nil {
			s.conn.MarkOffline()
		}
	}

	queued, err := s.queue.Enqueue(ctx, record)
	if err != nil {
		s.log.Error().Err(err).Msg("offline queue write failed")
		return &RegisterResult{Outcome: OutcomeFailed, Err: err}, nil
	}
	s.publish(EventMealQueued, queued)
	return &RegisterResult{Outcome: OutcomeQueued, Queued: queued}, nil
}

func (s *RegistrationService) checkDuplicate(ctx context.Context, userID uint, record *models.MealRecord, online bool) error {
	if online {
		existing, err := s.remote.FindMealRecord(ctx, userID, record.MealType, record.MealDate)
		if err != nil {
			// Sync-time dedup catches this if the entry ends up queued.
			s.log.Warn().Err(err).Uint("user_id", userID).Msg("duplicate check failed, continuing")
		} else if existing != nil {
			return fmt.Errorf("%w: %s on %s", ErrDuplicateMeal, record.MealType, record.MealDate)
		}
	}

	pending, err := s.queue.HasPending(ctx, userID, record.MealType, record.MealDate)
	if err != nil {
		s.log.Warn().Err(err).Msg("pending duplicate check failed, continuing")
		return nil
	}
	if pending {
		return fmt.Errorf("%w: %s on %s (pending sync)", ErrDuplicateMeal, record.MealType, record.MealDate)
	}
	return nil
}

func (s *RegistrationService) publish(eventType string, data interface{}) {
	if s.hub != nil {
		s.hub.Publish(eventType, data)
	}
}
