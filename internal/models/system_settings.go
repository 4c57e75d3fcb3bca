package models

import "time"

// SystemSettingsID is the primary key of the only settings row.
const SystemSettingsID = 1

// SystemSettings holds the registration windows as HH:MM strings. An empty
// value means the window is not configured and the meal cannot be registered.
type SystemSettings struct {
	ID                 uint      `gorm:"primaryKey" json:"-"`
	BreakfastStartTime string    `gorm:"size:8" json:"breakfast_start_time"`
	BreakfastDeadline  string    `gorm:"size:8" json:"breakfast_deadline"`
	LunchStartTime     string    `gorm:"size:8" json:"lunch_start_time"`
	LunchDeadline      string    `gorm:"size:8" json:"lunch_deadline"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (SystemSettings) TableName() string { return "system_settings" }

// Window returns the configured start and deadline for a meal type.
func (s *SystemSettings) Window(mealType string) (start, deadline string) {
	switch mealType {
	case MealTypeBreakfast:
		return s.BreakfastStartTime, s.BreakfastDeadline
	case MealTypeLunch:
		return s.LunchStartTime, s.LunchDeadline
	}
	return "", ""
}
