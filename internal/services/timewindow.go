package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/huangang/mealkiosk/internal/models"
)

// IsWithinWindow reports whether nowMinutes lies in [start, end], both ends
// inclusive. A nil start or end never admits. A window whose start is after
// its end admits nothing; windows crossing midnight are not supported.
func IsWithinWindow(nowMinutes int, start, end *int) bool {
	if start == nil || end == nil {
		return false
	}
	return *start <= nowMinutes && nowMinutes <= *end
}

// ParseClock converts "HH:MM" or "HH:MM:SS" into minutes since midnight.
// Seconds are ignored. It returns nil for empty or malformed input.
func ParseClock(value string) *int {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return nil
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return nil
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return nil
		}
	}
	m := hour*60 + minute
	return &m
}

// MinutesOfDay returns the hour:minute of t as minutes since midnight.
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// IsMealWindowOpen evaluates the configured window for mealType at now.
// Missing settings are treated as an unconfigured window.
func IsMealWindowOpen(settings *models.SystemSettings, mealType string, now time.Time) bool {
	if settings == nil {
		return false
	}
	start, end := settings.Window(mealType)
	return IsWithinWindow(MinutesOfDay(now), ParseClock(start), ParseClock(end))
}

// MealWindow is the state of one meal slot as shown on the kiosk screen.
type MealWindow struct {
	MealType string `json:"meal_type"`
	Start    string `json:"start"`
	Deadline string `json:"deadline"`
	Open     bool   `json:"open"`
}

// MealWindows lists every meal slot with its open state at now.
func MealWindows(settings *models.SystemSettings, now time.Time) []MealWindow {
	windows := make([]MealWindow, 0, len(models.MealTypes))
	for _, mealType := range models.MealTypes {
		w := MealWindow{MealType: mealType}
		if settings != nil {
			w.Start, w.Deadline = settings.Window(mealType)
		}
		w.Open = IsMealWindowOpen(settings, mealType, now)
		windows = append(windows, w)
	}
	return windows
}
