package models

import "time"

const (
	MealTypeBreakfast = "breakfast"
	MealTypeLunch     = "lunch"
)

// MealTypes lists the registrable meal slots in display order.
var MealTypes = []string{MealTypeBreakfast, MealTypeLunch}

func IsValidMealType(mealType string) bool {
	for _, t := range MealTypes {
		if t == mealType {
			return true
		}
	}
	return false
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// MealRecord is one registered meal. UserID is nil for visitors; the unique
// index only constrains registered users because SQL unique indexes ignore NULLs.
type MealRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"uniqueIndex:idx_meal_user_type_date" json:"user_id"`
	UserName  string    `gorm:"size:200;not null" json:"user_name"`
	Company   string    `gorm:"size:200" json:"company,omitempty"`
	GroupType string    `gorm:"size:100;not null;index" json:"group_type"`
	MealType  string    `gorm:"size:20;not null;uniqueIndex:idx_meal_user_type_date" json:"meal_type"`
	MealDate  string    `gorm:"size:10;not null;uniqueIndex:idx_meal_user_type_date;index" json:"meal_date"` // YYYY-MM-DD
	MealTime  string    `gorm:"size:8;not null" json:"meal_time"`                                            // HH:MM:SS
	CreatedAt time.Time `json:"created_at"`
}

func (MealRecord) TableName() string { return "meal_records" }

// IsVisitor reports whether the record has no backing registered user.
func (m *MealRecord) IsVisitor() bool {
	return m.UserID == nil
}
