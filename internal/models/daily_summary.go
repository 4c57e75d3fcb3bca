package models

import "time"

// DailySummary is the per-day meal aggregate written by the summary scheduler.
type DailySummary struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SummaryDate     string    `gorm:"uniqueIndex;size:10;not null" json:"summary_date"`
	BreakfastCount  int64     `json:"breakfast_count"`
	LunchCount      int64     `json:"lunch_count"`
	VisitorCount    int64     `json:"visitor_count"`
	RegisteredCount int64     `json:"registered_count"`
	GroupBreakdown  string    `gorm:"type:text" json:"group_breakdown"` // JSON: {"group": count}
	IsWorkday       bool      `json:"is_workday"`
	GeneratedAt     time.Time `json:"generated_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (DailySummary) TableName() string { return "daily_summaries" }
