package models

import "time"

// Group is a selectable organisation unit on the kiosk screen (department,
// contractor, visitors). Name is the stable key stored on users and meal records.
type Group struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	DisplayName string    `gorm:"size:200;not null" json:"display_name"`
	Color       string    `gorm:"size:20;default:#1677ff" json:"color"`
	SortOrder   int       `gorm:"default:0" json:"sort_order"`
	Active      bool      `gorm:"default:true" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Group) TableName() string { return "groups" }
