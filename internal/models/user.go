package models

import "time"

// User is a person who can register meals at the kiosk. Users are
// deactivated rather than deleted so historic meal records keep their owner.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200;not null;index" json:"name"`
	GroupType string    `gorm:"size:100;not null;index" json:"group_type"`
	Active    bool      `gorm:"default:true;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }
