package models

import "time"

// JobLock marks a scheduled job run as claimed so that two kiosk servers
// sharing one backend do not both generate the same daily summary.
type JobLock struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Job        string    `gorm:"uniqueIndex:idx_job_run;size:100;not null" json:"job"`
	RunKey     string    `gorm:"uniqueIndex:idx_job_run;size:100;not null" json:"run_key"`
	Holder     string    `gorm:"size:100" json:"holder"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `gorm:"index" json:"expires_at"`
}

func (JobLock) TableName() string { return "job_locks" }
