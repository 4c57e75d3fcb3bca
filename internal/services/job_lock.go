package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/huangang/mealkiosk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobLocker claims scheduled runs in the backend so only one kiosk server
// executes a given job for a given key.
type JobLocker struct {
	db     *gorm.DB
	holder string
	now    func() time.Time
}

func NewJobLocker(db *gorm.DB) *JobLocker {
	host, _ := os.Hostname()
	return &JobLocker{
		db:     db,
		holder: fmt.Sprintf("%s:%d", host, os.Getpid()),
		now:    time.Now,
	}
}

// TryAcquire claims job/runKey for ttl. It returns false when another holder
// has an unexpired claim.
func (l *JobLocker) TryAcquire(ctx context.Context, job, runKey string, ttl time.Duration) (bool, error) {
	now := l.now()
	db := l.db.WithContext(ctx)

	if err := db.Where("job = ? AND run_key = ? AND expires_at < ?", job, runKey, now).
		Delete(&models.JobLock{}).Error; err != nil {
		return false, err
	}

	lock := models.JobLock{
		Job:        job,
		RunKey:     runKey,
		Holder:     l.holder,
		AcquiredAt: now,
		ExpiresAt:  now.Add(ttl),
	}
	result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&lock)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Release drops a claim held by this locker.
func (l *JobLocker) Release(ctx context.Context, job, runKey string) error {
	return l.db.WithContext(ctx).
		Where("job = ? AND run_key = ? AND holder = ?", job, runKey, l.holder).
		Delete(&models.JobLock{}).Error
}
