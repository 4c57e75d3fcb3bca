package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/huangang/mealkiosk/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an in-memory backend with every table migrated.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.Migrate(db))
	return db
}

func uintPtr(v uint) *uint { return &v }

// fixedClock returns a clock frozen at the given wall time.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var errBackendDown = errors.New("backend unreachable")

// fakeMealStore is an in-memory MealRecordStore with failure injection.
type fakeMealStore struct {
	mu        sync.Mutex
	records   []models.MealRecord
	inserts   int
	finds     int
	failFind  bool
	failNames map[string]bool // inserts for these user names fail
	down      bool
	block     chan struct{} // when set, inserts wait on it
	entered   chan struct{} // signalled once an insert starts waiting
}

func newFakeMealStore() *fakeMealStore {
	return &fakeMealStore{failNames: make(map[string]bool)}
}

func (f *fakeMealStore) FindMealRecord(_ context.Context, userID uint, mealType, mealDate string) (*models.MealRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	if f.down || f.failFind {
		return nil, errBackendDown
	}
	for i := range f.records {
		r := f.records[i]
		if r.UserID != nil && *r.UserID == userID && r.MealType == mealType && r.MealDate == mealDate {
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeMealStore) InsertMealRecord(_ context.Context, record *models.MealRecord) error {
	if f.block != nil {
		if f.entered != nil {
			select {
			case f.entered <- struct{}{}:
			default:
			}
		}
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.down || f.failNames[record.UserName] {
		return errBackendDown
	}
	record.ID = uint(len(f.records) + 1)
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeMealStore) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *fakeMealStore) insertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts
}

func (f *fakeMealStore) recordCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}
