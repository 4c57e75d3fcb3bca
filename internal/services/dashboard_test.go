package services

import (
	"context"
	"testing"
	"time"

	"github.com/huangang/mealkiosk/internal/localstore"
	"github.com/huangang/mealkiosk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardService_GetStats(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	seedMeals(t, db)
	require.NoError(t, db.Create(&models.User{Name: "Alice", GroupType: "staff", Active: true}).Error)

	now := fixedClock(time.Date(2024, 3, 4, 13, 0, 0, 0, time.UTC))
	reports := NewReportService(db, NewWorkdayCalendar(CountryNone), time.UTC)
	queue := NewOfflineQueue(localstore.NewMemoryStore(), NewMealRecordService(db))
	_, err := queue.Enqueue(ctx, visitorRecord("Pending"))
	require.NoError(t, err)

	conn := NewConnectivity(func(context.Context) error { return nil })
	svc := NewDashboardService(db, reports, queue, conn, time.UTC)
	svc.now = now

	stats, err := svc.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04", stats.Date)
	assert.Equal(t, int64(3), stats.Today.Total)
	assert.Equal(t, int64(1), stats.Today.Breakfast)
	assert.Equal(t, int64(1), stats.ActiveUsers)
	assert.Equal(t, 1, stats.PendingOffline)
	assert.True(t, stats.BackendOnline)
	require.Len(t, stats.RecentMeals, 3)
	assert.Equal(t, "Bob", stats.RecentMeals[0].UserName)
}
