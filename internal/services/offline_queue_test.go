package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/huangang/mealkiosk/internal/localstore"
	"github.com/huangang/mealkiosk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(remote MealRecordStore) (*OfflineQueue, *localstore.MemoryStore) {
	store := localstore.NewMemoryStore()
	q := NewOfflineQueue(store, remote)
	q.now = fixedClock(time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC))
	return q, store
}

func visitorRecord(name string) *models.MealRecord {
	return &models.MealRecord{
		UserName:  name,
		Company:   "Acme",
		GroupType: "visitor",
		MealType:  models.MealTypeLunch,
		MealDate:  "2024-03-04",
		MealTime:  "12:00:00",
	}
}

func userRecord(id uint, name string) *models.MealRecord {
	return &models.MealRecord{
		UserID:    uintPtr(id),
		UserName:  name,
		GroupType: "staff",
		MealType:  models.MealTypeBreakfast,
		MealDate:  "2024-03-04",
		MealTime:  "08:30:00",
	}
}

func TestOfflineQueue_Enqueue(t *testing.T) {
	ctx := context.Background()
	q, store := newTestQueue(newFakeMealStore())

	first, err := q.Enqueue(ctx, userRecord(1, "Alice"))
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, visitorRecord("Bob"))
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, time.Date(2024, 3, 4, 8, 30, 0, 0, time.UTC).UnixMilli(), first.Timestamp)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "Alice", pending[0].UserName)
	assert.Equal(t, "Bob", pending[1].UserName)

	_, ok, err := store.Get(ctx, localstore.KeyOfflineMealRecords)
	require.NoError(t, err)
	assert.True(t, ok, "queue persisted under its key")
}

func TestOfflineQueue_SyncAllAccepted(t *testing.T) {
	ctx := context.Background()
	remote := newFakeMealStore()
	q, store := newTestQueue(remote)

	const n = 5
	for i := 0; i < n; i++ {
		_, err := q.Enqueue(ctx, visitorRecord(fmt.Sprintf("Visitor %d", i)))
		require.NoError(t, err)
	}

	result, err := q.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Synced: n}, result)

	count, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, n, remote.recordCount())

	_, ok, _ := store.Get(ctx, localstore.KeyOfflineMealRecords)
	assert.False(t, ok, "key removed after a clean sync")
}

func TestOfflineQueue_SyncDropsDuplicates(t *testing.T) {
	ctx := context.Background()
	remote := newFakeMealStore()
	remote.records = append(remote.records, *userRecord(7, "Alice"))
	q, _ := newTestQueue(remote)

	_, err := q.Enqueue(ctx, userRecord(7, "Alice"))
	require.NoError(t, err)

	result, err := q.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)
	assert.Zero(t, result.Failed)
	assert.Zero(t, remote.insertCount(), "duplicate must not be re-inserted")
	assert.Equal(t, 1, remote.recordCount())

	count, _ := q.PendingCount(ctx)
	assert.Zero(t, count)
}

func TestOfflineQueue_SyncVisitorsSkipDuplicateCheck(t *testing.T) {
	ctx := context.Background()
	remote := newFakeMealStore()
	remote.failFind = true
	q, _ := newTestQueue(remote)

	_, err := q.Enqueue(ctx, visitorRecord("Walk-in"))
	require.NoError(t, err)

	result, err := q.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Synced: 1}, result)
	assert.Zero(t, remote.finds)
}

func TestOfflineQueue_SyncKeepsFailuresInOrder(t *testing.T) {
	ctx := context.Background()
	remote := newFakeMealStore()
	remote.failNames["B"] = true
	remote.failNames["D"] = true
	q, _ := newTestQueue(remote)

	for _, name := range []string{"A", "B", "C", "D", "E"} {
		_, err := q.Enqueue(ctx, visitorRecord(name))
		require.NoError(t, err)
	}

	result, err := q.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Synced)
	assert.Equal(t, 2, result.Failed)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "B", pending[0].UserName)
	assert.Equal(t, "D", pending[1].UserName)

	remote.failNames = map[string]bool{}
	result, err = q.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Synced: 2}, result)
}

func TestOfflineQueue_SyncFailedDuplicateCheckKeepsEntry(t *testing.T) {
	ctx := context.Background()
	remote := newFakeMealStore()
	remote.failFind = true
	q, _ := newTestQueue(remote)

	_, err := q.Enqueue(ctx, userRecord(3, "Carol"))
	require.NoError(t, err)

	result, err := q.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Zero(t, remote.insertCount())

	count, _ := q.PendingCount(ctx)
	assert.Equal(t, 1, count)
}

func TestOfflineQueue_SyncEmpty(t *testing.T) {
	q, _ := newTestQueue(newFakeMealStore())
	result, err := q.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncResult{}, result)
}

func TestOfflineQueue_SyncIsNotReentrant(t *testing.T) {
	ctx := context.Background()
	remote := newFakeMealStore()
	remote.block = make(chan struct{})
	remote.entered = make(chan struct{}, 1)
	q, _ := newTestQueue(remote)

	_, err := q.Enqueue(ctx, visitorRecord("Slow"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var first SyncResult
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, _ = q.Sync(ctx)
	}()

	select {
	case <-remote.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first sync never reached the backend")
	}
	assert.True(t, q.IsSyncing())

	second, err := q.Sync(ctx)
	require.NoError(t, err)
	assert.True(t, second.Skipped, "overlapping sync must be skipped")

	close(remote.block)
	wg.Wait()

	assert.Equal(t, SyncResult{Synced: 1}, first)
	assert.Equal(t, 1, remote.insertCount())
	assert.False(t, q.IsSyncing())
}

func TestOfflineQueue_EnqueueDuringSyncIsKept(t *testing.T) {
	ctx := context.Background()
	remote := newFakeMealStore()
	remote.block = make(chan struct{})
	remote.entered = make(chan struct{}, 1)
	remote.failNames["Fails"] = true
	q, _ := newTestQueue(remote)

	_, err := q.Enqueue(ctx, visitorRecord("Fails"))
	require.NoError(t, err)

	done := make(chan SyncResult)
	go func() {
		r, _ := q.Sync(ctx)
		done <- r
	}()

	<-remote.entered
	_, err = q.Enqueue(ctx, visitorRecord("Late"))
	require.NoError(t, err)
	close(remote.block)

	result := <-done
	assert.Equal(t, 1, result.Failed)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "Fails", pending[0].UserName)
	assert.Equal(t, "Late", pending[1].UserName)
}

func TestOfflineQueue_HasPending(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(newFakeMealStore())

	_, err := q.Enqueue(ctx, userRecord(9, "Dan"))
	require.NoError(t, err)

	ok, err := q.HasPending(ctx, 9, models.MealTypeBreakfast, "2024-03-04")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = q.HasPending(ctx, 9, models.MealTypeLunch, "2024-03-04")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOfflineQueue_WithSQLBackend(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	remote := NewMealRecordService(db)
	q, _ := newTestQueue(remote)

	require.NoError(t, remote.InsertMealRecord(ctx, userRecord(1, "Alice")))

	_, err := q.Enqueue(ctx, userRecord(1, "Alice"))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, userRecord(2, "Bob"))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, visitorRecord("Guest"))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, visitorRecord("Guest"))
	require.NoError(t, err)

	result, err := q.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Synced: 4}, result)

	var total int64
	require.NoError(t, db.Model(&models.MealRecord{}).Count(&total).Error)
	assert.Equal(t, int64(4), total, "one existing + Bob + two visitor rows")
}

func TestOfflineQueue_SyncDropsConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	remote := staleFindStore{NewMealRecordService(db)}
	q, _ := newTestQueue(remote)

	require.NoError(t, remote.InsertMealRecord(ctx, userRecord(1, "Alice")))
	_, err := q.Enqueue(ctx, userRecord(1, "Alice"))
	require.NoError(t, err)

	result, err := q.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Synced: 1}, result)

	count, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
