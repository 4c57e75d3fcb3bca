package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLocker_TryAcquire(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 21, 0, 0, 0, time.UTC)

	a := NewJobLocker(db)
	a.holder = "a:1"
	a.now = fixedClock(now)
	b := NewJobLocker(db)
	b.holder = "b:1"
	b.now = fixedClock(now)

	ok, err := a.TryAcquire(ctx, "daily_summary", "2024-03-04", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryAcquire(ctx, "daily_summary", "2024-03-04", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = b.TryAcquire(ctx, "daily_summary", "2024-03-05", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "different run key")
}

func TestJobLocker_ExpiredClaimIsReplaced(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 21, 0, 0, 0, time.UTC)

	a := NewJobLocker(db)
	a.now = fixedClock(now)
	ok, err := a.TryAcquire(ctx, "cleanup", "x", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	b := NewJobLocker(db)
	b.holder = "b:1"
	b.now = fixedClock(now.Add(2 * time.Minute))
	ok, err = b.TryAcquire(ctx, "cleanup", "x", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestJobLocker_Release(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := NewJobLocker(db)
	ok, err := a.TryAcquire(ctx, "cleanup", "x", time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, a.Release(ctx, "cleanup", "x"))

	ok, err = a.TryAcquire(ctx, "cleanup", "x", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}
