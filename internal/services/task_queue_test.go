package services

import (
	"context"
	"testing"
	"time"

	"github.com/huangang/mealkiosk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskQueue_FallsBackToSync(t *testing.T) {
	q := NewTaskQueue(&config.RedisConfig{Enabled: false})
	_, ok := q.(*SyncQueue)
	assert.True(t, ok)
	assert.False(t, q.IsAsync())
	assert.NoError(t, q.Close())
}

func TestSyncQueue_RunsProcessor(t *testing.T) {
	q := NewSyncQueue()
	done := make(chan *SummaryTask, 1)
	q.SetProcessor(func(_ context.Context, task *SummaryTask) error {
		done <- task
		return nil
	})

	require.NoError(t, q.Enqueue(&SummaryTask{Date: "2024-03-04", RequestedBy: 2}))

	select {
	case task := <-done:
		assert.Equal(t, "2024-03-04", task.Date)
	case <-time.After(time.Second):
		t.Fatal("processor was not called")
	}
}

func TestSyncQueue_NoProcessor(t *testing.T) {
	q := NewSyncQueue()
	assert.NoError(t, q.Enqueue(&SummaryTask{Date: "2024-03-04"}))
}

func TestNewWorker_DisabledWithoutRedis(t *testing.T) {
	w := NewWorker(&config.RedisConfig{Enabled: false}, nil)
	assert.Nil(t, w)
}
