package services

import (
	"context"
	"fmt"
	"time"

	"github.com/huangang/mealkiosk/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SyncScheduler retries the offline queue on a fixed interval and as soon as
// the backend comes back.
type SyncScheduler struct {
	queue    *OfflineQueue
	conn     *Connectivity
	hub      *SSEHub
	interval time.Duration
	cron     *cron.Cron
	log      zerolog.Logger
}

func NewSyncScheduler(queue *OfflineQueue, conn *Connectivity, hub *SSEHub, interval time.Duration) *SyncScheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &SyncScheduler{
		queue:    queue,
		conn:     conn,
		hub:      hub,
		interval: interval,
		log:      logger.With("sync_scheduler"),
	}
}

func (s *SyncScheduler) Start() error {
	s.cron = cron.New()
	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() { s.Tick(context.Background()) }); err != nil {
		return fmt.Errorf("schedule offline sync: %w", err)
	}
	s.cron.Start()
	s.log.Info().Dur("interval", s.interval).Msg("offline sync scheduler started")

	go s.Tick(context.Background())
	return nil
}

func (s *SyncScheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Tick probes the backend, syncs when it just came back or when it is online
// with queued entries, then publishes the pending count.
func (s *SyncScheduler) Tick(ctx context.Context) {
	online, cameOnline := s.conn.Check(ctx)

	pending, err := s.queue.PendingCount(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("read offline queue")
		return
	}

	if online && (cameOnline || pending > 0) {
		if cameOnline {
			s.log.Info().Int("pending", pending).Msg("backend reachable again")
		}
		s.SyncNow(ctx)
		return
	}

	s.publishPending(pending, online)
}

// SyncNow runs one sync pass and publishes its outcome. A pass already in
// flight makes this a no-op.
func (s *SyncScheduler) SyncNow(ctx context.Context) SyncResult {
	result, err := s.queue.Sync(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("offline sync failed")
	}
	if result.Skipped {
		return result
	}

	if result.Synced > 0 || result.Failed > 0 {
		s.hub.Publish(EventSyncCompleted, result)
	}

	pending, err := s.queue.PendingCount(ctx)
	if err == nil {
		s.publishPending(pending, s.conn.Online())
	}
	return result
}

func (s *SyncScheduler) publishPending(pending int, online bool) {
	s.hub.Publish(EventQueuePending, map[string]interface{}{
		"pending": pending,
		"online":  online,
	})
}
