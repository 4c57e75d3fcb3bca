package services

import (
	"context"
	"sync/atomic"
	"time"

	"gorm.io/gorm"
)

// Connectivity tracks whether the backend answered the last probe. It starts
// optimistic so the first registration tries a direct write.
type Connectivity struct {
	ping    func(ctx context.Context) error
	timeout time.Duration
	online  atomic.Bool
}

func NewConnectivity(ping func(ctx context.Context) error) *Connectivity {
	c := &Connectivity{ping: ping, timeout: 3 * time.Second}
	c.online.Store(true)
	return c
}

// DBPinger probes the gorm backend connection.
func DBPinger(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

func (c *Connectivity) Online() bool {
	return c.online.Load()
}

// Check probes the backend and records the result. cameOnline is true only on
// an offline to online transition.
func (c *Connectivity) Check(ctx context.Context) (online, cameOnline bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	online = c.ping(ctx) == nil
	was := c.online.Swap(online)
	return online, online && !was
}

// MarkOffline records a failed backend call observed outside a probe.
func (c *Connectivity) MarkOffline() {
	c.online.Store(false)
}
