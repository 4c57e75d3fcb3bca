// Package localstore is the kiosk's durable key-value store. It holds the
// offline queue, the user-directory cache, the mirrored settings and the admin
// session, and keeps working while the managed backend is unreachable.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/huangang/mealkiosk/internal/config"
)

// Well-known keys.
const (
	KeyOfflineMealRecords = "kiosk:offline_meal_records"
	KeyUsersCache         = "kiosk:users_cache"
	KeyUsersCacheSavedAt  = "kiosk:users_cache_saved_at"
	KeyAdminSession       = "kiosk:admin_session"
	KeySystemSettings     = "kiosk:system_settings"
)

// Store is a string key-value store with last-write-wins semantics per key.
// Get reports ok=false for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// New opens the store selected by cfg. redisCfg is only used by the redis driver.
func New(cfg *config.LocalStoreConfig, redisCfg *config.RedisConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "redis":
		return NewRedisStore(redisCfg, cfg.Prefix)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported local store driver: %s", cfg.Driver)
	}
}

// GetJSON decodes the value at key into dst. ok is false when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, dst interface{}) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("local store is closed")
