package services

import (
	"context"
	"strconv"
	"time"

	"github.com/huangang/mealkiosk/internal/localstore"
	"github.com/huangang/mealkiosk/internal/models"
	"github.com/huangang/mealkiosk/pkg/logger"
	"github.com/rs/zerolog"
)

// UserCache is a read-through mirror of the active user directory in the
// local store. The fallback path serves whatever is cached, however old;
// Cached enforces the TTL.
type UserCache struct {
	dir   UserDirectory
	store localstore.Store
	ttl   time.Duration
	now   func() time.Time
	log   zerolog.Logger
}

func NewUserCache(dir UserDirectory, store localstore.Store, ttl time.Duration) *UserCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &UserCache{
		dir:   dir,
		store: store,
		ttl:   ttl,
		now:   time.Now,
		log:   logger.With("user_cache"),
	}
}

// FetchWithCache returns active users, optionally filtered by group. An
// unfiltered backend read refreshes the cache. When the backend fails the
// cached snapshot is filtered locally and fromCache is true.
func (c *UserCache) FetchWithCache(ctx context.Context, groupType string) (users []models.User, fromCache bool, err error) {
	users, err = c.dir.ListActiveUsers(ctx, groupType)
	if err == nil {
		if groupType == "" {
			if err := c.save(ctx, users); err != nil {
				c.log.Warn().Err(err).Msg("refresh user cache")
			}
		}
		return users, false, nil
	}

	c.log.Warn().Err(err).Str("group", groupType).Msg("user directory unavailable, serving cache")

	var cached []models.User
	if _, cerr := localstore.GetJSON(ctx, c.store, localstore.KeyUsersCache, &cached); cerr != nil {
		return nil, true, cerr
	}
	if cached == nil {
		cached = []models.User{}
	}
	return filterByGroup(cached, groupType), true, nil
}

// Cached returns the cached snapshot if it is within the TTL. An expired
// cache is cleared and reported as absent.
func (c *UserCache) Cached(ctx context.Context) ([]models.User, bool, error) {
	savedAt, ok, err := c.savedAt(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	if c.now().After(savedAt.Add(c.ttl)) {
		return nil, false, c.Clear(ctx)
	}

	var users []models.User
	ok, err = localstore.GetJSON(ctx, c.store, localstore.KeyUsersCache, &users)
	if err != nil || !ok {
		return nil, false, err
	}
	return users, true, nil
}

// SavedAt reports when the cache was last refreshed.
func (c *UserCache) SavedAt(ctx context.Context) (time.Time, bool, error) {
	return c.savedAt(ctx)
}

func (c *UserCache) Clear(ctx context.Context) error {
	if err := c.store.Remove(ctx, localstore.KeyUsersCache); err != nil {
		return err
	}
	return c.store.Remove(ctx, localstore.KeyUsersCacheSavedAt)
}

func (c *UserCache) save(ctx context.Context, users []models.User) error {
	if err := localstore.SetJSON(ctx, c.store, localstore.KeyUsersCache, users); err != nil {
		return err
	}
	return c.store.Set(ctx, localstore.KeyUsersCacheSavedAt, strconv.FormatInt(c.now().UnixMilli(), 10))
}

func (c *UserCache) savedAt(ctx context.Context) (time.Time, bool, error) {
	raw, ok, err := c.store.Get(ctx, localstore.KeyUsersCacheSavedAt)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms), true, nil
}

func filterByGroup(users []models.User, groupType string) []models.User {
	if groupType == "" {
		return users
	}
	filtered := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.GroupType == groupType {
			filtered = append(filtered, u)
		}
	}
	return filtered
}
