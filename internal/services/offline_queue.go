package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/huangang/mealkiosk/internal/localstore"
	"github.com/huangang/mealkiosk/internal/models"
	"github.com/huangang/mealkiosk/pkg/logger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// OfflineMealRecord is a meal record waiting in the local store for the
// backend to come back.
type OfflineMealRecord struct {
	ID        string `json:"id"`
	UserID    *uint  `json:"user_id"`
	UserName  string `json:"user_name"`
	Company   string `json:"company,omitempty"`
	GroupType string `json:"group_type"`
	MealType  string `json:"meal_type"`
	MealDate  string `json:"meal_date"`
	MealTime  string `json:"meal_time"`
	Timestamp int64  `json:"timestamp"` // enqueue time, unix millis
}

// MealRecord converts the queued entry into a backend row.
func (r *OfflineMealRecord) MealRecord() *models.MealRecord {
	return &models.MealRecord{
		UserID:    r.UserID,
		UserName:  r.UserName,
		Company:   r.Company,
		GroupType: r.GroupType,
		MealType:  r.MealType,
		MealDate:  r.MealDate,
		MealTime:  r.MealTime,
	}
}

// SyncResult reports one sync pass. Skipped is set when another pass was
// already running and this call did nothing.
type SyncResult struct {
	Synced  int  `json:"synced"`
	Failed  int  `json:"failed"`
	Skipped bool `json:"skipped"`
}

// OfflineQueue is the ordered list of unsent meal records kept under a single
// local store key. mu serialises read-modify-write of that key; syncing keeps
// two sync passes from overlapping.
type OfflineQueue struct {
	store   localstore.Store
	remote  MealRecordStore
	mu      sync.Mutex
	syncing atomic.Bool
	now     func() time.Time
	newID   func() string
	log     zerolog.Logger
}

func NewOfflineQueue(store localstore.Store, remote MealRecordStore) *OfflineQueue {
	return &OfflineQueue{
		store:  store,
		remote: remote,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
		log:    logger.With("offline_queue"),
	}
}

func (q *OfflineQueue) load(ctx context.Context) ([]OfflineMealRecord, error) {
	var entries []OfflineMealRecord
	if _, err := localstore.GetJSON(ctx, q.store, localstore.KeyOfflineMealRecords, &entries); err != nil {
		return nil, fmt.Errorf("load offline queue: %w", err)
	}
	return entries, nil
}

func (q *OfflineQueue) save(ctx context.Context, entries []OfflineMealRecord) error {
	if len(entries) == 0 {
		return q.store.Remove(ctx, localstore.KeyOfflineMealRecords)
	}
	return localstore.SetJSON(ctx, q.store, localstore.KeyOfflineMealRecords, entries)
}

// Enqueue appends record with a fresh id and the current timestamp and
// persists the whole queue.
func (q *OfflineQueue) Enqueue(ctx context.Context, record *models.MealRecord) (*OfflineMealRecord, error) {
	entry := OfflineMealRecord{
		ID:        q.newID(),
		UserID:    record.UserID,
		UserName:  record.UserName,
		Company:   record.Company,
		GroupType: record.GroupType,
		MealType:  record.MealType,
		MealDate:  record.MealDate,
		MealTime:  record.MealTime,
		Timestamp: q.now().UnixMilli(),
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.load(ctx)
	if err != nil {
		return nil, err
	}
	entries = append(entries, entry)
	if err := q.save(ctx, entries); err != nil {
		return nil, fmt.Errorf("persist offline queue: %w", err)
	}

	q.log.Info().
		Str("id", entry.ID).
		Str("meal_type", entry.MealType).
		Str("meal_date", entry.MealDate).
		Int("pending", len(entries)).
		Msg("meal record queued offline")
	return &entry, nil
}

// Pending returns a copy of the queued entries in enqueue order.
func (q *OfflineQueue) Pending(ctx context.Context) ([]OfflineMealRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx)
}

func (q *OfflineQueue) PendingCount(ctx context.Context) (int, error) {
	entries, err := q.Pending(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// HasPending reports whether a registered user already has a queued entry
// for the meal and date.
func (q *OfflineQueue) HasPending(ctx context.Context, userID uint, mealType, mealDate string) (bool, error) {
	entries, err := q.Pending(ctx)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.UserID != nil && *e.UserID == userID && e.MealType == mealType && e.MealDate == mealDate {
			return true, nil
		}
	}
	return false, nil
}

// IsSyncing reports whether a sync pass is running.
func (q *OfflineQueue) IsSyncing() bool {
	return q.syncing.Load()
}

// Sync pushes queued entries to the backend one at a time in enqueue order.
// An entry whose user already has a matching backend record counts as synced
// and is dropped without inserting. Failures are isolated per entry. When the
// pass ends the queue holds exactly the failed entries, followed by anything
// enqueued while the pass was running.
func (q *OfflineQueue) Sync(ctx context.Context) (SyncResult, error) {
	if !q.syncing.CompareAndSwap(false, true) {
		return SyncResult{Skipped: true}, nil
	}
	defer q.syncing.Store(false)

	snapshot, err := q.Pending(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	if len(snapshot) == 0 {
		return SyncResult{}, nil
	}

	var result SyncResult
	failed := make([]OfflineMealRecord, 0)
	for _, entry := range snapshot {
		if err := q.syncOne(ctx, &entry); err != nil {
			q.log.Warn().Err(err).Str("id", entry.ID).Msg("offline record sync failed")
			failed = append(failed, entry)
			result.Failed++
			continue
		}
		result.Synced++
	}

	seen := make(map[string]struct{}, len(snapshot))
	for _, e := range snapshot {
		seen[e.ID] = struct{}{}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	current, err := q.load(ctx)
	if err != nil {
		return result, err
	}
	remaining := failed
	for _, e := range current {
		if _, ok := seen[e.ID]; !ok {
			remaining = append(remaining, e)
		}
	}
	if err := q.save(ctx, remaining); err != nil {
		return result, fmt.Errorf("persist offline queue: %w", err)
	}

	q.log.Info().
		Int("synced", result.Synced).
		Int("failed", result.Failed).
		Int("pending", len(remaining)).
		Msg("offline queue sync finished")
	return result, nil
}

func (q *OfflineQueue) syncOne(ctx context.Context, entry *OfflineMealRecord) error {
	if entry.UserID != nil {
		existing, err := q.remote.FindMealRecord(ctx, *entry.UserID, entry.MealType, entry.MealDate)
		if err != nil {
			return fmt.Errorf("duplicate check: %w", err)
		}
		if existing != nil {
			q.log.Debug().Str("id", entry.ID).Uint("record_id", existing.ID).Msg("offline record already on backend")
			return nil
		}
	}
	if err := q.remote.InsertMealRecord(ctx, entry.MealRecord()); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			q.log.Debug().Str("id", entry.ID).Msg("offline record inserted concurrently, dropping")
			return nil
		}
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}
