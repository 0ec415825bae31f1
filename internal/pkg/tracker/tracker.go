package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tracker keeps ephemeral per-user view and unread state in Redis.
// Markers are plain keys holding "1"; unread counts are the number of
// keys under a prefix, cleared by deleting the whole prefix.
type Tracker struct {
	rdb *redis.Client
}

// New creates a Tracker on top of an existing Redis client
func New(rdb *redis.Client) *Tracker {
	return &Tracker{rdb: rdb}
}

// Mark sets a persistent marker key
func (t *Tracker) Mark(ctx context.Context, key string) error {
	if err := t.rdb.Set(ctx, key, "1", 0).Err(); err != nil {
		return fmt.Errorf("failed to set marker %s: %w", key, err)
	}
	return nil
}

// MarkWithTTL sets a marker key that expires after ttl
func (t *Tracker) MarkWithTTL(ctx context.Context, key string, ttl time.Duration) error {
	if err := t.rdb.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to set marker %s: %w", key, err)
	}
	return nil
}

// Exists reports whether a marker key is present
func (t *Tracker) Exists(ctx context.Context, key string) (bool, error) {
	n, err := t.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check marker %s: %w", key, err)
	}
	return n > 0, nil
}

// Acquire sets a marker with ttl only if it does not already exist.
// Returns true when the marker was set, false when it was already held.
// Used as a debounce gate.
func (t *Tracker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := t.rdb.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire marker %s: %w", key, err)
	}
	return ok, nil
}

// CountByPrefix counts marker keys under a prefix
func (t *Tracker) CountByPrefix(ctx context.Context, prefix string) (int, error) {
	var count int
	iter := t.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("failed to scan prefix %s: %w", prefix, err)
	}
	return count, nil
}

// ClearByPrefix deletes all marker keys under a prefix
func (t *Tracker) ClearByPrefix(ctx context.Context, prefix string) error {
	var keys []string
	iter := t.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan prefix %s: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := t.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear prefix %s: %w", prefix, err)
	}
	return nil
}
