package tracker_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/avtoline/avtoline-api/internal/pkg/tracker"
)

func TestKeyShapes(t *testing.T) {
	requestID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	offerID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	roomID := uuid.MustParse("33333333-3333-3333-3333-333333333333")
	userID := uuid.MustParse("44444444-4444-4444-4444-444444444444")

	if got := tracker.OfferKey(requestID, offerID); got != "purchase_request:11111111-1111-1111-1111-111111111111;offers:22222222-2222-2222-2222-222222222222" {
		t.Errorf("unexpected offer key: %s", got)
	}
	if got := tracker.ChatMessagePrefix(roomID, userID); got != "chat_room:33333333-3333-3333-3333-333333333333;user:44444444-4444-4444-4444-444444444444;message:" {
		t.Errorf("unexpected chat message prefix: %s", got)
	}
	if got := tracker.ChatDebounceKey(roomID); got != "chat_room:33333333-3333-3333-3333-333333333333;task_status" {
		t.Errorf("unexpected debounce key: %s", got)
	}
}

func TestTrackerCountAndClear(t *testing.T) {
	rdb := setupTestRedis(t)
	defer rdb.Close()

	tr := tracker.New(rdb)
	ctx := context.Background()
	requestID := uuid.New()

	for i := 0; i < 3; i++ {
		if err := tr.Mark(ctx, tracker.OfferKey(requestID, uuid.New())); err != nil {
			t.Fatalf("mark failed: %v", err)
		}
	}

	count, err := tr.CountByPrefix(ctx, tracker.OfferPrefix(requestID))
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 unread offers, got %d", count)
	}

	if err := tr.ClearByPrefix(ctx, tracker.OfferPrefix(requestID)); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	count, err = tr.CountByPrefix(ctx, tracker.OfferPrefix(requestID))
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 unread offers after clear, got %d", count)
	}
}

func TestTrackerAcquireDebounce(t *testing.T) {
	rdb := setupTestRedis(t)
	defer rdb.Close()

	tr := tracker.New(rdb)
	ctx := context.Background()
	key := tracker.ChatDebounceKey(uuid.New())

	ok, err := tr.Acquire(ctx, key, 10*time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}

	ok, err = tr.Acquire(ctx, key, 10*time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if ok {
		t.Fatal("expected second acquire to be debounced")
	}
}

func setupTestRedis(t *testing.T) *redis.Client {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	return rdb
}
