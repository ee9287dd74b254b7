package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLock(t *testing.T, ttl time.Duration) (*SnapshotLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSnapshotLock(NewRedisCacheFromClient(client), ttl), mr
}

func TestSnapshotLock_AcquireRelease(t *testing.T) {
	lock, _ := newTestLock(t, time.Minute)
	ctx := context.Background()

	acquired, err := lock.Acquire(ctx, "user-1")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if !acquired {
		t.Fatal("expected first acquire to succeed")
	}

	// Second acquire for the same user is refused while held.
	acquired, err = lock.Acquire(ctx, "user-1")
	if err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if acquired {
		t.Error("expected second acquire to be refused")
	}

	// A different user is unaffected.
	acquired, err = lock.Acquire(ctx, "user-2")
	if err != nil {
		t.Fatalf("Acquire for other user failed: %v", err)
	}
	if !acquired {
		t.Error("expected acquire for a different user to succeed")
	}

	if err := lock.Release(ctx, "user-1"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	acquired, err = lock.Acquire(ctx, "user-1")
	if err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
	if !acquired {
		t.Error("expected acquire to succeed after release")
	}
}

func TestSnapshotLock_TTLExpiry(t *testing.T) {
	lock, mr := newTestLock(t, time.Minute)
	ctx := context.Background()

	if acquired, _ := lock.Acquire(ctx, "user-1"); !acquired {
		t.Fatal("expected acquire to succeed")
	}

	// A crashed holder never releases; the TTL frees the lock.
	mr.FastForward(2 * time.Minute)

	acquired, err := lock.Acquire(ctx, "user-1")
	if err != nil {
		t.Fatalf("Acquire after TTL expiry failed: %v", err)
	}
	if !acquired {
		t.Error("expected lock to be free after TTL expiry")
	}
}

func TestSnapshotLock_ReleaseUnheldIsNoop(t *testing.T) {
	lock, _ := newTestLock(t, time.Minute)

	if err := lock.Release(context.Background(), "user-1"); err != nil {
		t.Errorf("Release of unheld lock errored: %v", err)
	}
}
