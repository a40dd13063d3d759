package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fintrackhq/fintrack-backend/pkg/kvstore"
)

func TestPresenceLifecycle(t *testing.T) {
	ctx := context.Background()
	tracker := NewPresenceTracker(kvstore.NewMemory())

	if tracker.IsOnline(ctx, "tenant_1", "user_1") {
		t.Error("user online before SetOnline")
	}

	if err := tracker.SetOnline(ctx, "tenant_1", "user_1"); err != nil {
		t.Fatalf("SetOnline failed: %v", err)
	}
	if !tracker.IsOnline(ctx, "tenant_1", "user_1") {
		t.Error("user not online after SetOnline")
	}
	if tracker.IsOnline(ctx, "tenant_1", "user_2") {
		t.Error("presence leaked to another user")
	}
	if tracker.IsOnline(ctx, "tenant_2", "user_1") {
		t.Error("presence leaked to another tenant")
	}

	if err := tracker.SetOffline(ctx, "tenant_1", "user_1"); err != nil {
		t.Fatalf("SetOffline failed: %v", err)
	}
	if tracker.IsOnline(ctx, "tenant_1", "user_1") {
		t.Error("user still online after SetOffline")
	}
}

// A crashed session never calls SetOffline; the key expires on its own.
func TestPresenceExpires(t *testing.T) {
	ctx := context.Background()
	tracker := NewPresenceTracker(kvstore.NewMemory())
	tracker.ttl = 10 * time.Millisecond

	if err := tracker.SetOnline(ctx, "tenant_1", "user_1"); err != nil {
		t.Fatalf("SetOnline failed: %v", err)
	}
	if !tracker.IsOnline(ctx, "tenant_1", "user_1") {
		t.Fatal("user not online after SetOnline")
	}

	time.Sleep(20 * time.Millisecond)

	if tracker.IsOnline(ctx, "tenant_1", "user_1") {
		t.Error("presence did not expire")
	}
}

type failingKV struct{}

func (failingKV) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}

func (failingKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (failingKV) Del(ctx context.Context, keys ...string) error {
	return errors.New("connection refused")
}

// When the presence store is unreachable the user reads as offline, so
// deliveries fall back to the retry path instead of being lost.
func TestPresenceDegradesToOffline(t *testing.T) {
	tracker := NewPresenceTracker(failingKV{})

	if tracker.IsOnline(context.Background(), "tenant_1", "user_1") {
		t.Error("unreachable store reported user as online")
	}
}
