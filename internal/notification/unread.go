package notification

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fintrackhq/fintrack-backend/pkg/kvstore"
)

// UnreadCacheTTL bounds staleness between invalidation points.
const UnreadCacheTTL = 5 * time.Minute

// UnreadCounter is the cached unread-notification aggregate per
// (tenant, user). Every write that changes is_read or creates a new
// notification must invalidate before the next Get is observable.
type UnreadCounter struct {
	store Store
	kv    kvstore.Store
	ttl   time.Duration
}

func NewUnreadCounter(store Store, kv kvstore.Store) *UnreadCounter {
	return &UnreadCounter{store: store, kv: kv, ttl: UnreadCacheTTL}
}

func unreadKey(tenantID, userID string) string {
	return fmt.Sprintf("unread:%s:%s", tenantID, userID)
}

// Get returns the unread count, served from cache when fresh.
func (u *UnreadCounter) Get(ctx context.Context, tenantID, userID string) (int, error) {
	key := unreadKey(tenantID, userID)

	if val, ok, err := u.kv.Get(ctx, key); err == nil && ok {
		if count, err := strconv.Atoi(val); err == nil {
			return count, nil
		}
	}

	count, err := u.store.CountUnread(ctx, tenantID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	// Cache write failures only cost a recompute on the next Get.
	_ = u.kv.Set(ctx, key, strconv.Itoa(count), u.ttl)

	return count, nil
}

// Invalidate clears the cache entry, forcing the next Get to recompute.
func (u *UnreadCounter) Invalidate(ctx context.Context, tenantID, userID string) {
	_ = u.kv.Del(ctx, unreadKey(tenantID, userID))
}
