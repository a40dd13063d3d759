package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/fintrackhq/fintrack-backend/pkg/kvstore"
)

// PresenceTTL bounds how long a crashed session can leave a user "online".
// Live sessions refresh it on every ping.
const PresenceTTL = 60 * time.Second

// PresenceTracker records which users currently hold a live connection in the
// shared key/value store, so that presence set by one process is visible to a
// DeliveryCoordinator running in another.
type PresenceTracker struct {
	kv  kvstore.Store
	ttl time.Duration
}

func NewPresenceTracker(kv kvstore.Store) *PresenceTracker {
	return &PresenceTracker{kv: kv, ttl: PresenceTTL}
}

func presenceKey(tenantID, userID string) string {
	return fmt.Sprintf("presence:%s:%s", tenantID, userID)
}

// SetOnline marks the user online. Also used as the heartbeat refresh.
func (p *PresenceTracker) SetOnline(ctx context.Context, tenantID, userID string) error {
	return p.kv.Set(ctx, presenceKey(tenantID, userID), "1", p.ttl)
}

func (p *PresenceTracker) SetOffline(ctx context.Context, tenantID, userID string) error {
	return p.kv.Del(ctx, presenceKey(tenantID, userID))
}

// IsOnline reports whether the user currently holds a live connection.
// Store errors degrade to "offline".
func (p *PresenceTracker) IsOnline(ctx context.Context, tenantID, userID string) bool {
	_, ok, err := p.kv.Get(ctx, presenceKey(tenantID, userID))
	if err != nil {
		return false
	}
	return ok
}
