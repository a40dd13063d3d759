package notification

import (
	"context"
	"errors"

	"github.com/fintrackhq/fintrack-backend/pkg/observability"
)

// CatchUpBatchSize bounds the burst of undelivered notifications pushed to a
// client right after it connects.
const CatchUpBatchSize = 20

// Publisher pushes a message to every live session of a user. Implemented by
// Hub; in a multi-node deployment a fan-out over a shared broker would sit
// behind the same interface.
type Publisher interface {
	Publish(tenantID, userID string, v any) error
}

// presenceChecker is the slice of PresenceTracker the coordinator needs.
type presenceChecker interface {
	IsOnline(ctx context.Context, tenantID, userID string) bool
}

// unreadCache is the slice of UnreadCounter the coordinator needs.
type unreadCache interface {
	Get(ctx context.Context, tenantID, userID string) (int, error)
	Invalidate(ctx context.Context, tenantID, userID string)
}

// DeliveryCoordinator decides whether to push a notification now and records
// the outcome. Safe for concurrent use; all shared state lives in the store,
// the presence tracker and the hub.
type DeliveryCoordinator struct {
	store    Store
	presence presenceChecker
	unread   unreadCache
	hub      Publisher
	logger   *observability.Logger

	// OnFailure is invoked after a delivery attempt leaves a notification in
	// the failed state. Wired to RetryScheduler.Kick at startup.
	OnFailure func()
}

func NewDeliveryCoordinator(store Store, presence presenceChecker, unread unreadCache, hub Publisher, logger *observability.Logger) *DeliveryCoordinator {
	return &DeliveryCoordinator{
		store:    store,
		presence: presence,
		unread:   unread,
		hub:      hub,
		logger:   logger,
	}
}

// Attempt tries to push the notification to the user's live sessions and
// records the outcome. It returns true only when the push went out.
//
// A non-critical notification for an offline user is deferred, not failed:
// it stays pending and is delivered by the catch-up burst on next connect.
func (c *DeliveryCoordinator) Attempt(ctx context.Context, n *Notification) (bool, error) {
	online := c.presence.IsOnline(ctx, n.TenantID, n.UserID)
	if !online && !n.IsCritical {
		DeliveryAttempts.WithLabelValues("deferred").Inc()
		return false, nil
	}

	err := c.hub.Publish(n.TenantID, n.UserID, NewNotificationMessage{
		Type:         TypeNewNotification,
		Notification: n,
	})
	if err != nil {
		// A session that closed between the presence check and the publish is
		// indistinguishable from an offline user.
		if errors.Is(err, ErrNotConnected) && !n.IsCritical {
			DeliveryAttempts.WithLabelValues("deferred").Inc()
			return false, nil
		}

		if markErr := c.store.MarkFailed(ctx, n.ID); markErr != nil {
			c.logger.Error("failed to record delivery failure",
				"notification_id", n.ID, "error", markErr)
		}
		DeliveryAttempts.WithLabelValues("failed").Inc()
		c.logger.Warn("delivery failed",
			"notification_id", n.ID, "event", string(n.Event), "error", err)
		if c.OnFailure != nil {
			c.OnFailure()
		}
		return false, nil
	}

	if n.IsCritical {
		if err := c.hub.Publish(n.TenantID, n.UserID, AckRequestMessage{
			Type:           TypeAckRequest,
			NotificationID: n.ID,
		}); err != nil {
			c.logger.Warn("failed to send ack request", "notification_id", n.ID, "error", err)
		}
	}

	// The ack protocol covers the push-succeeded-but-write-failed case, so a
	// MarkDelivered error is logged rather than failing the attempt.
	if err := c.store.MarkDelivered(ctx, n.ID); err != nil {
		c.logger.Error("failed to mark notification delivered",
			"notification_id", n.ID, "error", err)
	}
	DeliveryAttempts.WithLabelValues("delivered").Inc()

	c.unread.Invalidate(ctx, n.TenantID, n.UserID)
	c.pushUnreadCount(ctx, n.TenantID, n.UserID)

	return true, nil
}

// FlushPending attempts delivery of the user's undelivered backlog, newest
// first. Called by a session right after it opens.
func (c *DeliveryCoordinator) FlushPending(ctx context.Context, tenantID, userID string) {
	pending, err := c.store.ListUndelivered(ctx, tenantID, userID, CatchUpBatchSize)
	if err != nil {
		c.logger.Error("failed to list undelivered notifications",
			"tenant_id", tenantID, "user_id", userID, "error", err)
		return
	}
	for _, n := range pending {
		if _, err := c.Attempt(ctx, n); err != nil {
			c.logger.Error("catch-up delivery attempt failed",
				"notification_id", n.ID, "error", err)
		}
	}
}

func (c *DeliveryCoordinator) pushUnreadCount(ctx context.Context, tenantID, userID string) {
	count, err := c.unread.Get(ctx, tenantID, userID)
	if err != nil {
		c.logger.Error("failed to compute unread count",
			"tenant_id", tenantID, "user_id", userID, "error", err)
		return
	}
	if err := c.hub.Publish(tenantID, userID, UnreadCountUpdateMessage{
		Type:  TypeUnreadCountUpdate,
		Count: count,
	}); err != nil && !errors.Is(err, ErrNotConnected) {
		c.logger.Warn("failed to push unread count", "user_id", userID, "error", err)
	}
}
