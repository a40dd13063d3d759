package notification

import (
	"context"
	"time"
)

// Store is the durable record of notifications. Implementations must make
// CreateIfAbsent a single atomic conditional insert and every status update
// an atomic row-level operation; the calling components rely on that instead
// of any process-wide lock.
type Store interface {
	// CreateIfAbsent inserts the notification unless a row with the same
	// event key already exists. The bool reports whether a row was created.
	CreateIfAbsent(ctx context.Context, n *Notification) (bool, error)

	// GetByID returns the notification, or (nil, nil) when it does not exist.
	GetByID(ctx context.Context, id string) (*Notification, error)

	// MarkDelivered transitions a non-delivered notification to delivered.
	// Delivered is terminal, so rows already delivered are left untouched.
	MarkDelivered(ctx context.Context, id string) error

	// MarkFailed transitions a pending notification to failed. A delivered
	// row never regresses.
	MarkFailed(ctx context.Context, id string) error

	// AckDelivered transitions the user's notification to delivered if it is
	// still pending or failed. The bool reports whether a row changed.
	AckDelivered(ctx context.Context, tenantID, userID, id string) (bool, error)

	// MarkRead flips is_read for the user's notification, setting read_at
	// exactly once. The bool reports whether the row was unread before.
	MarkRead(ctx context.Context, tenantID, userID, id string) (bool, error)

	// MarkAllRead flips every unread notification of the user and returns
	// the number of rows changed.
	MarkAllRead(ctx context.Context, tenantID, userID string) (int64, error)

	// CountUnread returns the number of unread notifications for the user.
	CountUnread(ctx context.Context, tenantID, userID string) (int, error)

	// ListForUser returns the user's notifications newest first.
	ListForUser(ctx context.Context, tenantID, userID string, limit int) ([]*Notification, error)

	// ListUndelivered returns the user's non-delivered notifications newest
	// first, bounded by limit. Used for the catch-up burst.
	ListUndelivered(ctx context.Context, tenantID, userID string, limit int) ([]*Notification, error)

	// ListRetryable returns failed notifications with retry_count below
	// maxRetries whose last attempt (or creation) is older than since.
	ListRetryable(ctx context.Context, since time.Time, maxRetries, limit int) ([]*Notification, error)

	// RecordRetryAttempt increments retry_count and stamps last_retry_at.
	RecordRetryAttempt(ctx context.Context, id string) error

	// ActiveUserIDs returns a snapshot of the tenant's active user ids.
	ActiveUserIDs(ctx context.Context, tenantID string) ([]string, error)

	// DeleteReadOlderThan removes read notifications created before cutoff
	// and returns the number of rows removed.
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
