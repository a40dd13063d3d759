package notification

import (
	"fmt"
	"time"
)

// DeliveryStatus tracks the push-delivery lifecycle of a notification.
// Allowed transitions: pending->delivered, pending->failed, failed->delivered.
// delivered is terminal; a notification whose retries are exhausted stays
// failed permanently.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
)

// Notification is the durable record of a single user-facing notification.
type Notification struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenant_id"`
	UserID   string   `json:"user_id"`
	Event    EventTag `json:"event"`

	IsCritical bool              `json:"is_critical"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	ActionURL  string            `json:"action_url,omitempty"`

	// EventKey is the idempotency key; unique across the whole store.
	EventKey string `json:"-"`

	IsRead bool       `json:"is_read"`
	ReadAt *time.Time `json:"read_at,omitempty"`

	DeliveryStatus DeliveryStatus `json:"delivery_status"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
	RetryCount     int            `json:"retry_count"`
	LastRetryAt    *time.Time     `json:"last_retry_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// EventKey computes the deterministic idempotency key for an event
// occurrence. An empty subjectID collapses to "none" so that subject-less
// events still dedupe per (event, user, tenant).
func EventKey(event EventTag, subjectID, userID, tenantID string) string {
	if subjectID == "" {
		subjectID = "none"
	}
	return fmt.Sprintf("%s:%s:%s:%s", event, subjectID, userID, tenantID)
}
