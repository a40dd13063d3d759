package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/fintrackhq/fintrack-backend/pkg/kvstore"
)

type deliveryFixture struct {
	store       *memStore
	hub         *fakeHub
	presence    *PresenceTracker
	coordinator *DeliveryCoordinator
}

func newDeliveryFixture() *deliveryFixture {
	store := newMemStore()
	hub := &fakeHub{}
	kv := kvstore.NewMemory()
	presence := NewPresenceTracker(kv)
	unread := NewUnreadCounter(store, kv)
	coordinator := NewDeliveryCoordinator(store, presence, unread, hub, testLogger())
	return &deliveryFixture{store: store, hub: hub, presence: presence, coordinator: coordinator}
}

func (f *deliveryFixture) createNotification(t *testing.T, event EventTag, userID string) *Notification {
	t.Helper()
	n := &Notification{
		TenantID:   "tenant_1",
		UserID:     userID,
		Event:      event,
		IsCritical: IsCriticalEvent(event),
		Title:      "t",
		Message:    "m",
		EventKey:   EventKey(event, userID, userID, "tenant_1"),
	}
	if _, err := f.store.CreateIfAbsent(context.Background(), n); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return n
}

// A non-critical notification for an offline user is deferred: no push, no
// failed status, no retry penalty.
func TestAttemptDefersNonCriticalWhenOffline(t *testing.T) {
	ctx := context.Background()
	f := newDeliveryFixture()
	n := f.createNotification(t, EventReportReady, "user_1")

	delivered, err := f.coordinator.Attempt(ctx, n)
	if err != nil {
		t.Fatalf("attempt failed: %v", err)
	}
	if delivered {
		t.Error("delivered = true, want false")
	}
	if len(f.hub.sent()) != 0 {
		t.Errorf("hub received %d messages, want 0", len(f.hub.sent()))
	}

	stored, _ := f.store.GetByID(ctx, n.ID)
	if stored.DeliveryStatus != StatusPending {
		t.Errorf("status = %s, want pending (deferred, not failed)", stored.DeliveryStatus)
	}
	if stored.RetryCount != 0 {
		t.Errorf("retry_count = %d, want 0", stored.RetryCount)
	}
}

// A critical notification bypasses the offline skip; with no live session the
// publish fails and the notification is marked failed for retry.
func TestAttemptCriticalOfflineMarksFailed(t *testing.T) {
	ctx := context.Background()
	f := newDeliveryFixture()
	f.hub.err = ErrNotConnected
	n := f.createNotification(t, EventSecurityAlert, "user_1")

	kicked := false
	f.coordinator.OnFailure = func() { kicked = true }

	delivered, err := f.coordinator.Attempt(ctx, n)
	if err != nil {
		t.Fatalf("attempt failed: %v", err)
	}
	if delivered {
		t.Error("delivered = true, want false")
	}

	stored, _ := f.store.GetByID(ctx, n.ID)
	if stored.DeliveryStatus != StatusFailed {
		t.Errorf("status = %s, want failed", stored.DeliveryStatus)
	}
	if !kicked {
		t.Error("OnFailure hook was not invoked")
	}
}

func TestAttemptDeliversWhenOnline(t *testing.T) {
	ctx := context.Background()
	f := newDeliveryFixture()
	if err := f.presence.SetOnline(ctx, "tenant_1", "user_1"); err != nil {
		t.Fatalf("presence failed: %v", err)
	}
	n := f.createNotification(t, EventReportReady, "user_1")

	delivered, err := f.coordinator.Attempt(ctx, n)
	if err != nil {
		t.Fatalf("attempt failed: %v", err)
	}
	if !delivered {
		t.Fatal("delivered = false, want true")
	}

	stored, _ := f.store.GetByID(ctx, n.ID)
	if stored.DeliveryStatus != StatusDelivered {
		t.Errorf("status = %s, want delivered", stored.DeliveryStatus)
	}
	if stored.DeliveredAt == nil {
		t.Error("delivered_at not set")
	}

	msgs := f.hub.sent()
	if len(msgs) != 2 {
		t.Fatalf("hub received %d messages, want 2 (new_notification, unread_count_update)", len(msgs))
	}
	if _, ok := msgs[0].(NewNotificationMessage); !ok {
		t.Errorf("first message is %T, want NewNotificationMessage", msgs[0])
	}
	if _, ok := msgs[1].(UnreadCountUpdateMessage); !ok {
		t.Errorf("second message is %T, want UnreadCountUpdateMessage", msgs[1])
	}
}

// A critical push is immediately followed by an ack_request carrying the
// notification id.
func TestAttemptCriticalSendsAckRequest(t *testing.T) {
	ctx := context.Background()
	f := newDeliveryFixture()
	if err := f.presence.SetOnline(ctx, "tenant_1", "user_1"); err != nil {
		t.Fatalf("presence failed: %v", err)
	}
	n := f.createNotification(t, EventSecurityAlert, "user_1")

	if _, err := f.coordinator.Attempt(ctx, n); err != nil {
		t.Fatalf("attempt failed: %v", err)
	}

	msgs := f.hub.sent()
	if len(msgs) < 2 {
		t.Fatalf("hub received %d messages, want at least 2", len(msgs))
	}
	if _, ok := msgs[0].(NewNotificationMessage); !ok {
		t.Errorf("first message is %T, want NewNotificationMessage", msgs[0])
	}
	ack, ok := msgs[1].(AckRequestMessage)
	if !ok {
		t.Fatalf("second message is %T, want AckRequestMessage", msgs[1])
	}
	if ack.NotificationID != n.ID {
		t.Errorf("ack_request id = %s, want %s", ack.NotificationID, n.ID)
	}
}

// Delivered is terminal: a failed publish after delivery must not regress the
// status.
func TestDeliveredStatusNeverRegresses(t *testing.T) {
	ctx := context.Background()
	f := newDeliveryFixture()
	n := f.createNotification(t, EventReportReady, "user_1")

	if err := f.store.MarkDelivered(ctx, n.ID); err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if err := f.store.MarkFailed(ctx, n.ID); err != nil {
		t.Fatalf("mark failed errored: %v", err)
	}

	stored, _ := f.store.GetByID(ctx, n.ID)
	if stored.DeliveryStatus != StatusDelivered {
		t.Errorf("status = %s, want delivered", stored.DeliveryStatus)
	}
}

func TestAttemptPublishErrorMarksFailed(t *testing.T) {
	ctx := context.Background()
	f := newDeliveryFixture()
	if err := f.presence.SetOnline(ctx, "tenant_1", "user_1"); err != nil {
		t.Fatalf("presence failed: %v", err)
	}
	f.hub.err = errors.New("websocket: close sent")
	n := f.createNotification(t, EventReportReady, "user_1")

	delivered, err := f.coordinator.Attempt(ctx, n)
	if err != nil {
		t.Fatalf("attempt failed: %v", err)
	}
	if delivered {
		t.Error("delivered = true, want false")
	}

	stored, _ := f.store.GetByID(ctx, n.ID)
	if stored.DeliveryStatus != StatusFailed {
		t.Errorf("status = %s, want failed", stored.DeliveryStatus)
	}
}
