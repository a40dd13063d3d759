package notification

import (
	"context"
	"encoding/json"
	"testing"
)

func TestConsumerHandle(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(nil)
	consumer := NewConsumer(f.service, testLogger())

	envelope, _ := json.Marshal(EmitRequest{
		Event:     EventPaymentFailed,
		TenantID:  "tenant_1",
		UserID:    "user_1",
		SubjectID: "pay_42",
	})

	if err := consumer.Handle(ctx, "tenant_1", envelope); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	rows, err := f.store.ListForUser(ctx, "tenant_1", "user_1", 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d notifications, want 1", len(rows))
	}
	if rows[0].Event != EventPaymentFailed {
		t.Errorf("event = %s, want %s", rows[0].Event, EventPaymentFailed)
	}

	// Redelivered envelope is absorbed by the event key.
	if err := consumer.Handle(ctx, "tenant_1", envelope); err != nil {
		t.Fatalf("Handle of duplicate failed: %v", err)
	}
	rows, _ = f.store.ListForUser(ctx, "tenant_1", "user_1", 10)
	if len(rows) != 1 {
		t.Errorf("got %d notifications after redelivery, want 1", len(rows))
	}
}

func TestConsumerHandleRejectsBadEnvelope(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(nil)
	consumer := NewConsumer(f.service, testLogger())

	if err := consumer.Handle(ctx, "k", []byte("{truncated")); err == nil {
		t.Error("Handle accepted malformed JSON")
	}

	envelope, _ := json.Marshal(EmitRequest{
		Event:    EventTag("made_up_event"),
		TenantID: "tenant_1",
		UserID:   "user_1",
	})
	if err := consumer.Handle(ctx, "k", envelope); err == nil {
		t.Error("Handle accepted an unknown event tag")
	}
}
