package notification

import (
	"errors"
	"testing"
)

func TestHubPublishNoSession(t *testing.T) {
	hub := NewHub()

	err := hub.Publish("tenant_1", "user_1", PongMessage{Type: TypePong})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Publish with no session: err = %v, want ErrNotConnected", err)
	}
}

func TestHubPublishFansOut(t *testing.T) {
	hub := NewHub()
	deps := SessionDeps{Logger: testLogger()}

	connA := newFakeConn()
	connB := newFakeConn()
	a := NewSession(connA, "tenant_1", "user_1", deps)
	b := NewSession(connB, "tenant_1", "user_1", deps)
	other := NewSession(newFakeConn(), "tenant_1", "user_2", deps)
	hub.Register(a)
	hub.Register(b)
	hub.Register(other)

	if err := hub.Publish("tenant_1", "user_1", PongMessage{Type: TypePong}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if got := len(connA.sent()); got != 1 {
		t.Errorf("session a received %d frames, want 1", got)
	}
	if got := len(connB.sent()); got != 1 {
		t.Errorf("session b received %d frames, want 1", got)
	}

	hub.Unregister(a)
	hub.Unregister(b)
	if err := hub.Publish("tenant_1", "user_1", PongMessage{Type: TypePong}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish after unregister: err = %v, want ErrNotConnected", err)
	}
}

func TestHubPublishPartialSuccess(t *testing.T) {
	hub := NewHub()
	deps := SessionDeps{Logger: testLogger()}

	closedConn := newFakeConn()
	liveConn := newFakeConn()
	closed := NewSession(closedConn, "tenant_1", "user_1", deps)
	live := NewSession(liveConn, "tenant_1", "user_1", deps)
	hub.Register(closed)
	hub.Register(live)

	closed.closed.Store(true)

	if err := hub.Publish("tenant_1", "user_1", PongMessage{Type: TypePong}); err != nil {
		t.Fatalf("Publish with one live session: err = %v, want nil", err)
	}
	if got := len(liveConn.sent()); got != 1 {
		t.Errorf("live session received %d frames, want 1", got)
	}

	live.closed.Store(true)
	if err := hub.Publish("tenant_1", "user_1", PongMessage{Type: TypePong}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish with all sessions closed: err = %v, want ErrNotConnected", err)
	}
}
