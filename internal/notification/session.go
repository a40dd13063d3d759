package notification

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fintrackhq/fintrack-backend/pkg/observability"
)

// wsConn is the subset of *websocket.Conn the session uses.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// SessionDeps carries the collaborators a session needs.
type SessionDeps struct {
	Hub      *Hub
	Store    Store
	Presence *PresenceTracker
	Unread   *UnreadCounter
	Delivery *DeliveryCoordinator
	Logger   *observability.Logger
}

// Session speaks the notification wire protocol over one live client
// connection. Lifecycle: connecting -> open (Run) -> closed. While open it is
// registered in the hub and the user is marked present; both are undone on
// close.
type Session struct {
	conn     wsConn
	tenantID string
	userID   string
	deps     SessionDeps

	writeMu sync.Mutex
	closed  atomic.Bool
}

func NewSession(conn wsConn, tenantID, userID string, deps SessionDeps) *Session {
	return &Session{
		conn:     conn,
		tenantID: tenantID,
		userID:   userID,
		deps:     deps,
	}
}

// Run drives the session until the client disconnects or ctx is cancelled.
// It blocks, so callers run it on the connection's goroutine.
func (s *Session) Run(ctx context.Context) {
	log := s.deps.Logger.With("tenant_id", s.tenantID, "user_id", s.userID)

	s.deps.Hub.Register(s)
	if err := s.deps.Presence.SetOnline(ctx, s.tenantID, s.userID); err != nil {
		log.Error("failed to mark presence online", "error", err)
	}

	defer func() {
		s.closed.Store(true)
		s.deps.Hub.Unregister(s)
		if err := s.deps.Presence.SetOffline(context.WithoutCancel(ctx), s.tenantID, s.userID); err != nil {
			log.Error("failed to mark presence offline", "error", err)
		}
		s.conn.Close()
	}()

	if err := s.sendEstablished(ctx); err != nil {
		log.Warn("failed to send connection_established", "error", err)
		return
	}

	// Now that presence is online, push the undelivered backlog through the
	// regular delivery path.
	s.deps.Delivery.FlushPending(ctx, s.tenantID, s.userID)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// A single malformed frame is logged and ignored, not fatal.
			log.Warn("malformed client frame", "error", err)
			continue
		}
		s.handle(ctx, log, msg)
	}
}

// Send writes one JSON frame. Safe for concurrent use; the hub and the read
// loop both write through it.
func (s *Session) Send(v any) error {
	if s.closed.Load() {
		return ErrNotConnected
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *Session) sendEstablished(ctx context.Context) error {
	count, err := s.deps.Unread.Get(ctx, s.tenantID, s.userID)
	if err != nil {
		return err
	}
	pending, err := s.deps.Store.ListUndelivered(ctx, s.tenantID, s.userID, CatchUpBatchSize)
	if err != nil {
		return err
	}
	if pending == nil {
		pending = []*Notification{}
	}
	return s.Send(ConnectionEstablishedMessage{
		Type:                 TypeConnectionEstablished,
		UnreadCount:          count,
		PendingNotifications: pending,
	})
}

// handle dispatches one inbound frame. Every handler is idempotent; unknown
// types are ignored.
func (s *Session) handle(ctx context.Context, log *observability.Logger, msg ClientMessage) {
	switch msg.Type {
	case TypeMarkRead:
		s.handleMarkRead(ctx, log, msg.NotificationID)
	case TypeMarkAllRead:
		s.handleMarkAllRead(ctx, log)
	case TypeAck:
		s.handleAck(ctx, log, msg.NotificationID)
	case TypePing:
		s.handlePing(ctx, log)
	default:
		log.Warn("unknown client message type", "type", msg.Type)
	}
}

func (s *Session) handleMarkRead(ctx context.Context, log *observability.Logger, id string) {
	if id == "" {
		return
	}
	changed, err := s.deps.Store.MarkRead(ctx, s.tenantID, s.userID, id)
	if err != nil {
		log.Error("failed to mark notification read", "notification_id", id, "error", err)
		return
	}
	if changed {
		s.deps.Unread.Invalidate(ctx, s.tenantID, s.userID)
	}
	count, err := s.deps.Unread.Get(ctx, s.tenantID, s.userID)
	if err != nil {
		log.Error("failed to get unread count", "error", err)
		return
	}
	if err := s.Send(NotificationReadMessage{
		Type:           TypeNotificationRead,
		NotificationID: id,
		UnreadCount:    count,
	}); err != nil {
		log.Warn("failed to send notification_read", "error", err)
	}
}

func (s *Session) handleMarkAllRead(ctx context.Context, log *observability.Logger) {
	changed, err := s.deps.Store.MarkAllRead(ctx, s.tenantID, s.userID)
	if err != nil {
		log.Error("failed to mark all notifications read", "error", err)
		return
	}
	s.deps.Unread.Invalidate(ctx, s.tenantID, s.userID)
	count, err := s.deps.Unread.Get(ctx, s.tenantID, s.userID)
	if err != nil {
		log.Error("failed to get unread count", "error", err)
		count = 0
	}
	if err := s.Send(AllMarkedReadMessage{
		Type:        TypeAllMarkedRead,
		Count:       changed,
		UnreadCount: count,
	}); err != nil {
		log.Warn("failed to send all_marked_read", "error", err)
	}
}

// handleAck confirms delivery of a critical notification. It covers the case
// where the push reached the client but the delivery-confirmation write did
// not land.
func (s *Session) handleAck(ctx context.Context, log *observability.Logger, id string) {
	if id == "" {
		return
	}
	n, err := s.deps.Store.GetByID(ctx, id)
	if err != nil {
		log.Error("failed to load notification for ack", "notification_id", id, "error", err)
		return
	}
	if n == nil || !n.IsCritical || n.TenantID != s.tenantID || n.UserID != s.userID {
		return
	}
	if _, err := s.deps.Store.AckDelivered(ctx, s.tenantID, s.userID, id); err != nil {
		log.Error("failed to ack notification", "notification_id", id, "error", err)
	}
}

func (s *Session) handlePing(ctx context.Context, log *observability.Logger) {
	// Pings double as the presence heartbeat.
	if err := s.deps.Presence.SetOnline(ctx, s.tenantID, s.userID); err != nil {
		log.Error("failed to refresh presence", "error", err)
	}
	if err := s.Send(PongMessage{
		Type:      TypePong,
		Timestamp: time.Now().UTC().UnixMilli(),
	}); err != nil {
		log.Warn("failed to send pong", "error", err)
	}
}
