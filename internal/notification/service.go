package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fintrackhq/fintrack-backend/pkg/observability"
)

// EmailQueue is the boundary queue for email fan-out of critical
// notifications. Consumed by the mailer service; nothing in this service
// renders or sends email.
const EmailQueue = "notifications.email"

// TaskPublisher enqueues fan-out tasks on the message broker. Implemented by
// messaging.RabbitMQClient.
type TaskPublisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

// EmitRequest is the inbound contract business modules use to raise a
// notification. Title, Message, Metadata, ActionURL and SubjectID are
// optional; Broadcast with an empty UserID fans out to every active user of
// the tenant.
type EmitRequest struct {
	Event     EventTag          `json:"event"`
	TenantID  string            `json:"tenant_id"`
	UserID    string            `json:"user_id,omitempty"`
	Broadcast bool              `json:"broadcast,omitempty"`
	Title     string            `json:"title,omitempty"`
	Message   string            `json:"message,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	ActionURL string            `json:"action_url,omitempty"`
	SubjectID string            `json:"subject_id,omitempty"`
}

// emailTask is the payload enqueued on EmailQueue.
type emailTask struct {
	TenantID       string   `json:"tenant_id"`
	UserID         string   `json:"user_id"`
	Event          EventTag `json:"event"`
	NotificationID string   `json:"notification_id"`
	Title          string   `json:"title"`
	Message        string   `json:"message"`
}

// Service is the entry point for event emission: it computes the event key,
// performs the deduplicated create and hands the new row to the delivery
// coordinator.
type Service struct {
	store    Store
	delivery *DeliveryCoordinator
	unread   unreadCache
	tasks    TaskPublisher // optional
	logger   *observability.Logger
}

func NewService(store Store, delivery *DeliveryCoordinator, unread unreadCache, tasks TaskPublisher, logger *observability.Logger) *Service {
	return &Service{
		store:    store,
		delivery: delivery,
		unread:   unread,
		tasks:    tasks,
		logger:   logger,
	}
}

// Emit creates and delivers a notification for a business event. Calling it
// twice for the same occurrence is a no-op: the second call returns
// (nil, nil) without side effects.
//
// Broadcast requests fan out to a snapshot of the tenant's active users, one
// independent idempotent create per user; a failure for one user does not
// abort the others. Broadcast emits return (nil, nil).
func (s *Service) Emit(ctx context.Context, req EmitRequest) (*Notification, error) {
	if !IsKnownEvent(req.Event) {
		return nil, fmt.Errorf("unknown event tag: %q", req.Event)
	}
	if req.TenantID == "" {
		return nil, fmt.Errorf("tenant_id is required")
	}

	if req.Broadcast && req.UserID == "" {
		userIDs, err := s.store.ActiveUserIDs(ctx, req.TenantID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve active users for broadcast: %w", err)
		}
		for _, userID := range userIDs {
			if _, err := s.emitOne(ctx, req, userID); err != nil {
				s.logger.Error("broadcast emit failed for user",
					"tenant_id", req.TenantID, "user_id", userID,
					"event", string(req.Event), "error", err)
			}
		}
		return nil, nil
	}

	if req.UserID == "" {
		return nil, fmt.Errorf("user_id is required for a non-broadcast emit")
	}
	return s.emitOne(ctx, req, req.UserID)
}

func (s *Service) emitOne(ctx context.Context, req EmitRequest, userID string) (*Notification, error) {
	title, message := req.Title, req.Message
	if title == "" || message == "" {
		defTitle, defMessage := DefaultMessage(req.Event)
		if title == "" {
			title = defTitle
		}
		if message == "" {
			message = defMessage
		}
	}

	n := &Notification{
		TenantID:       req.TenantID,
		UserID:         userID,
		Event:          req.Event,
		IsCritical:     IsCriticalEvent(req.Event),
		Title:          title,
		Message:        message,
		Metadata:       req.Metadata,
		ActionURL:      req.ActionURL,
		EventKey:       EventKey(req.Event, req.SubjectID, userID, req.TenantID),
		DeliveryStatus: StatusPending,
	}

	created, err := s.store.CreateIfAbsent(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	if !created {
		DuplicateEvents.Inc()
		return nil, nil
	}

	NotificationsCreated.WithLabelValues(string(n.Event)).Inc()
	s.unread.Invalidate(ctx, n.TenantID, n.UserID)

	if n.IsCritical {
		s.enqueueEmail(ctx, n)
	}

	if _, err := s.delivery.Attempt(ctx, n); err != nil {
		// The row exists; delivery problems are the retry path's business.
		s.logger.Error("initial delivery attempt errored",
			"notification_id", n.ID, "error", err)
	}

	return n, nil
}

func (s *Service) enqueueEmail(ctx context.Context, n *Notification) {
	if s.tasks == nil {
		return
	}
	body, err := json.Marshal(emailTask{
		TenantID:       n.TenantID,
		UserID:         n.UserID,
		Event:          n.Event,
		NotificationID: n.ID,
		Title:          n.Title,
		Message:        n.Message,
	})
	if err != nil {
		s.logger.Error("failed to marshal email task", "notification_id", n.ID, "error", err)
		return
	}
	if err := s.tasks.Publish(ctx, EmailQueue, body); err != nil {
		s.logger.Warn("failed to enqueue email task", "notification_id", n.ID, "error", err)
	}
}
