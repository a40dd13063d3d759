package notification

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fintrackhq/fintrack-backend/pkg/observability"
)

// memStore is an in-memory Store with the same transition semantics as the
// PostgreSQL repository, used by the scenario tests.
type memStore struct {
	mu          sync.Mutex
	rows        map[string]*Notification
	byKey       map[string]string
	activeUsers []string
}

func newMemStore() *memStore {
	return &memStore{
		rows:  make(map[string]*Notification),
		byKey: make(map[string]string),
	}
}

func (m *memStore) CreateIfAbsent(ctx context.Context, n *Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n.EventKey == "" {
		n.EventKey = EventKey(n.Event, "", n.UserID, n.TenantID)
	}
	if _, exists := m.byKey[n.EventKey]; exists {
		return false, nil
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.DeliveryStatus == "" {
		n.DeliveryStatus = StatusPending
	}
	clone := *n
	m.rows[n.ID] = &clone
	m.byKey[n.EventKey] = n.ID
	return true, nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	clone := *n
	return &clone, nil
}

func (m *memStore) MarkDelivered(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.rows[id]; ok && n.DeliveryStatus != StatusDelivered {
		now := time.Now().UTC()
		n.DeliveryStatus = StatusDelivered
		n.DeliveredAt = &now
	}
	return nil
}

func (m *memStore) MarkFailed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.rows[id]; ok && n.DeliveryStatus != StatusDelivered {
		n.DeliveryStatus = StatusFailed
	}
	return nil
}

func (m *memStore) AckDelivered(ctx context.Context, tenantID, userID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok || n.TenantID != tenantID || n.UserID != userID || n.DeliveryStatus == StatusDelivered {
		return false, nil
	}
	now := time.Now().UTC()
	n.DeliveryStatus = StatusDelivered
	n.DeliveredAt = &now
	return true, nil
}

func (m *memStore) MarkRead(ctx context.Context, tenantID, userID, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[id]
	if !ok || n.TenantID != tenantID || n.UserID != userID || n.IsRead {
		return false, nil
	}
	now := time.Now().UTC()
	n.IsRead = true
	n.ReadAt = &now
	return true, nil
}

func (m *memStore) MarkAllRead(ctx context.Context, tenantID, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var changed int64
	now := time.Now().UTC()
	for _, n := range m.rows {
		if n.TenantID == tenantID && n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
			changed++
		}
	}
	return changed, nil
}

func (m *memStore) CountUnread(ctx context.Context, tenantID, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.rows {
		if n.TenantID == tenantID && n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *memStore) ListForUser(ctx context.Context, tenantID, userID string, limit int) ([]*Notification, error) {
	return m.list(func(n *Notification) bool {
		return n.TenantID == tenantID && n.UserID == userID
	}, newestFirst, limit), nil
}

func (m *memStore) ListUndelivered(ctx context.Context, tenantID, userID string, limit int) ([]*Notification, error) {
	return m.list(func(n *Notification) bool {
		return n.TenantID == tenantID && n.UserID == userID && n.DeliveryStatus != StatusDelivered
	}, newestFirst, limit), nil
}

func (m *memStore) ListRetryable(ctx context.Context, since time.Time, maxRetries, limit int) ([]*Notification, error) {
	return m.list(func(n *Notification) bool {
		if n.DeliveryStatus != StatusFailed || n.RetryCount >= maxRetries {
			return false
		}
		last := n.CreatedAt
		if n.LastRetryAt != nil {
			last = *n.LastRetryAt
		}
		return !last.After(since)
	}, oldestFirst, limit), nil
}

func (m *memStore) RecordRetryAttempt(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.rows[id]; ok {
		now := time.Now().UTC()
		n.RetryCount++
		n.LastRetryAt = &now
	}
	return nil
}

func (m *memStore) ActiveUserIDs(ctx context.Context, tenantID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.activeUsers...), nil
}

func (m *memStore) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, n := range m.rows {
		if n.IsRead && n.CreatedAt.Before(cutoff) {
			delete(m.byKey, n.EventKey)
			delete(m.rows, id)
			deleted++
		}
	}
	return deleted, nil
}

type listOrder int

const (
	newestFirst listOrder = iota
	oldestFirst
)

func (m *memStore) list(match func(*Notification) bool, order listOrder, limit int) []*Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Notification
	for _, n := range m.rows {
		if match(n) {
			clone := *n
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if order == newestFirst {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].ID > out[j].ID
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// fakeHub implements Publisher, recording everything published. Setting err
// makes every publish fail.
type fakeHub struct {
	mu       sync.Mutex
	messages []any
	err      error
}

func (f *fakeHub) Publish(tenantID, userID string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, v)
	return nil
}

func (f *fakeHub) sent() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]any, len(f.messages))
	copy(out, f.messages)
	return out
}

func testLogger() *observability.Logger {
	return &observability.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
