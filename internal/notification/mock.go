package notification

import (
	"context"
	"time"
)

// MockStore implements Store with overridable function fields for tests.
type MockStore struct {
	CreateIfAbsentFunc      func(ctx context.Context, n *Notification) (bool, error)
	GetByIDFunc             func(ctx context.Context, id string) (*Notification, error)
	MarkDeliveredFunc       func(ctx context.Context, id string) error
	MarkFailedFunc          func(ctx context.Context, id string) error
	AckDeliveredFunc        func(ctx context.Context, tenantID, userID, id string) (bool, error)
	MarkReadFunc            func(ctx context.Context, tenantID, userID, id string) (bool, error)
	MarkAllReadFunc         func(ctx context.Context, tenantID, userID string) (int64, error)
	CountUnreadFunc         func(ctx context.Context, tenantID, userID string) (int, error)
	ListForUserFunc         func(ctx context.Context, tenantID, userID string, limit int) ([]*Notification, error)
	ListUndeliveredFunc     func(ctx context.Context, tenantID, userID string, limit int) ([]*Notification, error)
	ListRetryableFunc       func(ctx context.Context, since time.Time, maxRetries, limit int) ([]*Notification, error)
	RecordRetryAttemptFunc  func(ctx context.Context, id string) error
	ActiveUserIDsFunc       func(ctx context.Context, tenantID string) ([]string, error)
	DeleteReadOlderThanFunc func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *MockStore) CreateIfAbsent(ctx context.Context, n *Notification) (bool, error) {
	return m.CreateIfAbsentFunc(ctx, n)
}

func (m *MockStore) GetByID(ctx context.Context, id string) (*Notification, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockStore) MarkDelivered(ctx context.Context, id string) error {
	return m.MarkDeliveredFunc(ctx, id)
}

func (m *MockStore) MarkFailed(ctx context.Context, id string) error {
	return m.MarkFailedFunc(ctx, id)
}

func (m *MockStore) AckDelivered(ctx context.Context, tenantID, userID, id string) (bool, error) {
	return m.AckDeliveredFunc(ctx, tenantID, userID, id)
}

func (m *MockStore) MarkRead(ctx context.Context, tenantID, userID, id string) (bool, error) {
	return m.MarkReadFunc(ctx, tenantID, userID, id)
}

func (m *MockStore) MarkAllRead(ctx context.Context, tenantID, userID string) (int64, error) {
	return m.MarkAllReadFunc(ctx, tenantID, userID)
}

func (m *MockStore) CountUnread(ctx context.Context, tenantID, userID string) (int, error) {
	return m.CountUnreadFunc(ctx, tenantID, userID)
}

func (m *MockStore) ListForUser(ctx context.Context, tenantID, userID string, limit int) ([]*Notification, error) {
	return m.ListForUserFunc(ctx, tenantID, userID, limit)
}

func (m *MockStore) ListUndelivered(ctx context.Context, tenantID, userID string, limit int) ([]*Notification, error) {
	return m.ListUndeliveredFunc(ctx, tenantID, userID, limit)
}

func (m *MockStore) ListRetryable(ctx context.Context, since time.Time, maxRetries, limit int) ([]*Notification, error) {
	return m.ListRetryableFunc(ctx, since, maxRetries, limit)
}

func (m *MockStore) RecordRetryAttempt(ctx context.Context, id string) error {
	return m.RecordRetryAttemptFunc(ctx, id)
}

func (m *MockStore) ActiveUserIDs(ctx context.Context, tenantID string) ([]string, error) {
	return m.ActiveUserIDsFunc(ctx, tenantID)
}

func (m *MockStore) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.DeleteReadOlderThanFunc(ctx, cutoff)
}
