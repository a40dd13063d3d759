package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository is the PostgreSQL implementation of Store.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const notificationColumns = `id, tenant_id, user_id, event, is_critical, title, message, metadata,
	action_url, event_key, is_read, read_at, delivery_status, delivered_at,
	retry_count, last_retry_at, created_at`

// CreateIfAbsent performs the conditional insert behind event-key
// deduplication. ON CONFLICT DO NOTHING makes the check-and-insert a single
// atomic statement even under concurrent producers.
func (r *Repository) CreateIfAbsent(ctx context.Context, n *Notification) (bool, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.DeliveryStatus == "" {
		n.DeliveryStatus = StatusPending
	}
	if n.EventKey == "" {
		n.EventKey = EventKey(n.Event, "", n.UserID, n.TenantID)
	}

	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		return false, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if n.Metadata == nil {
		metadata = []byte("{}")
	}

	query := `
		INSERT INTO notifications (id, tenant_id, user_id, event, is_critical, title, message,
			metadata, action_url, event_key, delivery_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (event_key) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		n.ID, n.TenantID, n.UserID, n.Event, n.IsCritical, n.Title, n.Message,
		metadata, n.ActionURL, n.EventKey, n.DeliveryStatus, n.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert notification: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	return scanNotification(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) MarkDelivered(ctx context.Context, id string) error {
	query := `
		UPDATE notifications SET delivery_status = $1, delivered_at = $2
		WHERE id = $3 AND delivery_status <> $1
	`
	_, err := r.db.ExecContext(ctx, query, StatusDelivered, time.Now().UTC(), id)
	return err
}

func (r *Repository) MarkFailed(ctx context.Context, id string) error {
	query := `
		UPDATE notifications SET delivery_status = $1
		WHERE id = $2 AND delivery_status <> $3
	`
	_, err := r.db.ExecContext(ctx, query, StatusFailed, id, StatusDelivered)
	return err
}

func (r *Repository) AckDelivered(ctx context.Context, tenantID, userID, id string) (bool, error) {
	query := `
		UPDATE notifications SET delivery_status = $1, delivered_at = $2
		WHERE id = $3 AND tenant_id = $4 AND user_id = $5 AND delivery_status <> $1
	`
	res, err := r.db.ExecContext(ctx, query, StatusDelivered, time.Now().UTC(), id, tenantID, userID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

func (r *Repository) MarkRead(ctx context.Context, tenantID, userID, id string) (bool, error) {
	query := `
		UPDATE notifications SET is_read = TRUE, read_at = $1
		WHERE id = $2 AND tenant_id = $3 AND user_id = $4 AND NOT is_read
	`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id, tenantID, userID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	return rows > 0, err
}

func (r *Repository) MarkAllRead(ctx context.Context, tenantID, userID string) (int64, error) {
	query := `
		UPDATE notifications SET is_read = TRUE, read_at = $1
		WHERE tenant_id = $2 AND user_id = $3 AND NOT is_read
	`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), tenantID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository) CountUnread(ctx context.Context, tenantID, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE tenant_id = $1 AND user_id = $2 AND NOT is_read`
	var count int
	if err := r.db.QueryRowContext(ctx, query, tenantID, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) ListForUser(ctx context.Context, tenantID, userID string, limit int) ([]*Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`
	return r.queryNotifications(ctx, query, tenantID, userID, limit)
}

func (r *Repository) ListUndelivered(ctx context.Context, tenantID, userID string, limit int) ([]*Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE tenant_id = $1 AND user_id = $2 AND delivery_status <> $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`
	return r.queryNotifications(ctx, query, tenantID, userID, StatusDelivered, limit)
}

func (r *Repository) ListRetryable(ctx context.Context, since time.Time, maxRetries, limit int) ([]*Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE delivery_status = $1
		  AND retry_count < $2
		  AND COALESCE(last_retry_at, created_at) <= $3
		ORDER BY created_at ASC, id ASC
		LIMIT $4
	`
	return r.queryNotifications(ctx, query, StatusFailed, maxRetries, since, limit)
}

func (r *Repository) RecordRetryAttempt(ctx context.Context, id string) error {
	query := `UPDATE notifications SET retry_count = retry_count + 1, last_retry_at = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	return err
}

func (r *Repository) ActiveUserIDs(ctx context.Context, tenantID string) ([]string, error) {
	query := `SELECT user_id FROM tenant_users WHERE tenant_id = $1 AND is_active`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM notifications WHERE is_read AND created_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository) queryNotifications(ctx context.Context, query string, args ...any) ([]*Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		n, err := scanNotificationRow(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotificationRow(row rowScanner) (*Notification, error) {
	var n Notification
	var metadata []byte
	err := row.Scan(
		&n.ID, &n.TenantID, &n.UserID, &n.Event, &n.IsCritical, &n.Title, &n.Message, &metadata,
		&n.ActionURL, &n.EventKey, &n.IsRead, &n.ReadAt, &n.DeliveryStatus, &n.DeliveredAt,
		&n.RetryCount, &n.LastRetryAt, &n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &n, nil
}

func scanNotification(row *sql.Row) (*Notification, error) {
	n, err := scanNotificationRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}
