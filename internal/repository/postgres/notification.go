package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/signalhouse/dispatch/internal/domain"
)

const notificationColumns = `id, user_id, type, channel, title, message, metadata, priority, status,
		scheduled_at, retry_count, error_message, sent_at, failed_at, created_at, updated_at`

// NotificationRepository implements domain.NotificationRepository using PostgreSQL
type NotificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create creates a new notification
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		metadata = []byte("{}")
	}

	query := `
		INSERT INTO notifications (
			id, user_id, type, channel, title, message, metadata, priority, status,
			scheduled_at, retry_count, error_message, sent_at, failed_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	_, err = r.db.Pool.Exec(ctx, query,
		n.ID, n.UserID, n.Type, n.Channel, n.Title, n.Message, metadata, n.Priority, n.Status,
		n.ScheduledAt, n.RetryCount, n.ErrorMessage, n.SentAt, n.FailedAt, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// GetByID retrieves a notification by ID
func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE id = $1`, notificationColumns)

	return r.scanNotification(ctx, query, id)
}

// MarkProcessing claims the notification for a worker. The conditional
// update lets a redelivered job re-claim a FAILED or stalled PROCESSING
// row, while a row that already reached SENT is reported so the caller
// can drop the duplicate job without sending twice.
func (r *NotificationRepository) MarkProcessing(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	query := fmt.Sprintf(`
		UPDATE notifications
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status IN ('QUEUED', 'FAILED', 'PROCESSING')
		RETURNING %s
	`, notificationColumns)

	n, err := r.scanNotification(ctx, query, id, domain.StatusProcessing, time.Now().UTC())
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// No claimable row: distinguish delivered from missing.
	existing, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if existing.Status == domain.StatusSent {
		return nil, domain.ErrAlreadyDelivered
	}
	return nil, domain.ErrNotFound
}

// UpdateStatus updates the status atomically, stamping sent_at on SENT
// and failed_at plus error_message on FAILED.
func (r *NotificationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, errorMsg *string) error {
	query := `
		UPDATE notifications SET
			status = $2,
			error_message = CASE WHEN $2 = 'FAILED' THEN $3 ELSE error_message END,
			sent_at = CASE WHEN $2 = 'SENT' THEN $4 ELSE sent_at END,
			failed_at = CASE WHEN $2 = 'FAILED' THEN $4 ELSE failed_at END,
			updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.Pool.Exec(ctx, query, id, status, errorMsg, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// IncrementRetry bumps retry_count atomically
func (r *NotificationRepository) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notifications SET retry_count = retry_count + 1, updated_at = $2 WHERE id = $1`

	result, err := r.db.Pool.Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to increment retry count: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// FindFailedForRetry returns FAILED notifications with retry budget left,
// oldest failure first
func (r *NotificationRepository) FindFailedForRetry(ctx context.Context, limit, maxRetries int) ([]*domain.Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM notifications
		WHERE status = 'FAILED' AND retry_count < $1
		ORDER BY failed_at ASC NULLS LAST
		LIMIT $2
	`, notificationColumns)

	return r.scanNotifications(ctx, query, maxRetries, limit)
}

// FindStuckQueued returns QUEUED notifications that have not moved since
// olderThan ago, typically rows whose enqueue failed after create. Rows
// scheduled for the future are waiting, not stuck.
func (r *NotificationRepository) FindStuckQueued(ctx context.Context, olderThan time.Duration, limit int) ([]*domain.Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM notifications
		WHERE status = 'QUEUED' AND updated_at < $1
		  AND (scheduled_at IS NULL OR scheduled_at < now())
		ORDER BY updated_at ASC
		LIMIT $2
	`, notificationColumns)

	cutoff := time.Now().UTC().Add(-olderThan)
	return r.scanNotifications(ctx, query, cutoff, limit)
}

// DeleteOlderThan removes terminal notifications created before cutoff
// and returns the number of rows removed.
func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM notifications
		WHERE created_at < $1
		  AND (status = 'SENT' OR (status = 'FAILED' AND retry_count >= $2))
	`

	result, err := r.db.Pool.Exec(ctx, query, cutoff, domain.MaxRetries)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}

	return result.RowsAffected(), nil
}

// Helper functions

func (r *NotificationRepository) scanNotification(ctx context.Context, query string, args ...any) (*domain.Notification, error) {
	row := r.db.Pool.QueryRow(ctx, query, args...)

	n := &domain.Notification{}
	var metadata []byte

	err := row.Scan(
		&n.ID, &n.UserID, &n.Type, &n.Channel, &n.Title, &n.Message, &metadata, &n.Priority, &n.Status,
		&n.ScheduledAt, &n.RetryCount, &n.ErrorMessage, &n.SentAt, &n.FailedAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}

	if len(metadata) > 0 {
		json.Unmarshal(metadata, &n.Metadata)
	}

	return n, nil
}

func (r *NotificationRepository) scanNotifications(ctx context.Context, query string, args ...any) ([]*domain.Notification, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*domain.Notification, 0)
	for rows.Next() {
		n := &domain.Notification{}
		var metadata []byte

		err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Channel, &n.Title, &n.Message, &metadata, &n.Priority, &n.Status,
			&n.ScheduledAt, &n.RetryCount, &n.ErrorMessage, &n.SentAt, &n.FailedAt, &n.CreatedAt, &n.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		if len(metadata) > 0 {
			json.Unmarshal(metadata, &n.Metadata)
		}

		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}
