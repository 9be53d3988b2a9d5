package postgres

import (
	"context"
	"fmt"
	"time"

	"mission-rewards-ledger/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

const notificationColumns = `id, recipient_type, recipient_id, event, payload, attempt, status,
		next_attempt_at, last_error, created_at, updated_at`

// NotificationRepo implements ports.NotificationRepository.
type NotificationRepo struct {
	pool Pool
}

func NewNotificationRepo(pool Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// Create enqueues a notification in the caller's transaction so it only
// exists if the change it describes commits.
func (r *NotificationRepo) Create(ctx context.Context, tx pgx.Tx, n *domain.Notification) error {
	query := `INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		n.ID, n.Recipient.Type, n.Recipient.ID, n.Event, n.Payload, n.Attempt, n.Status,
		n.NextAttemptAt, n.LastError, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListDue returns pending notifications whose next attempt is due, oldest first.
func (r *NotificationRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE status = 'pending' AND next_attempt_at <= $1
		ORDER BY next_attempt_at
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due notifications: %w", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID, &n.Recipient.Type, &n.Recipient.ID, &n.Event, &n.Payload, &n.Attempt, &n.Status,
			&n.NextAttemptAt, &n.LastError, &n.CreatedAt, &n.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notification rows: %w", err)
	}
	return notifications, nil
}

// Update records the outcome of a delivery attempt.
func (r *NotificationRepo) Update(ctx context.Context, n *domain.Notification) error {
	query := `UPDATE notifications
		SET attempt = $1, status = $2, next_attempt_at = $3, last_error = $4, updated_at = NOW()
		WHERE id = $5`

	_, err := r.pool.Exec(ctx, query, n.Attempt, n.Status, n.NextAttemptAt, n.LastError, n.ID)
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}
	return nil
}
